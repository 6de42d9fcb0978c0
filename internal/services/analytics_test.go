package services

import (
	"testing"

	"github.com/latestcomment/tabbycat-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeScores(t *testing.T) {
	assert.Nil(t, AnalyzeScores(nil))

	t.Run("improving", func(t *testing.T) {
		a := AnalyzeScores([]float64{78, 81, 84})
		require.NotNil(t, a)
		assert.Equal(t, 81.0, a.AvgScore)
		assert.Equal(t, "improving", a.Trend)
		assert.Equal(t, "high", a.Consistency) // std ~2.45
		assert.Equal(t, 55.0, a.Percentile)
		assert.Equal(t, 7.7, a.ImprovementRate)
		assert.Equal(t, "78-84", a.ScoreRange)
		assert.Equal(t, 3, a.TotalRounds)
	})

	t.Run("declining and erratic", func(t *testing.T) {
		a := AnalyzeScores([]float64{90, 70, 88, 60})
		assert.Equal(t, "declining", a.Trend)
		assert.Equal(t, "low", a.Consistency)
	})

	t.Run("single score", func(t *testing.T) {
		a := AnalyzeScores([]float64{72.5})
		assert.Equal(t, "insufficient_data", a.Trend)
		assert.Equal(t, 0.0, a.ImprovementRate)
		assert.Equal(t, 12.5, a.Percentile)
		assert.Equal(t, "72.5-72.5", a.ScoreRange)
	})

	t.Run("percentile clamps", func(t *testing.T) {
		assert.Equal(t, 5.0, AnalyzeScores([]float64{50, 50}).Percentile)
		assert.Equal(t, 95.0, AnalyzeScores([]float64{99, 99}).Percentile)
		assert.Equal(t, "stable", AnalyzeScores([]float64{99, 99}).Trend)
	})
}

func TestAnalyzeJudge(t *testing.T) {
	st := AnalyzeJudge(testDataset().Judges[0])
	assert.True(t, st.HasScores)
	assert.Equal(t, 79.7, st.Avg)
	assert.Equal(t, 4.0, st.Spread)
	assert.Equal(t, "high-scorer", st.Tendency)

	assert.Equal(t, "unknown", AnalyzeJudge(models.JudgeRecord{}).Tendency)
}

func TestAnalyzeTeam(t *testing.T) {
	d := AnalyzeTeam(testDataset().Teams[0])
	assert.True(t, d.Known)
	assert.Equal(t, 2.5, d.Delta)

	assert.False(t, AnalyzeTeam(models.TeamRecord{}).Known)
}
