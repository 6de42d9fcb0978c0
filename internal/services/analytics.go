package services

import (
	"fmt"
	"math"

	"github.com/latestcomment/tabbycat-dashboard/internal/models"
)

// SpeakerAnalytics summarises a score sequence.
type SpeakerAnalytics struct {
	AvgScore        float64 `json:"avg_score"`
	StdDev          float64 `json:"std_dev"`
	Trend           string  `json:"trend"`
	Consistency     string  `json:"consistency"`
	Percentile      float64 `json:"percentile"`
	ImprovementRate float64 `json:"improvement_rate"`
	ScoreRange      string  `json:"score_range"`
	TotalRounds     int     `json:"total_rounds"`
}

// AnalyzeScores returns nil for an empty sequence.
func AnalyzeScores(scores []float64) *SpeakerAnalytics {
	if len(scores) == 0 {
		return nil
	}

	a := &SpeakerAnalytics{TotalRounds: len(scores), Trend: "insufficient_data"}
	minScore, maxScore := scores[0], scores[0]
	var sum float64
	for _, s := range scores {
		sum += s
		minScore = math.Min(minScore, s)
		maxScore = math.Max(maxScore, s)
	}
	avg := sum / float64(len(scores))

	var sq float64
	for _, s := range scores {
		sq += (s - avg) * (s - avg)
	}
	std := math.Sqrt(sq / float64(len(scores)))

	if len(scores) > 1 {
		switch slope := leastSquaresSlope(scores); {
		case slope > 0.5:
			a.Trend = "improving"
		case slope < -0.5:
			a.Trend = "declining"
		default:
			a.Trend = "stable"
		}
		if scores[0] != 0 {
			a.ImprovementRate = round1((scores[len(scores)-1] - scores[0]) / scores[0] * 100)
		}
	}

	switch {
	case std < 3:
		a.Consistency = "high"
	case std < 6:
		a.Consistency = "moderate"
	default:
		a.Consistency = "low"
	}

	a.AvgScore = round2(avg)
	a.StdDev = round2(std)
	a.Percentile = round1(math.Min(95, math.Max(5, (avg-70)/20*100)))
	a.ScoreRange = fmt.Sprintf("%s-%s", formatScore(minScore), formatScore(maxScore))
	return a
}

func leastSquaresSlope(ys []float64) float64 {
	n := float64(len(ys))
	var sx, sy, sxy, sxx float64
	for i, y := range ys {
		x := float64(i)
		sx += x
		sy += y
		sxy += x * y
		sxx += x * x
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0
	}
	return (n*sxy - sx*sy) / den
}

// JudgeStats is the quick scoring profile of a judge across all rounds.
type JudgeStats struct {
	Avg       float64
	Spread    float64
	Tendency  string
	HasScores bool
}

func AnalyzeJudge(j models.JudgeRecord) JudgeStats {
	var scores []float64
	for _, r := range j.Rounds {
		for _, sp := range r.Speakers {
			if sp.Score != nil {
				scores = append(scores, *sp.Score)
			}
		}
	}
	if len(scores) == 0 {
		return JudgeStats{Tendency: "unknown"}
	}

	lo, hi, sum := scores[0], scores[0], 0.0
	for _, s := range scores {
		sum += s
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	avg := sum / float64(len(scores))
	st := JudgeStats{Avg: round1(avg), Spread: hi - lo, HasScores: true}
	switch {
	case avg < 72:
		st.Tendency = "low-scorer"
	case avg < 78:
		st.Tendency = "mid-scorer"
	default:
		st.Tendency = "high-scorer"
	}
	return st
}

// TeamDelta compares the first and last round averages.
type TeamDelta struct {
	Start, End, Delta float64
	Known             bool
}

func AnalyzeTeam(t models.TeamRecord) TeamDelta {
	if len(t.Rounds) == 0 {
		return TeamDelta{}
	}
	start, end := t.Rounds[0].AverageScore, t.Rounds[len(t.Rounds)-1].AverageScore
	if start == nil || end == nil {
		return TeamDelta{}
	}
	return TeamDelta{Start: *start, End: *end, Delta: round2(*end - *start), Known: true}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

// formatScore prints whole scores without a decimal point.
func formatScore(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
