package services

import (
	"context"
	"testing"

	"github.com/latestcomment/tabbycat-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestGenerations_LatestWins(t *testing.T) {
	g := NewGenerations()

	gen1, ctx1 := g.Begin(context.Background(), models.PanelSpeaker)
	gen2, ctx2 := g.Begin(context.Background(), models.PanelSpeaker)

	assert.Equal(t, uint64(1), gen1)
	assert.Equal(t, uint64(2), gen2)
	assert.ErrorIs(t, ctx1.Err(), context.Canceled, "restart cancels the previous request")
	assert.NoError(t, ctx2.Err())

	assert.False(t, g.Settle(models.PanelSpeaker, gen1, models.InsightResolved), "stale result is discarded")
	gen, state := g.Current(models.PanelSpeaker)
	assert.Equal(t, gen2, gen)
	assert.Equal(t, models.InsightLoading, state)

	assert.True(t, g.Settle(models.PanelSpeaker, gen2, models.InsightFailed))
	_, state = g.Current(models.PanelSpeaker)
	assert.Equal(t, models.InsightFailed, state)
	assert.False(t, g.Settle(models.PanelSpeaker, gen2, models.InsightResolved), "settled runs stay settled")
}

func TestGenerations_PanelsAreIndependent(t *testing.T) {
	g := NewGenerations()

	speakerGen, speakerCtx := g.Begin(context.Background(), models.PanelSpeaker)
	_, _ = g.Begin(context.Background(), models.PanelTeam)

	assert.NoError(t, speakerCtx.Err())
	assert.True(t, g.Settle(models.PanelSpeaker, speakerGen, models.InsightResolved))

	gen, state := g.Current(models.PanelJudge)
	assert.Zero(t, gen)
	assert.Equal(t, models.InsightIdle, state)
	assert.False(t, g.Settle(models.PanelJudge, 1, models.InsightResolved))
}

func TestGenerations_Close(t *testing.T) {
	g := NewGenerations()
	_, ctx := g.Begin(context.Background(), models.PanelTeam)
	g.Close()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
