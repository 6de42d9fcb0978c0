package services

import (
	"context"
	"html/template"
	"sync"
	"testing"

	"github.com/latestcomment/tabbycat-dashboard/internal/models"
	"github.com/latestcomment/tabbycat-dashboard/internal/views"
)

func score(v float64) *float64 { return &v }

func testDataset() *models.Dataset {
	return &models.Dataset{
		Speakers: []models.SpeakerRecord{
			{Name: "Aarav", Team: "Lotus", Role: "PM", Round: "R1", Score: score(78),
				Feedback: models.SpeakerFeedback{General: "Clear framing", Improvement: "Weigh more"}},
			{Name: "Aarav", Team: "Lotus", Role: "PM", Round: "R2", Score: score(82),
				Feedback: models.SpeakerFeedback{General: "Strong mechanism", Improvement: "Timing"}},
		},
		Teams: []models.TeamRecord{{
			Name:    "Lotus",
			Members: []string{"Aarav", "Diya"},
			Rounds: []models.RoundSummary{
				{Round: "R1", AverageScore: score(77.5), Feedback: "Thin rebuttal"},
				{Round: "R2", AverageScore: score(80), Feedback: "Better rebuttal"},
			},
		}},
		Judges: []models.JudgeRecord{{
			Name:           "Priya",
			Style:          "Analytical",
			OverallInsight: "Rewards weighing",
			Rounds: []models.RoundJudged{
				{Round: "R1", Speakers: []models.ScoredSpeaker{{Name: "Aarav", Score: score(78)}}},
				{Round: "R2", Speakers: []models.ScoredSpeaker{{Name: "Aarav", Score: score(82)}, {Name: "Diya", Score: score(79)}}},
			},
		}},
		Motions: []models.MotionRecord{
			{Motion: "THW ban cars", Round: "R1", GovWinRate: 58, OppWinRate: 42, Insight: "Transit", Complexity: "Medium"},
			{Motion: "THR influencers", Round: "R2", GovWinRate: 47, OppWinRate: 53, Insight: "Agency"},
		},
	}
}

// fakeInsights answers every request with "ok:<endpoint>" once block is
// closed, or with the fallback when the request context ends first.
type fakeInsights struct {
	block chan struct{}

	mu        sync.Mutex
	calls     []string
	payloads  []interface{}
	report    []byte
	reportErr error
}

func newFakeInsights(blocking bool) *fakeInsights {
	f := &fakeInsights{block: make(chan struct{})}
	if !blocking {
		close(f.block)
	}
	return f
}

func (f *fakeInsights) Request(ctx context.Context, endpoint string, payload interface{}) Insight {
	f.mu.Lock()
	f.calls = append(f.calls, endpoint)
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		return fallbackInsight(endpoint)
	case <-f.block:
		text := "ok:" + endpoint
		return Insight{Text: text, HTML: template.HTML(template.HTMLEscapeString(text))}
	}
}

func (f *fakeInsights) PerformanceReport(ctx context.Context, speakers []models.SpeakerRecord) ([]byte, error) {
	return f.report, f.reportErr
}

func (f *fakeInsights) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeInsights) motionRequests() []MotionStrategyRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []MotionStrategyRequest
	for _, p := range f.payloads {
		if r, ok := p.(MotionStrategyRequest); ok {
			out = append(out, r)
		}
	}
	return out
}

type recordingConn struct {
	mu   sync.Mutex
	msgs []models.Message
}

func (c *recordingConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, v.(models.Message))
	return nil
}

func (c *recordingConn) messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Message(nil), c.msgs...)
}

func (c *recordingConn) ofType(typ string, panel models.Panel) []models.Message {
	var out []models.Message
	for _, m := range c.messages() {
		if m.Type == typ && (panel == "" || m.Panel == panel) {
			out = append(out, m)
		}
	}
	return out
}

func newTestService(t *testing.T, insights InsightRequester) *SessionService {
	t.Helper()
	svc := NewSessionService(insights, views.NewEngine(), nil)
	t.Cleanup(svc.Close)
	return svc
}
