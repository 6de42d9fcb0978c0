package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/latestcomment/tabbycat-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insightServer(t *testing.T, handler http.HandlerFunc) *InsightClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewInsightClient(srv.URL, time.Second, nil)
	c.Client = srv.Client()
	return c
}

func respondJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestInsightClient_Success(t *testing.T) {
	var got SpeakerInsightRequest
	c := insightServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, EndpointAnalyzeSpeaker, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respondJSON(`{"status":"success","insights":"X"}`)(w, r)
	})

	ins := c.Request(context.Background(), EndpointAnalyzeSpeaker, SpeakerInsightRequest{SpeakerName: "Aarav", Scores: []float64{78, 82}})
	assert.False(t, ins.Failed)
	assert.Equal(t, "X", ins.Text)
	assert.Contains(t, string(ins.HTML), "X")
	assert.Equal(t, models.InsightResolved, ins.State())
	assert.Equal(t, "Aarav", got.SpeakerName)
	assert.Equal(t, []float64{78, 82}, got.Scores)
}

func TestInsightClient_ResponseKeys(t *testing.T) {
	for _, body := range []string{
		`{"status":"success","insight":"X"}`,
		`{"status":"success","strategy":"X"}`,
	} {
		c := insightServer(t, respondJSON(body))
		ins := c.Request(context.Background(), EndpointMotionStrategy, MotionStrategyRequest{Motion: "m"})
		assert.Equal(t, "X", ins.Text, body)
		assert.False(t, ins.Failed)
	}
}

func TestInsightClient_EnhancedInsights(t *testing.T) {
	c := insightServer(t, respondJSON(`{"status":"success","insights":{"analytics":{"avg_score":80.5,"trend":"improving","consistency":"high","percentile":52.5},"ai_analysis":"**Keep** weighing"}}`))

	ins := c.Request(context.Background(), EndpointAnalyzeSpeaker, SpeakerInsightRequest{})
	require.False(t, ins.Failed)
	require.NotNil(t, ins.Analytics)
	assert.Equal(t, 80.5, ins.Analytics.AvgScore)
	assert.Equal(t, "improving", ins.Analytics.Trend)
	assert.Contains(t, string(ins.HTML), "<strong>Keep</strong>")
}

func TestInsightClient_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"error status field", respondJSON(`{"status":"error","error":"quota"}`)},
		{"missing text", respondJSON(`{"status":"success"}`)},
		{"blank text", respondJSON(`{"status":"success","insights":"  "}`)},
		{"unexpected shape", respondJSON(`{"status":"success","insights":[1,2]}`)},
		{"malformed json", respondJSON(`{"status":`)},
		{"http 500", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"status":"success","insights":"X"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := insightServer(t, tt.handler)
			ins := c.Request(context.Background(), EndpointTeamInsights, TeamInsightRequest{})
			assert.True(t, ins.Failed)
			assert.Equal(t, "AI team analysis temporarily unavailable", ins.Text)
			assert.Equal(t, models.InsightFailed, ins.State())
		})
	}
}

func TestInsightClient_TimeoutFallsBack(t *testing.T) {
	release := make(chan struct{})
	c := insightServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c.Timeout = 30 * time.Millisecond

	start := time.Now()
	ins := c.Request(context.Background(), EndpointJudgeComprehensive, JudgeInsightRequest{})
	assert.True(t, ins.Failed)
	assert.Equal(t, FallbackText(EndpointJudgeComprehensive), ins.Text)
	assert.Less(t, time.Since(start), time.Second)
}

func TestInsightClient_NetworkErrorAndNoBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ins := NewInsightClient(url, time.Second, nil).Request(context.Background(), EndpointAnalyzeSpeaker, nil)
	assert.True(t, ins.Failed)
	assert.Equal(t, GenericFallback, ins.Text)

	ins = NewInsightClient("", time.Second, nil).Request(context.Background(), "/ai/other", nil)
	assert.True(t, ins.Failed)
	assert.Equal(t, GenericFallback, ins.Text)
}

func TestInsightClient_EscapesRawHTML(t *testing.T) {
	c := insightServer(t, respondJSON(`{"status":"success","insights":"<script>alert(1)</script> plain"}`))
	ins := c.Request(context.Background(), EndpointAnalyzeSpeaker, nil)
	require.False(t, ins.Failed)
	assert.NotContains(t, string(ins.HTML), "<script>")
	assert.Contains(t, string(ins.HTML), "plain")
}

func TestInsightClient_PerformanceReport(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")

	t.Run("decodes report chart", func(t *testing.T) {
		var got map[string][]models.SpeakerRecord
		c := insightServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, EndpointPerformanceReport, r.URL.Path)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			respondJSON(`{"status":"success","report_chart":"` + base64.StdEncoding.EncodeToString(png) + `"}`)(w, r)
		})

		out, err := c.PerformanceReport(context.Background(), testDataset().Speakers)
		require.NoError(t, err)
		assert.Equal(t, png, out)
		assert.Len(t, got["speaker_data"], 2)
	})

	t.Run("failures", func(t *testing.T) {
		for _, body := range []string{
			`{"status":"error","error":"matplotlib missing"}`,
			`{"status":"success"}`,
			`{"status":"success","report_chart":"%%%"}`,
		} {
			c := insightServer(t, respondJSON(body))
			_, err := c.PerformanceReport(context.Background(), nil)
			assert.ErrorIs(t, err, ErrReportUnavailable, body)
		}
	})
}

func TestRenderMarkdown(t *testing.T) {
	html := string(RenderMarkdown("- one\n- two"))
	assert.Equal(t, 2, strings.Count(html, "<li>"))
	assert.NotContains(t, string(RenderMarkdown(`<img src=x onerror="alert(1)">`)), "onerror")

	inline := string(RenderMarkdown("a <b>bold</b> claim"))
	assert.Contains(t, inline, "bold")
	assert.NotContains(t, inline, "<b>", "raw HTML is dropped")
	assert.NotContains(t, inline, "&lt;b&gt;", "raw HTML is not escaped into text")
}
