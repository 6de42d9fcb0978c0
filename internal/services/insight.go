package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/latestcomment/tabbycat-dashboard/internal/models"
	"go.uber.org/zap"
)

const (
	EndpointAnalyzeSpeaker     = "/ai/analyze-speaker"
	EndpointTeamInsights       = "/ai/team-insights"
	EndpointJudgeComprehensive = "/ai/judge-comprehensive"
	EndpointMotionStrategy     = "/ai/motion-strategy"
	EndpointPerformanceReport  = "/ai/performance-report"
)

// GenericFallback is used for endpoints without a dedicated fallback text.
const GenericFallback = "AI insights temporarily unavailable"

var fallbackText = map[string]string{
	EndpointAnalyzeSpeaker:     "AI insights temporarily unavailable",
	EndpointTeamInsights:       "AI team analysis temporarily unavailable",
	EndpointJudgeComprehensive: "AI comprehensive judge analysis temporarily unavailable",
	EndpointMotionStrategy:     "AI strategy generation temporarily unavailable",
}

// FallbackText returns the fixed text shown when endpoint fails.
func FallbackText(endpoint string) string {
	if s, ok := fallbackText[endpoint]; ok {
		return s
	}
	return GenericFallback
}

var ErrReportUnavailable = errors.New("performance report unavailable")

// Insight is the outcome of one insight request. It never carries an error:
// failures are folded into the fallback text with Failed set.
type Insight struct {
	Text      string
	HTML      template.HTML
	Analytics *SpeakerAnalytics
	Failed    bool
}

func (i Insight) State() models.InsightState {
	if i.Failed {
		return models.InsightFailed
	}
	return models.InsightResolved
}

// Payloads accepted by the insight endpoints.
type (
	SpeakerInsightRequest struct {
		SpeakerName string    `json:"speaker_name"`
		Scores      []float64 `json:"scores"`
		Motion      string    `json:"motion"`
	}
	TeamInsightRequest struct {
		TeamData models.TeamRecord `json:"team_data"`
	}
	JudgeInsightRequest struct {
		JudgeData models.JudgeRecord `json:"judge_data"`
	}
	MotionStrategyRequest struct {
		Motion        string   `json:"motion"`
		Side          string   `json:"side"`
		TeamStrengths []string `json:"team_strengths"`
	}
	performanceReportRequest struct {
		SpeakerData []models.SpeakerRecord `json:"speaker_data"`
	}
)

type insightResponse struct {
	Status      string          `json:"status"`
	Insights    json.RawMessage `json:"insights"`
	Insight     json.RawMessage `json:"insight"`
	Strategy    json.RawMessage `json:"strategy"`
	ReportChart string          `json:"report_chart"`
	Error       string          `json:"error"`
}

type enhancedInsight struct {
	Analytics  *SpeakerAnalytics `json:"analytics"`
	AIAnalysis string            `json:"ai_analysis"`
}

type InsightClient struct {
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
	Log     *zap.Logger
}

func NewInsightClient(baseURL string, timeout time.Duration, log *zap.Logger) *InsightClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &InsightClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{},
		Timeout: timeout,
		Log:     log.Named("insight"),
	}
}

// Request posts payload to endpoint and returns the generated text, or the
// endpoint's fallback text on any failure: transport error, timeout,
// non-2xx, malformed JSON, or a status other than "success".
func (c *InsightClient) Request(ctx context.Context, endpoint string, payload interface{}) Insight {
	resp, err := c.post(ctx, endpoint, payload)
	if err != nil {
		c.Log.Debug("insight request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return fallbackInsight(endpoint)
	}

	raw := firstPresent(resp.Insights, resp.Insight, resp.Strategy)
	if raw == nil {
		c.Log.Debug("insight response without text", zap.String("endpoint", endpoint))
		return fallbackInsight(endpoint)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if strings.TrimSpace(text) == "" {
			return fallbackInsight(endpoint)
		}
		return Insight{Text: text, HTML: RenderMarkdown(text)}
	}

	var enhanced enhancedInsight
	if err := json.Unmarshal(raw, &enhanced); err != nil || (enhanced.Analytics == nil && enhanced.AIAnalysis == "") {
		c.Log.Debug("insight response has unexpected shape", zap.String("endpoint", endpoint))
		return fallbackInsight(endpoint)
	}
	return Insight{
		Text:      enhanced.AIAnalysis,
		HTML:      RenderMarkdown(enhanced.AIAnalysis),
		Analytics: enhanced.Analytics,
	}
}

// PerformanceReport requests the downloadable report chart and returns the
// decoded PNG bytes.
func (c *InsightClient) PerformanceReport(ctx context.Context, speakers []models.SpeakerRecord) ([]byte, error) {
	resp, err := c.post(ctx, EndpointPerformanceReport, performanceReportRequest{SpeakerData: speakers})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportUnavailable, err)
	}
	if resp.ReportChart == "" {
		return nil, fmt.Errorf("%w: empty report_chart", ErrReportUnavailable)
	}
	png, err := base64.StdEncoding.DecodeString(resp.ReportChart)
	if err != nil {
		return nil, fmt.Errorf("%w: decode report_chart: %v", ErrReportUnavailable, err)
	}
	return png, nil
}

func (c *InsightClient) post(ctx context.Context, endpoint string, payload interface{}) (*insightResponse, error) {
	if c.BaseURL == "" {
		return nil, errors.New("no insight backend configured")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	target, err := url.JoinPath(c.BaseURL, endpoint)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out insightResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Status != "success" {
		return nil, fmt.Errorf("status %q: %s", out.Status, out.Error)
	}
	return &out, nil
}

func fallbackInsight(endpoint string) Insight {
	text := FallbackText(endpoint)
	return Insight{Text: text, HTML: template.HTML(template.HTMLEscapeString(text)), Failed: true}
}

func firstPresent(raws ...json.RawMessage) json.RawMessage {
	for _, r := range raws {
		if len(r) > 0 && string(r) != "null" {
			return r
		}
	}
	return nil
}
