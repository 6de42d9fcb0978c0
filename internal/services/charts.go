package services

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/latestcomment/tabbycat-dashboard/internal/models"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Canvas ids the dashboard page mounts charts on.
const (
	CanvasSpeaker = "speakerChart"
	CanvasTeam    = "teamChart"
)

const (
	NoDataText = "No data"

	chartWidth  = 640
	chartHeight = 320
	scoreFloor  = 70.0
	scoreCeil   = 90.0
)

var ErrUnknownCanvas = errors.New("unknown chart canvas")

// ChartSeries is a score-over-round line.
type ChartSeries struct {
	Title  string
	Name   string
	Labels []string
	Values []float64
	Color  string // hex, no leading '#'
}

// ChartView is what a page needs to mount a canvas: an image source or a
// placeholder text.
type ChartView struct {
	Canvas      string
	Src         string
	Alt         string
	Placeholder string
}

// ChartInstance is one constructed chart bound to a canvas.
type ChartInstance struct {
	Canvas  string
	Version uint64
	Series  ChartSeries
	PNG     []byte

	destroyed bool
}

func (c *ChartInstance) Destroy() {
	c.PNG = nil
	c.destroyed = true
}

func (c *ChartInstance) Destroyed() bool { return c.destroyed }

// ChartRegistry keeps at most one live chart per canvas. A canvas whose
// last render had no data holds a placeholder instead of a chart.
type ChartRegistry struct {
	mu           sync.Mutex
	charts       map[string]*ChartInstance
	placeholders map[string]string
	version      uint64
}

func NewChartRegistry() *ChartRegistry {
	return &ChartRegistry{
		charts:       make(map[string]*ChartInstance),
		placeholders: make(map[string]string),
	}
}

// Render destroys any chart already on canvas and draws series in its
// place. An empty series constructs nothing and leaves a NoDataText
// placeholder on the canvas; the returned instance is then nil.
func (r *ChartRegistry) Render(canvas string, series ChartSeries) (*ChartInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.charts[canvas]; ok {
		prev.Destroy()
		delete(r.charts, canvas)
	}
	delete(r.placeholders, canvas)

	if len(series.Values) == 0 {
		r.placeholders[canvas] = NoDataText
		return nil, nil
	}

	png, err := drawLineChart(series)
	if err != nil {
		r.placeholders[canvas] = NoDataText
		return nil, fmt.Errorf("render %s: %w", canvas, err)
	}
	r.version++
	inst := &ChartInstance{Canvas: canvas, Version: r.version, Series: series, PNG: png}
	r.charts[canvas] = inst
	return inst, nil
}

func (r *ChartRegistry) Get(canvas string) (*ChartInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.charts[canvas]
	return c, ok
}

// PNG returns the image of the live chart on canvas. The slice is taken
// under the registry lock since a concurrent Render destroys the instance.
func (r *ChartRegistry) PNG(canvas string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.charts[canvas]
	if !ok {
		return nil, false
	}
	return c.PNG, true
}

func (r *ChartRegistry) Placeholder(canvas string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.placeholders[canvas]
	return p, ok
}

// Live returns the number of undestroyed chart instances.
func (r *ChartRegistry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.charts)
}

// Clear destroys every chart, used when a session ends.
func (r *ChartRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, c := range r.charts {
		c.Destroy()
		delete(r.charts, k)
	}
	clear(r.placeholders)
}

// SpeakerSeries builds the speaker score trend, one point per scored record.
func SpeakerSeries(speakers []models.SpeakerRecord) ChartSeries {
	s := ChartSeries{Title: "Speaker Score Trend", Name: "Speaker Score", Color: "e74c3c"}
	for _, sp := range speakers {
		if sp.Score == nil {
			continue
		}
		s.Labels = append(s.Labels, sp.Round)
		s.Values = append(s.Values, *sp.Score)
	}
	return s
}

// TeamSeries builds the team average score per round.
func TeamSeries(team models.TeamRecord) ChartSeries {
	s := ChartSeries{Title: team.Name, Name: "Team Average Score", Color: "3498db"}
	if s.Title == "" {
		s.Title = "Team Average Score"
	}
	for _, r := range team.Rounds {
		if r.AverageScore == nil {
			continue
		}
		s.Labels = append(s.Labels, r.Round)
		s.Values = append(s.Values, *r.AverageScore)
	}
	return s
}

func drawLineChart(s ChartSeries) ([]byte, error) {
	xs := make([]float64, len(s.Values))
	ticks := make([]chart.Tick, len(s.Values))
	for i := range s.Values {
		xs[i] = float64(i + 1)
		label := ""
		if i < len(s.Labels) {
			label = s.Labels[i]
		}
		ticks[i] = chart.Tick{Value: xs[i], Label: label}
	}

	lo, hi := scoreAxis(s.Values)
	color := drawing.ColorFromHex(s.Color)

	ch := chart.Chart{
		Title:      s.Title,
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 12}},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: 0.5, Max: float64(len(xs)) + 0.5},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:  "Score",
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    s.Name,
				XValues: xs,
				YValues: s.Values,
				Style: chart.Style{
					StrokeColor: color,
					StrokeWidth: 2,
					FillColor:   color.WithAlpha(26),
					DotColor:    color,
					DotWidth:    4,
				},
			},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// scoreAxis keeps the conventional 70-90 band unless a value falls outside.
func scoreAxis(values []float64) (float64, float64) {
	lo, hi := scoreFloor, scoreCeil
	for _, v := range values {
		lo = math.Min(lo, math.Floor(v)-1)
		hi = math.Max(hi, math.Ceil(v)+1)
	}
	return lo, hi
}
