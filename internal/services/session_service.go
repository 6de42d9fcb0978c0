package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/latestcomment/tabbycat-dashboard/internal/models"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

const SessionExpiredText = "Session expired. Please refresh the page."

// DefaultTeamStrengths is sent with motion strategy requests made from the
// speaker panel.
var DefaultTeamStrengths = []string{"Strong argumentation", "Good delivery"}

// FragmentRenderer renders a named template; the Fiber view engine
// satisfies it.
type FragmentRenderer interface {
	Render(out io.Writer, name string, binding interface{}, layout ...string) error
}

// InsightRequester is the AI insight backend as seen by sessions.
type InsightRequester interface {
	Request(ctx context.Context, endpoint string, payload interface{}) Insight
	PerformanceReport(ctx context.Context, speakers []models.SpeakerRecord) ([]byte, error)
}

type DashboardCounts struct {
	Speakers, Teams, Judges, Motions int
}

// DashboardView is the binding of the dashboard page.
type DashboardView struct {
	SessionID string
	Counts    DashboardCounts
	Speaker   SpeakerPanel
	Team      TeamPanel
	Judge     JudgePanel
	Motion    MotionPanel
}

// InsightView is the binding of the insight partial.
type InsightView struct {
	Target    string
	State     models.InsightState
	Text      string
	HTML      template.HTML
	Analytics *SpeakerAnalytics
}

type session struct {
	*models.Session
	charts *ChartRegistry
	gens   *Generations
	ctx    context.Context
	cancel context.CancelFunc
}

type SessionService struct {
	insights InsightRequester
	views    FragmentRenderer
	log      *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	wg       sync.WaitGroup
}

func NewSessionService(insights InsightRequester, views FragmentRenderer, log *zap.Logger) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionService{
		insights: insights,
		views:    views,
		log:      log.Named("sessions"),
		sessions: make(map[uuid.UUID]*session),
	}
}

// Create stores ds in a new session with every panel on its first option.
func (s *SessionService) Create(ds *models.Dataset) uuid.UUID {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		Session: &models.Session{
			ID:         uuid.New(),
			Dataset:    ds,
			Selections: make(map[models.Panel]string),
			LastSeen:   time.Now(),
		},
		charts: NewChartRegistry(),
		gens:   NewGenerations(),
		ctx:    ctx,
		cancel: cancel,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.log.Debug("session created", zap.String("session", sess.ID.String()))
	return sess.ID
}

func (s *SessionService) get(id uuid.UUID) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.Mu.Lock()
	sess.LastSeen = time.Now()
	sess.Mu.Unlock()
	return sess, nil
}

// Count returns the number of live sessions.
func (s *SessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Dashboard builds the full page binding for the session's current
// selections, rendering both charts.
func (s *SessionService) Dashboard(id uuid.UUID) (DashboardView, error) {
	sess, err := s.get(id)
	if err != nil {
		return DashboardView{}, err
	}
	ds := sess.Dataset
	v := DashboardView{
		SessionID: id.String(),
		Counts:    DashboardCounts{len(ds.Speakers), len(ds.Teams), len(ds.Judges), len(ds.Motions)},
		Motion:    BuildMotionPanel(ds),
	}
	if v.Speaker, err = s.speakerPanel(sess, sess.selection(models.PanelSpeaker)); err != nil {
		return v, err
	}
	if v.Team, err = s.teamPanel(sess, sess.selection(models.PanelTeam)); err != nil {
		return v, err
	}
	if v.Judge, err = BuildJudgePanel(ds, sess.selection(models.PanelJudge)); err != nil {
		return v, err
	}
	return v, nil
}

// Panel re-renders one panel from the in-memory dataset and makes key the
// panel's active selection. No network call is made.
func (s *SessionService) Panel(id uuid.UUID, panel models.Panel, key string) (string, error) {
	sess, err := s.get(id)
	if err != nil {
		return "", err
	}
	return s.renderPanel(sess, panel, key)
}

func (s *SessionService) renderPanel(sess *session, panel models.Panel, key string) (string, error) {
	var (
		binding interface{}
		err     error
	)
	switch panel {
	case models.PanelSpeaker:
		binding, err = s.speakerPanel(sess, key)
	case models.PanelTeam:
		binding, err = s.teamPanel(sess, key)
	case models.PanelJudge:
		binding, err = BuildJudgePanel(sess.Dataset, key)
	case models.PanelMotion:
		binding = BuildMotionPanel(sess.Dataset)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPanel, panel)
	}
	if err != nil {
		return "", err
	}

	html, err := s.render("partials/"+string(panel), binding)
	if err != nil {
		return "", err
	}
	sess.Mu.Lock()
	sess.Selections[panel] = key
	sess.Mu.Unlock()
	return html, nil
}

// Select handles a dropdown change pushed over the websocket: the panel is
// re-rendered and pushed, then its insight machine restarts.
func (s *SessionService) Select(id uuid.UUID, panel models.Panel, key string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	html, err := s.renderPanel(sess, panel, key)
	if err != nil {
		return err
	}
	// The panel must reach the page before its insight can.
	var pushErr error
	s.startInsight(sess, panel, func(gen uint64) {
		pushErr = sess.push(models.Message{Type: models.MessagePanel, Panel: panel, Generation: gen, HTML: html})
	})
	return pushErr
}

// Attach binds the page websocket and starts the insight request of every
// augmented panel.
func (s *SessionService) Attach(id uuid.UUID, conn models.Conn) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.WriteMu.Lock()
	sess.Conn = conn
	sess.WriteMu.Unlock()

	for _, p := range []models.Panel{models.PanelSpeaker, models.PanelTeam, models.PanelJudge} {
		s.startInsight(sess, p, nil)
	}
	return nil
}

// Detach ends the session: in-flight insight requests are cancelled and the
// dataset and charts are released.
func (s *SessionService) Detach(id uuid.UUID) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	sess.close()
	s.log.Debug("session detached", zap.String("session", id.String()))
}

// Sweep ends sessions idle for longer than maxIdle and returns how many.
// Sessions with an attached websocket are live pages and are never swept;
// they end on Detach.
func (s *SessionService) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	var stale []*session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.attached() {
			continue
		}
		sess.Mu.Lock()
		idle := sess.LastSeen.Before(cutoff)
		sess.Mu.Unlock()
		if idle {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.close()
	}
	if len(stale) > 0 {
		s.log.Info("swept idle sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// RunSweeper sweeps every interval until ctx is done.
func (s *SessionService) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(maxIdle)
		}
	}
}

// Close ends every session and waits for outstanding insight goroutines.
func (s *SessionService) Close() {
	s.mu.Lock()
	all := make([]*session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		all = append(all, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	for _, sess := range all {
		sess.close()
	}
	s.wg.Wait()
}

// Wait blocks until outstanding insight goroutines finish.
func (s *SessionService) Wait() { s.wg.Wait() }

// ChartPNG returns the current chart image on canvas.
func (s *SessionService) ChartPNG(id uuid.UUID, canvas string) ([]byte, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	png, ok := sess.charts.PNG(canvas)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCanvas, canvas)
	}
	return png, nil
}

// LiveCharts reports the session's live chart instances.
func (s *SessionService) LiveCharts(id uuid.UUID) (int, error) {
	sess, err := s.get(id)
	if err != nil {
		return 0, err
	}
	return sess.charts.Live(), nil
}

// InsightFragment runs the panel's insight request synchronously and returns
// the rendered insight block, for pages without a websocket.
func (s *SessionService) InsightFragment(ctx context.Context, id uuid.UUID, panel models.Panel) (string, error) {
	sess, err := s.get(id)
	if err != nil {
		return "", err
	}
	endpoint, target, payload, ok := insightRequestFor(sess, panel)
	if !ok {
		return "", fmt.Errorf("%w: %q has no insight", ErrUnknownPanel, panel)
	}
	gen, reqCtx := sess.gens.Begin(ctx, panel)
	ins := s.insights.Request(reqCtx, endpoint, payload)
	sess.gens.Settle(panel, gen, ins.State())
	return s.render("partials/insight", insightView(target, ins))
}

// Strategy requests a strategy for target ("motion", "team" or "judge") and
// pushes it to the page as a modal.
func (s *SessionService) Strategy(id uuid.UUID, target, key string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	ds := sess.Dataset

	var (
		endpoint        string
		payload         interface{}
		title, subtitle string
	)
	switch target {
	case "motion":
		m, ok := pickMotion(sess, key)
		if !ok {
			return ErrSelectionNotFound
		}
		endpoint = EndpointMotionStrategy
		req := MotionStrategyRequest{Motion: m.Motion, Side: "Government"}
		if key == "" {
			// Speaker panel button; motion cards pass their index.
			req.TeamStrengths = DefaultTeamStrengths
		}
		payload = req
		title = m.Motion
	case "team":
		team, ok := ds.Team(key)
		if !ok {
			return ErrSelectionNotFound
		}
		endpoint = EndpointTeamInsights
		payload = TeamInsightRequest{TeamData: team}
		title, subtitle = "AI Team Strategy", "Team: "+team.Name
	case "judge":
		judge, ok := ds.Judge()
		if !ok {
			return ErrSelectionNotFound
		}
		endpoint = EndpointJudgeComprehensive
		payload = JudgeInsightRequest{JudgeData: judge}
		title, subtitle = "AI Judge Adaptation Strategy", "Judge: "+judge.Name
	default:
		return fmt.Errorf("%w: strategy target %q", ErrUnknownPanel, target)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ins := s.insights.Request(sess.ctx, endpoint, payload)
		if sess.ctx.Err() != nil {
			return
		}
		html, err := s.render("partials/modal", struct {
			Title, Subtitle string
			HTML            template.HTML
		}{title, subtitle, ins.HTML})
		if err != nil {
			s.log.Error("render strategy modal", zap.Error(err))
			return
		}
		if err := sess.push(models.Message{Type: models.MessageModal, Title: title, Subtitle: subtitle, HTML: html}); err != nil {
			s.log.Debug("push strategy modal", zap.Error(err))
		}
	}()
	return nil
}

// Report fetches the downloadable performance report for the session's
// speakers.
func (s *SessionService) Report(ctx context.Context, id uuid.UUID) ([]byte, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return s.insights.PerformanceReport(ctx, sess.Dataset.Speakers)
}

// Banner renders the dismissible error banner.
func (s *SessionService) Banner(text string) (string, error) {
	return s.render("partials/banner", struct{ Text string }{text})
}

// ExpiredMessage is the error message for a page whose session is gone. It
// is written straight to the connection since no session holds it.
func (s *SessionService) ExpiredMessage() models.Message {
	msg := models.Message{Type: models.MessageError, Text: SessionExpiredText}
	html, err := s.Banner(SessionExpiredText)
	if err != nil {
		s.log.Error("render expired banner", zap.Error(err))
		html = template.HTMLEscapeString(SessionExpiredText)
	}
	msg.HTML = html
	return msg
}

// PushError sends a dismissible error banner to the page.
func (s *SessionService) PushError(id uuid.UUID, text string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	html, err := s.Banner(text)
	if err != nil {
		return err
	}
	return sess.push(models.Message{Type: models.MessageError, Text: text, HTML: html})
}

// startInsight restarts panel's insight machine and returns the new
// generation, or 0 when the panel has no insight. announce, if set, runs
// with the generation before the request is issued.
func (s *SessionService) startInsight(sess *session, panel models.Panel, announce func(gen uint64)) uint64 {
	endpoint, target, payload, ok := insightRequestFor(sess, panel)
	if !ok {
		if announce != nil {
			announce(0)
		}
		return 0
	}
	gen, ctx := sess.gens.Begin(sess.ctx, panel)
	if announce != nil {
		announce(gen)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ins := s.insights.Request(ctx, endpoint, payload)
		if sess.ctx.Err() != nil {
			return
		}
		if !sess.gens.Settle(panel, gen, ins.State()) {
			s.log.Debug("discarding stale insight",
				zap.String("session", sess.ID.String()),
				zap.String("panel", string(panel)),
				zap.Uint64("generation", gen))
			return
		}
		html, err := s.render("partials/insight", insightView(target, ins))
		if err != nil {
			s.log.Error("render insight", zap.Error(err))
			return
		}
		msg := models.Message{
			Type:       models.MessageInsight,
			Panel:      panel,
			Target:     target,
			Generation: gen,
			State:      ins.State(),
			HTML:       html,
		}
		if err := sess.push(msg); err != nil {
			s.log.Debug("push insight", zap.String("panel", string(panel)), zap.Error(err))
		}
	}()
	return gen
}

func (s *SessionService) speakerPanel(sess *session, key string) (SpeakerPanel, error) {
	p, err := BuildSpeakerPanel(sess.Dataset, key)
	if err != nil {
		return p, err
	}
	p.Chart, err = s.drawChart(sess, CanvasSpeaker, SpeakerSeries(sess.Dataset.Speakers))
	return p, err
}

func (s *SessionService) teamPanel(sess *session, key string) (TeamPanel, error) {
	p, err := BuildTeamPanel(sess.Dataset, key)
	if err != nil {
		return p, err
	}
	team, _ := sess.Dataset.Team(key)
	p.Chart, err = s.drawChart(sess, CanvasTeam, TeamSeries(team))
	return p, err
}

func (s *SessionService) drawChart(sess *session, canvas string, series ChartSeries) (ChartView, error) {
	view := ChartView{Canvas: canvas, Alt: series.Title}
	inst, err := sess.charts.Render(canvas, series)
	if err != nil {
		s.log.Warn("chart render failed", zap.String("canvas", canvas), zap.Error(err))
	}
	if inst == nil {
		view.Placeholder = NoDataText
		return view, nil
	}
	view.Src = fmt.Sprintf("/sessions/%s/charts/%s.png?v=%d", sess.ID, canvas, inst.Version)
	return view, nil
}

func (s *SessionService) render(name string, binding interface{}) (string, error) {
	var buf bytes.Buffer
	if err := s.views.Render(&buf, name, binding); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (sess *session) selection(panel models.Panel) string {
	sess.Mu.Lock()
	defer sess.Mu.Unlock()
	return sess.Selections[panel]
}

func (sess *session) attached() bool {
	sess.WriteMu.Lock()
	defer sess.WriteMu.Unlock()
	return sess.Conn != nil
}

func (sess *session) push(msg models.Message) error {
	sess.WriteMu.Lock()
	defer sess.WriteMu.Unlock()
	if sess.Conn == nil {
		return nil
	}
	return sess.Conn.WriteJSON(msg)
}

func (sess *session) close() {
	sess.cancel()
	sess.gens.Close()
	sess.charts.Clear()
	sess.WriteMu.Lock()
	sess.Conn = nil
	sess.WriteMu.Unlock()
}

// insightRequestFor maps a panel's active selection to its insight request.
func insightRequestFor(sess *session, panel models.Panel) (endpoint, target string, payload interface{}, ok bool) {
	ds := sess.Dataset
	key := sess.selection(panel)
	switch panel {
	case models.PanelSpeaker:
		if key == "" {
			key = DefaultSelection(SpeakerRoundOptions(ds.Speakers, ""))
		}
		sp, found := ds.SpeakerByRound(key)
		if !found {
			return "", "", nil, false
		}
		motion := ""
		for _, m := range ds.Motions {
			if m.Round != "" && m.Round == sp.Round {
				motion = m.Motion
				break
			}
		}
		return EndpointAnalyzeSpeaker, TargetSpeakerInsight,
			SpeakerInsightRequest{SpeakerName: sp.Name, Scores: ds.SpeakerScores(), Motion: motion}, true
	case models.PanelTeam:
		team, found := ds.Team(key)
		if !found {
			return "", "", nil, false
		}
		return EndpointTeamInsights, TargetTeamInsight, TeamInsightRequest{TeamData: team}, true
	case models.PanelJudge:
		judge, found := ds.Judge()
		if !found {
			return "", "", nil, false
		}
		return EndpointJudgeComprehensive, TargetJudgeInsight, JudgeInsightRequest{JudgeData: judge}, true
	}
	return "", "", nil, false
}

// pickMotion resolves a motion by index; an empty key picks the motion of
// the selected speaker round, falling back to the first motion.
func pickMotion(sess *session, key string) (models.MotionRecord, bool) {
	motions := sess.Dataset.Motions
	if len(motions) == 0 {
		return models.MotionRecord{}, false
	}
	if key != "" {
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(motions) {
			return models.MotionRecord{}, false
		}
		return motions[i], true
	}
	if round := sess.selection(models.PanelSpeaker); round != "" {
		for _, m := range motions {
			if m.Round == round {
				return m, true
			}
		}
	}
	return motions[0], true
}

func insightView(target string, ins Insight) InsightView {
	return InsightView{Target: target, State: ins.State(), Text: ins.Text, HTML: ins.HTML, Analytics: ins.Analytics}
}
