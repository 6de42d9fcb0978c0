package services

import (
	"errors"
	"strings"

	"github.com/latestcomment/tabbycat-dashboard/internal/models"
)

// Placeholder strings for missing optional fields.
const (
	NotAvailable      = "N/A"
	NoMembers         = "No members listed"
	NoRecentFeedback  = "No recent feedback"
	NoSpeakers        = "No speakers available"
	NoTeam            = "No team data available."
	NoJudge           = "No judge data available."
	NoMotions         = "No motion data available."
	NoFeedback        = "No feedback recorded"
	NoOverallInsight  = "No insights available"
	UnknownJudgeStyle = "Style Unknown"
	GeneratingText    = "Generating…"
)

// Insight mount point ids, one per panel with AI augmentation.
const (
	TargetSpeakerInsight = "aiSpeakerInsights"
	TargetTeamInsight    = "aiTeamInsights"
	TargetJudgeInsight   = "aiJudgeInsights"
)

var (
	ErrUnknownPanel      = errors.New("unknown panel")
	ErrSelectionNotFound = errors.New("selection not found")
)

type SpeakerPanel struct {
	Empty         bool
	Options       []Option
	Name          string
	Team          string
	Role          string
	Round         string
	Score         string
	General       string
	Improvement   string
	StoredInsight string
	Analytics     *SpeakerAnalytics
	InsightTarget string
	Chart         ChartView
}

type TeamPanel struct {
	Empty          bool
	Key            string // raw team name for lookups; Name may be a placeholder
	Name           string
	Members        string
	HasLatest      bool
	LatestRound    string
	LatestAverage  string
	LatestFeedback string
	Delta          TeamDelta
	StoredInsight  string
	InsightTarget  string
	Chart          ChartView
}

type ScoreRow struct {
	Name  string
	Score string
}

type JudgePanel struct {
	Empty          bool
	Options        []Option
	Name           string
	Style          string
	OverallInsight string
	Round          string
	Scores         []ScoreRow
	RoundsJudged   int
	Stats          JudgeStats
	StoredInsight  string
	InsightTarget  string
}

type MotionCard struct {
	Index              int
	Motion             string
	Round              string
	GovWinRate         int
	OppWinRate         int
	GovWidth           int
	OppWidth           int
	BalanceClass       string
	BalanceLabel       string
	Insight            string
	Complexity         string
	ComplexityAnalysis string
}

type MotionPanel struct {
	Empty bool
	Cards []MotionCard
}

// BuildSpeakerPanel renders the speaker record whose round label equals
// round; an empty round selects the first option.
func BuildSpeakerPanel(ds *models.Dataset, round string) (SpeakerPanel, error) {
	opts := SpeakerRoundOptions(ds.Speakers, round)
	p := SpeakerPanel{Options: opts, InsightTarget: TargetSpeakerInsight}
	if len(opts) == 0 {
		p.Empty = true
		return p, nil
	}
	if round == "" {
		round = DefaultSelection(opts)
	}

	sp, ok := ds.SpeakerByRound(round)
	if !ok {
		return p, ErrSelectionNotFound
	}
	p.Name = orDefault(sp.Name, "Unknown Speaker")
	p.Team = orDefault(sp.Team, "No Team")
	p.Role = orDefault(sp.Role, "Speaker")
	p.Round = orDefault(sp.Round, NotAvailable)
	p.Score = scoreText(sp.Score)
	p.General = orDefault(sp.Feedback.General, NoFeedback)
	p.Improvement = orDefault(sp.Feedback.Improvement, NoFeedback)
	p.StoredInsight = string(sp.AIInsight)
	p.Analytics = AnalyzeScores(ds.SpeakerScores())
	return p, nil
}

// BuildTeamPanel renders the named team, or the first team for "".
func BuildTeamPanel(ds *models.Dataset, name string) (TeamPanel, error) {
	p := TeamPanel{InsightTarget: TargetTeamInsight}
	if len(ds.Teams) == 0 {
		p.Empty = true
		return p, nil
	}
	team, ok := ds.Team(name)
	if !ok {
		return p, ErrSelectionNotFound
	}

	p.Key = team.Name
	p.Name = orDefault(team.Name, "Unnamed Team")
	p.Members = NoMembers
	if members := nonEmpty(team.Members); len(members) > 0 {
		p.Members = strings.Join(members, ", ")
	}
	p.LatestAverage = NotAvailable
	p.LatestFeedback = NoRecentFeedback
	if latest, ok := team.Latest(); ok {
		p.HasLatest = true
		p.LatestRound = orDefault(latest.Round, NotAvailable)
		p.LatestAverage = scoreText(latest.AverageScore)
		p.LatestFeedback = orDefault(latest.Feedback, NoRecentFeedback)
	}
	p.Delta = AnalyzeTeam(team)
	p.StoredInsight = string(team.AIInsight)
	return p, nil
}

// BuildJudgePanel renders the judged round with the given label; "" selects
// the first round.
func BuildJudgePanel(ds *models.Dataset, round string) (JudgePanel, error) {
	p := JudgePanel{InsightTarget: TargetJudgeInsight}
	judge, ok := ds.Judge()
	if !ok {
		p.Empty = true
		return p, nil
	}

	p.Options = JudgeRoundOptions(judge, round)
	p.Name = orDefault(judge.Name, "Unknown Judge")
	p.Style = orDefault(judge.Style, UnknownJudgeStyle)
	p.OverallInsight = orDefault(judge.OverallInsight, NoOverallInsight)
	p.RoundsJudged = len(judge.Rounds)
	p.Stats = AnalyzeJudge(judge)
	p.StoredInsight = string(judge.AIInsight)

	if len(p.Options) == 0 {
		return p, nil
	}
	if round == "" {
		round = DefaultSelection(p.Options)
	}
	r, ok := judge.FindRound(round)
	if !ok {
		return p, ErrSelectionNotFound
	}
	p.Round = r.Round
	for _, sp := range r.Speakers {
		p.Scores = append(p.Scores, ScoreRow{Name: orDefault(sp.Name, "Unknown Speaker"), Score: scoreText(sp.Score)})
	}
	return p, nil
}

// BuildMotionPanel renders every motion card.
func BuildMotionPanel(ds *models.Dataset) MotionPanel {
	if len(ds.Motions) == 0 {
		return MotionPanel{Empty: true}
	}
	p := MotionPanel{Cards: make([]MotionCard, 0, len(ds.Motions))}
	for i, m := range ds.Motions {
		class, label := MotionBalance(m)
		complexity := orDefault(m.Complexity, "Unknown")
		p.Cards = append(p.Cards, MotionCard{
			Index:              i,
			Motion:             orDefault(m.Motion, "Motion text not available"),
			Round:              m.Round,
			GovWinRate:         m.GovWinRate,
			OppWinRate:         m.OppWinRate,
			GovWidth:           clampPercent(m.GovWinRate),
			OppWidth:           clampPercent(m.OppWinRate),
			BalanceClass:       class,
			BalanceLabel:       label,
			Insight:            orDefault(m.Insight, NotAvailable),
			Complexity:         complexity,
			ComplexityAnalysis: ComplexityAnalysis(complexity),
		})
	}
	return p
}

// MotionBalance classifies a motion by its independent side win rates.
func MotionBalance(m models.MotionRecord) (class, label string) {
	diff := m.GovWinRate - m.OppWinRate
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff < 10:
		return "balanced", "Well Balanced"
	case m.GovWinRate > 55:
		return "gov-favored", "Gov Favored"
	default:
		return "opp-favored", "Opp Favored"
	}
}

var complexityAnalyses = map[string]string{
	"High":    "This motion requires deep knowledge of complex issues and sophisticated argumentation. Teams should focus on nuanced analysis and expert-level evidence.",
	"Medium":  "This motion balances accessibility with intellectual rigor. Teams can leverage both common knowledge and specialized insights.",
	"Low":     "This motion is accessible to most debaters and focuses on fundamental principles. Clear, logical argumentation will be key.",
	"Unknown": "This motion presents moderate complexity. Teams should prepare for both principled and pragmatic arguments.",
}

func ComplexityAnalysis(complexity string) string {
	if s, ok := complexityAnalyses[complexity]; ok {
		return s
	}
	return complexityAnalyses["Unknown"]
}

func scoreText(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return formatScore(*v)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func nonEmpty(ss []string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func clampPercent(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
