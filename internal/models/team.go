package models

type TeamRecord struct {
	Name      string         `json:"team_name"`
	Members   []string       `json:"members"`
	Rounds    []RoundSummary `json:"rounds"`
	AIInsight InsightText    `json:"ai_insights,omitempty"`
}

type RoundSummary struct {
	Round        string   `json:"round"`
	AverageScore *float64 `json:"average_score,omitempty"`
	Feedback     string   `json:"team_feedback"`
}

// Latest returns the most recent round, or false when none were recorded.
func (t TeamRecord) Latest() (RoundSummary, bool) {
	if len(t.Rounds) == 0 {
		return RoundSummary{}, false
	}
	return t.Rounds[len(t.Rounds)-1], true
}
