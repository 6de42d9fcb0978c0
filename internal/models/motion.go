package models

type MotionRecord struct {
	Motion     string `json:"motion"`
	Round      string `json:"round,omitempty"`
	GovWinRate int    `json:"gov_win_rate"` // percent, independent of OppWinRate
	OppWinRate int    `json:"opp_win_rate"`
	Insight    string `json:"insight"`
	Complexity string `json:"complexity,omitempty"`
}
