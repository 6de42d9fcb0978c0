package models

import "encoding/json"

type JudgeRecord struct {
	Name           string        `json:"judge_name"`
	Style          string        `json:"judge_style"`
	OverallInsight string        `json:"overall_judging_insight"`
	Rounds         []RoundJudged `json:"rounds"`
	AIInsight      InsightText   `json:"ai_insights,omitempty"`
}

type RoundJudged struct {
	Round    string          `json:"round"`
	Speakers []ScoredSpeaker `json:"speakers_scored"`
}

type ScoredSpeaker struct {
	Name  string   `json:"name"`
	Score *float64 `json:"score,omitempty"`
}

// UnmarshalJSON accepts "judging_style" as an alias for "judge_style".
func (j *JudgeRecord) UnmarshalJSON(data []byte) error {
	type plain JudgeRecord
	aux := struct {
		*plain
		JudgingStyle string `json:"judging_style"`
	}{plain: (*plain)(j)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if j.Style == "" {
		j.Style = aux.JudgingStyle
	}
	return nil
}

// FindRound returns the first judged round with the given label.
func (j JudgeRecord) FindRound(label string) (RoundJudged, bool) {
	for _, r := range j.Rounds {
		if r.Round == label {
			return r, true
		}
	}
	return RoundJudged{}, false
}
