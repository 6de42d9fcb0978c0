package models

import "encoding/json"

type SpeakerRecord struct {
	Name      string          `json:"name"`
	Team      string          `json:"team"`
	Role      string          `json:"role"`
	Round     string          `json:"round"`
	Score     *float64        `json:"score,omitempty"` // nil when the backend omits it
	Feedback  SpeakerFeedback `json:"feedback"`
	AIInsight InsightText     `json:"ai_insights,omitempty"`
}

type SpeakerFeedback struct {
	General     string `json:"general_feedback"`
	Improvement string `json:"improvement_advice"`
}

// InsightText is the optional pre-generated AI text attached to a record.
// Some deployments send a plain string, others an object shaped like
// SpeakerFeedback; both flatten to a single string.
type InsightText string

func (t *InsightText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = InsightText(s)
		return nil
	}

	var obj SpeakerFeedback
	if err := json.Unmarshal(data, &obj); err != nil {
		// Unknown shapes are ignored, the field is optional.
		*t = ""
		return nil
	}
	switch {
	case obj.General != "" && obj.Improvement != "":
		*t = InsightText(obj.General + "\n\n" + obj.Improvement)
	case obj.General != "":
		*t = InsightText(obj.General)
	default:
		*t = InsightText(obj.Improvement)
	}
	return nil
}
