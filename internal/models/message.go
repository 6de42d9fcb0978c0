package models

// Outgoing message types.
const (
	MessagePanel   = "panel"
	MessageInsight = "insight"
	MessageModal   = "modal"
	MessageError   = "error"
)

// Incoming message types.
const (
	MessageSelect   = "select"
	MessageStrategy = "strategy"
)

type InsightState string

const (
	InsightIdle     InsightState = "idle"
	InsightLoading  InsightState = "loading"
	InsightResolved InsightState = "resolved"
	InsightFailed   InsightState = "failed"
)

// Message is pushed to the page over the session websocket.
type Message struct {
	Type       string       `json:"type"`
	Panel      Panel        `json:"panel,omitempty"`
	Target     string       `json:"target,omitempty"` // mount point id
	Generation uint64       `json:"generation,omitempty"`
	State      InsightState `json:"state,omitempty"`
	HTML       string       `json:"html,omitempty"`
	Title      string       `json:"title,omitempty"`
	Subtitle   string       `json:"subtitle,omitempty"`
	Text       string       `json:"text,omitempty"`
}

// ClientEvent is sent by the page: a dropdown selection or a strategy
// request.
type ClientEvent struct {
	Type   string `json:"type"`
	Panel  Panel  `json:"panel,omitempty"`
	Target string `json:"target,omitempty"` // strategy target: motion, team, judge
	Key    string `json:"key"`
}
