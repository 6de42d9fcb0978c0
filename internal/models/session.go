package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Panel string

const (
	PanelSpeaker Panel = "speaker"
	PanelTeam    Panel = "team"
	PanelJudge   Panel = "judge"
	PanelMotion  Panel = "motion"
)

// Conn is the push side of a dashboard websocket.
type Conn interface {
	WriteJSON(v interface{}) error
}

// Session holds the state of one rendered dashboard page, from the initial
// load until its websocket goes away.
type Session struct {
	ID         uuid.UUID
	Dataset    *Dataset
	Selections map[Panel]string // active key per panel
	Conn       Conn
	LastSeen   time.Time
	Mu         sync.Mutex
	WriteMu    sync.Mutex // serialises writes to Conn
}
