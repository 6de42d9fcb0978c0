package services

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/latestcomment/tabbycat-dashboard/internal/models"
	"go.uber.org/zap"
)

// EventConn is the read side of a dashboard websocket.
type EventConn interface {
	ReadMessage() (messageType int, p []byte, err error)
}

// LoopEvents dispatches page events until the connection fails or the
// session ends, returning the read error or ErrSessionNotFound. Bad events
// are answered with an error banner and never end the loop.
func (s *SessionService) LoopEvents(id uuid.UUID, conn EventConn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev models.ClientEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			s.log.Debug("malformed page event", zap.Error(err))
			continue
		}
		if err := s.HandleEvent(id, ev); err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return err
			}
			s.log.Debug("page event failed", zap.String("type", ev.Type), zap.Error(err))
			_ = s.PushError(id, eventErrorText(err))
		}
	}
}

// HandleEvent applies one page event to the session.
func (s *SessionService) HandleEvent(id uuid.UUID, ev models.ClientEvent) error {
	switch ev.Type {
	case models.MessageSelect:
		return s.Select(id, ev.Panel, ev.Key)
	case models.MessageStrategy:
		return s.Strategy(id, ev.Target, ev.Key)
	default:
		return errors.New("unknown event type " + ev.Type)
	}
}

func eventErrorText(err error) string {
	switch {
	case errors.Is(err, ErrSelectionNotFound):
		return "That selection is no longer available."
	case errors.Is(err, ErrUnknownPanel):
		return "Unknown dashboard panel."
	default:
		return "Something went wrong. Please refresh the page."
	}
}
