package events

import (
	"encoding/json"
	"time"
)

// Event is the envelope every SSE and relay message carries.
type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Session   string          `json:"session,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(reqID, typ string, v int, data any) string {
	return makeEvent(reqID, "", typ, v, data)
}

// SessionEvent is MakeEvent for messages scoped to one tab session.
func SessionEvent(session, typ string, data any) string {
	return makeEvent("", session, typ, 1, data)
}

func makeEvent(reqID, session, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Session:   session,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
