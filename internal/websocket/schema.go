package websocket

import (
	"time"

	"github.com/google/uuid"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is the only client payload the roster stream accepts.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventCheckin Event = "checkin"
	EventError   Event = "error"
	EventPong    Event = "pong"
)

// CheckinEvent is pushed to the teacher's roster view whenever a student's
// redemption lands. It is a live tail only; reconnecting replays nothing.
type CheckinEvent struct {
	Event       Event     `json:"event"`
	ClassID     uuid.UUID `json:"class_id"`
	StudentID   uuid.UUID `json:"student_id"`
	StudentName string    `json:"student_name"`
	Date        string    `json:"date"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
