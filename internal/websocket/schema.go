package websocket

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/classroom-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing     Action = "ping"
	ActionSnapshot Action = "snapshot"
)

// RequestEnvelope is the only message shape clients send.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventPong     Event = "pong"
	EventSnapshot Event = "snapshot"
	EventRoster   Event = "roster"
)

// SnapshotResponse describes the roster size when the stream opens and on request.
type SnapshotResponse struct {
	Event        Event `json:"event"`
	ClassID      int   `json:"class_id"`
	StudentCount int   `json:"student_count"`
	MaxStudents  int   `json:"max_students"`
}

// RosterResponse forwards one roster change.
type RosterResponse struct {
	Event      Event                 `json:"event"`
	Type       model.RosterEventType `json:"type"`
	ClassID    int                   `json:"class_id"`
	StudentIDs []uuid.UUID           `json:"student_ids"`
	ActorID    uuid.UUID             `json:"actor_id"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// NewRosterResponse wraps a roster event for the wire.
func NewRosterResponse(ev model.RosterEvent) RosterResponse {
	return RosterResponse{
		Event:      EventRoster,
		Type:       ev.Type,
		ClassID:    ev.ClassID,
		StudentIDs: ev.StudentIDs,
		ActorID:    ev.ActorID,
		OccurredAt: ev.OccurredAt,
	}
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
