package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names a class mutation.
type AuditAction string

const (
	AuditCreate        AuditAction = "create"
	AuditUpdate        AuditAction = "update"
	AuditDelete        AuditAction = "delete"
	AuditRestore       AuditAction = "restore"
	AuditEnrollStudent AuditAction = "enroll_student"
	AuditRemoveStudent AuditAction = "remove_student"
	AuditAssignTeacher AuditAction = "assign_teacher"
	AuditRemoveTeacher AuditAction = "remove_teacher"
)

// AuditEntry is one row of the class audit trail.
type AuditEntry struct {
	ID            int64          `json:"id"`
	ClassID       int            `json:"class_id"`
	Action        AuditAction    `json:"action"`
	ChangedFields []string       `json:"changed_fields,omitempty"`
	OldValues     map[string]any `json:"old_values,omitempty"`
	NewValues     map[string]any `json:"new_values,omitempty"`
	PerformedBy   uuid.UUID      `json:"performed_by"`
	PerformedAt   time.Time      `json:"performed_at"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// AuditQuery filters a class audit history.
type AuditQuery struct {
	Action    AuditAction `form:"action" binding:"omitempty,oneof=create update delete restore enroll_student remove_student assign_teacher remove_teacher"`
	StartDate *time.Time  `form:"start_date" time_format:"2006-01-02"`
	EndDate   *time.Time  `form:"end_date" time_format:"2006-01-02"`
	Limit     int         `form:"limit"`
	Offset    int         `form:"offset" binding:"min=0"`
}

// RosterEventType names a roster change pushed to subscribed clients.
type RosterEventType string

const (
	RosterStudentsEnrolled RosterEventType = "students_enrolled"
	RosterStudentsRemoved  RosterEventType = "students_removed"
)

// RosterEvent is published after a roster change.
type RosterEvent struct {
	Type       RosterEventType `json:"type"`
	ClassID    int             `json:"class_id"`
	StudentIDs []uuid.UUID     `json:"student_ids"`
	ActorID    uuid.UUID       `json:"actor_id"`
	OccurredAt time.Time       `json:"occurred_at"`
}
