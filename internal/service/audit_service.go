package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/model"
)

// AuditService records class mutations and serves the audit history.
// Recording never fails the mutation it describes.
type AuditService struct {
	sink   AuditSink
	store  AuditStore
	access *ClassAccessControl
	log    zerolog.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(sink AuditSink, store AuditStore, access *ClassAccessControl, log zerolog.Logger) *AuditService {
	return &AuditService{
		sink:   sink,
		store:  store,
		access: access,
		log:    log.With().Str("component", "audit_service").Logger(),
	}
}

// Record queues an audit entry, logging instead of failing when the queue is down.
func (s *AuditService) Record(ctx context.Context, entry model.AuditEntry) {
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = time.Now().UTC()
	}
	if err := s.sink.Enqueue(ctx, entry); err != nil {
		s.log.Error().Err(err).
			Int("class_id", entry.ClassID).
			Str("action", string(entry.Action)).
			Msg("Failed to queue audit entry")
	}
}

// GetClassAuditHistory returns a page of a class's audit trail, newest first.
func (s *AuditService) GetClassAuditHistory(ctx context.Context, classID int, teacherID uuid.UUID, q model.AuditQuery) ([]model.AuditEntry, int, error) {
	if q.StartDate != nil && q.EndDate != nil && q.EndDate.Before(*q.StartDate) {
		return nil, 0, invalid("end_date", "end_date must not be before start_date")
	}
	if err := s.access.ValidateTeacherAccess(ctx, classID, teacherID, "view audit history"); err != nil {
		return nil, 0, err
	}

	q.Limit = clampLimit(q.Limit)
	q.Offset = clampOffset(q.Offset)
	return s.store.ListByClass(ctx, classID, q)
}

// changeSet collects the fields an update touched.
type changeSet struct {
	fields []string
	old    map[string]any
	new    map[string]any
}

func (c *changeSet) add(field string, before, after any) {
	if before == after {
		return
	}
	if c.old == nil {
		c.old, c.new = map[string]any{}, map[string]any{}
	}
	c.fields = append(c.fields, field)
	c.old[field] = before
	c.new[field] = after
}

func (c *changeSet) empty() bool { return len(c.fields) == 0 }

func (c *changeSet) entry(classID int, action model.AuditAction, by uuid.UUID) model.AuditEntry {
	return model.AuditEntry{
		ClassID:       classID,
		Action:        action,
		ChangedFields: c.fields,
		OldValues:     c.old,
		NewValues:     c.new,
		PerformedBy:   by,
	}
}
