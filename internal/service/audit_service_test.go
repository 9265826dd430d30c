package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{ calls int }

func (s *failingSink) Enqueue(context.Context, model.AuditEntry) error {
	s.calls++
	return errors.New("redis: connection refused")
}

func TestAuditRecordIsBestEffort(t *testing.T) {
	f := newFixture(t)
	sink := &failingSink{}
	f.audit = NewAuditService(sink, f.db.Audit(), f.access, zerolog.Nop())
	f.classes = NewClassService(f.access, f.db.Classes(), f.enrollment, f.bulk, f.audit, zerolog.Nop())

	_, err := f.classes.CreateClass(context.Background(), newClassReq("X IPA 9"), f.teacher)

	require.NoError(t, err)
	assert.Equal(t, 1, sink.calls)
}

func TestGetClassAuditHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	class, err := f.classes.CreateClass(ctx, newClassReq("X IPA 4"), f.teacher)
	require.NoError(t, err)
	_, err = f.classes.UpdateClass(ctx, class.ID, model.UpdateClassRequest{Level: ptr("11")}, f.teacher)
	require.NoError(t, err)

	entries, total, err := f.audit.GetClassAuditHistory(ctx, class.ID, f.teacher, model.AuditQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, entries, 2)
	assert.Equal(t, model.AuditUpdate, entries[0].Action, "newest first")
	assert.Equal(t, model.AuditCreate, entries[1].Action)

	entries, _, err = f.audit.GetClassAuditHistory(ctx, class.ID, f.teacher, model.AuditQuery{Action: model.AuditCreate})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	yesterday := today.AddDate(0, 0, -1)
	_, _, err = f.audit.GetClassAuditHistory(ctx, class.ID, f.teacher, model.AuditQuery{StartDate: &today, EndDate: &yesterday})
	assert.ErrorIs(t, err, ErrValidation)

	colleague := f.db.AddTeacher(schoolA, "Bu Rina")
	_, _, err = f.audit.GetClassAuditHistory(ctx, class.ID, colleague, model.AuditQuery{})
	assert.ErrorIs(t, err, ErrAccessDenied)
}
