package service

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/repository/memory"
	"github.com/stemsi/classroom-backend/internal/validator"
)

func TestMain(m *testing.M) {
	validator.Setup()
	os.Exit(m.Run())
}

const schoolA, schoolB = 1, 2

type fixture struct {
	db         *memory.DB
	access     *ClassAccessControl
	audit      *AuditService
	enrollment *ClassEnrollmentService
	bulk       *ClassBulkService
	classes    *ClassService
	teacher    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	log := zerolog.Nop()

	access := NewClassAccessControl(db.Profiles(), db.Classes(), log)
	audit := NewAuditService(db.Audit(), db.Audit(), access, log)
	enroll := NewClassEnrollmentService(access, db.Enrollments(), audit, db.Roster(), EnrollmentOptions{
		MaxRetries: 2,
		Backoff:    time.Millisecond,
		MaxBatch:   200,
	}, log)
	bulk := NewClassBulkService(access, db.Classes(), audit, log)

	return &fixture{
		db:         db,
		access:     access,
		audit:      audit,
		enrollment: enroll,
		bulk:       bulk,
		classes:    NewClassService(access, db.Classes(), enroll, bulk, audit, log),
		teacher:    db.AddTeacher(schoolA, "Ibu Sari"),
	}
}

// class creates a class of school A taught by the fixture teacher.
func (f *fixture) class(capacity int) int {
	return f.db.AddClass(schoolA, f.teacher, "Class "+uuid.NewString()[:6], capacity)
}
