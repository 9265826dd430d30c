package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/classroom-backend/internal/enrollment"
	"github.com/stemsi/classroom-backend/internal/model"
)

// ProfileStore looks up teacher and student profiles.
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	GetSchoolID(ctx context.Context, id uuid.UUID) (int, error)
}

// ClassStore persists classes and their teacher assignments.
type ClassStore interface {
	Create(ctx context.Context, c *model.Class) error
	GetByID(ctx context.Context, id int) (*model.Class, error)
	GetWithDetails(ctx context.Context, id int) (*model.ClassWithDetails, error)
	ListByTeacher(ctx context.Context, teacherID uuid.UUID, q model.ClassListQuery) ([]model.ClassWithDetails, int, error)
	Update(ctx context.Context, c *model.Class) error
	SoftDelete(ctx context.Context, id int, by uuid.UUID) error
	Restore(ctx context.Context, id int, by uuid.UUID) error
	NameExists(ctx context.Context, schoolID int, name string, excludeID int) (bool, error)
	IsTeacherAssigned(ctx context.Context, classID int, teacherID uuid.UUID) (bool, error)
	AssignTeacher(ctx context.Context, classID int, teacherID uuid.UUID, role string) error
	RemoveTeacher(ctx context.Context, classID int, teacherID uuid.UUID) error
	CountStudents(ctx context.Context, classID int) (int, error)
}

// EnrollmentStore owns class rosters. EnrollStudents must enforce class
// capacity atomically across concurrent callers.
type EnrollmentStore interface {
	EnrollStudents(ctx context.Context, req enrollment.Request) (*model.BulkEnrollResult, error)
	ListAvailable(ctx context.Context, classID, schoolID int, q model.AvailableStudentsQuery) ([]model.Student, int, error)
	ListEnrolled(ctx context.Context, classID int, q model.ClassStudentsQuery) ([]model.StudentWithDetails, int, error)
	Remove(ctx context.Context, classID int, studentID uuid.UUID) error
}

// AuditSink accepts audit entries for asynchronous persistence.
type AuditSink interface {
	Enqueue(ctx context.Context, entry model.AuditEntry) error
}

// AuditStore reads the persisted audit trail.
type AuditStore interface {
	ListByClass(ctx context.Context, classID int, q model.AuditQuery) ([]model.AuditEntry, int, error)
}

// RosterPublisher broadcasts roster changes.
type RosterPublisher interface {
	Publish(ctx context.Context, ev model.RosterEvent) error
}

// TokenStore tracks logged-out tokens.
type TokenStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
