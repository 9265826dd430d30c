package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/repository"
	"github.com/stemsi/classroom-backend/internal/validator"
)

// ClassService is the entry point for class management. Roster and bulk
// operations are delegated to ClassEnrollmentService and ClassBulkService.
type ClassService struct {
	access     *ClassAccessControl
	classes    ClassStore
	enrollment *ClassEnrollmentService
	bulk       *ClassBulkService
	audit      *AuditService
	log        zerolog.Logger
}

// NewClassService creates a new ClassService.
func NewClassService(
	access *ClassAccessControl,
	classes ClassStore,
	enrollment *ClassEnrollmentService,
	bulk *ClassBulkService,
	audit *AuditService,
	log zerolog.Logger,
) *ClassService {
	return &ClassService{
		access:     access,
		classes:    classes,
		enrollment: enrollment,
		bulk:       bulk,
		audit:      audit,
		log:        log.With().Str("component", "class_service").Logger(),
	}
}

// CreateClass creates a class in the teacher's school with the teacher as
// its primary teacher.
func (s *ClassService) CreateClass(ctx context.Context, req model.CreateClassRequest, teacherID uuid.UUID) (*model.Class, error) {
	if fields := validator.Struct(&req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	schoolID, err := s.access.TeacherSchool(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if err := s.access.ValidateUniqueClassName(ctx, schoolID, name, 0); err != nil {
		return nil, err
	}

	capacity := req.MaxStudents
	if capacity == 0 {
		capacity = model.DefaultClassCapacity
	}
	class := &model.Class{
		SchoolID:     schoolID,
		TeacherID:    &teacherID,
		Name:         name,
		Level:        req.Level,
		Description:  req.Description,
		MaxStudents:  capacity,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		Status:       model.ClassActive,
		CreatedBy:    &teacherID,
	}
	if err := s.classes.Create(ctx, class); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateClassName
		}
		return nil, fmt.Errorf("create class: %w", err)
	}

	s.audit.Record(ctx, model.AuditEntry{
		ClassID:     class.ID,
		Action:      model.AuditCreate,
		NewValues:   map[string]any{"name": class.Name, "max_students": class.MaxStudents},
		PerformedBy: teacherID,
	})
	s.log.Info().Int("class_id", class.ID).Str("teacher_id", teacherID.String()).Msg("Class created")
	return class, nil
}

// GetClasses lists the live classes the teacher is assigned to.
func (s *ClassService) GetClasses(ctx context.Context, teacherID uuid.UUID, q model.ClassListQuery) ([]model.ClassWithDetails, int, error) {
	if fields := validator.Struct(&q); fields != nil {
		return nil, 0, &ValidationError{Fields: fields}
	}
	q.Limit = clampLimit(q.Limit)
	q.Offset = clampOffset(q.Offset)

	classes, total, err := s.classes.ListByTeacher(ctx, teacherID, q)
	if err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}
	return classes, total, nil
}

// GetClassByID returns a class with its counts and teachers.
func (s *ClassService) GetClassByID(ctx context.Context, classID int, teacherID uuid.UUID) (*model.ClassWithDetails, error) {
	if err := s.access.ValidateTeacherAccess(ctx, classID, teacherID, "view class"); err != nil {
		return nil, err
	}
	d, err := s.classes.GetWithDetails(ctx, classID)
	if err != nil {
		return nil, notFoundAs(err, ErrClassNotFound)
	}
	return d, nil
}

// UpdateClass changes the given fields of a class.
func (s *ClassService) UpdateClass(ctx context.Context, classID int, req model.UpdateClassRequest, teacherID uuid.UUID) (*model.Class, error) {
	if fields := validator.Struct(&req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	class, err := s.access.AuthorizeClass(ctx, classID, teacherID, "update class")
	if err != nil {
		return nil, err
	}

	cs, err := updateClass(ctx, s.access, s.classes, class, req, teacherID)
	if err != nil {
		return nil, err
	}
	if !cs.empty() {
		s.audit.Record(ctx, cs.entry(classID, model.AuditUpdate, teacherID))
	}
	return class, nil
}

// DeleteClass soft deletes a class without enrolled students.
func (s *ClassService) DeleteClass(ctx context.Context, classID int, teacherID uuid.UUID) error {
	if err := s.access.ValidateTeacherAccess(ctx, classID, teacherID, "delete class"); err != nil {
		return err
	}
	if err := s.access.ValidateClassDeletion(ctx, classID); err != nil {
		return err
	}
	if err := s.classes.SoftDelete(ctx, classID, teacherID); err != nil {
		return writeConflict(err)
	}

	s.audit.Record(ctx, model.AuditEntry{
		ClassID:     classID,
		Action:      model.AuditDelete,
		NewValues:   map[string]any{"status": model.ClassArchived},
		PerformedBy: teacherID,
	})
	return nil
}

// RestoreClass brings back a soft-deleted class of the teacher's school.
func (s *ClassService) RestoreClass(ctx context.Context, classID int, teacherID uuid.UUID) error {
	schoolID, err := s.access.TeacherSchool(ctx, teacherID)
	if err != nil {
		return err
	}
	if err := restoreClass(ctx, s.access, s.classes, classID, schoolID, teacherID); err != nil {
		return err
	}

	s.audit.Record(ctx, model.AuditEntry{
		ClassID:     classID,
		Action:      model.AuditRestore,
		NewValues:   map[string]any{"status": model.ClassActive},
		PerformedBy: teacherID,
	})
	return nil
}

// AssignTeacher adds another teacher of the school to a class the actor teaches.
func (s *ClassService) AssignTeacher(ctx context.Context, classID int, req model.AssignTeacherRequest, actorID uuid.UUID) error {
	if fields := validator.Struct(&req); fields != nil {
		return &ValidationError{Fields: fields}
	}
	if err := s.access.ValidateTeacherAccess(ctx, classID, actorID, "assign teacher"); err != nil {
		return err
	}
	if err := s.access.AssignTeacherToClass(ctx, classID, req.TeacherID, req.Role); err != nil {
		return err
	}

	s.audit.Record(ctx, model.AuditEntry{
		ClassID:     classID,
		Action:      model.AuditAssignTeacher,
		NewValues:   map[string]any{"teacher_id": req.TeacherID, "role": req.Role},
		PerformedBy: actorID,
	})
	return nil
}

// RemoveTeacher removes a teacher from a class the actor teaches.
func (s *ClassService) RemoveTeacher(ctx context.Context, classID int, teacherID, actorID uuid.UUID) error {
	if err := s.access.ValidateTeacherAccess(ctx, classID, actorID, "remove teacher"); err != nil {
		return err
	}
	if err := s.access.RemoveTeacherFromClass(ctx, classID, teacherID); err != nil {
		return err
	}

	s.audit.Record(ctx, model.AuditEntry{
		ClassID:     classID,
		Action:      model.AuditRemoveTeacher,
		OldValues:   map[string]any{"teacher_id": teacherID},
		PerformedBy: actorID,
	})
	return nil
}

// ─── Delegations ────────────────────────────────────────────────────────────

// BulkEnrollStudents enrolls many students into one class.
func (s *ClassService) BulkEnrollStudents(ctx context.Context, classID int, req model.BulkEnrollStudentsRequest, teacherID uuid.UUID) (*model.BulkEnrollResult, error) {
	return s.enrollment.BulkEnrollStudents(ctx, classID, req, teacherID)
}

// GetAvailableStudents lists students that can still join the class.
func (s *ClassService) GetAvailableStudents(ctx context.Context, classID int, teacherID uuid.UUID, q model.AvailableStudentsQuery) (*model.AvailableStudentsResult, error) {
	return s.enrollment.GetAvailableStudents(ctx, classID, teacherID, q)
}

// GetClassStudents lists the class roster.
func (s *ClassService) GetClassStudents(ctx context.Context, classID int, teacherID uuid.UUID, q model.ClassStudentsQuery) (*model.ClassStudentsResult, error) {
	return s.enrollment.GetClassStudents(ctx, classID, teacherID, q)
}

// EnrollStudent enrolls one student.
func (s *ClassService) EnrollStudent(ctx context.Context, classID int, req model.EnrollStudentRequest, teacherID uuid.UUID) (*model.BulkEnrollResult, error) {
	return s.enrollment.EnrollStudent(ctx, classID, req, teacherID)
}

// RemoveStudent takes one student off the roster.
func (s *ClassService) RemoveStudent(ctx context.Context, classID int, studentID, teacherID uuid.UUID) error {
	return s.enrollment.RemoveStudent(ctx, classID, studentID, teacherID)
}

// BulkRemoveStudents takes many students off the roster.
func (s *ClassService) BulkRemoveStudents(ctx context.Context, classID int, req model.BulkRemoveStudentsRequest, teacherID uuid.UUID) (*model.BulkRemoveResult, error) {
	return s.enrollment.BulkRemoveStudents(ctx, classID, req, teacherID)
}

// BulkDeleteClasses soft deletes many classes.
func (s *ClassService) BulkDeleteClasses(ctx context.Context, req model.BulkClassIDsRequest, teacherID uuid.UUID) (*model.BulkClassResult, error) {
	return s.bulk.BulkDeleteClasses(ctx, req, teacherID)
}

// BulkUpdateClasses applies one update to many classes.
func (s *ClassService) BulkUpdateClasses(ctx context.Context, req model.BulkUpdateClassesRequest, teacherID uuid.UUID) (*model.BulkClassResult, error) {
	return s.bulk.BulkUpdateClasses(ctx, req, teacherID)
}

func restoreClass(ctx context.Context, access *ClassAccessControl, classes ClassStore, classID, schoolID int, by uuid.UUID) error {
	class, err := classes.GetByID(ctx, classID)
	if err != nil {
		return notFoundAs(err, ErrClassNotFound)
	}
	if !class.Deleted() {
		return ErrClassNotDeleted
	}
	if class.SchoolID != schoolID {
		return ErrAccessDenied
	}
	if err := access.ValidateUniqueClassName(ctx, schoolID, class.Name, classID); err != nil {
		return err
	}
	if err := classes.Restore(ctx, classID, by); err != nil {
		return notFoundAs(err, ErrClassNotDeleted)
	}
	return nil
}

// notFoundAs replaces repository.ErrNotFound with a domain error.
func notFoundAs(err error, domain *Error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain
	}
	return err
}

// writeConflict maps the roster guards of class writes to domain errors.
func writeConflict(err error) error {
	switch {
	case errors.Is(err, repository.ErrRosterNotEmpty):
		return ErrClassHasStudents
	case errors.Is(err, repository.ErrBelowRoster):
		return ErrCapacityBelowEnrolled
	}
	return notFoundAs(err, ErrClassNotFound)
}
