package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/enrollment"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/repository"
	"github.com/stemsi/classroom-backend/internal/retry"
	"github.com/stemsi/classroom-backend/internal/validator"
)

// EnrollmentOptions tunes the enrollment call.
type EnrollmentOptions struct {
	MaxRetries int
	Backoff    time.Duration
	MaxBatch   int
}

// ClassEnrollmentService manages class rosters.
type ClassEnrollmentService struct {
	access      *ClassAccessControl
	enrollments EnrollmentStore
	audit       *AuditService
	roster      RosterPublisher
	retry       retry.Policy
	maxBatch    int
	log         zerolog.Logger
}

// NewClassEnrollmentService creates a new ClassEnrollmentService. Enrollment
// calls failing with a network error are retried opts.MaxRetries times.
func NewClassEnrollmentService(
	access *ClassAccessControl,
	enrollments EnrollmentStore,
	audit *AuditService,
	roster RosterPublisher,
	opts EnrollmentOptions,
	log zerolog.Logger,
) *ClassEnrollmentService {
	s := &ClassEnrollmentService{
		access:      access,
		enrollments: enrollments,
		audit:       audit,
		roster:      roster,
		maxBatch:    opts.MaxBatch,
		log:         log.With().Str("component", "enrollment_service").Logger(),
	}
	s.retry = retry.Policy{
		MaxRetries: opts.MaxRetries,
		Backoff:    opts.Backoff,
		MaxBackoff: 2 * time.Second,
		Retryable:  repository.IsNetworkError,
		OnRetry: func(attempt int, err error) {
			s.log.Warn().Err(err).Int("attempt", attempt).Msg("Enrollment call failed, retrying")
		},
	}
	return s
}

// GetAvailableStudents lists students of the class's school who are not
// enrolled in it yet. Page and limit are clamped to page >= 1 and 1..100.
func (s *ClassEnrollmentService) GetAvailableStudents(ctx context.Context, classID int, teacherID uuid.UUID, q model.AvailableStudentsQuery) (*model.AvailableStudentsResult, error) {
	if fields := validator.Struct(&q); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	class, err := s.access.AuthorizeClass(ctx, classID, teacherID, "view available students")
	if err != nil {
		return nil, err
	}

	q.Page, q.Limit = SanitizePagination(q.Page, q.Limit)
	students, total, err := s.enrollments.ListAvailable(ctx, class.ID, class.SchoolID, q)
	if err != nil {
		return nil, fmt.Errorf("list available students: %w", err)
	}
	return &model.AvailableStudentsResult{Students: students, Total: total}, nil
}

// GetClassStudents lists the roster of a class.
func (s *ClassEnrollmentService) GetClassStudents(ctx context.Context, classID int, teacherID uuid.UUID, q model.ClassStudentsQuery) (*model.ClassStudentsResult, error) {
	if fields := validator.Struct(&q); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	if err := s.access.ValidateTeacherAccess(ctx, classID, teacherID, "view class students"); err != nil {
		return nil, err
	}

	q.Limit = clampLimit(q.Limit)
	q.Offset = clampOffset(q.Offset)
	students, total, err := s.enrollments.ListEnrolled(ctx, classID, q)
	if err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return &model.ClassStudentsResult{Students: students, Total: total}, nil
}

// BulkEnrollStudents enrolls many students in one call. The class must
// belong to the teacher's school; that is checked before anything is
// enrolled. Students that cannot join are reported in the result's errors,
// so every distinct requested id ends up in exactly one of results or errors.
func (s *ClassEnrollmentService) BulkEnrollStudents(ctx context.Context, classID int, req model.BulkEnrollStudentsRequest, teacherID uuid.UUID) (*model.BulkEnrollResult, error) {
	if fields := validator.Struct(&req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	ids := enrollment.Dedupe(req.StudentIDs)
	if s.maxBatch > 0 && len(ids) > s.maxBatch {
		return nil, invalid("student_ids", fmt.Sprintf("at most %d students per request", s.maxBatch))
	}

	schoolID, err := s.access.TeacherSchool(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	class, err := s.access.ValidateClassExists(ctx, classID)
	if err != nil {
		return nil, err
	}
	if class.SchoolID != schoolID {
		s.log.Warn().
			Int("class_id", classID).
			Int("class_school_id", class.SchoolID).
			Int("teacher_school_id", schoolID).
			Str("teacher_id", teacherID.String()).
			Msg("Cross-school enrollment rejected")
		return nil, ErrCrossSchoolEnrollment
	}
	if err := s.access.requireAssignment(ctx, class, teacherID, "bulk enroll"); err != nil {
		return nil, err
	}

	date := time.Now().UTC()
	if req.EnrollmentDate != nil {
		date = req.EnrollmentDate.UTC()
	}
	call := enrollment.Request{
		ClassID:        classID,
		SchoolID:       schoolID,
		TeacherID:      teacherID,
		StudentIDs:     ids,
		EnrollmentDate: date,
		Notes:          req.Notes,
	}

	result, err := retry.DoValue(ctx, s.retry, func(ctx context.Context) (*model.BulkEnrollResult, error) {
		return s.enrollments.EnrollStudents(ctx, call)
	})
	if err != nil {
		return nil, s.enrollFailure(classID, err)
	}

	s.log.Info().
		Int("class_id", classID).
		Int("requested", len(ids)).
		Int("enrolled", result.EnrolledCount).
		Int("rejected", len(result.Errors)).
		Msg("Bulk enrollment completed")

	if len(result.Results) > 0 {
		s.audit.Record(ctx, model.AuditEntry{
			ClassID:     classID,
			Action:      model.AuditEnrollStudent,
			NewValues:   map[string]any{"student_ids": result.Results},
			PerformedBy: teacherID,
			Metadata:    map[string]any{"requested": len(ids), "rejected": len(result.Errors)},
		})
		s.publish(ctx, model.RosterStudentsEnrolled, classID, result.Results, teacherID)
	}
	return result, nil
}

// EnrollStudent enrolls a single student, turning a per-student rejection
// into an error.
func (s *ClassEnrollmentService) EnrollStudent(ctx context.Context, classID int, req model.EnrollStudentRequest, teacherID uuid.UUID) (*model.BulkEnrollResult, error) {
	result, err := s.BulkEnrollStudents(ctx, classID, model.BulkEnrollStudentsRequest{
		StudentIDs:     []uuid.UUID{req.StudentID},
		EnrollmentDate: req.EnrollmentDate,
		Notes:          req.Notes,
	}, teacherID)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			if msg, ok := ve.Fields["student_ids[0]"]; ok {
				return nil, invalid("student_id", msg)
			}
		}
		return nil, err
	}
	if len(result.Errors) == 0 {
		return result, nil
	}

	switch result.Errors[0].Error {
	case enrollment.MsgAlreadyEnrolled:
		return nil, ErrStudentAlreadyEnrolled
	case enrollment.MsgCapacityExceeded:
		return nil, ErrClassCapacityExceeded
	case enrollment.MsgStudentNotFound:
		return nil, ErrStudentNotFound
	case enrollment.MsgDifferentSchool:
		return nil, ErrCrossSchoolEnrollment
	default:
		return nil, ErrAccessDenied
	}
}

// RemoveStudent takes one student off the roster.
func (s *ClassEnrollmentService) RemoveStudent(ctx context.Context, classID int, studentID, teacherID uuid.UUID) error {
	if err := s.access.ValidateTeacherAccess(ctx, classID, teacherID, "remove student"); err != nil {
		return err
	}

	err := s.enrollments.Remove(ctx, classID, studentID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrStudentNotEnrolled
	}
	if err != nil {
		return fmt.Errorf("remove student: %w", err)
	}

	s.audit.Record(ctx, model.AuditEntry{
		ClassID:     classID,
		Action:      model.AuditRemoveStudent,
		OldValues:   map[string]any{"student_ids": []uuid.UUID{studentID}},
		PerformedBy: teacherID,
	})
	s.publish(ctx, model.RosterStudentsRemoved, classID, []uuid.UUID{studentID}, teacherID)
	return nil
}

// BulkRemoveStudents removes many students, reporting failures per student.
func (s *ClassEnrollmentService) BulkRemoveStudents(ctx context.Context, classID int, req model.BulkRemoveStudentsRequest, teacherID uuid.UUID) (*model.BulkRemoveResult, error) {
	if fields := validator.Struct(&req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	if err := s.access.ValidateTeacherAccess(ctx, classID, teacherID, "bulk remove students"); err != nil {
		return nil, err
	}

	result := &model.BulkRemoveResult{Results: []uuid.UUID{}, Errors: []model.EnrollmentError{}}
	for _, id := range enrollment.Dedupe(req.StudentIDs) {
		err := s.enrollments.Remove(ctx, classID, id)
		switch {
		case err == nil:
			result.Results = append(result.Results, id)
		case errors.Is(err, repository.ErrNotFound):
			result.Errors = append(result.Errors, model.EnrollmentError{StudentID: id, Error: ErrStudentNotEnrolled.Message})
		default:
			s.log.Error().Err(err).Int("class_id", classID).Str("student_id", id.String()).Msg("Failed to remove student")
			result.Errors = append(result.Errors, model.EnrollmentError{StudentID: id, Error: "Failed to remove student"})
		}
	}
	result.RemovedCount = len(result.Results)

	if result.RemovedCount > 0 {
		s.audit.Record(ctx, model.AuditEntry{
			ClassID:     classID,
			Action:      model.AuditRemoveStudent,
			OldValues:   map[string]any{"student_ids": result.Results},
			PerformedBy: teacherID,
		})
		s.publish(ctx, model.RosterStudentsRemoved, classID, result.Results, teacherID)
	}
	return result, nil
}

func (s *ClassEnrollmentService) enrollFailure(classID int, err error) error {
	var exhausted *retry.ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		s.log.Error().Err(exhausted.Err).
			Int("class_id", classID).
			Int("attempts", exhausted.Attempts).
			Msg("Enrollment failed after retries")
		return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	case errors.Is(err, repository.ErrNotFound):
		return ErrClassNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	s.log.Error().Err(err).Int("class_id", classID).Msg("Enrollment failed")
	return fmt.Errorf("%w: %w", ErrEnrollmentFailed, err)
}

func (s *ClassEnrollmentService) publish(ctx context.Context, typ model.RosterEventType, classID int, ids []uuid.UUID, actor uuid.UUID) {
	ev := model.RosterEvent{
		Type:       typ,
		ClassID:    classID,
		StudentIDs: ids,
		ActorID:    actor,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.roster.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Int("class_id", classID).Msg("Failed to publish roster event")
	}
}
