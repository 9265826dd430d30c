package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/repository"
	"github.com/stemsi/classroom-backend/internal/validator"
)

// ClassBulkService runs class operations over many classes. Access is
// checked for the whole selection up front; after that each class succeeds
// or fails on its own.
type ClassBulkService struct {
	access  *ClassAccessControl
	classes ClassStore
	audit   *AuditService
	log     zerolog.Logger
}

// NewClassBulkService creates a new ClassBulkService.
func NewClassBulkService(access *ClassAccessControl, classes ClassStore, audit *AuditService, log zerolog.Logger) *ClassBulkService {
	return &ClassBulkService{
		access:  access,
		classes: classes,
		audit:   audit,
		log:     log.With().Str("component", "bulk_service").Logger(),
	}
}

// BulkUpdateClasses applies the same update to every selected class.
func (s *ClassBulkService) BulkUpdateClasses(ctx context.Context, req model.BulkUpdateClassesRequest, teacherID uuid.UUID) (*model.BulkClassResult, error) {
	if fields := validator.Struct(&req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	if req.Updates.Empty() {
		return nil, invalid("updates", "at least one field must be updated")
	}
	ids := dedupeInts(req.ClassIDs)
	if err := s.access.ValidateBulkAccess(ctx, ids, teacherID, "bulk update"); err != nil {
		return nil, err
	}

	result := newBulkClassResult()
	for _, id := range ids {
		class, err := s.access.ValidateClassExists(ctx, id)
		if err != nil {
			s.fail(result, id, err)
			continue
		}
		cs, err := updateClass(ctx, s.access, s.classes, class, req.Updates, teacherID)
		if err != nil {
			s.fail(result, id, err)
			continue
		}
		if !cs.empty() {
			s.audit.Record(ctx, cs.entry(id, model.AuditUpdate, teacherID))
		}
		result.Results = append(result.Results, id)
	}
	return result, nil
}

// BulkDeleteClasses soft deletes every selected class that has no students.
func (s *ClassBulkService) BulkDeleteClasses(ctx context.Context, req model.BulkClassIDsRequest, teacherID uuid.UUID) (*model.BulkClassResult, error) {
	if fields := validator.Struct(&req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	ids := dedupeInts(req.ClassIDs)
	if err := s.access.ValidateBulkAccess(ctx, ids, teacherID, "bulk delete"); err != nil {
		return nil, err
	}

	result := newBulkClassResult()
	for _, id := range ids {
		if err := s.access.ValidateClassDeletion(ctx, id); err != nil {
			s.fail(result, id, err)
			continue
		}
		if err := s.classes.SoftDelete(ctx, id, teacherID); err != nil {
			s.fail(result, id, writeConflict(err))
			continue
		}
		s.audit.Record(ctx, model.AuditEntry{
			ClassID:     id,
			Action:      model.AuditDelete,
			NewValues:   map[string]any{"status": model.ClassArchived},
			PerformedBy: teacherID,
		})
		result.Results = append(result.Results, id)
	}
	return result, nil
}

// BulkRestoreClasses restores soft-deleted classes of the teacher's school.
func (s *ClassBulkService) BulkRestoreClasses(ctx context.Context, req model.BulkClassIDsRequest, teacherID uuid.UUID) (*model.BulkClassResult, error) {
	if fields := validator.Struct(&req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	schoolID, err := s.access.TeacherSchool(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	result := newBulkClassResult()
	for _, id := range dedupeInts(req.ClassIDs) {
		if err := restoreClass(ctx, s.access, s.classes, id, schoolID, teacherID); err != nil {
			s.fail(result, id, err)
			continue
		}
		s.audit.Record(ctx, model.AuditEntry{
			ClassID:     id,
			Action:      model.AuditRestore,
			NewValues:   map[string]any{"status": model.ClassActive},
			PerformedBy: teacherID,
		})
		result.Results = append(result.Results, id)
	}
	return result, nil
}

// BulkAssignTeacher makes one teacher the primary teacher of every selected class.
func (s *ClassBulkService) BulkAssignTeacher(ctx context.Context, req model.BulkAssignTeacherRequest, actorID uuid.UUID) (*model.BulkClassResult, error) {
	if fields := validator.Struct(&req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	schoolID, err := s.access.TeacherSchool(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.ValidateTeacher(ctx, req.TeacherID, schoolID); err != nil {
		return nil, err
	}
	ids := dedupeInts(req.ClassIDs)
	if err := s.access.ValidateBulkAccess(ctx, ids, actorID, "bulk assign teacher"); err != nil {
		return nil, err
	}

	result := newBulkClassResult()
	for _, id := range ids {
		if err := s.access.AssignTeacherToClass(ctx, id, req.TeacherID, "primary"); err != nil {
			s.fail(result, id, err)
			continue
		}
		s.audit.Record(ctx, model.AuditEntry{
			ClassID:     id,
			Action:      model.AuditAssignTeacher,
			NewValues:   map[string]any{"teacher_id": req.TeacherID, "role": "primary"},
			PerformedBy: actorID,
		})
		result.Results = append(result.Results, id)
	}
	return result, nil
}

// GetBulkOperationSummary describes the selected classes without changing them.
func (s *ClassBulkService) GetBulkOperationSummary(ctx context.Context, req model.BulkClassIDsRequest, teacherID uuid.UUID) (*model.BulkOperationSummary, error) {
	if fields := validator.Struct(&req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	schoolID, err := s.access.TeacherSchool(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	ids := dedupeInts(req.ClassIDs)
	summary := &model.BulkOperationSummary{Total: len(ids)}

	// Only classes of the teacher's school that the teacher is assigned to
	// are described. Archived ones are counted but not accessible.
	for _, id := range ids {
		class, err := s.classes.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup class %d: %w", id, err)
		}
		if class.SchoolID != schoolID {
			continue
		}
		assigned, err := s.access.VerifyClassAccess(ctx, id, teacherID, false)
		if err != nil {
			return nil, err
		}
		if !assigned {
			continue
		}

		if class.Deleted() {
			summary.Deleted++
		} else {
			summary.Accessible++
			if class.Status == model.ClassActive {
				summary.Active++
			}
		}

		n, err := s.classes.CountStudents(ctx, id)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			summary.WithStudents++
		}
	}
	return summary, nil
}

func (s *ClassBulkService) fail(result *model.BulkClassResult, classID int, err error) {
	msg := "Operation failed"
	var se *Error
	if errors.As(err, &se) {
		msg = se.Message
	} else {
		s.log.Error().Err(err).Int("class_id", classID).Msg("Bulk class operation failed")
	}
	result.Errors = append(result.Errors, model.ClassError{ClassID: classID, Error: msg})
}

func newBulkClassResult() *model.BulkClassResult {
	return &model.BulkClassResult{Results: []int{}, Errors: []model.ClassError{}}
}

func dedupeInts(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
