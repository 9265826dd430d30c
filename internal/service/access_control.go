package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/repository"
)

// ClassAccessControl decides whether a teacher may act on a class. A teacher
// may act on a class only when both belong to the same school and the
// teacher is assigned to the class.
type ClassAccessControl struct {
	profiles ProfileStore
	classes  ClassStore
	log      zerolog.Logger
}

// NewClassAccessControl creates a new ClassAccessControl.
func NewClassAccessControl(profiles ProfileStore, classes ClassStore, log zerolog.Logger) *ClassAccessControl {
	return &ClassAccessControl{
		profiles: profiles,
		classes:  classes,
		log:      log.With().Str("component", "class_access").Logger(),
	}
}

// TeacherSchool resolves the school a teacher acts for.
func (a *ClassAccessControl) TeacherSchool(ctx context.Context, teacherID uuid.UUID) (int, error) {
	schoolID, err := a.profiles.GetSchoolID(ctx, teacherID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrTeacherNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup teacher school: %w", err)
	}
	if schoolID == 0 {
		return 0, ErrMissingSchoolID
	}
	return schoolID, nil
}

// ValidateClassExists returns the class unless it is missing or soft deleted.
func (a *ClassAccessControl) ValidateClassExists(ctx context.Context, classID int) (*model.Class, error) {
	class, err := a.classes.GetByID(ctx, classID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrClassNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup class %d: %w", classID, err)
	}
	if class.Deleted() {
		return nil, ErrClassNotFound
	}
	return class, nil
}

// VerifyClassAccess reports whether the teacher is assigned to the class.
// With validateSchool it also requires the class to be live and in the
// teacher's school. Lookup failures other than not-found are returned.
func (a *ClassAccessControl) VerifyClassAccess(ctx context.Context, classID int, teacherID uuid.UUID, validateSchool bool) (bool, error) {
	if validateSchool {
		schoolID, err := a.TeacherSchool(ctx, teacherID)
		if err != nil {
			return false, err
		}
		class, err := a.ValidateClassExists(ctx, classID)
		if errors.Is(err, ErrClassNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if class.SchoolID != schoolID {
			return false, nil
		}
	}

	assigned, err := a.classes.IsTeacherAssigned(ctx, classID, teacherID)
	if err != nil {
		return false, fmt.Errorf("check class assignment: %w", err)
	}
	return assigned, nil
}

// AuthorizeClass loads a live class and checks that the teacher may act on
// it. Missing classes fail with ErrClassNotFound, foreign or unassigned ones
// with ErrAccessDenied.
func (a *ClassAccessControl) AuthorizeClass(ctx context.Context, classID int, teacherID uuid.UUID, operation string) (*model.Class, error) {
	schoolID, err := a.TeacherSchool(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	class, err := a.ValidateClassExists(ctx, classID)
	if err != nil {
		return nil, err
	}
	if class.SchoolID != schoolID {
		a.denied(classID, teacherID, operation, "school")
		return nil, fmt.Errorf("%s: %w", operation, ErrAccessDenied)
	}
	if err := a.requireAssignment(ctx, class, teacherID, operation); err != nil {
		return nil, err
	}
	return class, nil
}

// ValidateTeacherAccess fails with ErrAccessDenied unless the teacher may act on the class.
func (a *ClassAccessControl) ValidateTeacherAccess(ctx context.Context, classID int, teacherID uuid.UUID, operation string) error {
	_, err := a.AuthorizeClass(ctx, classID, teacherID, operation)
	return err
}

// ValidateBulkAccess checks every class and fails with a BulkAccessError
// naming all the classes the teacher may not act on.
func (a *ClassAccessControl) ValidateBulkAccess(ctx context.Context, classIDs []int, teacherID uuid.UUID, operation string) error {
	var denied []int
	for _, id := range classIDs {
		ok, err := a.VerifyClassAccess(ctx, id, teacherID, true)
		if err != nil {
			return err
		}
		if !ok {
			denied = append(denied, id)
		}
	}
	if len(denied) > 0 {
		a.log.Warn().
			Str("teacher_id", teacherID.String()).
			Ints("class_ids", denied).
			Str("operation", operation).
			Msg("Bulk access denied")
		return &BulkAccessError{Operation: operation, ClassIDs: denied}
	}
	return nil
}

// ValidateClassDeletion fails when students are still enrolled.
func (a *ClassAccessControl) ValidateClassDeletion(ctx context.Context, classID int) error {
	n, err := a.classes.CountStudents(ctx, classID)
	if err != nil {
		return fmt.Errorf("count students: %w", err)
	}
	if n > 0 {
		return ErrClassHasStudents
	}
	return nil
}

// ValidateUniqueClassName fails when another live class of the school uses the name.
func (a *ClassAccessControl) ValidateUniqueClassName(ctx context.Context, schoolID int, name string, excludeID int) error {
	exists, err := a.classes.NameExists(ctx, schoolID, name, excludeID)
	if err != nil {
		return fmt.Errorf("check class name: %w", err)
	}
	if exists {
		return ErrDuplicateClassName
	}
	return nil
}

// ValidateTeacher checks that a profile is a teacher of the given school.
func (a *ClassAccessControl) ValidateTeacher(ctx context.Context, teacherID uuid.UUID, schoolID int) (*model.Profile, error) {
	p, err := a.profiles.GetByID(ctx, teacherID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTeacherNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup teacher: %w", err)
	}
	if p.Role != model.RoleTeacher {
		return nil, ErrInvalidTeacher
	}
	if p.SchoolID != schoolID {
		return nil, ErrSchoolMismatch
	}
	return p, nil
}

// AssignTeacherToClass adds a teacher of the class's school to the class.
func (a *ClassAccessControl) AssignTeacherToClass(ctx context.Context, classID int, teacherID uuid.UUID, role string) error {
	class, err := a.ValidateClassExists(ctx, classID)
	if err != nil {
		return err
	}
	if _, err := a.ValidateTeacher(ctx, teacherID, class.SchoolID); err != nil {
		return err
	}
	if role == "" {
		role = "assistant"
	}
	if err := a.classes.AssignTeacher(ctx, classID, teacherID, role); err != nil {
		return fmt.Errorf("assign teacher: %w", err)
	}
	return nil
}

// RemoveTeacherFromClass removes a teacher assignment.
func (a *ClassAccessControl) RemoveTeacherFromClass(ctx context.Context, classID int, teacherID uuid.UUID) error {
	err := a.classes.RemoveTeacher(ctx, classID, teacherID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTeacherNotAssigned
	}
	if err != nil {
		return fmt.Errorf("remove teacher: %w", err)
	}
	return nil
}

func (a *ClassAccessControl) requireAssignment(ctx context.Context, class *model.Class, teacherID uuid.UUID, operation string) error {
	assigned, err := a.classes.IsTeacherAssigned(ctx, class.ID, teacherID)
	if err != nil {
		return fmt.Errorf("check class assignment: %w", err)
	}
	if !assigned {
		a.denied(class.ID, teacherID, operation, "assignment")
		return fmt.Errorf("%s: %w", operation, ErrAccessDenied)
	}
	return nil
}

func (a *ClassAccessControl) denied(classID int, teacherID uuid.UUID, operation, reason string) {
	a.log.Warn().
		Int("class_id", classID).
		Str("teacher_id", teacherID.String()).
		Str("operation", operation).
		Str("reason", reason).
		Msg("Class access denied")
}
