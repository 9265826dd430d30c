package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/classroom-backend/internal/model"
)

// applyClassUpdate copies the set fields of u onto c and reports what changed.
func applyClassUpdate(c *model.Class, u model.UpdateClassRequest) *changeSet {
	cs := &changeSet{}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		cs.add("name", c.Name, name)
		c.Name = name
	}
	if u.Level != nil {
		cs.add("level", c.Level, *u.Level)
		c.Level = *u.Level
	}
	if u.Description != nil {
		cs.add("description", c.Description, *u.Description)
		c.Description = *u.Description
	}
	if u.MaxStudents != nil {
		cs.add("max_students", c.MaxStudents, *u.MaxStudents)
		c.MaxStudents = *u.MaxStudents
	}
	if u.AcademicYear != nil {
		cs.add("academic_year", c.AcademicYear, *u.AcademicYear)
		c.AcademicYear = *u.AcademicYear
	}
	if u.Semester != nil {
		cs.add("semester", c.Semester, *u.Semester)
		c.Semester = *u.Semester
	}
	if u.Status != nil {
		cs.add("status", string(c.Status), string(*u.Status))
		c.Status = *u.Status
	}
	return cs
}

// updateClass validates and stores an update of a class the caller is
// already authorized for. It returns the change set, empty when nothing changed.
func updateClass(ctx context.Context, access *ClassAccessControl, classes ClassStore, class *model.Class, u model.UpdateClassRequest, by uuid.UUID) (*changeSet, error) {
	oldName := class.Name
	cs := applyClassUpdate(class, u)
	if cs.empty() {
		return cs, nil
	}

	if !strings.EqualFold(oldName, class.Name) {
		if err := access.ValidateUniqueClassName(ctx, class.SchoolID, class.Name, class.ID); err != nil {
			return nil, err
		}
	}
	if u.MaxStudents != nil {
		enrolled, err := classes.CountStudents(ctx, class.ID)
		if err != nil {
			return nil, fmt.Errorf("count students: %w", err)
		}
		if class.MaxStudents < enrolled {
			return nil, ErrCapacityBelowEnrolled
		}
	}

	class.UpdatedBy = &by
	if err := classes.Update(ctx, class); err != nil {
		var domain *Error
		if errors.As(writeConflict(err), &domain) {
			return nil, domain
		}
		return nil, fmt.Errorf("update class %d: %w", class.ID, err)
	}
	return cs, nil
}
