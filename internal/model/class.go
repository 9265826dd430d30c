package model

import (
	"time"

	"github.com/google/uuid"
)

// ClassStatus is the lifecycle state of a class.
type ClassStatus string

const (
	ClassActive   ClassStatus = "active"
	ClassInactive ClassStatus = "inactive"
	ClassArchived ClassStatus = "archived"
)

// DefaultClassCapacity is used when a class is created without max_students.
const DefaultClassCapacity = 30

// Class is a teaching group inside one school. MaxStudents bounds enrollment.
type Class struct {
	ID           int         `json:"id"`
	SchoolID     int         `json:"school_id"`
	TeacherID    *uuid.UUID  `json:"teacher_id"`
	Name         string      `json:"name"`
	Level        string      `json:"level"`
	Description  string      `json:"description"`
	MaxStudents  int         `json:"max_students"`
	AcademicYear string      `json:"academic_year"`
	Semester     string      `json:"semester"`
	Status       ClassStatus `json:"status"`
	CreatedBy    *uuid.UUID  `json:"created_by,omitempty"`
	UpdatedBy    *uuid.UUID  `json:"updated_by,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	DeletedAt    *time.Time  `json:"deleted_at,omitempty"`
}

// Deleted reports whether the class was soft deleted.
func (c *Class) Deleted() bool { return c.DeletedAt != nil }

// ClassTeacher is one teacher assignment of a class.
type ClassTeacher struct {
	UserID       uuid.UUID `json:"user_id"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	AssignedDate time.Time `json:"assigned_date"`
}

// ClassWithDetails is a class with roster counts and its teachers.
type ClassWithDetails struct {
	Class
	StudentCount int            `json:"student_count"`
	TeacherCount int            `json:"teacher_count"`
	Teachers     []ClassTeacher `json:"teachers"`
}

// CreateClassRequest is the payload for creating a class.
type CreateClassRequest struct {
	Name         string `json:"name" binding:"required,min=1,max=100"`
	Level        string `json:"level" binding:"required,max=50"`
	Description  string `json:"description" binding:"max=500"`
	MaxStudents  int    `json:"max_students" binding:"omitempty,min=1,max=500"`
	AcademicYear string `json:"academic_year" binding:"required,max=20"`
	Semester     string `json:"semester" binding:"required,oneof=1 2"`
}

// UpdateClassRequest carries the fields to change; nil fields are left untouched.
type UpdateClassRequest struct {
	Name         *string      `json:"name" binding:"omitempty,min=1,max=100"`
	Level        *string      `json:"level" binding:"omitempty,max=50"`
	Description  *string      `json:"description" binding:"omitempty,max=500"`
	MaxStudents  *int         `json:"max_students" binding:"omitempty,min=1,max=500"`
	AcademicYear *string      `json:"academic_year" binding:"omitempty,max=20"`
	Semester     *string      `json:"semester" binding:"omitempty,oneof=1 2"`
	Status       *ClassStatus `json:"status" binding:"omitempty,oneof=active inactive archived"`
}

// Empty reports whether the request changes nothing.
func (r UpdateClassRequest) Empty() bool {
	return r.Name == nil && r.Level == nil && r.Description == nil && r.MaxStudents == nil &&
		r.AcademicYear == nil && r.Semester == nil && r.Status == nil
}

// ClassListQuery filters the classes a teacher is assigned to.
type ClassListQuery struct {
	Status     ClassStatus `form:"status" binding:"omitempty,oneof=active inactive archived"`
	SearchTerm string      `form:"search" binding:"max=100"`
	SortBy     string      `form:"sort_by" binding:"omitempty,oneof=name level student_count created_at"`
	SortOrder  string      `form:"sort_order" binding:"omitempty,oneof=asc desc"`
	Limit      int         `form:"limit"`
	Offset     int         `form:"offset" binding:"min=0"`
}

// AssignTeacherRequest adds a teacher to a class.
type AssignTeacherRequest struct {
	TeacherID uuid.UUID `json:"teacher_id" binding:"required"`
	Role      string    `json:"role" binding:"omitempty,oneof=primary assistant"`
}
