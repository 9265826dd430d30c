package model

import (
	"time"

	"github.com/google/uuid"
)

// Gender represents the student's gender.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Boarding tells whether a student lives on campus.
type Boarding string

const (
	BoardingDay      Boarding = "day"
	BoardingResident Boarding = "boarding"
)

// Student is a profile with role student joined with its student details.
type Student struct {
	ID       uuid.UUID `json:"id"`
	SchoolID int       `json:"school_id"`
	FullName string    `json:"full_name"`
	NIS      string    `json:"nis"`
	Gender   Gender    `json:"gender"`
	Boarding Boarding  `json:"boarding"`
}

// StudentWithDetails is a student as seen from a class roster.
type StudentWithDetails struct {
	Student
	EnrollmentDate time.Time `json:"enrollment_date"`
	Notes          string    `json:"notes,omitempty"`
}

// CreateStudentRequest is used by the seeding tool to create student profiles.
type CreateStudentRequest struct {
	SchoolID int      `json:"school_id" binding:"required,min=1"`
	FullName string   `json:"full_name" binding:"required,min=2,max=100"`
	NIS      string   `json:"nis" binding:"required,min=4,max=20"`
	Gender   Gender   `json:"gender" binding:"required,oneof=male female"`
	Boarding Boarding `json:"boarding" binding:"required,oneof=day boarding"`
}

// AvailableStudentsQuery filters the students that can still join a class.
// Limit and Page are clamped by the service rather than rejected.
type AvailableStudentsQuery struct {
	SearchTerm string   `form:"search" json:"search" binding:"max=100"`
	Gender     Gender   `form:"gender" json:"gender" binding:"omitempty,oneof=male female"`
	Boarding   Boarding `form:"boarding" json:"boarding" binding:"omitempty,oneof=day boarding"`
	Limit      int      `form:"limit" json:"limit"`
	Page       int      `form:"page" json:"page"`
}

// AvailableStudentsResult is one page of enrollable students.
type AvailableStudentsResult struct {
	Students []Student `json:"students"`
	Total    int       `json:"total"`
}

// ClassStudentsQuery filters and orders a class roster.
type ClassStudentsQuery struct {
	SearchTerm string `form:"search" json:"search" binding:"max=100"`
	SortBy     string `form:"sort_by" json:"sort_by" binding:"omitempty,oneof=full_name nis enrollment_date"`
	SortOrder  string `form:"sort_order" json:"sort_order" binding:"omitempty,oneof=asc desc"`
	Limit      int    `form:"limit" json:"limit"`
	Offset     int    `form:"offset" json:"offset" binding:"min=0"`
}

// ClassStudentsResult is one page of a class roster.
type ClassStudentsResult struct {
	Students []StudentWithDetails `json:"students"`
	Total    int                  `json:"total"`
}
