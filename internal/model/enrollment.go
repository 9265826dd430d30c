package model

import (
	"time"

	"github.com/google/uuid"
)

// EnrollStudentRequest enrolls a single student.
type EnrollStudentRequest struct {
	StudentID      uuid.UUID  `json:"student_id" binding:"required"`
	EnrollmentDate *time.Time `json:"enrollment_date"`
	Notes          string     `json:"notes" binding:"max=500"`
}

// BulkEnrollStudentsRequest enrolls many students into one class.
type BulkEnrollStudentsRequest struct {
	StudentIDs     []uuid.UUID `json:"student_ids" binding:"required,min=1,dive,required"`
	EnrollmentDate *time.Time  `json:"enrollment_date"`
	Notes          string      `json:"notes" binding:"max=500"`
}

// BulkRemoveStudentsRequest removes many students from one class.
type BulkRemoveStudentsRequest struct {
	StudentIDs []uuid.UUID `json:"student_ids" binding:"required,min=1,max=200,dive,required"`
}

// EnrollmentError is the per-student failure of a bulk roster operation.
type EnrollmentError struct {
	StudentID uuid.UUID `json:"student_id"`
	Error     string    `json:"error"`
}

// BulkEnrollResult reports a bulk enrollment. Every distinct requested id is
// in exactly one of Results or Errors.
type BulkEnrollResult struct {
	Results       []uuid.UUID       `json:"results"`
	Errors        []EnrollmentError `json:"errors"`
	EnrolledCount int               `json:"enrolled_count"`
}

// BulkRemoveResult reports a bulk removal.
type BulkRemoveResult struct {
	Results      []uuid.UUID       `json:"results"`
	Errors       []EnrollmentError `json:"errors"`
	RemovedCount int               `json:"removed_count"`
}

// ImportRowError describes a spreadsheet row that could not be read as a student id.
type ImportRowError struct {
	Row   int    `json:"row"`
	Value string `json:"value"`
	Error string `json:"error"`
}

// ImportResult is a bulk enrollment driven by an uploaded roster sheet.
type ImportResult struct {
	BulkEnrollResult
	InvalidRows []ImportRowError `json:"invalid_rows"`
}
