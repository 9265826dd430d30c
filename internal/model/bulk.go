package model

import "github.com/google/uuid"

// BulkClassIDsRequest targets a set of classes.
type BulkClassIDsRequest struct {
	ClassIDs []int `json:"class_ids" binding:"required,min=1,max=100,dive,min=1"`
}

// BulkUpdateClassesRequest applies the same update to many classes.
type BulkUpdateClassesRequest struct {
	ClassIDs []int              `json:"class_ids" binding:"required,min=1,max=100,dive,min=1"`
	Updates  UpdateClassRequest `json:"updates"`
}

// BulkAssignTeacherRequest makes one teacher the primary teacher of many classes.
type BulkAssignTeacherRequest struct {
	ClassIDs  []int     `json:"class_ids" binding:"required,min=1,max=100,dive,min=1"`
	TeacherID uuid.UUID `json:"teacher_id" binding:"required"`
}

// ClassError is the per-class failure of a bulk class operation.
type ClassError struct {
	ClassID int    `json:"class_id"`
	Error   string `json:"error"`
}

// BulkClassResult reports a bulk class operation.
type BulkClassResult struct {
	Results []int        `json:"results"`
	Errors  []ClassError `json:"errors"`
}

// BulkOperationSummary describes a selection of classes before a bulk action.
type BulkOperationSummary struct {
	Total        int `json:"total"`
	Accessible   int `json:"accessible"`
	WithStudents int `json:"with_students"`
	Deleted      int `json:"deleted"`
	Active       int `json:"active"`
}
