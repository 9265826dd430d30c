package service

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Error is a domain failure identified by a stable code. The code is part of
// the message so callers that only see text can still match it.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func newError(code, message string) *Error { return &Error{Code: code, Message: message} }

var (
	// ─── Validation ─────────────────────────────────────────────────────
	ErrValidation      = newError("VALIDATION_ERROR", "Invalid input")
	ErrMissingSchoolID = newError("MISSING_SCHOOL_ID", "Teacher is not assigned to a school")

	// ─── Lookup ─────────────────────────────────────────────────────────
	ErrTeacherNotFound    = newError("TEACHER_NOT_FOUND", "Teacher not found")
	ErrClassNotFound      = newError("CLASS_NOT_FOUND", "Class not found")
	ErrStudentNotFound    = newError("STUDENT_NOT_FOUND", "Student not found")
	ErrStudentNotEnrolled = newError("STUDENT_NOT_ENROLLED", "Student is not enrolled in this class")
	ErrTeacherNotAssigned = newError("TEACHER_NOT_ASSIGNED", "Teacher is not assigned to this class")

	// ─── Authorization ──────────────────────────────────────────────────
	ErrAccessDenied          = newError("ACCESS_DENIED", "Access denied to this class")
	ErrBulkAccessDenied      = newError("BULK_ACCESS_DENIED", "Access denied to one or more classes")
	ErrCrossSchoolEnrollment = newError("CROSS_SCHOOL_ENROLLMENT", "Cannot enroll students into a class of another school")
	ErrSchoolMismatch        = newError("SCHOOL_MISMATCH", "Teacher and class belong to different schools")
	ErrInvalidTeacher        = newError("INVALID_TEACHER", "Profile is not a teacher")
	ErrInvalidCredentials    = newError("INVALID_CREDENTIALS", "Invalid email or password")

	// ─── Conflicts ──────────────────────────────────────────────────────
	ErrDuplicateClassName     = newError("DUPLICATE_CLASS_NAME", "A class with this name already exists in the school")
	ErrClassHasStudents       = newError("CLASS_HAS_STUDENTS", "Cannot delete class with enrolled students")
	ErrClassNotDeleted        = newError("CLASS_NOT_DELETED", "Class is not deleted")
	ErrStudentAlreadyEnrolled = newError("STUDENT_ALREADY_ENROLLED", "Student already enrolled in this class")
	ErrClassCapacityExceeded  = newError("CLASS_CAPACITY_EXCEEDED", "Class capacity exceeded")
	ErrCapacityBelowEnrolled  = newError("CAPACITY_BELOW_ENROLLMENT", "Capacity cannot be lower than the number of enrolled students")

	// ─── Infrastructure ─────────────────────────────────────────────────
	ErrNetworkFailure   = newError("NETWORK_ERROR", "Network connection failed after retries")
	ErrEnrollmentFailed = newError("ENROLLMENT_FAILED", "Failed to enroll students")
)

// Code returns the domain code carried by err, or "" for unexpected errors.
func Code(err error) string {
	var bulk *BulkAccessError
	if errors.As(err, &bulk) {
		return ErrBulkAccessDenied.Code
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ErrValidation.Code
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// BulkAccessError lists the classes a teacher may not act on.
type BulkAccessError struct {
	Operation string
	ClassIDs  []int
}

func (e *BulkAccessError) Error() string {
	ids := make([]string, len(e.ClassIDs))
	for i, id := range e.ClassIDs {
		ids[i] = strconv.Itoa(id)
	}
	return fmt.Sprintf("%s: access denied to classes %s for %s",
		ErrBulkAccessDenied.Code, strings.Join(ids, ", "), e.Operation)
}

func (e *BulkAccessError) Is(target error) bool {
	return target == ErrBulkAccessDenied || target == ErrAccessDenied
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
