package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenRevoked       ErrCode = "TOKEN_REVOKED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"
	ErrAccessDenied      ErrCode = "ACCESS_DENIED"
	ErrBulkAccessDenied  ErrCode = "BULK_ACCESS_DENIED"
	ErrCrossSchool       ErrCode = "CROSS_SCHOOL_ENROLLMENT"
	ErrSchoolMismatch    ErrCode = "SCHOOL_MISMATCH"
	ErrInvalidTeacher    ErrCode = "INVALID_TEACHER"
	ErrMissingSchoolID   ErrCode = "MISSING_SCHOOL_ID"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound           ErrCode = "NOT_FOUND"
	ErrClassNotFound      ErrCode = "CLASS_NOT_FOUND"
	ErrTeacherNotFound    ErrCode = "TEACHER_NOT_FOUND"
	ErrStudentNotFound    ErrCode = "STUDENT_NOT_FOUND"
	ErrStudentNotEnrolled ErrCode = "STUDENT_NOT_ENROLLED"
	ErrTeacherNotAssigned ErrCode = "TEACHER_NOT_ASSIGNED"
	ErrConflict           ErrCode = "CONFLICT"

	// ─── Class-specific ────────────────────────────────────────────────
	ErrDuplicateClassName     ErrCode = "DUPLICATE_CLASS_NAME"
	ErrClassHasStudents       ErrCode = "CLASS_HAS_STUDENTS"
	ErrClassNotDeleted        ErrCode = "CLASS_NOT_DELETED"
	ErrStudentAlreadyEnrolled ErrCode = "STUDENT_ALREADY_ENROLLED"
	ErrClassCapacityExceeded  ErrCode = "CLASS_CAPACITY_EXCEEDED"
	ErrCapacityBelowEnrolled  ErrCode = "CAPACITY_BELOW_ENROLLMENT"

	// ─── Roster import ─────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrNetwork          ErrCode = "NETWORK_ERROR"
	ErrEnrollmentFailed ErrCode = "ENROLLMENT_FAILED"
	ErrInternal         ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."
	case ErrTokenRevoked:
		return "Authentication token has been revoked. Please log in again."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrTeacherAccessOnly:
		return "This resource is restricted to teachers."
	case ErrAccessDenied:
		return "Access denied to this class."
	case ErrBulkAccessDenied:
		return "Access denied to one or more classes."
	case ErrCrossSchool:
		return "Cannot enroll students into a class of another school."
	case ErrSchoolMismatch:
		return "Teacher and class belong to different schools."
	case ErrInvalidTeacher:
		return "Profile is not a teacher."
	case ErrMissingSchoolID:
		return "Teacher is not assigned to a school."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrClassNotFound:
		return "Class not found."
	case ErrTeacherNotFound:
		return "Teacher not found."
	case ErrStudentNotFound:
		return "Student not found."
	case ErrStudentNotEnrolled:
		return "Student is not enrolled in this class."
	case ErrTeacherNotAssigned:
		return "Teacher is not assigned to this class."
	case ErrConflict:
		return "Resource already exists."

	// ─── Class-specific ────────────────────────────────────────────────
	case ErrDuplicateClassName:
		return "A class with this name already exists in the school."
	case ErrClassHasStudents:
		return "Cannot delete class with enrolled students."
	case ErrClassNotDeleted:
		return "Class is not deleted."
	case ErrStudentAlreadyEnrolled:
		return "Student already enrolled in this class."
	case ErrClassCapacityExceeded:
		return "Class capacity exceeded."
	case ErrCapacityBelowEnrolled:
		return "Capacity cannot be lower than the number of enrolled students."

	// ─── Roster import ─────────────────────────────────────────────────
	case ErrFileRequired:
		return "File upload is required."
	case ErrUnsupportedFile:
		return "Unsupported file type. Upload an .xlsx roster."
	case ErrFileTooLarge:
		return "File size exceeds the limit."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrNetwork:
		return "Network connection failed after retries."
	case ErrEnrollmentFailed:
		return "Failed to enroll students."
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
