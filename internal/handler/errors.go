package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/response"
	"github.com/stemsi/classroom-backend/internal/service"
)

// statusByCode maps domain codes to HTTP statuses. Codes ending in
// _NOT_FOUND and unknown codes are handled in statusFor.
var statusByCode = map[string]int{
	service.ErrValidation.Code:      http.StatusBadRequest,
	service.ErrMissingSchoolID.Code: http.StatusBadRequest,

	service.ErrAccessDenied.Code:          http.StatusForbidden,
	service.ErrBulkAccessDenied.Code:      http.StatusForbidden,
	service.ErrCrossSchoolEnrollment.Code: http.StatusForbidden,
	service.ErrSchoolMismatch.Code:        http.StatusForbidden,
	service.ErrInvalidTeacher.Code:        http.StatusBadRequest,
	service.ErrInvalidCredentials.Code:    http.StatusUnauthorized,

	service.ErrStudentNotEnrolled.Code: http.StatusNotFound,
	service.ErrTeacherNotAssigned.Code: http.StatusNotFound,

	service.ErrDuplicateClassName.Code:     http.StatusConflict,
	service.ErrClassHasStudents.Code:       http.StatusConflict,
	service.ErrClassNotDeleted.Code:        http.StatusConflict,
	service.ErrStudentAlreadyEnrolled.Code: http.StatusConflict,
	service.ErrClassCapacityExceeded.Code:  http.StatusConflict,
	service.ErrCapacityBelowEnrolled.Code:  http.StatusConflict,

	service.ErrNetworkFailure.Code: http.StatusServiceUnavailable,
}

func statusFor(code string) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	if strings.HasSuffix(code, "_NOT_FOUND") {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// failFromErr writes the error response for a service error. Unexpected
// errors are logged and hidden behind INTERNAL_ERROR.
func failFromErr(c *gin.Context, log zerolog.Logger, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, ve.Fields)
		return
	}

	var bulk *service.BulkAccessError
	if errors.As(err, &bulk) {
		ids := make([]string, len(bulk.ClassIDs))
		for i, id := range bulk.ClassIDs {
			ids[i] = strconv.Itoa(id)
		}
		response.FailWithMessage(c, http.StatusForbidden, response.ErrBulkAccessDenied,
			service.ErrBulkAccessDenied.Message, map[string]string{"class_ids": strings.Join(ids, ",")})
		return
	}

	var se *service.Error
	if errors.As(err, &se) {
		status := statusFor(se.Code)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).
				Str("path", c.FullPath()).
				Str("request_id", response.RequestID(c)).
				Msg("Request failed")
		}
		response.FailWithMessage(c, status, response.ErrCode(se.Code), se.Message, nil)
		return
	}

	log.Error().Err(err).
		Str("path", c.FullPath()).
		Str("request_id", response.RequestID(c)).
		Msg("Unexpected error")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}
