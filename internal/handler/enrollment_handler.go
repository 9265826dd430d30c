package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/importer"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/response"
	"github.com/stemsi/classroom-backend/internal/service"
	"github.com/stemsi/classroom-backend/internal/validator"
)

// multipartSlack covers the multipart framing around the uploaded file.
const multipartSlack = 64 << 10

// EnrollmentHandler handles class roster endpoints.
type EnrollmentHandler struct {
	classService   *service.ClassService
	maxImportBytes int64
	log            zerolog.Logger
}

// NewEnrollmentHandler creates a new EnrollmentHandler.
func NewEnrollmentHandler(classService *service.ClassService, maxImportBytes int64, log zerolog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		classService:   classService,
		maxImportBytes: maxImportBytes,
		log:            log.With().Str("component", "enrollment_handler").Logger(),
	}
}

// ListStudents godoc
// GET /api/v1/classes/:id/students
// Lists the class roster.
func (h *EnrollmentHandler) ListStudents(c *gin.Context) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}
	classID, ok := classIDParam(c)
	if !ok {
		return
	}
	var q model.ClassStudentsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.classService.GetClassStudents(c.Request.Context(), classID, teacherID, q)
	if err != nil {
		failFromErr(c, h.log, err)
		return
	}

	_, limit := service.SanitizePagination(1, q.Limit)
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"students": res.Students},
		response.PaginationFromOffset(q.Offset, limit, res.Total))
}

// ListAvailableStudents godoc
// GET /api/v1/classes/:id/students/available
// Lists students of the class's school that are not enrolled yet.
func (h *EnrollmentHandler) ListAvailableStudents(c *gin.Context) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}
	classID, ok := classIDParam(c)
	if !ok {
		return
	}
	var q model.AvailableStudentsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.classService.GetAvailableStudents(c.Request.Context(), classID, teacherID, q)
	if err != nil {
		failFromErr(c, h.log, err)
		return
	}

	page, limit := service.SanitizePagination(q.Page, q.Limit)
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"students": res.Students},
		response.NewPagination(page, limit, res.Total))
}

// EnrollStudent godoc
// POST /api/v1/classes/:id/students
func (h *EnrollmentHandler) EnrollStudent(c *gin.Context) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}
	classID, ok := classIDParam(c)
	if !ok {
		return
	}
	var req model.EnrollStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.classService.EnrollStudent(c.Request.Context(), classID, req, teacherID)
	if err != nil {
		failFromErr(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, res)
}

// BulkEnrollStudents godoc
// POST /api/v1/classes/:id/students/bulk
// Enrolls many students. Per-student failures are reported in errors with
// a 200; only whole-request failures use error statuses.
func (h *EnrollmentHandler) BulkEnrollStudents(c *gin.Context) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}
	classID, ok := classIDParam(c)
	if !ok {
		return
	}
	var req model.BulkEnrollStudentsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.classService.BulkEnrollStudents(c.Request.Context(), classID, req, teacherID)
	if err != nil {
		failFromErr(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// BulkRemoveStudents godoc
// POST /api/v1/classes/:id/students/bulk-remove
func (h *EnrollmentHandler) BulkRemoveStudents(c *gin.Context) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}
	classID, ok := classIDParam(c)
	if !ok {
		return
	}
	var req model.BulkRemoveStudentsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.classService.BulkRemoveStudents(c.Request.Context(), classID, req, teacherID)
	if err != nil {
		failFromErr(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// RemoveStudent godoc
// DELETE /api/v1/classes/:id/students/:student_id
func (h *EnrollmentHandler) RemoveStudent(c *gin.Context) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}
	classID, ok := classIDParam(c)
	if !ok {
		return
	}
	studentID, ok := uuidParam(c, "student_id")
	if !ok {
		return
	}

	if err := h.classService.RemoveStudent(c.Request.Context(), classID, studentID, teacherID); err != nil {
		failFromErr(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Student removed"})
}

// ImportRoster godoc
// POST /api/v1/classes/:id/students/import
// Enrolls the students listed in an uploaded .xlsx sheet (multipart field "file").
func (h *EnrollmentHandler) ImportRoster(c *gin.Context) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}
	classID, ok := classIDParam(c)
	if !ok {
		return
	}

	if h.maxImportBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImportBytes+multipartSlack)
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
		return
	}
	if h.maxImportBytes > 0 && header.Size > h.maxImportBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		return
	}

	roster, err := importer.ReadStudentIDs(file)
	switch {
	case errors.Is(err, importer.ErrEmptySheet):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"file": err.Error()})
		return
	case err != nil:
		h.log.Warn().Err(err).Int("class_id", classID).Msg("Unreadable roster upload")
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
		return
	}

	result := model.ImportResult{
		BulkEnrollResult: model.BulkEnrollResult{Results: []uuid.UUID{}, Errors: []model.EnrollmentError{}},
		InvalidRows:      roster.InvalidRows,
	}
	if len(roster.StudentIDs) > 0 {
		res, err := h.classService.BulkEnrollStudents(c.Request.Context(), classID,
			model.BulkEnrollStudentsRequest{StudentIDs: roster.StudentIDs}, teacherID)
		if err != nil {
			failFromErr(c, h.log, err)
			return
		}
		result.BulkEnrollResult = *res
	}

	response.Success(c, http.StatusOK, result)
}
