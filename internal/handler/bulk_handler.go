package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/response"
	"github.com/stemsi/classroom-backend/internal/service"
	"github.com/stemsi/classroom-backend/internal/validator"
)

// BulkHandler handles operations over many classes at once.
type BulkHandler struct {
	bulkService *service.ClassBulkService
	log         zerolog.Logger
}

// NewBulkHandler creates a new BulkHandler.
func NewBulkHandler(bulkService *service.ClassBulkService, log zerolog.Logger) *BulkHandler {
	return &BulkHandler{
		bulkService: bulkService,
		log:         log.With().Str("component", "bulk_handler").Logger(),
	}
}

// BulkUpdate godoc
// POST /api/v1/classes/bulk/update
func (h *BulkHandler) BulkUpdate(c *gin.Context) {
	var req model.BulkUpdateClassesRequest
	h.run(c, &req, func(c *gin.Context, teacherID uuid.UUID) (any, error) {
		return h.bulkService.BulkUpdateClasses(c.Request.Context(), req, teacherID)
	})
}

// BulkDelete godoc
// POST /api/v1/classes/bulk/delete
func (h *BulkHandler) BulkDelete(c *gin.Context) {
	var req model.BulkClassIDsRequest
	h.run(c, &req, func(c *gin.Context, teacherID uuid.UUID) (any, error) {
		return h.bulkService.BulkDeleteClasses(c.Request.Context(), req, teacherID)
	})
}

// BulkRestore godoc
// POST /api/v1/classes/bulk/restore
func (h *BulkHandler) BulkRestore(c *gin.Context) {
	var req model.BulkClassIDsRequest
	h.run(c, &req, func(c *gin.Context, teacherID uuid.UUID) (any, error) {
		return h.bulkService.BulkRestoreClasses(c.Request.Context(), req, teacherID)
	})
}

// BulkAssignTeacher godoc
// POST /api/v1/classes/bulk/assign-teacher
func (h *BulkHandler) BulkAssignTeacher(c *gin.Context) {
	var req model.BulkAssignTeacherRequest
	h.run(c, &req, func(c *gin.Context, teacherID uuid.UUID) (any, error) {
		return h.bulkService.BulkAssignTeacher(c.Request.Context(), req, teacherID)
	})
}

// Summary godoc
// POST /api/v1/classes/bulk/summary
// Describes a selection of classes before a bulk action.
func (h *BulkHandler) Summary(c *gin.Context) {
	var req model.BulkClassIDsRequest
	h.run(c, &req, func(c *gin.Context, teacherID uuid.UUID) (any, error) {
		return h.bulkService.GetBulkOperationSummary(c.Request.Context(), req, teacherID)
	})
}

// run binds the body into req, calls op and writes its result.
func (h *BulkHandler) run(c *gin.Context, req any, op func(*gin.Context, uuid.UUID) (any, error)) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}
	if fields := validator.Bind(c, req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := op(c, teacherID)
	if err != nil {
		failFromErr(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}
