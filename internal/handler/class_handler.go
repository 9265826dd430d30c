package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/response"
	"github.com/stemsi/classroom-backend/internal/service"
	"github.com/stemsi/classroom-backend/internal/validator"
)

// ClassHandler handles teacher-facing class management.
type ClassHandler struct {
	classService *service.ClassService
	auditService *service.AuditService
	log          zerolog.Logger
}

// NewClassHandler creates a new ClassHandler.
func NewClassHandler(classService *service.ClassService, auditService *service.AuditService, log zerolog.Logger) *ClassHandler {
	return &ClassHandler{
		classService: classService,
		auditService: auditService,
		log:          log.With().Str("component", "class_handler").Logger(),
	}
}

// ListClasses godoc
// GET /api/v1/classes
// Lists the classes the teacher is assigned to.
func (h *ClassHandler) ListClasses(c *gin.Context) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}
	var q model.ClassListQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	classes, total, err := h.classService.GetClasses(c.Request.Context(), teacherID, q)
	if err != nil {
		failFromErr(c, h.log, err)
		return
	}

	_, limit := service.SanitizePagination(1, q.Limit)
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"classes": classes},
		response.PaginationFromOffset(q.Offset, limit, total))
}

// CreateClass godoc
// POST /api/v1/classes
// Creates a class in the teacher's school.
func (h *ClassHandler) CreateClass(c *gin.Context) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}
	var req model.CreateClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, err := h.classService.CreateClass(c.Request.Context(), req, teacherID)
	if err != nil {
		failFromErr(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"class": class})
}

// GetClass godoc
// GET /api/v1/classes/:id
func (h *ClassHandler) GetClass(c *gin.Context) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}
	classID, ok := classIDParam(c)
	if !ok {
		return
	}

	class, err := h.classService.GetClassByID(c.Request.Context(), classID, teacherID)
	if err != nil {
		failFromErr(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// UpdateClass godoc
// PUT /api/v1/classes/:id
// Changes only the fields present in the body.
func (h *ClassHandler) UpdateClass(c *gin.Context) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}
	classID, ok := classIDParam(c)
	if !ok {
		return
	}
	var req model.UpdateClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, err := h.classService.UpdateClass(c.Request.Context(), classID, req, teacherID)
	if err != nil {
		failFromErr(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// DeleteClass godoc
// DELETE /api/v1/classes/:id
// Archives a class that has no enrolled students.
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}
	classID, ok := classIDParam(c)
	if !ok {
		return
	}

	if err := h.classService.DeleteClass(c.Request.Context(), classID, teacherID); err != nil {
		failFromErr(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Class deleted"})
}

// RestoreClass godoc
// POST /api/v1/classes/:id/restore
func (h *ClassHandler) RestoreClass(c *gin.Context) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}
	classID, ok := classIDParam(c)
	if !ok {
		return
	}

	if err := h.classService.RestoreClass(c.Request.Context(), classID, teacherID); err != nil {
		failFromErr(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Class restored"})
}

// AssignTeacher godoc
// POST /api/v1/classes/:id/teachers
func (h *ClassHandler) AssignTeacher(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	classID, ok := classIDParam(c)
	if !ok {
		return
	}
	var req model.AssignTeacherRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.classService.AssignTeacher(c.Request.Context(), classID, req, actor); err != nil {
		failFromErr(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"message": "Teacher assigned"})
}

// RemoveTeacher godoc
// DELETE /api/v1/classes/:id/teachers/:teacher_id
func (h *ClassHandler) RemoveTeacher(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	classID, ok := classIDParam(c)
	if !ok {
		return
	}
	teacherID, ok := uuidParam(c, "teacher_id")
	if !ok {
		return
	}

	if err := h.classService.RemoveTeacher(c.Request.Context(), classID, teacherID, actor); err != nil {
		failFromErr(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Teacher removed"})
}

// GetAuditHistory godoc
// GET /api/v1/classes/:id/audit
// Returns the class audit trail, newest first.
func (h *ClassHandler) GetAuditHistory(c *gin.Context) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}
	classID, ok := classIDParam(c)
	if !ok {
		return
	}
	var q model.AuditQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	entries, total, err := h.auditService.GetClassAuditHistory(c.Request.Context(), classID, teacherID, q)
	if err != nil {
		failFromErr(c, h.log, err)
		return
	}

	_, limit := service.SanitizePagination(1, q.Limit)
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"entries": entries},
		response.PaginationFromOffset(q.Offset, limit, total))
}
