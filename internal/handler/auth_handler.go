package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/middleware"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/response"
	"github.com/stemsi/classroom-backend/internal/service"
	"github.com/stemsi/classroom-backend/internal/validator"
)

// AuthHandler handles teacher authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// TeacherLogin godoc
// POST /api/v1/auth/teacher/login
// Authenticates a teacher and returns a JWT.
func (h *AuthHandler) TeacherLogin(c *gin.Context) {
	var req model.TeacherLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		failFromErr(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// TeacherLogout godoc
// POST /api/v1/auth/teacher/logout
// Revokes the token used for this request.
func (h *AuthHandler) TeacherLogout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		failFromErr(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetTeacherProfile godoc
// GET /api/v1/auth/teacher/me
// Returns the profile of the currently authenticated teacher.
func (h *AuthHandler) GetTeacherProfile(c *gin.Context) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}

	profile, err := h.authService.Me(c.Request.Context(), teacherID)
	if err != nil {
		failFromErr(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"teacher": profile})
}
