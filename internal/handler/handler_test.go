package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/config"
	"github.com/stemsi/classroom-backend/internal/middleware"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/repository"
	"github.com/stemsi/classroom-backend/internal/repository/memory"
	"github.com/stemsi/classroom-backend/internal/response"
	"github.com/stemsi/classroom-backend/internal/service"
	"github.com/stemsi/classroom-backend/internal/validator"
	ws "github.com/stemsi/classroom-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

const schoolA, schoolB = 1, 2

type harness struct {
	db         *memory.DB
	engine     *gin.Engine
	enrollment *service.ClassEnrollmentService
	classes    *service.ClassService
	auth       *service.AuthService
	teacher    uuid.UUID
	token      string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := memory.New()
	log := zerolog.Nop()

	auth := service.NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour}, db.Profiles(), db.Tokens())
	access := service.NewClassAccessControl(db.Profiles(), db.Classes(), log)
	audit := service.NewAuditService(db.Audit(), db.Audit(), access, log)
	enroll := service.NewClassEnrollmentService(access, db.Enrollments(), audit, db.Roster(), service.EnrollmentOptions{
		MaxRetries: 2,
		Backoff:    time.Millisecond,
		MaxBatch:   200,
	}, log)
	bulk := service.NewClassBulkService(access, db.Classes(), audit, log)
	classes := service.NewClassService(access, db.Classes(), enroll, bulk, audit, log)

	classH := NewClassHandler(classes, audit, log)
	enrollH := NewEnrollmentHandler(classes, 1<<20, log)
	bulkH := NewBulkHandler(bulk, log)
	wsH := NewWSHandler(classes, db.Roster(), log, nil)

	r := gin.New()
	r.Use(response.RequestIDMiddleware())
	api := r.Group("/api/v1/classes", middleware.RequireJWT(auth))
	api.POST("", classH.CreateClass)
	api.GET("/:id", classH.GetClass)
	api.POST("/bulk/delete", bulkH.BulkDelete)
	api.POST("/:id/students", enrollH.EnrollStudent)
	api.POST("/:id/students/bulk", enrollH.BulkEnrollStudents)
	api.POST("/:id/students/import", enrollH.ImportRoster)
	api.GET("/:id/students/available", enrollH.ListAvailableStudents)
	r.GET("/ws/v1/classes/:id/roster", middleware.RequireWSAuth(auth), wsH.RosterStream)

	teacher := db.AddTeacher(schoolA, "Ibu Sari")
	token, err := auth.GenerateToken(&model.Profile{ID: teacher, SchoolID: schoolA, Role: model.RoleTeacher})
	require.NoError(t, err)

	return &harness{db: db, engine: r, enrollment: enroll, classes: classes, auth: auth, teacher: teacher, token: token}
}

type envelope struct {
	Data       json.RawMessage      `json:"data"`
	Error      *response.ErrorBody  `json:"error"`
	Pagination *response.Pagination `json:"pagination"`
}

func (h *harness) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return h.send(t, req)
}

func (h *harness) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+h.token)
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func errCode(env envelope) response.ErrCode {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func TestBulkEnrollReportsPartialSuccess(t *testing.T) {
	h := newHarness(t)
	classID := h.db.AddClass(schoolA, h.teacher, "X-1", 2)
	students := h.db.AddStudents(schoolA, 3)

	status, env := h.do(t, http.MethodPost, fmt.Sprintf("/api/v1/classes/%d/students/bulk", classID),
		map[string]any{"student_ids": students})

	require.Equal(t, http.StatusOK, status)
	var res model.BulkEnrollResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 2, res.EnrolledCount)
	assert.Len(t, res.Results, 2)
	assert.Len(t, res.Errors, 1)
}

func TestBulkEnrollErrorStatuses(t *testing.T) {
	h := newHarness(t)
	mine := h.db.AddClass(schoolA, h.teacher, "X-1", 30)
	other := h.db.AddClass(schoolA, h.db.AddTeacher(schoolA, "Pak Budi"), "X-2", 30)
	foreign := h.db.AddClass(schoolB, h.db.AddTeacher(schoolB, "Bu Rina"), "X-B", 30)
	own := h.db.AddStudents(schoolA, 1)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   response.ErrCode
	}{
		{"cross school", fmt.Sprintf("/api/v1/classes/%d/students/bulk", foreign),
			map[string]any{"student_ids": own}, http.StatusForbidden, response.ErrCrossSchool},
		{"not assigned", fmt.Sprintf("/api/v1/classes/%d/students/bulk", other),
			map[string]any{"student_ids": own}, http.StatusForbidden, response.ErrAccessDenied},
		{"unknown class", "/api/v1/classes/9999/students/bulk",
			map[string]any{"student_ids": own}, http.StatusNotFound, response.ErrClassNotFound},
		{"empty batch", fmt.Sprintf("/api/v1/classes/%d/students/bulk", mine),
			map[string]any{"student_ids": []string{}}, http.StatusBadRequest, response.ErrValidation},
		{"bad class id", "/api/v1/classes/abc/students/bulk",
			map[string]any{"student_ids": own}, http.StatusBadRequest, response.ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := h.do(t, http.MethodPost, tt.path, tt.body)

			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, errCode(env))
		})
	}
	assert.Zero(t, h.db.EnrollCalls())
}

func TestBulkEnrollNetworkFailure(t *testing.T) {
	h := newHarness(t)
	classID := h.db.AddClass(schoolA, h.teacher, "X-1", 30)
	students := h.db.AddStudents(schoolA, 2)
	h.db.EnrollFault = func(int) error {
		return fmt.Errorf("%w: connection reset", repository.ErrNetwork)
	}

	status, env := h.do(t, http.MethodPost, fmt.Sprintf("/api/v1/classes/%d/students/bulk", classID),
		map[string]any{"student_ids": students})

	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, response.ErrNetwork, errCode(env))
	assert.Equal(t, "Network connection failed after retries", env.Error.Message)
}

func TestEnrollStudentCreated(t *testing.T) {
	h := newHarness(t)
	classID := h.db.AddClass(schoolA, h.teacher, "X-1", 30)
	student := h.db.AddStudents(schoolA, 1)[0]

	status, _ := h.do(t, http.MethodPost, fmt.Sprintf("/api/v1/classes/%d/students", classID),
		map[string]any{"student_id": student})

	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, 1, h.db.RosterSize(classID))
}

func TestListAvailableStudentsPaginates(t *testing.T) {
	h := newHarness(t)
	classID := h.db.AddClass(schoolA, h.teacher, "X-1", 30)
	students := h.db.AddStudents(schoolA, 12)
	h.db.Enroll(classID, students[0])

	status, env := h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/classes/%d/students/available?page=2&limit=5", classID), nil)

	require.Equal(t, http.StatusOK, status)
	var data struct {
		Students []model.Student `json:"students"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data.Students, 5)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 11, env.Pagination.TotalItems)
	assert.Equal(t, 3, env.Pagination.TotalPages)
}

func TestBulkDeleteListsDeniedClasses(t *testing.T) {
	h := newHarness(t)
	mine := h.db.AddClass(schoolA, h.teacher, "X-1", 30)

	status, env := h.do(t, http.MethodPost, "/api/v1/classes/bulk/delete",
		map[string]any{"class_ids": []int{mine, 999}})

	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, response.ErrBulkAccessDenied, errCode(env))
	assert.Equal(t, "999", env.Error.Fields["class_ids"])
}

func uploadRequest(t *testing.T, path, filename string, rows [][]any) *http.Request {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	sheet, err := f.WriteToBuffer()
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(sheet.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportRosterRejectsOversizedUpload(t *testing.T) {
	h := newHarness(t)
	classID := h.db.AddClass(schoolA, h.teacher, "X-1", 30)
	path := fmt.Sprintf("/api/v1/classes/%d/students/import", classID)

	small := NewEnrollmentHandler(h.classes, 1024, zerolog.Nop())
	r := gin.New()
	r.POST("/api/v1/classes/:id/students/import", middleware.RequireJWT(h.auth), small.ImportRoster)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "roster.xlsx")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{'x'}, 512<<10))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+h.token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), string(response.ErrFileTooLarge))
	assert.Zero(t, h.db.EnrollCalls())
}

func TestImportRoster(t *testing.T) {
	h := newHarness(t)
	classID := h.db.AddClass(schoolA, h.teacher, "X-1", 30)
	students := h.db.AddStudents(schoolA, 2)
	path := fmt.Sprintf("/api/v1/classes/%d/students/import", classID)

	status, env := h.send(t, uploadRequest(t, path, "roster.xlsx", [][]any{
		{"student_id"},
		{students[0].String()},
		{"not-a-uuid"},
		{students[1].String()},
	}))

	require.Equal(t, http.StatusOK, status)
	var res model.ImportResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 2, res.EnrolledCount)
	require.Len(t, res.InvalidRows, 1)
	assert.Equal(t, 3, res.InvalidRows[0].Row)
	assert.Equal(t, 2, h.db.RosterSize(classID))

	status, env = h.send(t, uploadRequest(t, path, "roster.csv", [][]any{{"student_id"}}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, response.ErrUnsupportedFile, errCode(env))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"VALIDATION_ERROR", http.StatusBadRequest},
		{"CROSS_SCHOOL_ENROLLMENT", http.StatusForbidden},
		{"STUDENT_NOT_FOUND", http.StatusNotFound},
		{"CLASS_CAPACITY_EXCEEDED", http.StatusConflict},
		{"NETWORK_ERROR", http.StatusServiceUnavailable},
		{"ENROLLMENT_FAILED", http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.code), tt.code)
	}
}

func TestHealth(t *testing.T) {
	r := gin.New()
	r.GET("/health", NewSystemHandler(map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
	}, zerolog.Nop()).Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var env struct {
		Data healthStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "degraded", env.Data.Status)
	assert.Equal(t, map[string]string{"postgres": "up", "redis": "down"}, env.Data.Checks)
}

func TestRosterStreamForwardsEnrollments(t *testing.T) {
	h := newHarness(t)
	classID := h.db.AddClass(schoolA, h.teacher, "X-1", 30)
	h.db.Enroll(classID, h.db.AddStudents(schoolA, 1)...)
	students := h.db.AddStudents(schoolA, 2)

	srv := httptest.NewServer(h.engine)
	defer srv.Close()

	url := fmt.Sprintf("ws%s/ws/v1/classes/%d/roster?token=%s", strings.TrimPrefix(srv.URL, "http"), classID, h.token)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var snap ws.SnapshotResponse
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, ws.EventSnapshot, snap.Event)
	assert.Equal(t, 1, snap.StudentCount)
	assert.Equal(t, 30, snap.MaxStudents)

	_, err = h.enrollment.BulkEnrollStudents(context.Background(), classID,
		model.BulkEnrollStudentsRequest{StudentIDs: students}, h.teacher)
	require.NoError(t, err)

	var ev ws.RosterResponse
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, ws.EventRoster, ev.Event)
	assert.Equal(t, classID, ev.ClassID)
	assert.ElementsMatch(t, students, ev.StudentIDs)

	require.NoError(t, conn.WriteJSON(ws.RequestEnvelope{Action: ws.ActionPing}))
	var pong ws.PongResponse
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, ws.EventPong, pong.Event)
}

func TestRosterStreamRejectsUnassignedTeacher(t *testing.T) {
	h := newHarness(t)
	classID := h.db.AddClass(schoolA, h.db.AddTeacher(schoolA, "Pak Budi"), "X-2", 30)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/ws/v1/classes/%d/roster?token=%s", classID, h.token), nil)
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
