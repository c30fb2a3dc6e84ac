package routes

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"taskmanager/backend/models"
	"taskmanager/backend/services"
	"taskmanager/backend/storage"
	"taskmanager/backend/testutils"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func setupAPI(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	db := testutils.SetupTestDB(t)
	store := storage.NewBlobStore(afero.NewMemMapFs())

	events := services.NewEventHandlerService(db, nil, logger)
	users := services.NewUserService(db, events)
	attachments := services.NewAttachmentService(store, services.DefaultMaxDocumentSize, logger)

	return NewRouter(db, Services{
		Auth:  services.NewAuthService(db, events, "integration-secret", 24),
		Users: users,
		Tasks: services.NewTaskService(db, attachments, users, events, logger),
	}, RouterOptions{
		AllowedOrigins: "*",
		MaxUploadSize:  services.DefaultMaxDocumentSize,
		AuthRate:       rate.Inf,
		AuthBurst:      100,
	}, logger)
}

func registerAndLogin(t *testing.T, router *gin.Engine, email, role string) string {
	t.Helper()

	w := perform(router, postJSON("/api/auth/register",
		fmt.Sprintf(`{"email":%q,"password":"password123","role":%q}`, email, role)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = perform(router, postJSON("/api/auth/login", fmt.Sprintf(`{"email":%q,"password":"password123"}`, email)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Token string `json:"token"`
	}
	decode(t, w, &body)
	require.NotEmpty(t, body.Token)
	return body.Token
}

func authed(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAPI_TaskRoundTrip(t *testing.T) {
	router := setupAPI(t)
	token := registerAndLogin(t, router, "alice@example.com", "")

	w := perform(router, authed(postJSON("/tasks", `{"title":"X"}`), token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Task
	decode(t, w, &created)

	req, _ := http.NewRequest(http.MethodGet, "/api/tasks/"+created.ID.String(), nil)
	w = perform(router, authed(req, token))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "todo", body["status"])
	assert.Equal(t, "medium", body["priority"])
	assert.Equal(t, []interface{}{}, body["documents"])
	assert.Equal(t, "alice@example.com", body["assignedToEmail"])
}

func TestAPI_DocumentsLifecycle(t *testing.T) {
	router := setupAPI(t)
	token := registerAndLogin(t, router, "alice@example.com", "")
	other := registerAndLogin(t, router, "bob@example.com", "")

	body, contentType := testutils.MultipartBody(t, map[string]string{"title": "Docs"},
		testutils.PDF("a.pdf"), testutils.PDF("b.pdf"), testutils.PDF("c.pdf"))
	req, _ := http.NewRequest(http.MethodPost, "/api/tasks", body)
	req.Header.Set("Content-Type", contentType)
	w := perform(router, authed(req, token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var task models.Task
	decode(t, w, &task)
	require.Len(t, task.Documents, 3)

	body, contentType = testutils.MultipartBody(t, nil, testutils.PDF("d.pdf"))
	req, _ = http.NewRequest(http.MethodPatch, "/api/tasks/"+task.ID.String(), body)
	req.Header.Set("Content-Type", contentType)
	w = perform(router, authed(req, token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Max 3 documents allowed."}`, w.Body.String())

	req, _ = http.NewRequest(http.MethodGet, "/api/tasks/"+task.ID.String()+"/document/2", nil)
	w = perform(router, authed(req, token))
	require.Equal(t, http.StatusOK, w.Code)
	content, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Equal(t, testutils.PDFContent("c.pdf"), content)

	req, _ = http.NewRequest(http.MethodGet, "/api/tasks/"+task.ID.String()+"/document/0", nil)
	w = perform(router, authed(req, other))
	assert.Equal(t, http.StatusForbidden, w.Code)

	req, _ = http.NewRequest(http.MethodDelete, "/api/tasks/"+task.ID.String(), nil)
	w = perform(router, authed(req, other))
	assert.Equal(t, http.StatusForbidden, w.Code)

	req, _ = http.NewRequest(http.MethodDelete, "/api/tasks/"+task.ID.String(), nil)
	w = perform(router, authed(req, token))
	assert.Equal(t, http.StatusOK, w.Code)

	req, _ = http.NewRequest(http.MethodGet, "/api/tasks/"+task.ID.String(), nil)
	w = perform(router, authed(req, token))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_RejectsNonPDF(t *testing.T) {
	router := setupAPI(t)
	token := registerAndLogin(t, router, "alice@example.com", "")

	body, contentType := testutils.MultipartBody(t, map[string]string{"title": "Image"}, testutils.PNG("photo.png"))
	req, _ := http.NewRequest(http.MethodPost, "/api/tasks", body)
	req.Header.Set("Content-Type", contentType)
	w := perform(router, authed(req, token))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Only PDFs allowed")
}

func TestAPI_DueDateFilter(t *testing.T) {
	router := setupAPI(t)
	token := registerAndLogin(t, router, "alice@example.com", "")

	for _, due := range []string{"2024-05-20", "2024-06-01", "2024-06-15"} {
		w := perform(router, authed(postJSON("/api/tasks", fmt.Sprintf(`{"title":%q,"dueDate":%q}`, due, due)), token))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	req, _ := http.NewRequest(http.MethodGet, "/api/tasks?dueDate=2024-06-01", nil)
	w := perform(router, authed(req, token))
	require.Equal(t, http.StatusOK, w.Code)

	var tasks []models.Task
	decode(t, w, &tasks)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.NotEqual(t, "2024-06-15", task.Title)
	}
}

func TestAPI_AuthFailures(t *testing.T) {
	router := setupAPI(t)
	registerAndLogin(t, router, "alice@example.com", "")

	w := perform(router, postJSON("/api/auth/register", `{"email":"alice@example.com","password":"other"}`))
	assert.Equal(t, http.StatusConflict, w.Code)

	wrong := perform(router, postJSON("/api/auth/login", `{"email":"alice@example.com","password":"nope"}`))
	assert.Equal(t, http.StatusBadRequest, wrong.Code)

	unknown := perform(router, postJSON("/api/auth/login", `{"email":"ghost@example.com","password":"nope"}`))
	assert.Equal(t, http.StatusBadRequest, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())

	req, _ := http.NewRequest(http.MethodGet, "/api/tasks", nil)
	w = perform(router, authed(req, "garbage"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid or expired token"}`, w.Body.String())
}

func TestAPI_AdminScope(t *testing.T) {
	router := setupAPI(t)
	admin := registerAndLogin(t, router, "admin@example.com", "admin")
	alice := registerAndLogin(t, router, "alice@example.com", "")

	w := perform(router, authed(postJSON("/api/tasks", `{"title":"alice's"}`), alice))
	require.Equal(t, http.StatusCreated, w.Code)
	w = perform(router, authed(postJSON("/api/tasks", `{"title":"admin's"}`), admin))
	require.Equal(t, http.StatusCreated, w.Code)

	list := func(token string) int {
		req, _ := http.NewRequest(http.MethodGet, "/api/tasks", nil)
		w := perform(router, authed(req, token))
		require.Equal(t, http.StatusOK, w.Code)
		var tasks []models.Task
		decode(t, w, &tasks)
		return len(tasks)
	}
	assert.Equal(t, 1, list(alice))
	assert.Equal(t, 2, list(admin))

	req, _ := http.NewRequest(http.MethodGet, "/api/users", nil)
	w = perform(router, authed(req, alice))
	assert.Equal(t, http.StatusForbidden, w.Code)

	req, _ = http.NewRequest(http.MethodGet, "/api/users", nil)
	w = perform(router, authed(req, admin))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, strings.Contains(w.Body.String(), "password"))
}

func TestAPI_Health(t *testing.T) {
	router := setupAPI(t)

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := perform(router, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
