package routes

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"taskmanager/backend/models"
	"taskmanager/backend/services"
	"taskmanager/backend/storage"
	"taskmanager/backend/testutils"
	"taskmanager/backend/testutils/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testActor = services.Actor{
	UserID: uuid.MustParse("90a12345-f12a-48c4-a456-513432930000"),
	Role:   models.RoleUser,
}

func setupTaskRouter(actor *services.Actor) (*gin.Engine, *mocks.MockTaskService) {
	router, group := setupTestRouter(actor)
	taskService := new(mocks.MockTaskService)
	RegisterTaskRoutes(group, taskService, 1<<20)
	return router, taskService
}

func TestCreateTask_JSON(t *testing.T) {
	router, taskService := setupTaskRouter(&testActor)

	created := models.Task{ID: uuid.New(), Title: "X", Status: models.StatusTodo, Priority: models.PriorityMedium}
	taskService.On("CreateTask", testActor, services.TaskInput{Title: "X", Priority: "high"}, []*multipart.FileHeader(nil)).
		Return(created, nil)

	req, _ := http.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(`{"title":"X","priority":"high"}`))
	req.Header.Set("Content-Type", "application/json")
	w := perform(router, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, created.ID.String(), body["id"])
	assert.Equal(t, []interface{}{}, body["documents"])
	taskService.AssertExpectations(t)
}

func TestCreateTask_Multipart(t *testing.T) {
	router, taskService := setupTaskRouter(&testActor)

	twoPDFs := mock.MatchedBy(func(files []*multipart.FileHeader) bool {
		return len(files) == 2 && files[0].Filename == "a.pdf" && files[1].Filename == "b.pdf"
	})
	taskService.On("CreateTask", testActor, services.TaskInput{Title: "Docs", DueDate: "2024-06-01"}, twoPDFs).
		Return(models.Task{ID: uuid.New(), Title: "Docs"}, nil)

	body, contentType := testutils.MultipartBody(t,
		map[string]string{"title": "Docs", "dueDate": "2024-06-01"},
		testutils.PDF("a.pdf"), testutils.PDF("b.pdf"),
	)
	req, _ := http.NewRequest(http.MethodPost, "/api/tasks", body)
	req.Header.Set("Content-Type", contentType)
	w := perform(router, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	taskService.AssertExpectations(t)
}

func TestCreateTask_UnexpectedFileField(t *testing.T) {
	router, taskService := setupTaskRouter(&testActor)

	file := testutils.PDF("a.pdf")
	file.Field = "attachment"
	body, contentType := testutils.MultipartBody(t, map[string]string{"title": "Docs"}, file)
	req, _ := http.NewRequest(http.MethodPost, "/api/tasks", body)
	req.Header.Set("Content-Type", contentType)
	w := perform(router, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unexpected file field: attachment")
	taskService.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateTask_BodyTooLarge(t *testing.T) {
	router, group := setupTestRouter(&testActor)
	taskService := new(mocks.MockTaskService)
	RegisterTaskRoutes(group, taskService, 16)

	big := testutils.PDF("big.pdf")
	big.Content = bytes.Repeat([]byte("A"), 2<<20)
	body, contentType := testutils.MultipartBody(t, map[string]string{"title": "Docs"}, big)
	req, _ := http.NewRequest(http.MethodPost, "/api/tasks", body)
	req.Header.Set("Content-Type", contentType)
	w := perform(router, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	taskService.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateTask_ValidationError(t *testing.T) {
	router, taskService := setupTaskRouter(&testActor)

	taskService.On("CreateTask", testActor, services.TaskInput{}, []*multipart.FileHeader(nil)).
		Return(models.Task{}, services.NewValidationError("Task title is required."))

	req, _ := http.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := perform(router, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Task title is required."}`, w.Body.String())
}

func TestCreateTask_Unauthenticated(t *testing.T) {
	router, taskService := setupTaskRouter(nil)

	req, _ := http.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(`{"title":"X"}`))
	req.Header.Set("Content-Type", "application/json")
	w := perform(router, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	taskService.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetTasks_QueryParameters(t *testing.T) {
	router, taskService := setupTaskRouter(&testActor)

	query := services.TaskQuery{Status: "todo", DueDate: "2024-06-01", SortBy: "priority", Order: "desc"}
	taskService.On("GetTasks", testActor, query).Return([]models.Task{
		{ID: uuid.New(), Title: "Test Task"},
	}, nil)

	req, _ := http.NewRequest(http.MethodGet, "/api/tasks?status=todo&dueDate=2024-06-01&sortBy=priority&order=desc", nil)
	w := perform(router, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var tasks []models.Task
	decode(t, w, &tasks)
	assert.Len(t, tasks, 1)
	taskService.AssertExpectations(t)
}

func TestGetTasks_InvalidSort(t *testing.T) {
	router, taskService := setupTaskRouter(&testActor)

	taskService.On("GetTasks", testActor, services.TaskQuery{SortBy: "title"}).
		Return([]models.Task(nil), services.NewValidationError("Invalid sortBy: title"))

	req, _ := http.NewRequest(http.MethodGet, "/api/tasks?sortBy=title", nil)
	w := perform(router, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTaskById_ErrorMapping(t *testing.T) {
	router, taskService := setupTaskRouter(&testActor)

	taskService.On("GetTaskById", testActor, "missing").Return(models.Task{}, services.ErrTaskNotFound)
	taskService.On("GetTaskById", testActor, "theirs").Return(models.Task{}, services.ErrForbidden)
	taskService.On("GetTaskById", testActor, "broken").Return(models.Task{}, errors.New("connection refused"))

	testCases := []struct {
		id     string
		status int
		body   string
	}{
		{"missing", http.StatusNotFound, `{"error":"Task not found"}`},
		{"theirs", http.StatusForbidden, `{"error":"Forbidden"}`},
		{"broken", http.StatusInternalServerError, `{"error":"connection refused"}`},
	}

	for _, tc := range testCases {
		req, _ := http.NewRequest(http.MethodGet, "/api/tasks/"+tc.id, nil)
		w := perform(router, req)
		assert.Equal(t, tc.status, w.Code, tc.id)
		assert.JSONEq(t, tc.body, w.Body.String(), tc.id)
	}
}

func TestInternalErrorHiddenInReleaseMode(t *testing.T) {
	router, taskService := setupTaskRouter(&testActor)
	taskService.On("GetTaskById", testActor, "broken").Return(models.Task{}, errors.New("pq: password authentication failed"))

	gin.SetMode(gin.ReleaseMode)
	defer gin.SetMode(gin.TestMode)

	req, _ := http.NewRequest(http.MethodGet, "/api/tasks/broken", nil)
	w := perform(router, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestUpdateTask_Multipart(t *testing.T) {
	router, taskService := setupTaskRouter(&testActor)
	id := uuid.New().String()

	onePDF := mock.MatchedBy(func(files []*multipart.FileHeader) bool {
		return len(files) == 1 && files[0].Header.Get("Content-Type") == "application/pdf"
	})
	taskService.On("UpdateTask", testActor, id, services.TaskInput{Status: "done"}, onePDF).
		Return(models.Task{}, services.NewValidationError("Max 3 documents allowed."))

	body, contentType := testutils.MultipartBody(t, map[string]string{"status": "done"}, testutils.PDF("d.pdf"))
	req, _ := http.NewRequest(http.MethodPatch, "/api/tasks/"+id, body)
	req.Header.Set("Content-Type", contentType)
	w := perform(router, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Max 3 documents allowed."}`, w.Body.String())
	taskService.AssertExpectations(t)
}

func TestDeleteTask(t *testing.T) {
	router, taskService := setupTaskRouter(&testActor)
	id := uuid.New().String()
	taskService.On("DeleteTask", testActor, id).Return(nil)

	req, _ := http.NewRequest(http.MethodDelete, "/api/tasks/"+id, nil)
	w := perform(router, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Task deleted"}`, w.Body.String())
}

func TestGetDocument(t *testing.T) {
	router, taskService := setupTaskRouter(&testActor)
	id := uuid.New().String()

	store := storage.NewBlobStore(afero.NewMemMapFs())
	content := testutils.PDFContent("report")
	_, err := store.Put("t/report.pdf", bytes.NewReader(content))
	require.NoError(t, err)
	blob, err := store.Open("t/report.pdf")
	require.NoError(t, err)

	doc := models.Attachment{OriginalFilename: "quarterly report.pdf", MimeType: "application/pdf"}
	taskService.On("OpenDocument", testActor, id, 0).Return(doc, blob, nil)
	taskService.On("OpenDocument", testActor, id, 3).Return(models.Attachment{}, nil, services.ErrDocumentNotFound)

	req, _ := http.NewRequest(http.MethodGet, "/api/tasks/"+id+"/document/0", nil)
	w := perform(router, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="quarterly report.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, content, w.Body.Bytes())

	req, _ = http.NewRequest(http.MethodGet, "/api/tasks/"+id+"/document/3", nil)
	w = perform(router, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req, _ = http.NewRequest(http.MethodGet, "/api/tasks/"+id+"/document/first", nil)
	w = perform(router, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Document not found"}`, w.Body.String())
}
