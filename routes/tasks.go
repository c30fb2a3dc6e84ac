package routes

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"taskmanager/backend/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const documentsField = "documents"

// multipart field values and headers on top of the file payloads
const formOverhead = 1 << 20

func RegisterTaskRoutes(group *gin.RouterGroup, taskService services.TaskServiceInterface, maxUploadSize int64) {
	maxBody := int64(services.MaxDocumentsPerTask)*maxUploadSize + formOverhead

	tasks := group.Group("/tasks")
	{
		tasks.GET("", func(c *gin.Context) { GetTasks(c, taskService) })
		tasks.POST("", func(c *gin.Context) { CreateTask(c, taskService, maxBody) })
		tasks.GET("/:id", func(c *gin.Context) { GetTaskById(c, taskService) })
		tasks.PATCH("/:id", func(c *gin.Context) { UpdateTask(c, taskService, maxBody) })
		tasks.DELETE("/:id", func(c *gin.Context) { DeleteTask(c, taskService) })
		tasks.GET("/:id/document/:index", func(c *gin.Context) { GetDocument(c, taskService) })
	}
}

// bindTaskInput reads task fields from a JSON or multipart body together with
// any uploaded documents.
func bindTaskInput(c *gin.Context, maxBody int64) (services.TaskInput, []*multipart.FileHeader, error) {
	var input services.TaskInput

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)

	if c.ContentType() != binding.MIMEMultipartPOSTForm {
		if c.Request.ContentLength == 0 {
			return input, nil, nil
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			return input, nil, wrapBindError(err)
		}
		return input, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return input, nil, wrapBindError(err)
	}
	if err := c.ShouldBindWith(&input, binding.FormMultipart); err != nil {
		return input, nil, wrapBindError(err)
	}

	for field := range form.File {
		if field != documentsField {
			return input, nil, services.NewValidationError("Unexpected file field: %s", field)
		}
	}
	return input, form.File[documentsField], nil
}

func wrapBindError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return err
	}
	return services.NewValidationError("Invalid request body: %s", err.Error())
}

func CreateTask(c *gin.Context, taskService services.TaskServiceInterface, maxBody int64) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	input, files, err := bindTaskInput(c, maxBody)
	if err != nil {
		respondError(c, err)
		return
	}

	createdTask, err := taskService.CreateTask(actor, input, files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createdTask)
}

func GetTasks(c *gin.Context, taskService services.TaskServiceInterface) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var query services.TaskQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tasks, err := taskService.GetTasks(actor, query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func GetTaskById(c *gin.Context, taskService services.TaskServiceInterface) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	task, err := taskService.GetTaskById(actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func UpdateTask(c *gin.Context, taskService services.TaskServiceInterface, maxBody int64) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	patch, files, err := bindTaskInput(c, maxBody)
	if err != nil {
		respondError(c, err)
		return
	}

	updatedTask, err := taskService.UpdateTask(actor, c.Param("id"), patch, files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updatedTask)
}

func DeleteTask(c *gin.Context, taskService services.TaskServiceInterface) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := taskService.DeleteTask(actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

func GetDocument(c *gin.Context, taskService services.TaskServiceInterface) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondError(c, services.ErrDocumentNotFound)
		return
	}

	doc, blob, err := taskService.OpenDocument(actor, c.Param("id"), index)
	if err != nil {
		respondError(c, err)
		return
	}
	defer blob.Close()

	disposition := mime.FormatMediaType("inline", map[string]string{"filename": doc.OriginalFilename})
	if disposition == "" {
		disposition = fmt.Sprintf(`inline; filename="document-%d.pdf"`, index)
	}

	c.DataFromReader(http.StatusOK, blob.Size(), doc.MimeType, blob, map[string]string{
		"Content-Disposition": disposition,
	})
}
