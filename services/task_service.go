package services

import (
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"taskmanager/backend/broker"
	"taskmanager/backend/database"
	"taskmanager/backend/models"
	"taskmanager/backend/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TaskInput holds the writable task fields as submitted by a client. On
// update an empty field means "leave unchanged".
type TaskInput struct {
	Title       string `form:"title" json:"title"`
	Description string `form:"description" json:"description"`
	Status      string `form:"status" json:"status"`
	Priority    string `form:"priority" json:"priority"`
	DueDate     string `form:"dueDate" json:"dueDate"`
	AssignedTo  string `form:"assignedTo" json:"assignedTo"`
}

// TaskQuery holds the list filters and sort options
type TaskQuery struct {
	Status   string `form:"status"`
	Priority string `form:"priority"`
	DueDate  string `form:"dueDate"`
	SortBy   string `form:"sortBy"`
	Order    string `form:"order"`
}

type TaskServiceInterface interface {
	CreateTask(actor Actor, input TaskInput, files []*multipart.FileHeader) (models.Task, error)
	GetTasks(actor Actor, query TaskQuery) ([]models.Task, error)
	GetTaskById(actor Actor, id string) (models.Task, error)
	UpdateTask(actor Actor, id string, patch TaskInput, files []*multipart.FileHeader) (models.Task, error)
	DeleteTask(actor Actor, id string) error
	OpenDocument(actor Actor, id string, index int) (models.Attachment, storage.Blob, error)
}

type TaskService struct {
	db          *database.Database
	attachments AttachmentServiceInterface
	users       UserServiceInterface
	events      EventHandlerServiceInterface
	locks       *keyedMutex
	logger      *zap.Logger
}

func NewTaskService(
	db *database.Database,
	attachments AttachmentServiceInterface,
	users UserServiceInterface,
	events EventHandlerServiceInterface,
	logger *zap.Logger,
) *TaskService {
	return &TaskService{
		db:          db,
		attachments: attachments,
		users:       users,
		events:      events,
		locks:       newKeyedMutex(),
		logger:      logger,
	}
}

const (
	priorityRank = "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 ELSE 4 END"
	statusRank   = "CASE status WHEN 'todo' THEN 1 WHEN 'in_progress' THEN 2 WHEN 'done' THEN 3 ELSE 4 END"
)

func (s *TaskService) CreateTask(actor Actor, input TaskInput, files []*multipart.FileHeader) (models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return models.Task{}, NewValidationError("Task title is required.")
	}

	task := models.Task{
		ID:          uuid.New(),
		Title:       title,
		Description: input.Description,
		Status:      models.StatusTodo,
		Priority:    models.PriorityMedium,
		Documents:   models.Attachments{},
	}

	if err := s.applyEnums(&task, input); err != nil {
		return models.Task{}, err
	}

	if input.AssignedTo == "" {
		// tokens outlive deleted users
		exists, err := s.users.UserExists(actor.UserID)
		if err != nil {
			return models.Task{}, err
		}
		if !exists {
			return models.Task{}, ErrUnauthenticated
		}
		assignee := actor.UserID
		task.AssignedToID = &assignee
	} else {
		assignee, err := s.validateAssignee(input.AssignedTo)
		if err != nil {
			return models.Task{}, err
		}
		task.AssignedToID = &assignee
	}

	staged, err := s.attachments.ValidateAndStage(task.ID, files, 0)
	if err != nil {
		return models.Task{}, err
	}
	if err := s.attachments.Commit(&task, staged); err != nil {
		s.attachments.Discard(staged)
		return models.Task{}, err
	}

	var event *models.Event
	err = s.db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}

		event, err = models.NewEvent(
			string(broker.TaskCreated),
			"task",
			"create",
			actor.UserID.String(),
			taskEventData(task),
		)
		if err != nil {
			return err
		}
		return tx.Create(event).Error
	})
	if err != nil {
		s.attachments.Discard(staged)
		return models.Task{}, fmt.Errorf("failed to create task: %w", err)
	}

	s.events.DispatchEvent(event)
	s.populateAssignee(&task)
	return task, nil
}

// GetTasks lists the tasks visible to actor, filtered and sorted by query
func (s *TaskService) GetTasks(actor Actor, query TaskQuery) ([]models.Task, error) {
	q := s.db.DB.Model(&models.Task{})

	if scope := ListScope(actor); scope != nil {
		q = q.Where("assigned_to_id = ?", *scope)
	}

	if query.Status != "" {
		status, err := models.TaskStatusFromString(query.Status)
		if err != nil {
			return nil, NewValidationError("Invalid status filter: %s", query.Status)
		}
		q = q.Where("status = ?", status)
	}

	if query.Priority != "" {
		priority, err := models.TaskPriorityFromString(query.Priority)
		if err != nil {
			return nil, NewValidationError("Invalid priority filter: %s", query.Priority)
		}
		q = q.Where("priority = ?", priority)
	}

	if query.DueDate != "" {
		due, err := models.ParseDueDate(query.DueDate)
		if err != nil {
			return nil, NewValidationError("Invalid dueDate filter: %s", query.DueDate)
		}
		// a bare date means midnight UTC of that day
		q = q.Where("due_date IS NOT NULL AND due_date <= ?", due)
	}

	order, err := sortClause(query.SortBy, query.Order)
	if err != nil {
		return nil, err
	}
	for _, o := range order {
		q = q.Order(o)
	}

	var tasks []models.Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, err
	}

	s.populateAssignees(tasks)
	return tasks, nil
}

func sortClause(sortBy, order string) ([]string, error) {
	dir := "ASC"
	switch strings.ToLower(order) {
	case "", "asc":
	case "desc":
		dir = "DESC"
	default:
		return nil, NewValidationError("Invalid order: %s", order)
	}

	switch sortBy {
	case "":
		return []string{"created_at ASC"}, nil
	case "priority":
		return []string{priorityRank + " " + dir, "created_at ASC"}, nil
	case "status":
		return []string{statusRank + " " + dir, "created_at ASC"}, nil
	case "dueDate":
		// tasks without a due date go last either way
		return []string{"due_date IS NULL", "due_date " + dir, "created_at ASC"}, nil
	default:
		return nil, NewValidationError("Invalid sortBy: %s", sortBy)
	}
}

func (s *TaskService) GetTaskById(actor Actor, id string) (models.Task, error) {
	task, err := s.loadTask(id)
	if err != nil {
		return models.Task{}, err
	}
	if !CanView(actor, task) {
		return models.Task{}, ErrForbidden
	}

	s.populateAssignee(&task)
	return task, nil
}

// UpdateTask merges the non-empty fields of patch into the task and appends
// any uploaded documents.
func (s *TaskService) UpdateTask(actor Actor, id string, patch TaskInput, files []*multipart.FileHeader) (models.Task, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return models.Task{}, ErrTaskNotFound
	}

	unlock := s.locks.Lock(taskID)
	defer unlock()

	task, err := s.loadTask(id)
	if err != nil {
		return models.Task{}, err
	}
	if !CanMutate(actor, task) {
		return models.Task{}, ErrForbidden
	}

	if patch.AssignedTo != "" {
		assignee, err := s.validateAssignee(patch.AssignedTo)
		if err != nil {
			return models.Task{}, err
		}
		task.AssignedToID = &assignee
	}
	if title := strings.TrimSpace(patch.Title); title != "" {
		task.Title = title
	}
	if patch.Description != "" {
		task.Description = patch.Description
	}
	if err := s.applyEnums(&task, patch); err != nil {
		return models.Task{}, err
	}

	staged, err := s.attachments.ValidateAndStage(task.ID, files, len(task.Documents))
	if err != nil {
		return models.Task{}, err
	}
	if err := s.attachments.Commit(&task, staged); err != nil {
		s.attachments.Discard(staged)
		return models.Task{}, err
	}

	var event *models.Event
	err = s.db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&task).Error; err != nil {
			return err
		}

		event, err = models.NewEvent(
			string(broker.TaskUpdated),
			"task",
			"update",
			actor.UserID.String(),
			taskEventData(task),
		)
		if err != nil {
			return err
		}
		return tx.Create(event).Error
	})
	if err != nil {
		s.attachments.Discard(staged)
		return models.Task{}, fmt.Errorf("failed to update task: %w", err)
	}

	s.events.DispatchEvent(event)
	s.populateAssignee(&task)
	return task, nil
}

// DeleteTask removes the task record and then its document blobs. Blob
// failures never undo the record deletion.
func (s *TaskService) DeleteTask(actor Actor, id string) error {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return ErrTaskNotFound
	}

	unlock := s.locks.Lock(taskID)
	defer unlock()

	task, err := s.loadTask(id)
	if err != nil {
		return err
	}
	if !CanMutate(actor, task) {
		return ErrForbidden
	}

	var event *models.Event
	err = s.db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Task{}, "id = ?", task.ID).Error; err != nil {
			return err
		}

		event, err = models.NewEvent(
			string(broker.TaskDeleted),
			"task",
			"delete",
			actor.UserID.String(),
			map[string]interface{}{
				"task_id":   task.ID.String(),
				"documents": len(task.Documents),
			},
		)
		if err != nil {
			return err
		}
		return tx.Create(event).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.attachments.DeleteAll(task)
	s.events.DispatchEvent(event)
	return nil
}

// OpenDocument returns the document at index. A missing task or index is
// reported before the access check.
func (s *TaskService) OpenDocument(actor Actor, id string, index int) (models.Attachment, storage.Blob, error) {
	task, err := s.loadTask(id)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return models.Attachment{}, nil, ErrDocumentNotFound
		}
		return models.Attachment{}, nil, err
	}
	if index < 0 || index >= len(task.Documents) {
		return models.Attachment{}, nil, ErrDocumentNotFound
	}
	if !CanView(actor, task) {
		return models.Attachment{}, nil, ErrForbidden
	}

	return s.attachments.Open(task, index)
}

func (s *TaskService) loadTask(id string) (models.Task, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return models.Task{}, ErrTaskNotFound
	}

	var task models.Task
	if err := s.db.DB.First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return task, nil
}

func (s *TaskService) applyEnums(task *models.Task, input TaskInput) error {
	if input.Status != "" {
		status, err := models.TaskStatusFromString(input.Status)
		if err != nil {
			return NewValidationError("Invalid status: %s", input.Status)
		}
		task.Status = status
	}
	if input.Priority != "" {
		priority, err := models.TaskPriorityFromString(input.Priority)
		if err != nil {
			return NewValidationError("Invalid priority: %s", input.Priority)
		}
		task.Priority = priority
	}
	if input.DueDate != "" {
		due, err := models.ParseDueDate(input.DueDate)
		if err != nil {
			return NewValidationError("Invalid dueDate: %s", input.DueDate)
		}
		task.DueDate = &due
	}
	return nil
}

func (s *TaskService) validateAssignee(raw string) (uuid.UUID, error) {
	assignee, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, NewValidationError("Invalid assignedTo user ID.")
	}
	exists, err := s.users.UserExists(assignee)
	if err != nil {
		return uuid.Nil, err
	}
	if !exists {
		return uuid.Nil, NewValidationError("Assigned user does not exist.")
	}
	return assignee, nil
}

func (s *TaskService) populateAssignee(task *models.Task) {
	tasks := []models.Task{*task}
	s.populateAssignees(tasks)
	task.AssignedToEmail = tasks[0].AssignedToEmail
}

// populateAssignees fills AssignedToEmail in place. Dangling assignee
// references are left blank.
func (s *TaskService) populateAssignees(tasks []models.Task) {
	ids := make([]uuid.UUID, 0, len(tasks))
	seen := make(map[uuid.UUID]bool)
	for _, t := range tasks {
		if t.AssignedToID != nil && !seen[*t.AssignedToID] {
			seen[*t.AssignedToID] = true
			ids = append(ids, *t.AssignedToID)
		}
	}
	if len(ids) == 0 {
		return
	}

	var users []models.User
	if err := s.db.DB.Select("id", "email").Where("id IN ?", ids).Find(&users).Error; err != nil {
		s.logger.Warn("failed to load assignees", zap.Error(err))
		return
	}

	emails := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		emails[u.ID] = u.Email
	}
	for i := range tasks {
		if tasks[i].AssignedToID != nil {
			tasks[i].AssignedToEmail = emails[*tasks[i].AssignedToID]
		}
	}
}

func taskEventData(task models.Task) map[string]interface{} {
	data := map[string]interface{}{
		"task_id":   task.ID.String(),
		"title":     task.Title,
		"status":    string(task.Status),
		"priority":  string(task.Priority),
		"documents": len(task.Documents),
	}
	if task.AssignedToID != nil {
		data["assigned_to"] = task.AssignedToID.String()
	}
	return data
}
