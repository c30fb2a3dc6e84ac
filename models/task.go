package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

// TaskStatusFromString converts a string to a TaskStatus
func TaskStatusFromString(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case StatusTodo, StatusInProgress, StatusDone:
		return TaskStatus(s), nil
	default:
		return "", errors.New("invalid task status")
	}
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// TaskPriorityFromString converts a string to a TaskPriority
func TaskPriorityFromString(s string) (TaskPriority, error) {
	switch TaskPriority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return TaskPriority(s), nil
	default:
		return "", errors.New("invalid task priority")
	}
}

const dateLayout = "2006-01-02"

// ParseDueDate accepts either a calendar date (YYYY-MM-DD) or an RFC 3339
// timestamp and returns it in UTC.
func ParseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("invalid due date, expected YYYY-MM-DD")
	}
	return t.UTC(), nil
}

type Task struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string       `gorm:"not null" json:"title"`
	Description     string       `json:"description"`
	Status          TaskStatus   `gorm:"type:varchar(20);not null;default:'todo';index" json:"status"`
	Priority        TaskPriority `gorm:"type:varchar(10);not null;default:'medium';index" json:"priority"`
	DueDate         *time.Time   `gorm:"index" json:"dueDate"`
	AssignedToID    *uuid.UUID   `gorm:"type:uuid;index" json:"assignedTo"`
	AssignedToEmail string       `gorm:"-" json:"assignedToEmail,omitempty"`
	Documents       Attachments  `gorm:"type:text;not null;default:'[]'" json:"documents"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// BeforeCreate fills in the identifier and the documented defaults
func (t *Task) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Documents == nil {
		t.Documents = Attachments{}
	}
	return nil
}

// IsAssignedTo reports whether the task is currently assigned to userID.
// An unassigned task is assigned to nobody.
func (t Task) IsAssignedTo(userID uuid.UUID) bool {
	return t.AssignedToID != nil && *t.AssignedToID == userID
}
