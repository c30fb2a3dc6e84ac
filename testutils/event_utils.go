package testutils

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"taskmanager/backend/models"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

// MockEventRows creates mock SQL rows for events testing
func MockEventRows(events []models.Event) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "event", "version", "entity", "operation",
		"timestamp", "actor_id", "data", "status",
		"dispatched", "dispatched_at",
	})

	for _, event := range events {
		if event.ID == uuid.Nil {
			event.ID = uuid.New()
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now()
		}
		if event.Data == nil {
			event.Data = json.RawMessage(`{}`)
		}
		if event.Status == "" {
			event.Status = models.EventStatusPending
		}

		var dispatchedAt driver.Value
		if event.DispatchedAt != nil {
			dispatchedAt = *event.DispatchedAt
		}

		rows.AddRow(
			event.ID.String(),
			event.Event,
			event.Version,
			event.Entity,
			event.Operation,
			event.Timestamp,
			event.ActorID,
			[]byte(event.Data),
			event.Status,
			event.Dispatched,
			dispatchedAt,
		)
	}

	return rows
}

// MockUserRows creates mock SQL rows for users
func MockUserRows(users []models.User) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "email", "password_hash", "role", "created_at", "updated_at",
	})

	for _, user := range users {
		if user.ID == uuid.Nil {
			user.ID = uuid.New()
		}
		if user.Role == "" {
			user.Role = models.RoleUser
		}
		now := time.Now()
		rows.AddRow(user.ID.String(), user.Email, user.PasswordHash, string(user.Role), now, now)
	}

	return rows
}

func NewResult(lastInsertID, rowsAffected int64) driver.Result {
	return sqlmock.NewResult(lastInsertID, rowsAffected)
}
