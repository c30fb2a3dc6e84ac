package services

import (
	"taskmanager/backend/models"

	"github.com/google/uuid"
)

// Actor is the authenticated identity behind a request
type Actor struct {
	UserID uuid.UUID
	Role   models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanView reports whether actor may read task. Admins see everything; anyone
// else only sees tasks assigned to them. Unassigned tasks are admin-only.
func CanView(actor Actor, task models.Task) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.UserID != uuid.Nil && task.IsAssignedTo(actor.UserID)
}

// CanMutate reports whether actor may update or delete task. The rule is
// the same as CanView.
func CanMutate(actor Actor, task models.Task) bool {
	return CanView(actor, task)
}

// ListScope returns the assignee every listed task must match for actor,
// or nil when the listing is unrestricted.
func ListScope(actor Actor) *uuid.UUID {
	if actor.IsAdmin() {
		return nil
	}
	id := actor.UserID
	return &id
}
