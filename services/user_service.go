package services

import (
	"errors"
	"strings"

	"taskmanager/backend/broker"
	"taskmanager/backend/database"
	"taskmanager/backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserUpdateInput carries the fields an administrator may change. Empty
// fields are left untouched.
type UserUpdateInput struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type UserServiceInterface interface {
	GetUserById(id string) (models.User, error)
	UpdateUser(actor Actor, id string, input UserUpdateInput) (models.User, error)
	DeleteUser(actor Actor, id string) error
	GetUsers(params map[string]interface{}) ([]models.User, error)
	UserExists(id uuid.UUID) (bool, error)
}

type UserService struct {
	db     *database.Database
	events EventHandlerServiceInterface
}

func NewUserService(db *database.Database, events EventHandlerServiceInterface) *UserService {
	return &UserService{db: db, events: events}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) GetUserById(id string) (models.User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return models.User{}, ErrUserNotFound
	}

	var user models.User
	if err := s.db.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) UserExists(id uuid.UUID) (bool, error) {
	var count int64
	if err := s.db.DB.Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *UserService) UpdateUser(actor Actor, id string, input UserUpdateInput) (models.User, error) {
	user, err := s.GetUserById(id)
	if err != nil {
		return models.User{}, err
	}

	updates := map[string]interface{}{}

	if email := normalizeEmail(input.Email); email != "" && email != user.Email {
		var count int64
		if err := s.db.DB.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&count).Error; err != nil {
			return models.User{}, err
		}
		if count > 0 {
			return models.User{}, ErrResourceExists
		}
		updates["email"] = email
	}

	if input.Role != "" {
		role, err := models.UserRoleFromString(input.Role)
		if err != nil {
			return models.User{}, NewValidationError("Invalid role: %s", input.Role)
		}
		updates["role"] = string(role)
	}

	if len(updates) == 0 {
		return user, nil
	}

	var event *models.Event
	err = s.db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrResourceExists
			}
			return err
		}
		if email, ok := updates["email"].(string); ok {
			user.Email = email
		}
		if role, ok := updates["role"].(string); ok {
			user.Role = models.UserRole(role)
		}

		event, err = models.NewEvent(
			string(broker.UserUpdated),
			"user",
			"update",
			actor.UserID.String(),
			map[string]interface{}{
				"user_id": user.ID.String(),
				"email":   user.Email,
				"role":    string(user.Role),
			},
		)
		if err != nil {
			return err
		}
		return tx.Create(event).Error
	})
	if err != nil {
		return models.User{}, err
	}

	s.events.DispatchEvent(event)
	return user, nil
}

// DeleteUser removes the account. Tasks assigned to it keep their dangling
// assignee reference.
func (s *UserService) DeleteUser(actor Actor, id string) error {
	user, err := s.GetUserById(id)
	if err != nil {
		return err
	}

	var event *models.Event
	err = s.db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&user).Error; err != nil {
			return err
		}

		event, err = models.NewEvent(
			string(broker.UserDeleted),
			"user",
			"delete",
			actor.UserID.String(),
			map[string]interface{}{
				"user_id": user.ID.String(),
			},
		)
		if err != nil {
			return err
		}
		return tx.Create(event).Error
	})
	if err != nil {
		return err
	}

	s.events.DispatchEvent(event)
	return nil
}

func (s *UserService) GetUsers(params map[string]interface{}) ([]models.User, error) {
	var users []models.User
	query := s.db.DB.Order("created_at ASC")

	if email, ok := params["email"].(string); ok && email != "" {
		query = query.Where("email = ?", normalizeEmail(email))
	}
	if role, ok := params["role"].(string); ok && role != "" {
		query = query.Where("role = ?", role)
	}

	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
