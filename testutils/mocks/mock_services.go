// Package mocks holds testify mocks of the service interfaces for handler tests.
package mocks

import (
	"mime/multipart"

	"taskmanager/backend/models"
	"taskmanager/backend/services"
	"taskmanager/backend/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockTaskService mocks the TaskServiceInterface for testing
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) CreateTask(actor services.Actor, input services.TaskInput, files []*multipart.FileHeader) (models.Task, error) {
	args := m.Called(actor, input, files)
	return args.Get(0).(models.Task), args.Error(1)
}

func (m *MockTaskService) GetTasks(actor services.Actor, query services.TaskQuery) ([]models.Task, error) {
	args := m.Called(actor, query)
	return args.Get(0).([]models.Task), args.Error(1)
}

func (m *MockTaskService) GetTaskById(actor services.Actor, id string) (models.Task, error) {
	args := m.Called(actor, id)
	return args.Get(0).(models.Task), args.Error(1)
}

func (m *MockTaskService) UpdateTask(actor services.Actor, id string, patch services.TaskInput, files []*multipart.FileHeader) (models.Task, error) {
	args := m.Called(actor, id, patch, files)
	return args.Get(0).(models.Task), args.Error(1)
}

func (m *MockTaskService) DeleteTask(actor services.Actor, id string) error {
	args := m.Called(actor, id)
	return args.Error(0)
}

func (m *MockTaskService) OpenDocument(actor services.Actor, id string, index int) (models.Attachment, storage.Blob, error) {
	args := m.Called(actor, id, index)
	var blob storage.Blob
	if b := args.Get(1); b != nil {
		blob = b.(storage.Blob)
	}
	return args.Get(0).(models.Attachment), blob, args.Error(2)
}

// MockUserService mocks the UserServiceInterface for testing
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetUserById(id string) (models.User, error) {
	args := m.Called(id)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserService) UpdateUser(actor services.Actor, id string, input services.UserUpdateInput) (models.User, error) {
	args := m.Called(actor, id, input)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserService) DeleteUser(actor services.Actor, id string) error {
	args := m.Called(actor, id)
	return args.Error(0)
}

func (m *MockUserService) GetUsers(params map[string]interface{}) ([]models.User, error) {
	args := m.Called(params)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserService) UserExists(id uuid.UUID) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

// MockAuthService mocks the AuthServiceInterface for testing
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(email, password, role string) (models.User, error) {
	args := m.Called(email, password, role)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockAuthService) Login(email, password string) (string, models.User, error) {
	args := m.Called(email, password)
	return args.String(0), args.Get(1).(models.User), args.Error(2)
}

func (m *MockAuthService) ValidateToken(tokenString string) (*services.JWTClaims, error) {
	args := m.Called(tokenString)
	if claims := args.Get(0); claims != nil {
		return claims.(*services.JWTClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthService) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) ComparePasswords(hashedPassword, password string) error {
	args := m.Called(hashedPassword, password)
	return args.Error(0)
}
