package services

import (
	"errors"
	"time"

	"taskmanager/backend/broker"
	"taskmanager/backend/database"
	"taskmanager/backend/models"
	"taskmanager/backend/utils/token"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Use the JWTClaims from token package
type JWTClaims = token.JWTClaims

type AuthServiceInterface interface {
	Register(email, password, role string) (models.User, error)
	Login(email, password string) (string, models.User, error)
	ValidateToken(tokenString string) (*JWTClaims, error)
	HashPassword(password string) (string, error)
	ComparePasswords(hashedPassword, password string) error
}

type AuthService struct {
	db            *database.Database
	events        EventHandlerServiceInterface
	jwtSecret     []byte
	jwtExpiration time.Duration
	dummyHash     []byte
}

func NewAuthService(db *database.Database, events EventHandlerServiceInterface, jwtSecret string, jwtExpirationHours int) *AuthService {
	if jwtExpirationHours <= 0 {
		jwtExpirationHours = 24
	}
	// compared against when the email is unknown so both paths cost a bcrypt round
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	return &AuthService{
		db:            db,
		events:        events,
		jwtSecret:     []byte(jwtSecret),
		jwtExpiration: time.Duration(jwtExpirationHours) * time.Hour,
		dummyHash:     dummy,
	}
}

func (s *AuthService) Register(email, password, role string) (models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return models.User{}, NewValidationError("Email and password are required.")
	}

	userRole := models.RoleUser
	if role != "" {
		parsed, err := models.UserRoleFromString(role)
		if err != nil {
			return models.User{}, NewValidationError("Invalid role: %s", role)
		}
		userRole = parsed
	}

	var count int64
	if err := s.db.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return models.User{}, err
	}
	if count > 0 {
		return models.User{}, ErrResourceExists
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         userRole,
	}

	var event *models.Event
	err = s.db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrResourceExists
			}
			return err
		}

		event, err = models.NewEvent(
			string(broker.UserCreated),
			"user",
			"create",
			user.ID.String(),
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

// Login returns a signed token for valid credentials. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(email, password string) (string, models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", models.User{}, NewValidationError("Email and password are required.")
	}

	var user models.User
	if err := s.db.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return "", models.User{}, ErrInvalidCredentials
		}
		return "", models.User{}, err
	}

	if err := s.ComparePasswords(user.PasswordHash, password); err != nil {
		return "", models.User{}, ErrInvalidCredentials
	}

	tokenString, err := token.GenerateToken(user.ID, string(user.Role), s.jwtSecret, s.jwtExpiration)
	if err != nil {
		return "", models.User{}, err
	}

	return tokenString, user, nil
}

// ValidateToken uses the token utility to validate tokens
func (s *AuthService) ValidateToken(tokenString string) (*JWTClaims, error) {
	return token.ValidateToken(tokenString, s.jwtSecret)
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePasswords(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
