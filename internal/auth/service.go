package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"comanda/internal/models"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Service authenticates admin users.
type Service struct {
	db     *gorm.DB
	tokens *TokenManager
	cost   int

	// hash of a fixed password, checked when the email is unknown
	dummyHash []byte
	log       logrus.FieldLogger
}

// NewService creates an auth service. A cost of zero uses bcrypt.DefaultCost.
func NewService(db *gorm.DB, tokens *TokenManager, cost int, logger logrus.FieldLogger) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("comanda-unknown-admin"), cost)
	return &Service{db: db, tokens: tokens, cost: cost, dummyHash: dummy, log: logger}
}

// Tokens returns the token manager used to sign logins.
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// Login checks the credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.AdminUser, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	var user models.AdminUser
	err := s.db.Where("email = ?", email).First(&user).Error
	if gorm.IsRecordNotFoundError(err) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.log.WithField("email", email).Warn("failed admin login")
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("load admin %s: %w", email, err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		s.log.WithField("email", email).Warn("failed admin login")
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(&user)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

// EnsureAdmin creates the admin account or resets its password.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*models.AdminUser, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, errors.New("admin email and password are required")
	}

	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}

	var user models.AdminUser
	err = s.db.Where(models.AdminUser{Email: email}).
		Assign(models.AdminUser{PasswordHash: hash, Role: models.RoleAdmin}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, fmt.Errorf("save admin %s: %w", email, err)
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
