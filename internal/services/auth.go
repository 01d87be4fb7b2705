package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/huangang/ideaforge/backend/internal/access"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/internal/utils"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
)

const (
	minNameLength     = 2
	minPasswordLength = 6
)

type AuthService struct {
	db      *gorm.DB
	jwt     *utils.JWT
	revoker TokenRevoker
}

func NewAuthService(db *gorm.DB, jwt *utils.JWT, revoker TokenRevoker) *AuthService {
	if revoker == nil {
		revoker = NewMemoryTokenRevoker()
	}
	return &AuthService{db: db, jwt: jwt, revoker: revoker}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string       `json:"token"`
	User     *models.User `json:"user"`
	ExpireAt time.Time    `json:"expireAt"`
}

// Register creates an account and signs the user in.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*LoginResponse, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if email == "" || req.Password == "" || name == "" {
		return nil, invalidInput("email, password and name are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalidInput("invalid email address")
	}
	if utf8.RuneCountInString(name) < minNameLength {
		return nil, invalidInput("name must be at least 2 characters")
	}
	if len(req.Password) < minPasswordLength {
		return nil, invalidInput("password must be at least 6 characters")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{Email: email, PasswordHash: hash, Name: name}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.NewConflict("email already in use")
		}
		return nil, err
	}

	logger.Info().Uint("user_id", user.ID).Msg("user registered")
	return s.issue(&user)
}

// Login checks email and password and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, invalidInput("email and password are required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewUnauthorized("invalid email or password").WithReason(ReasonInvalidCredential)
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		return nil, response.NewUnauthorized("invalid email or password").WithReason(ReasonInvalidCredential)
	}

	return s.issue(&user)
}

// Logout revokes the presented token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, id *Identity) error {
	if id == nil || id.TokenID == "" {
		return nil
	}
	ttl := time.Until(id.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.revoker.Revoke(ctx, id.TokenID, ttl)
}

func (s *AuthService) issue(user *models.User) (*LoginResponse, error) {
	token, expiresAt, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, User: user, ExpireAt: expiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalidInput(msg string) *response.AppError {
	return response.NewBadRequest(msg).WithReason(string(access.ReasonInvalidInput))
}
