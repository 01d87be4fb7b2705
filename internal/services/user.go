package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/internal/utils"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
)

// UserService manages the caller's own profile.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
	Bio       *string `json:"bio"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (s *UserService) Get(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, dbError(err, response.NewNotFound("user not found"))
	}
	return &user, nil
}

// UpdateProfile changes the given fields. Blank avatar and bio clear them.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, req *UpdateProfileRequest) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if utf8.RuneCountInString(name) < minNameLength {
			return nil, invalidInput("name must be at least 2 characters")
		}
		updates["name"] = name
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = optionalText(*req.AvatarURL)
	}
	if req.Bio != nil {
		updates["bio"] = optionalText(*req.Bio)
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// ChangePassword replaces the password after checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, userID uint, req *ChangePasswordRequest) error {
	if req.OldPassword == "" || req.NewPassword == "" {
		return invalidInput("both oldPassword and newPassword are required")
	}
	if len(req.NewPassword) < minPasswordLength {
		return invalidInput("new password must be at least 6 characters")
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(req.OldPassword, user.PasswordHash) {
		return invalidInput("old password is incorrect")
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(user).Update("password_hash", hash).Error
}

// optionalText trims s and returns nil for blank input so the column is cleared.
func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
