package service

import (
	"context"
	"errors"

	"scrawl/internal/cache"
	"scrawl/internal/models"
	"scrawl/internal/repository"
	"scrawl/internal/validation"

	"gorm.io/gorm"
)

// UserService implements profile reads and updates.
type UserService struct {
	userRepo repository.UserRepository
}

type UpdateProfileInput struct {
	UserID   uint
	Username string
	Email    string
}

// NewUserService creates a new user service.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(userID), &user, cache.UserTTL, func() error {
		loaded, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		user = *loaded
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("user", userID)
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("user", in.UserID)
		}
		return nil, err
	}

	if in.Username != "" {
		if err := validation.ValidateUsername(in.Username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Username = in.Username
	}
	if in.Email != "" {
		if err := validation.ValidateEmail(in.Email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Email = in.Email
	}

	// Repo-level update invalidates the cached profile.
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
