package service

import (
	"context"
	"errors"
	"strings"

	"scrawl/internal/models"
	"scrawl/internal/repository"

	"gorm.io/gorm"
)

// PostService implements post CRUD over the repository layer.
type PostService struct {
	postRepo repository.PostRepository
	isAdmin  func(ctx context.Context, userID uint) (bool, error)
}

type CreatePostInput struct {
	UserID  uint
	Title   string
	Content string
	Tags    []string
}

type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Title   string
	Content string
	Tags    []string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

// NewPostService creates a new post service.
func NewPostService(
	postRepo repository.PostRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *PostService {
	return &PostService{postRepo: postRepo, isAdmin: isAdmin}
}

const (
	maxTitleLen   = 200
	minContentLen = 10
	maxTagCount   = 10
)

func validatePostFields(title, content string, tags []string) error {
	if title == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return models.NewValidationError("Title cannot exceed 200 characters")
	}
	if len(content) < minContentLen {
		return models.NewValidationError("Content must be at least 10 characters")
	}
	if len(tags) > maxTagCount {
		return models.NewValidationError("A post can carry at most 10 tags")
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return models.NewValidationError("Tags must not be empty")
		}
	}
	return nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validatePostFields(in.Title, in.Content, in.Tags); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:    in.Title,
		Content:  in.Content,
		Tags:     in.Tags,
		AuthorID: in.UserID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("post", id)
		}
		return nil, err
	}
	return post, nil
}

func (s *PostService) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.postRepo.List(ctx, limit, offset)
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	if err := validatePostFields(in.Title, in.Content, in.Tags); err != nil {
		return nil, err
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("post", in.PostID)
		}
		return nil, err
	}
	if post.AuthorID != in.UserID {
		return nil, models.NewForbiddenError("Not authorized to update this post")
	}

	post.Title = in.Title
	post.Content = in.Content
	post.Tags = in.Tags
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("post", in.PostID)
		}
		return err
	}

	if post.AuthorID != in.UserID {
		admin := false
		if s.isAdmin != nil {
			if admin, err = s.isAdmin(ctx, in.UserID); err != nil {
				return err
			}
		}
		if !admin {
			return models.NewForbiddenError("Not authorized to delete this post")
		}
	}

	// Repo-level delete invalidates the cached post and its comments.
	return s.postRepo.Delete(ctx, in.PostID)
}
