package repository

import (
	"context"

	"scrawl/internal/cache"
	"scrawl/internal/models"

	"gorm.io/gorm"
)

// TagCount is one row of the top-tags analytics aggregation.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
	TopTags(ctx context.Context, limit int) ([]TagCount, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		return r.db.WithContext(ctx).
			Preload("Author").
			First(&post, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.PostKey(post.ID))
	return nil
}

// Delete removes a post along with its comments and every ledger row for the
// post or its comments, in one transaction. Cascading here keeps the linking
// invariant: no vote record may outlive its target.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	commentIDs := make([]uint, 0)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Comment{}).
			Where("post_id = ?", id).
			Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("target_id IN ? AND target_type = ?", commentIDs, models.TargetComment).
				Delete(&models.Vote{}).Error; err != nil {
				return err
			}
			if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("target_id = ? AND target_type = ?", id, models.TargetPost).
			Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
	if err != nil {
		return err
	}

	cache.Invalidate(ctx, cache.PostKey(id))
	for _, commentID := range commentIDs {
		cache.Invalidate(ctx, cache.CommentKey(commentID))
	}
	return nil
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&count).Error
	return count, err
}

// TopTags aggregates tag frequency across all posts. Tags are stored as a
// postgres text[] column, so the unnest happens in SQL.
func (r *postRepository) TopTags(ctx context.Context, limit int) ([]TagCount, error) {
	var tags []TagCount
	err := r.db.WithContext(ctx).Raw(
		`SELECT tag, COUNT(*) AS count
		 FROM posts, unnest(tags) AS tag
		 WHERE deleted_at IS NULL
		 GROUP BY tag
		 ORDER BY count DESC, tag ASC
		 LIMIT ?`, limit,
	).Scan(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}
