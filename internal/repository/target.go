package repository

import (
	"context"

	"scrawl/internal/models"

	"gorm.io/gorm"
)

// TargetStore exposes the entity-store view the vote engine needs: existence
// and current counters for a votable target, without loading the full row.
type TargetStore interface {
	FindCounts(ctx context.Context, targetType models.TargetType, id uint) (*models.VoteCounts, error)
}

type targetStore struct {
	db *gorm.DB
}

// NewTargetStore creates a new target store over posts and comments.
func NewTargetStore(db *gorm.DB) TargetStore {
	return &targetStore{db: db}
}

// FindCounts returns the denormalized counters for a target, or
// gorm.ErrRecordNotFound when the target does not exist or was deleted.
func (s *targetStore) FindCounts(ctx context.Context, targetType models.TargetType, id uint) (*models.VoteCounts, error) {
	var counts models.VoteCounts
	err := s.db.WithContext(ctx).
		Table(targetTable(targetType)).
		Select("upvotes", "downvotes").
		Where("id = ? AND deleted_at IS NULL", id).
		Take(&counts).Error
	if err != nil {
		return nil, err
	}
	return &counts, nil
}
