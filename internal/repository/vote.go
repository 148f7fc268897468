// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"fmt"

	"scrawl/internal/cache"
	"scrawl/internal/models"
	"scrawl/internal/observability"

	"gorm.io/gorm"
)

// VoteRepository is the vote ledger: one row per (user, target, target_type)
// key, kept consistent with the denormalized counters on the voted target.
// The three *WithCounters methods each run as a single transaction so no
// partially-applied vote is ever visible; they return models.ErrVoteConflict
// when a concurrent request won the race for the same key, and the caller is
// expected to re-read and re-decide.
type VoteRepository interface {
	Find(ctx context.Context, userID, targetID uint, targetType models.TargetType) (*models.Vote, error)
	CreateWithCounters(ctx context.Context, vote *models.Vote) (*models.VoteCounts, error)
	SwitchWithCounters(ctx context.Context, vote *models.Vote, newType models.VoteType) (*models.VoteCounts, error)
	RemoveWithCounters(ctx context.Context, vote *models.Vote) (*models.VoteCounts, error)
	CountByTargetAndType(ctx context.Context, targetID uint, targetType models.TargetType, voteType models.VoteType) (int64, error)
	TotalsByType(ctx context.Context) (upvotes, downvotes int64, err error)
	DeleteByTarget(ctx context.Context, targetID uint, targetType models.TargetType) error
}

type voteRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db, log: observability.NewRepoLogger("votes")}
}

func (r *voteRepository) Find(ctx context.Context, userID, targetID uint, targetType models.TargetType) (*models.Vote, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_id = ? AND target_type = ?", userID, targetID, targetType).
		First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *voteRepository) CreateWithCounters(ctx context.Context, vote *models.Vote) (*models.VoteCounts, error) {
	var counts models.VoteCounts
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// The unique index on (user_id, target_id, target_type) is the
				// backstop for concurrent duplicate casts.
				return models.ErrVoteConflict
			}
			return err
		}
		return adjustCounters(tx, vote.TargetType, vote.TargetID, &counts,
			"%s = %s + 1", counterColumn(vote.VoteType))
	})
	if err != nil {
		if !errors.Is(err, models.ErrVoteConflict) {
			r.log.LogError(ctx, err, "create")
		}
		return nil, err
	}

	r.log.LogMutation(ctx, "create", map[string]interface{}{
		"user_id": vote.UserID, "target_id": vote.TargetID,
		"target_type": vote.TargetType, "vote_type": vote.VoteType,
	})
	cache.InvalidateTarget(ctx, vote.TargetType, vote.TargetID)
	return &counts, nil
}

func (r *voteRepository) SwitchWithCounters(ctx context.Context, vote *models.Vote, newType models.VoteType) (*models.VoteCounts, error) {
	var counts models.VoteCounts
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Guarding on the previously observed vote_type makes this a
		// compare-and-swap: a concurrent toggle or switch leaves zero rows.
		res := tx.Model(&models.Vote{}).
			Where("id = ? AND vote_type = ?", vote.ID, vote.VoteType).
			Update("vote_type", newType)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrVoteConflict
		}
		return adjustCounters(tx, vote.TargetType, vote.TargetID, &counts,
			"%s = GREATEST(%s - 1, 0), %s = %s + 1",
			counterColumn(vote.VoteType), counterColumn(newType))
	})
	if err != nil {
		if !errors.Is(err, models.ErrVoteConflict) {
			r.log.LogError(ctx, err, "switch")
		}
		return nil, err
	}

	r.log.LogMutation(ctx, "switch", map[string]interface{}{
		"user_id": vote.UserID, "target_id": vote.TargetID,
		"target_type": vote.TargetType, "vote_type": newType,
	})
	cache.InvalidateTarget(ctx, vote.TargetType, vote.TargetID)
	return &counts, nil
}

func (r *voteRepository) RemoveWithCounters(ctx context.Context, vote *models.Vote) (*models.VoteCounts, error) {
	var counts models.VoteCounts
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND vote_type = ?", vote.ID, vote.VoteType).
			Delete(&models.Vote{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrVoteConflict
		}
		return adjustCounters(tx, vote.TargetType, vote.TargetID, &counts,
			"%s = GREATEST(%s - 1, 0)", counterColumn(vote.VoteType))
	})
	if err != nil {
		if !errors.Is(err, models.ErrVoteConflict) {
			r.log.LogError(ctx, err, "remove")
		}
		return nil, err
	}

	r.log.LogMutation(ctx, "remove", map[string]interface{}{
		"user_id": vote.UserID, "target_id": vote.TargetID,
		"target_type": vote.TargetType, "vote_type": vote.VoteType,
	})
	cache.InvalidateTarget(ctx, vote.TargetType, vote.TargetID)
	return &counts, nil
}

// CountByTargetAndType recounts ledger rows for a target. Reconciliation and
// tests only; reads on the hot path use the denormalized counters.
func (r *voteRepository) CountByTargetAndType(ctx context.Context, targetID uint, targetType models.TargetType, voteType models.VoteType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Where("target_id = ? AND target_type = ? AND vote_type = ?", targetID, targetType, voteType).
		Count(&count).Error
	return count, err
}

func (r *voteRepository) TotalsByType(ctx context.Context) (int64, int64, error) {
	var upvotes, downvotes int64
	if err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Where("vote_type = ?", models.VoteUp).
		Count(&upvotes).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Where("vote_type = ?", models.VoteDown).
		Count(&downvotes).Error; err != nil {
		return 0, 0, err
	}
	return upvotes, downvotes, nil
}

// DeleteByTarget hard-deletes all ledger rows for a target. Used by the
// cascade when a post or comment is deleted.
func (r *voteRepository) DeleteByTarget(ctx context.Context, targetID uint, targetType models.TargetType) error {
	return r.db.WithContext(ctx).
		Where("target_id = ? AND target_type = ?", targetID, targetType).
		Delete(&models.Vote{}).Error
}

// adjustCounters applies an atomic counter mutation on the target row and
// scans back the post-mutation counters. The SQL is a single UPDATE so
// concurrent adjustments for the same target never lose updates. setTemplate
// uses %s pairs per column, e.g. "%s = %s + 1"; columns come from the closed
// counterColumn set, never from request input.
func adjustCounters(tx *gorm.DB, targetType models.TargetType, targetID uint, counts *models.VoteCounts, setTemplate string, columns ...string) error {
	args := make([]interface{}, 0, len(columns)*2)
	for _, col := range columns {
		args = append(args, col, col)
	}
	set := fmt.Sprintf(setTemplate, args...)

	sql := fmt.Sprintf(
		"UPDATE %s SET %s, updated_at = NOW() WHERE id = ? AND deleted_at IS NULL RETURNING upvotes, downvotes",
		targetTable(targetType), set,
	)
	res := tx.Raw(sql, targetID).Scan(counts)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Target deleted between the existence check and the mutation.
		return gorm.ErrRecordNotFound
	}
	return nil
}

// targetTable resolves the counter table for a target kind. Closed dispatch,
// never reflection; unknown kinds are rejected long before this point.
func targetTable(targetType models.TargetType) string {
	if targetType == models.TargetComment {
		return "comments"
	}
	return "posts"
}

func counterColumn(voteType models.VoteType) string {
	if voteType == models.VoteDown {
		return "downvotes"
	}
	return "upvotes"
}
