// Package service holds the application's business logic over the repository layer.
package service

import (
	"context"
	"errors"

	"scrawl/internal/middleware"
	"scrawl/internal/models"
	"scrawl/internal/observability"
	"scrawl/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// maxCastAttempts bounds the conflict-retry loop in CastVote. Each attempt
// re-reads the ledger, so a lost race converges on the next iteration.
const maxCastAttempts = 3

// VoteService is the vote engine: it applies a vote intent against the ledger
// and the target's denormalized counters, enforcing one vote per user per
// target and toggle/switch semantics.
type VoteService struct {
	votes   repository.VoteRepository
	targets repository.TargetStore
}

// NewVoteService creates a new vote service.
func NewVoteService(votes repository.VoteRepository, targets repository.TargetStore) *VoteService {
	return &VoteService{votes: votes, targets: targets}
}

// CastVoteInput carries a raw vote intent; enum fields arrive as route
// parameters and are validated here, before any store access.
type CastVoteInput struct {
	UserID     uint
	TargetType string
	TargetID   uint
	VoteType   string
}

// VoteResult reports the outcome of a cast: the vote now held (empty when the
// cast toggled the vote off) and the post-mutation counters.
type VoteResult struct {
	VoteType  models.VoteType
	Removed   bool
	Upvotes   int
	Downvotes int
}

// CastVote applies one vote intent. Exactly one ledger create/update/delete
// and one counter adjustment of magnitude 1 happen per successful call:
//
//   - no existing vote: create the record, increment the matching counter
//   - same type held (toggle-off): delete the record, decrement floored at 0
//   - other type held (switch): flip the record, swap one count across columns
//
// Concurrent calls for the same (user, target) key are serialized on the
// ledger's unique index: the loser sees models.ErrVoteConflict and the loop
// re-reads and re-decides. Conflicts exhausting the retry budget, and all
// other store failures, surface as a retryable transient error.
func (s *VoteService) CastVote(ctx context.Context, in CastVoteInput) (*VoteResult, error) {
	targetType, ok := models.ParseTargetType(in.TargetType)
	if !ok {
		return nil, models.NewValidationError("Invalid target type. Must be Post or Comment")
	}
	voteType, ok := models.ParseVoteType(in.VoteType)
	if !ok {
		return nil, models.NewValidationError("Invalid vote type. Must be upvote or downvote")
	}

	span, ctx := observability.NewSpan(ctx, "vote.cast")
	defer span.End()
	span.AddAttributes(
		attribute.String("vote.target_type", string(targetType)),
		attribute.Int("vote.target_id", int(in.TargetID)),
		attribute.String("vote.type", string(voteType)),
	)

	// Existence check before any mutation; a miss here means 404, not 500.
	if _, err := s.targets.FindCounts(ctx, targetType, in.TargetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(string(targetType), in.TargetID)
		}
		return nil, models.NewTransientError(err)
	}

	var lastConflict error
	for attempt := 0; attempt < maxCastAttempts; attempt++ {
		if attempt > 0 {
			middleware.VoteConflictRetries.Inc()
		}

		result, err := s.castOnce(ctx, in.UserID, targetType, in.TargetID, voteType)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, models.ErrVoteConflict) {
			lastConflict = err
			continue
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Target deleted while the vote was in flight.
			return nil, models.NewNotFoundError(string(targetType), in.TargetID)
		}
		span.SetError(err)
		return nil, models.NewTransientError(err)
	}

	span.SetError(lastConflict)
	return nil, models.NewTransientError(lastConflict)
}

// castOnce runs one read-decide-mutate pass. Every branch is a single ledger
// transaction, so no partially-applied vote is observable.
func (s *VoteService) castOnce(ctx context.Context, userID uint, targetType models.TargetType, targetID uint, voteType models.VoteType) (*VoteResult, error) {
	existing, err := s.votes.Find(ctx, userID, targetID, targetType)
	if err != nil {
		return nil, err
	}

	switch {
	case existing == nil:
		vote := &models.Vote{
			UserID:     userID,
			TargetID:   targetID,
			TargetType: targetType,
			VoteType:   voteType,
		}
		counts, err := s.votes.CreateWithCounters(ctx, vote)
		if err != nil {
			return nil, err
		}
		middleware.VoteOperations.WithLabelValues("created").Inc()
		return &VoteResult{VoteType: voteType, Upvotes: counts.Upvotes, Downvotes: counts.Downvotes}, nil

	case existing.VoteType == voteType:
		counts, err := s.votes.RemoveWithCounters(ctx, existing)
		if err != nil {
			return nil, err
		}
		middleware.VoteOperations.WithLabelValues("removed").Inc()
		return &VoteResult{Removed: true, Upvotes: counts.Upvotes, Downvotes: counts.Downvotes}, nil

	default:
		counts, err := s.votes.SwitchWithCounters(ctx, existing, voteType)
		if err != nil {
			return nil, err
		}
		middleware.VoteOperations.WithLabelValues("switched").Inc()
		return &VoteResult{VoteType: voteType, Upvotes: counts.Upvotes, Downvotes: counts.Downvotes}, nil
	}
}

// GetUserVote returns the caller's current vote on a target, or empty when
// none exists. The target itself is not required to exist: a vote on a
// deleted target reads the same as no vote.
func (s *VoteService) GetUserVote(ctx context.Context, userID uint, targetTypeRaw string, targetID uint) (models.VoteType, error) {
	targetType, ok := models.ParseTargetType(targetTypeRaw)
	if !ok {
		return "", models.NewValidationError("Invalid target type. Must be Post or Comment")
	}

	vote, err := s.votes.Find(ctx, userID, targetID, targetType)
	if err != nil {
		return "", models.NewTransientError(err)
	}
	if vote == nil {
		return "", nil
	}
	return vote.VoteType, nil
}

// GetCounts returns the denormalized counters for a target without recounting
// the ledger.
func (s *VoteService) GetCounts(ctx context.Context, targetTypeRaw string, targetID uint) (*models.VoteCounts, error) {
	targetType, ok := models.ParseTargetType(targetTypeRaw)
	if !ok {
		return nil, models.NewValidationError("Invalid target type. Must be Post or Comment")
	}

	counts, err := s.targets.FindCounts(ctx, targetType, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(string(targetType), targetID)
		}
		return nil, models.NewTransientError(err)
	}
	return counts, nil
}
