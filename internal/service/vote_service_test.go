package service

import (
	"context"
	"errors"
	"testing"

	"scrawl/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// voteRepoStub is a stub for repository.VoteRepository.
type voteRepoStub struct {
	findFn               func(context.Context, uint, uint, models.TargetType) (*models.Vote, error)
	createWithCountersFn func(context.Context, *models.Vote) (*models.VoteCounts, error)
	switchWithCountersFn func(context.Context, *models.Vote, models.VoteType) (*models.VoteCounts, error)
	removeWithCountersFn func(context.Context, *models.Vote) (*models.VoteCounts, error)
	countByTargetFn      func(context.Context, uint, models.TargetType, models.VoteType) (int64, error)
	totalsByTypeFn       func(context.Context) (int64, int64, error)
	deleteByTargetFn     func(context.Context, uint, models.TargetType) error
}

func (s *voteRepoStub) Find(ctx context.Context, userID, targetID uint, targetType models.TargetType) (*models.Vote, error) {
	return s.findFn(ctx, userID, targetID, targetType)
}
func (s *voteRepoStub) CreateWithCounters(ctx context.Context, vote *models.Vote) (*models.VoteCounts, error) {
	return s.createWithCountersFn(ctx, vote)
}
func (s *voteRepoStub) SwitchWithCounters(ctx context.Context, vote *models.Vote, newType models.VoteType) (*models.VoteCounts, error) {
	return s.switchWithCountersFn(ctx, vote, newType)
}
func (s *voteRepoStub) RemoveWithCounters(ctx context.Context, vote *models.Vote) (*models.VoteCounts, error) {
	return s.removeWithCountersFn(ctx, vote)
}
func (s *voteRepoStub) CountByTargetAndType(ctx context.Context, targetID uint, targetType models.TargetType, voteType models.VoteType) (int64, error) {
	return s.countByTargetFn(ctx, targetID, targetType, voteType)
}
func (s *voteRepoStub) TotalsByType(ctx context.Context) (int64, int64, error) {
	return s.totalsByTypeFn(ctx)
}
func (s *voteRepoStub) DeleteByTarget(ctx context.Context, targetID uint, targetType models.TargetType) error {
	return s.deleteByTargetFn(ctx, targetID, targetType)
}

func noopVoteRepo() *voteRepoStub {
	return &voteRepoStub{
		findFn: func(_ context.Context, _, _ uint, _ models.TargetType) (*models.Vote, error) {
			return nil, nil
		},
		createWithCountersFn: func(_ context.Context, _ *models.Vote) (*models.VoteCounts, error) {
			return &models.VoteCounts{}, nil
		},
		switchWithCountersFn: func(_ context.Context, _ *models.Vote, _ models.VoteType) (*models.VoteCounts, error) {
			return &models.VoteCounts{}, nil
		},
		removeWithCountersFn: func(_ context.Context, _ *models.Vote) (*models.VoteCounts, error) {
			return &models.VoteCounts{}, nil
		},
		countByTargetFn: func(_ context.Context, _ uint, _ models.TargetType, _ models.VoteType) (int64, error) {
			return 0, nil
		},
		totalsByTypeFn:   func(_ context.Context) (int64, int64, error) { return 0, 0, nil },
		deleteByTargetFn: func(_ context.Context, _ uint, _ models.TargetType) error { return nil },
	}
}

// targetStoreStub is a stub for repository.TargetStore.
type targetStoreStub struct {
	findCountsFn func(context.Context, models.TargetType, uint) (*models.VoteCounts, error)
}

func (s *targetStoreStub) FindCounts(ctx context.Context, targetType models.TargetType, id uint) (*models.VoteCounts, error) {
	return s.findCountsFn(ctx, targetType, id)
}

func existingTarget() *targetStoreStub {
	return &targetStoreStub{
		findCountsFn: func(_ context.Context, _ models.TargetType, _ uint) (*models.VoteCounts, error) {
			return &models.VoteCounts{}, nil
		},
	}
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func TestVoteService_CastVote_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("invalid target type", func(t *testing.T) {
		t.Parallel()
		repo := noopVoteRepo()
		touched := false
		repo.findFn = func(_ context.Context, _, _ uint, _ models.TargetType) (*models.Vote, error) {
			touched = true
			return nil, nil
		}
		svc := NewVoteService(repo, existingTarget())

		_, err := svc.CastVote(ctx, CastVoteInput{UserID: 1, TargetType: "thread", TargetID: 1, VoteType: "upvote"})
		assertErrorCode(t, err, models.CodeValidation)
		assert.False(t, touched, "invalid input must not reach the store")
	})

	t.Run("invalid vote type", func(t *testing.T) {
		t.Parallel()
		svc := NewVoteService(noopVoteRepo(), existingTarget())
		_, err := svc.CastVote(ctx, CastVoteInput{UserID: 1, TargetType: "post", TargetID: 1, VoteType: "sideways"})
		assertErrorCode(t, err, models.CodeValidation)
	})

	t.Run("legacy capitalized target types accepted", func(t *testing.T) {
		t.Parallel()
		for _, raw := range []string{"Post", "Comment", "post", "comment"} {
			svc := NewVoteService(noopVoteRepo(), existingTarget())
			_, err := svc.CastVote(ctx, CastVoteInput{UserID: 1, TargetType: raw, TargetID: 1, VoteType: "upvote"})
			require.NoError(t, err, "target type %q", raw)
		}
	})
}

func TestVoteService_CastVote_TargetMissing(t *testing.T) {
	t.Parallel()

	targets := &targetStoreStub{
		findCountsFn: func(_ context.Context, _ models.TargetType, _ uint) (*models.VoteCounts, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := NewVoteService(noopVoteRepo(), targets)

	_, err := svc.CastVote(context.Background(), CastVoteInput{UserID: 1, TargetType: "post", TargetID: 99, VoteType: "upvote"})
	assertErrorCode(t, err, models.CodeNotFound)
}

func TestVoteService_CastVote_Create(t *testing.T) {
	t.Parallel()

	repo := noopVoteRepo()
	var created *models.Vote
	repo.createWithCountersFn = func(_ context.Context, v *models.Vote) (*models.VoteCounts, error) {
		created = v
		return &models.VoteCounts{Upvotes: 5, Downvotes: 2}, nil
	}
	svc := NewVoteService(repo, existingTarget())

	result, err := svc.CastVote(context.Background(), CastVoteInput{UserID: 7, TargetType: "post", TargetID: 3, VoteType: "upvote"})
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, uint(7), created.UserID)
	assert.Equal(t, uint(3), created.TargetID)
	assert.Equal(t, models.TargetPost, created.TargetType)
	assert.Equal(t, models.VoteUp, created.VoteType)

	assert.False(t, result.Removed)
	assert.Equal(t, models.VoteUp, result.VoteType)
	assert.Equal(t, 5, result.Upvotes)
	assert.Equal(t, 2, result.Downvotes)
}

func TestVoteService_CastVote_ToggleOff(t *testing.T) {
	t.Parallel()

	repo := noopVoteRepo()
	repo.findFn = func(_ context.Context, _, _ uint, _ models.TargetType) (*models.Vote, error) {
		return &models.Vote{ID: 11, UserID: 7, TargetID: 3, TargetType: models.TargetComment, VoteType: models.VoteDown}, nil
	}
	removed := false
	repo.removeWithCountersFn = func(_ context.Context, v *models.Vote) (*models.VoteCounts, error) {
		removed = true
		assert.Equal(t, uint(11), v.ID)
		return &models.VoteCounts{Upvotes: 1, Downvotes: 0}, nil
	}
	repo.createWithCountersFn = func(_ context.Context, _ *models.Vote) (*models.VoteCounts, error) {
		t.Fatal("toggle-off must not create")
		return nil, nil
	}
	svc := NewVoteService(repo, existingTarget())

	result, err := svc.CastVote(context.Background(), CastVoteInput{UserID: 7, TargetType: "comment", TargetID: 3, VoteType: "downvote"})
	require.NoError(t, err)
	assert.True(t, removed)
	assert.True(t, result.Removed)
	assert.Empty(t, result.VoteType)
	assert.Equal(t, 1, result.Upvotes)
	assert.Equal(t, 0, result.Downvotes)
}

func TestVoteService_CastVote_Switch(t *testing.T) {
	t.Parallel()

	repo := noopVoteRepo()
	repo.findFn = func(_ context.Context, _, _ uint, _ models.TargetType) (*models.Vote, error) {
		return &models.Vote{ID: 11, VoteType: models.VoteDown}, nil
	}
	var switchedTo models.VoteType
	repo.switchWithCountersFn = func(_ context.Context, v *models.Vote, newType models.VoteType) (*models.VoteCounts, error) {
		switchedTo = newType
		return &models.VoteCounts{Upvotes: 4, Downvotes: 1}, nil
	}
	svc := NewVoteService(repo, existingTarget())

	result, err := svc.CastVote(context.Background(), CastVoteInput{UserID: 7, TargetType: "post", TargetID: 3, VoteType: "upvote"})
	require.NoError(t, err)
	assert.Equal(t, models.VoteUp, switchedTo)
	assert.False(t, result.Removed)
	assert.Equal(t, models.VoteUp, result.VoteType)
	assert.Equal(t, 4, result.Upvotes)
	assert.Equal(t, 1, result.Downvotes)
}

// A lost insert race surfaces as a conflict; the next attempt re-reads the
// winner's record and resolves against it instead of failing the request.
func TestVoteService_CastVote_ConflictThenResolves(t *testing.T) {
	t.Parallel()

	repo := noopVoteRepo()
	finds := 0
	repo.findFn = func(_ context.Context, _, _ uint, _ models.TargetType) (*models.Vote, error) {
		finds++
		if finds == 1 {
			// First read sees nothing; the concurrent writer has not committed.
			return nil, nil
		}
		return &models.Vote{ID: 11, VoteType: models.VoteDown}, nil
	}
	repo.createWithCountersFn = func(_ context.Context, _ *models.Vote) (*models.VoteCounts, error) {
		return nil, models.ErrVoteConflict
	}
	repo.switchWithCountersFn = func(_ context.Context, _ *models.Vote, newType models.VoteType) (*models.VoteCounts, error) {
		return &models.VoteCounts{Upvotes: 9, Downvotes: 0}, nil
	}
	svc := NewVoteService(repo, existingTarget())

	result, err := svc.CastVote(context.Background(), CastVoteInput{UserID: 7, TargetType: "post", TargetID: 3, VoteType: "upvote"})
	require.NoError(t, err)
	assert.Equal(t, 2, finds, "conflict should trigger exactly one re-read")
	assert.Equal(t, models.VoteUp, result.VoteType)
	assert.Equal(t, 9, result.Upvotes)
}

func TestVoteService_CastVote_ConflictExhaustion(t *testing.T) {
	t.Parallel()

	repo := noopVoteRepo()
	attempts := 0
	repo.createWithCountersFn = func(_ context.Context, _ *models.Vote) (*models.VoteCounts, error) {
		attempts++
		return nil, models.ErrVoteConflict
	}
	svc := NewVoteService(repo, existingTarget())

	_, err := svc.CastVote(context.Background(), CastVoteInput{UserID: 7, TargetType: "post", TargetID: 3, VoteType: "upvote"})
	assertErrorCode(t, err, models.CodeTransient)
	assert.Equal(t, maxCastAttempts, attempts)
	// The raw conflict never leaks to the caller without the transient wrapper.
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.ErrorIs(t, appErr.Err, models.ErrVoteConflict)
}

func TestVoteService_CastVote_TargetDeletedMidFlight(t *testing.T) {
	t.Parallel()

	repo := noopVoteRepo()
	repo.createWithCountersFn = func(_ context.Context, _ *models.Vote) (*models.VoteCounts, error) {
		return nil, gorm.ErrRecordNotFound
	}
	svc := NewVoteService(repo, existingTarget())

	_, err := svc.CastVote(context.Background(), CastVoteInput{UserID: 7, TargetType: "post", TargetID: 3, VoteType: "upvote"})
	assertErrorCode(t, err, models.CodeNotFound)
}

func TestVoteService_CastVote_StoreFailure(t *testing.T) {
	t.Parallel()

	repo := noopVoteRepo()
	repo.findFn = func(_ context.Context, _, _ uint, _ models.TargetType) (*models.Vote, error) {
		return nil, errors.New("connection reset")
	}
	svc := NewVoteService(repo, existingTarget())

	_, err := svc.CastVote(context.Background(), CastVoteInput{UserID: 7, TargetType: "post", TargetID: 3, VoteType: "upvote"})
	assertErrorCode(t, err, models.CodeTransient)
}

func TestVoteService_GetUserVote(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("no vote reads as empty", func(t *testing.T) {
		t.Parallel()
		svc := NewVoteService(noopVoteRepo(), existingTarget())
		voteType, err := svc.GetUserVote(ctx, 1, "post", 5)
		require.NoError(t, err)
		assert.Empty(t, voteType)
	})

	t.Run("existing vote", func(t *testing.T) {
		t.Parallel()
		repo := noopVoteRepo()
		repo.findFn = func(_ context.Context, _, _ uint, _ models.TargetType) (*models.Vote, error) {
			return &models.Vote{VoteType: models.VoteDown}, nil
		}
		svc := NewVoteService(repo, existingTarget())
		voteType, err := svc.GetUserVote(ctx, 1, "Comment", 5)
		require.NoError(t, err)
		assert.Equal(t, models.VoteDown, voteType)
	})

	t.Run("invalid target type", func(t *testing.T) {
		t.Parallel()
		svc := NewVoteService(noopVoteRepo(), existingTarget())
		_, err := svc.GetUserVote(ctx, 1, "thread", 5)
		assertErrorCode(t, err, models.CodeValidation)
	})
}

func TestVoteService_GetCounts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("returns denormalized counters", func(t *testing.T) {
		t.Parallel()
		targets := &targetStoreStub{
			findCountsFn: func(_ context.Context, _ models.TargetType, _ uint) (*models.VoteCounts, error) {
				return &models.VoteCounts{Upvotes: 12, Downvotes: 3}, nil
			},
		}
		svc := NewVoteService(noopVoteRepo(), targets)
		counts, err := svc.GetCounts(ctx, "post", 5)
		require.NoError(t, err)
		assert.Equal(t, 12, counts.Upvotes)
		assert.Equal(t, 3, counts.Downvotes)
	})

	t.Run("missing target", func(t *testing.T) {
		t.Parallel()
		targets := &targetStoreStub{
			findCountsFn: func(_ context.Context, _ models.TargetType, _ uint) (*models.VoteCounts, error) {
				return nil, gorm.ErrRecordNotFound
			},
		}
		svc := NewVoteService(noopVoteRepo(), targets)
		_, err := svc.GetCounts(ctx, "comment", 5)
		assertErrorCode(t, err, models.CodeNotFound)
	})
}
