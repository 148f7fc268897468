package service

import (
	"context"

	"scrawl/internal/repository"
)

// Analytics is the aggregate view served to admins.
type Analytics struct {
	PostCount      int64                 `json:"postCount"`
	UserCount      int64                 `json:"userCount"`
	TotalUpvotes   int64                 `json:"totalUpvotes"`
	TotalDownvotes int64                 `json:"totalDownvotes"`
	AvgScore       int64                 `json:"avgScore"`
	TopTags        []repository.TagCount `json:"topTags"`
}

// AnalyticsService aggregates platform-wide counts for the admin dashboard.
type AnalyticsService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	voteRepo repository.VoteRepository
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	voteRepo repository.VoteRepository,
) *AnalyticsService {
	return &AnalyticsService{postRepo: postRepo, userRepo: userRepo, voteRepo: voteRepo}
}

const topTagsLimit = 10

// Snapshot gathers the current aggregate numbers. Counts come straight from
// the store; no caching, admins want live data.
func (s *AnalyticsService) Snapshot(ctx context.Context) (*Analytics, error) {
	postCount, err := s.postRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	userCount, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	upvotes, downvotes, err := s.voteRepo.TotalsByType(ctx)
	if err != nil {
		return nil, err
	}
	topTags, err := s.postRepo.TopTags(ctx, topTagsLimit)
	if err != nil {
		return nil, err
	}

	var avgScore int64
	if postCount > 0 {
		avgScore = (upvotes - downvotes) / postCount
	}

	return &Analytics{
		PostCount:      postCount,
		UserCount:      userCount,
		TotalUpvotes:   upvotes,
		TotalDownvotes: downvotes,
		AvgScore:       avgScore,
		TopTags:        topTags,
	}, nil
}
