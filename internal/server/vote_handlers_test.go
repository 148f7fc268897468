package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"scrawl/internal/models"
	"scrawl/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// MockVoteRepository is a mock of the VoteRepository interface
type MockVoteRepository struct {
	mock.Mock
}

func (m *MockVoteRepository) Find(ctx context.Context, userID, targetID uint, targetType models.TargetType) (*models.Vote, error) {
	args := m.Called(ctx, userID, targetID, targetType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vote), args.Error(1)
}

func (m *MockVoteRepository) CreateWithCounters(ctx context.Context, vote *models.Vote) (*models.VoteCounts, error) {
	args := m.Called(ctx, vote)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VoteCounts), args.Error(1)
}

func (m *MockVoteRepository) SwitchWithCounters(ctx context.Context, vote *models.Vote, newType models.VoteType) (*models.VoteCounts, error) {
	args := m.Called(ctx, vote, newType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VoteCounts), args.Error(1)
}

func (m *MockVoteRepository) RemoveWithCounters(ctx context.Context, vote *models.Vote) (*models.VoteCounts, error) {
	args := m.Called(ctx, vote)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VoteCounts), args.Error(1)
}

func (m *MockVoteRepository) CountByTargetAndType(ctx context.Context, targetID uint, targetType models.TargetType, voteType models.VoteType) (int64, error) {
	args := m.Called(ctx, targetID, targetType, voteType)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVoteRepository) TotalsByType(ctx context.Context) (int64, int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockVoteRepository) DeleteByTarget(ctx context.Context, targetID uint, targetType models.TargetType) error {
	args := m.Called(ctx, targetID, targetType)
	return args.Error(0)
}

// MockTargetStore is a mock of the TargetStore interface
type MockTargetStore struct {
	mock.Mock
}

func (m *MockTargetStore) FindCounts(ctx context.Context, targetType models.TargetType, id uint) (*models.VoteCounts, error) {
	args := m.Called(ctx, targetType, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VoteCounts), args.Error(1)
}

func fakeAuth(userID uint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("userID", userID)
		return c.Next()
	}
}

func newVoteTestApp(votes *MockVoteRepository, targets *MockTargetStore, authed bool) *fiber.App {
	s := &Server{voteService: service.NewVoteService(votes, targets)}

	app := fiber.New()
	if authed {
		app.Use(fakeAuth(1))
	}
	app.Post("/votes/:targetType/:targetId/:voteType", s.CastVote)
	app.Get("/votes/:targetType/:targetId/user-vote", s.GetUserVote)
	app.Get("/votes/:targetType/:targetId/counts", s.GetVoteCounts)
	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestCastVote_Create(t *testing.T) {
	votes := new(MockVoteRepository)
	targets := new(MockTargetStore)
	targets.On("FindCounts", mock.Anything, models.TargetPost, uint(3)).Return(&models.VoteCounts{}, nil)
	votes.On("Find", mock.Anything, uint(1), uint(3), models.TargetPost).Return(nil, nil)
	votes.On("CreateWithCounters", mock.Anything, mock.Anything).Return(&models.VoteCounts{Upvotes: 5, Downvotes: 2}, nil)

	app := newVoteTestApp(votes, targets, true)
	req := httptest.NewRequest(http.MethodPost, "/votes/post/3/upvote", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "upvote", body["voteType"])
	assert.Equal(t, float64(5), body["upvotes"])
	assert.Equal(t, float64(2), body["downvotes"])
	assert.NotContains(t, body, "voteRemoved")
	votes.AssertExpectations(t)
}

func TestCastVote_ToggleOff(t *testing.T) {
	votes := new(MockVoteRepository)
	targets := new(MockTargetStore)
	targets.On("FindCounts", mock.Anything, models.TargetComment, uint(3)).Return(&models.VoteCounts{}, nil)
	votes.On("Find", mock.Anything, uint(1), uint(3), models.TargetComment).
		Return(&models.Vote{ID: 9, VoteType: models.VoteDown}, nil)
	votes.On("RemoveWithCounters", mock.Anything, mock.Anything).Return(&models.VoteCounts{Upvotes: 1}, nil)

	app := newVoteTestApp(votes, targets, true)
	// The legacy capitalized form still routes.
	req := httptest.NewRequest(http.MethodPost, "/votes/Comment/3/downvote", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["voteRemoved"])
	assert.NotContains(t, body, "voteType")
	assert.Equal(t, float64(1), body["upvotes"])
	assert.Equal(t, float64(0), body["downvotes"])
}

func TestCastVote_InvalidVoteType(t *testing.T) {
	app := newVoteTestApp(new(MockVoteRepository), new(MockTargetStore), true)
	req := httptest.NewRequest(http.MethodPost, "/votes/post/3/sideways", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, models.CodeValidation, body["code"])
}

func TestCastVote_InvalidTargetID(t *testing.T) {
	app := newVoteTestApp(new(MockVoteRepository), new(MockTargetStore), true)
	req := httptest.NewRequest(http.MethodPost, "/votes/post/abc/upvote", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCastVote_TargetNotFound(t *testing.T) {
	votes := new(MockVoteRepository)
	targets := new(MockTargetStore)
	targets.On("FindCounts", mock.Anything, models.TargetPost, uint(99)).Return(nil, gorm.ErrRecordNotFound)

	app := newVoteTestApp(votes, targets, true)
	req := httptest.NewRequest(http.MethodPost, "/votes/post/99/upvote", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCastVote_Unauthenticated(t *testing.T) {
	app := newVoteTestApp(new(MockVoteRepository), new(MockTargetStore), false)
	req := httptest.NewRequest(http.MethodPost, "/votes/post/3/upvote", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCastVote_ExhaustedConflictsMapTo500(t *testing.T) {
	votes := new(MockVoteRepository)
	targets := new(MockTargetStore)
	targets.On("FindCounts", mock.Anything, models.TargetPost, uint(3)).Return(&models.VoteCounts{}, nil)
	votes.On("Find", mock.Anything, uint(1), uint(3), models.TargetPost).Return(nil, nil)
	votes.On("CreateWithCounters", mock.Anything, mock.Anything).Return(nil, models.ErrVoteConflict)

	app := newVoteTestApp(votes, targets, true)
	req := httptest.NewRequest(http.MethodPost, "/votes/post/3/upvote", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, models.CodeTransient, body["code"])
}

func TestGetUserVote(t *testing.T) {
	t.Run("no vote", func(t *testing.T) {
		votes := new(MockVoteRepository)
		votes.On("Find", mock.Anything, uint(1), uint(3), models.TargetPost).Return(nil, nil)

		app := newVoteTestApp(votes, new(MockTargetStore), true)
		req := httptest.NewRequest(http.MethodGet, "/votes/post/3/user-vote", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["success"])
		assert.Nil(t, body["userVote"])
	})

	t.Run("existing vote", func(t *testing.T) {
		votes := new(MockVoteRepository)
		votes.On("Find", mock.Anything, uint(1), uint(3), models.TargetPost).
			Return(&models.Vote{VoteType: models.VoteDown}, nil)

		app := newVoteTestApp(votes, new(MockTargetStore), true)
		req := httptest.NewRequest(http.MethodGet, "/votes/post/3/user-vote", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		body := decodeBody(t, resp)
		assert.Equal(t, "downvote", body["userVote"])
	})
}

func TestGetVoteCounts(t *testing.T) {
	t.Run("public read", func(t *testing.T) {
		targets := new(MockTargetStore)
		targets.On("FindCounts", mock.Anything, models.TargetPost, uint(3)).
			Return(&models.VoteCounts{Upvotes: 12, Downvotes: 4}, nil)

		// No auth middleware: counts are readable anonymously.
		app := newVoteTestApp(new(MockVoteRepository), targets, false)
		req := httptest.NewRequest(http.MethodGet, "/votes/post/3/counts", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, float64(12), body["upvotes"])
		assert.Equal(t, float64(4), body["downvotes"])
	})

	t.Run("missing target", func(t *testing.T) {
		targets := new(MockTargetStore)
		targets.On("FindCounts", mock.Anything, models.TargetComment, uint(9)).
			Return(nil, gorm.ErrRecordNotFound)

		app := newVoteTestApp(new(MockVoteRepository), targets, false)
		req := httptest.NewRequest(http.MethodGet, "/votes/comment/9/counts", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
