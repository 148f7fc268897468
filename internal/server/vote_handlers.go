package server

import (
	"scrawl/internal/models"
	"scrawl/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CastVote applies a vote to a post or comment. Repeating the same vote
// removes it; casting the opposite vote switches it.
func (s *Server) CastVote(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}

	targetID, ok := parseID(c, "targetId")
	if !ok {
		return nil
	}

	result, err := s.voteService.CastVote(c.Context(), service.CastVoteInput{
		UserID:     userID,
		TargetType: c.Params("targetType"),
		TargetID:   targetID,
		VoteType:   c.Params("voteType"),
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	resp := fiber.Map{
		"success":   true,
		"upvotes":   result.Upvotes,
		"downvotes": result.Downvotes,
	}
	if result.Removed {
		resp["message"] = "Vote removed"
		resp["voteRemoved"] = true
	} else {
		resp["message"] = "Vote recorded"
		resp["voteType"] = result.VoteType
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// GetUserVote returns the requesting user's current vote on a target, or
// null when they have not voted.
func (s *Server) GetUserVote(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}

	targetID, ok := parseID(c, "targetId")
	if !ok {
		return nil
	}

	voteType, err := s.voteService.GetUserVote(c.Context(), userID, c.Params("targetType"), targetID)
	if err != nil {
		return models.RespondError(c, err)
	}

	var userVote interface{}
	if voteType != "" {
		userVote = voteType
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":  true,
		"userVote": userVote,
	})
}

// GetVoteCounts returns the vote totals for a target. Public.
func (s *Server) GetVoteCounts(c *fiber.Ctx) error {
	targetID, ok := parseID(c, "targetId")
	if !ok {
		return nil
	}

	counts, err := s.voteService.GetCounts(c.Context(), c.Params("targetType"), targetID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":   true,
		"upvotes":   counts.Upvotes,
		"downvotes": counts.Downvotes,
	})
}
