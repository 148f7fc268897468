package server

import (
	"scrawl/internal/models"
	"scrawl/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/comments/:postId
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, ok := parseID(c, "postId")
	if !ok {
		return nil
	}

	comments, err := s.commentService.ListComments(c.Context(), postID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"comments": comments,
	})
}

// CreateComment handles POST /api/comments/:postId
func (s *Server) CreateComment(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}

	postID, ok := parseID(c, "postId")
	if !ok {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.CreateComment(c.Context(), service.CreateCommentInput{
		UserID:  userID,
		PostID:  postID,
		Content: req.Content,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"comment": comment,
	})
}

// UpdateComment handles PUT /api/comments/comment/:commentId
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}

	commentID, ok := parseID(c, "commentId")
	if !ok {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.UpdateComment(c.Context(), service.UpdateCommentInput{
		UserID:    userID,
		CommentID: commentID,
		Content:   req.Content,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"comment": comment,
	})
}

// DeleteComment handles DELETE /api/comments/comment/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}

	commentID, ok := parseID(c, "commentId")
	if !ok {
		return nil
	}

	if err := s.commentService.DeleteComment(c.Context(), service.DeleteCommentInput{
		UserID:    userID,
		CommentID: commentID,
	}); err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Comment deleted",
	})
}
