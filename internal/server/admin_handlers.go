package server

import (
	"scrawl/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetAnalytics handles GET /api/admin/analytics
func (s *Server) GetAnalytics(c *fiber.Ctx) error {
	snapshot, err := s.analyticsService.Snapshot(c.Context())
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"analytics": snapshot,
	})
}
