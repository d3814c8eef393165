package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// handleGetCredits reports the entitlement status plus best-effort
// lifetime stats maintained by the events worker.
func (s *Server) handleGetCredits(c *fiber.Ctx) error {
	account := accountID(c)
	if account == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	status, err := s.ledger.Check(c.Context(), account)
	if err != nil {
		s.logger.Error("Error checking entitlement", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check credits"})
	}

	resp := fiber.Map{
		"remaining":   status.Remaining,
		"tier":        status.Tier,
		"can_analyze": status.CanProceed,
	}

	statsKey := fmt.Sprintf("stats:analyses:%s", account)
	if lifetime, err := s.db.Redis.Get(c.Context(), statsKey).Int64(); err == nil {
		resp["lifetime_analyses"] = lifetime
	}

	return c.JSON(resp)
}
