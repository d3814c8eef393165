package api

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/illegalcall/wodsense/internal/models"
)

type profileResponse struct {
	ID              string       `json:"id"`
	FullName        string       `json:"full_name,omitempty"`
	Age             int          `json:"age,omitempty"`
	Sex             string       `json:"sex,omitempty"`
	HeightCM        float64      `json:"height_cm,omitempty"`
	ExperienceYears float64      `json:"experience_years,omitempty"`
	PRs             models.PRMap `json:"prs"`
	Injuries        string       `json:"injuries,omitempty"`
}

func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	account := accountID(c)
	if account == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	profile, err := s.assembler.GetProfile(c.Context(), account)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		s.logger.Error("Error fetching profile", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}

	return c.JSON(fiber.Map{"profile": profileResponse{
		ID:              profile.ID,
		FullName:        profile.FullName.String,
		Age:             int(profile.Age.Int64),
		Sex:             profile.Sex.String,
		HeightCM:        profile.HeightCM.Float64,
		ExperienceYears: profile.ExperienceYears.Float64,
		PRs:             profile.PRs,
		Injuries:        profile.Injuries.String,
	}})
}

func (s *Server) handleUpsertProfile(c *fiber.Ctx) error {
	account := accountID(c)
	if account == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	var upd models.ProfileUpdate
	if err := c.BodyParser(&upd); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.assembler.UpsertProfile(c.Context(), account, upd); err != nil {
		s.logger.Error("Error upserting profile", "error", err, "account_id", account)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save profile"})
	}

	return c.JSON(fiber.Map{"success": true})
}
