package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/illegalcall/wodsense/internal/feedback"
	"github.com/illegalcall/wodsense/internal/models"
	"github.com/illegalcall/wodsense/internal/wods"
)

// wodResponse is the JSON shape for one workout record.
type wodResponse struct {
	ID           string                  `json:"id"`
	Ephemeral    bool                    `json:"ephemeral"`
	ImageURL     string                  `json:"image_url,omitempty"`
	OriginalText string                  `json:"original_text,omitempty"`
	Analysis     *models.AnalysisPayload `json:"analysis,omitempty"`
	ResultType   string                  `json:"result_type,omitempty"`
	ResultValue  string                  `json:"result_value,omitempty"`
	Feeling      int                     `json:"feeling,omitempty"`
	AthleteNotes string                  `json:"athlete_notes,omitempty"`
	Feedback     string                  `json:"post_wod_feedback,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	CompletedAt  *time.Time              `json:"completed_at,omitempty"`
}

func toWodResponse(w models.Wod) wodResponse {
	resp := wodResponse{
		ID:           w.ID,
		Ephemeral:    wods.IsEphemeral(w.ID),
		ImageURL:     w.ImageURL.String,
		OriginalText: w.OriginalText.String,
		ResultType:   w.ResultType.String,
		ResultValue:  w.ResultValue.String,
		Feeling:      int(w.Feeling.Int64),
		AthleteNotes: w.AthleteNotes.String,
		Feedback:     w.Feedback.String,
		CreatedAt:    w.CreatedAt,
	}
	if w.Analysis.Valid {
		payload := w.Analysis.Analysis
		resp.Analysis = &payload
	}
	if w.CompletedAt.Valid {
		t := w.CompletedAt.Time
		resp.CompletedAt = &t
	}
	return resp
}

func (s *Server) handleListWods(c *fiber.Ctx) error {
	account := accountID(c)
	if account == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	limit := c.QueryInt("limit", 50)
	list, err := s.store.List(c.Context(), account, limit)
	if err != nil {
		s.logger.Error("Error listing workouts", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch workouts"})
	}

	out := make([]wodResponse, 0, len(list))
	for _, w := range list {
		out = append(out, toWodResponse(w))
	}
	return c.JSON(fiber.Map{"wods": out})
}

func (s *Server) handleGetWod(c *fiber.Ctx) error {
	account := accountID(c)
	if account == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	wod, err := s.store.Get(c.Context(), account, c.Params("id"))
	if err != nil {
		if errors.Is(err, models.ErrWodNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Workout not found"})
		}
		s.logger.Error("Error fetching workout", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch workout"})
	}
	return c.JSON(fiber.Map{"wod": toWodResponse(wod)})
}

func (s *Server) handleDeleteWod(c *fiber.Ctx) error {
	account := accountID(c)
	if account == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	if err := s.store.Delete(c.Context(), account, c.Params("id")); err != nil {
		if errors.Is(err, models.ErrWodNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Workout not found"})
		}
		s.logger.Error("Error deleting workout", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete workout"})
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleSaveResult(c *fiber.Ctx) error {
	account := accountID(c)
	if account == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	var result models.WodResult
	if err := c.BodyParser(&result); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	err := s.store.SaveResult(c.Context(), account, c.Params("id"), result)
	if err != nil {
		if errors.Is(err, models.ErrWodNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Workout not found"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleGenerateFeedback(c *fiber.Ctx) error {
	account := accountID(c)
	if account == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	id := c.Params("id")
	wod, err := s.store.Get(c.Context(), account, id)
	if err != nil {
		if errors.Is(err, models.ErrWodNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Workout not found"})
		}
		s.logger.Error("Error fetching workout for feedback", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch workout"})
	}
	if !wod.ResultType.Valid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Record a result before requesting feedback"})
	}

	summary := wod.OriginalText.String
	if wod.Analysis.Valid && wod.Analysis.Analysis.WorkoutSummary != "" {
		summary = wod.Analysis.Analysis.WorkoutSummary
	}

	text, err := s.feedback.Generate(c.Context(), account, id, feedback.Request{
		Summary:      summary,
		ResultType:   models.ResultType(wod.ResultType.String),
		ResultValue:  wod.ResultValue.String,
		Feeling:      int(wod.Feeling.Int64),
		AthleteNotes: wod.AthleteNotes.String,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotAuthorized):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not authorized"})
		case errors.Is(err, models.ErrFeedbackUnavailable):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "feedback unavailable, try again"})
		default:
			s.logger.Error("Error generating feedback", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate feedback"})
		}
	}

	return c.JSON(fiber.Map{"feedback": text})
}
