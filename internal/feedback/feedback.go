// Package feedback scores a completed workout and produces a short
// motivational note via a cheaper model invocation, then persists it onto
// the owning workout record.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/illegalcall/wodsense/internal/analysis"
	"github.com/illegalcall/wodsense/internal/models"
	"github.com/illegalcall/wodsense/internal/wods"
)

// maxFeedbackRunes bounds the persisted note.
const maxFeedbackRunes = 600

// Request carries the completion data the note is based on.
type Request struct {
	Summary      string
	ResultType   models.ResultType
	ResultValue  string
	Feeling      int
	AthleteNotes string
}

// Generator produces and persists post-workout feedback.
type Generator struct {
	client  analysis.GeminiClient
	store   *wods.Store
	model   string
	timeout time.Duration
}

func NewGenerator(client analysis.GeminiClient, store *wods.Store, model string, timeout time.Duration) *Generator {
	return &Generator{client: client, store: store, model: model, timeout: timeout}
}

// Generate creates the feedback text and attaches it to the workout.
// Provider failure yields ErrFeedbackUnavailable and leaves the record
// untouched; a cross-account workout id yields ErrNotAuthorized.
func (g *Generator) Generate(ctx context.Context, accountID, workoutID string, req Request) (string, error) {
	if accountID == "" {
		return "", models.ErrNotAuthenticated
	}
	if req.Feeling < 1 || req.Feeling > 4 {
		return "", fmt.Errorf("feeling must be between 1 and 4, got %d", req.Feeling)
	}

	// Ownership check up front so no model call is wasted on a workout the
	// caller cannot write to.
	if _, err := g.store.Get(ctx, accountID, workoutID); err != nil {
		if errors.Is(err, models.ErrWodNotFound) {
			return "", models.ErrNotAuthorized
		}
		return "", err
	}

	ctx2, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.client.GenerateContent(ctx2, g.model, []analysis.GeminiPart{
		{Text: buildPrompt(req)},
	})
	if err != nil {
		slog.Warn("Feedback generation failed", "workout_id", workoutID, "error", err)
		return "", fmt.Errorf("%w: %v", models.ErrFeedbackUnavailable, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.ErrFeedbackUnavailable
	}
	if runes := []rune(text); len(runes) > maxFeedbackRunes {
		text = string(runes[:maxFeedbackRunes])
	}

	if err := g.store.AttachFeedback(ctx, accountID, workoutID, text); err != nil {
		return "", err
	}
	return text, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are a supportive CrossFit coach. An athlete just logged a workout result.\n")
	b.WriteString("Write a short motivational note (3-5 sentences, plain text, second person).\n")
	b.WriteString("Acknowledge the result, comment on how it felt, and give one concrete tip for next time.\n\n")
	fmt.Fprintf(&b, "Workout: %s\n", req.Summary)
	fmt.Fprintf(&b, "Result: %s (%s)\n", req.ResultValue, req.ResultType)
	fmt.Fprintf(&b, "How it felt: %s\n", models.FeelingLabel(req.Feeling))
	if strings.TrimSpace(req.AthleteNotes) != "" {
		fmt.Fprintf(&b, "Athlete notes: %s\n", strings.TrimSpace(req.AthleteNotes))
	}
	return b.String()
}
