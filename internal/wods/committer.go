package wods

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/illegalcall/wodsense/internal/analysis"
	"github.com/illegalcall/wodsense/internal/models"
)

// Commit is the tagged outcome of persisting an analysis. Exactly one of
// the durable/ephemeral variants applies; Degraded reflects storage-layer
// partial failure only, never analysis failure.
type Commit struct {
	WorkoutID string `json:"workout_id"`
	Ephemeral bool   `json:"ephemeral"`
	Degraded  bool   `json:"degraded"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Commit persists the validated analysis. A model success is never lost to
// a storage failure: image-upload errors degrade to the caller-supplied
// reference, and a failed insert falls back to an ephemeral id whose
// payload is stashed in Redis so the caller can still render the result.
func (s *Store) Commit(ctx context.Context, accountID string, input analysis.Input, payload models.AnalysisPayload) (Commit, error) {
	if accountID == "" {
		return Commit{}, models.ErrNotAuthenticated
	}
	payload.Normalize()

	out := Commit{ImageURL: input.ImageURL}

	if len(input.ImageBytes) > 0 && s.uploader != nil {
		key := fmt.Sprintf("%s/%d-wod.jpg", accountID, time.Now().UnixMilli())
		url, err := s.uploader.Upload(ctx, key, input.ImageBytes, input.ImageMIME)
		if err != nil {
			slog.Warn("Image upload failed, committing without stored image",
				"account_id", accountID, "error", err)
			out.Degraded = true
		} else {
			out.ImageURL = url
		}
	}

	originalText := strings.TrimSpace(input.RawText)
	if originalText == "" {
		originalText = payload.WorkoutSummary
	}

	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO wods (account_id, image_url, original_text, analysis)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4)
		RETURNING id`,
		accountID, out.ImageURL, originalText, payload,
	).Scan(&id)
	if err != nil {
		slog.Error("Workout insert failed, returning ephemeral result",
			"account_id", accountID, "error", err)
		return s.commitEphemeral(ctx, accountID, originalText, out, payload), nil
	}

	out.WorkoutID = id
	return out, nil
}

func (s *Store) commitEphemeral(ctx context.Context, accountID, originalText string, out Commit, payload models.AnalysisPayload) Commit {
	out.WorkoutID = EphemeralPrefix + uuid.NewString()
	out.Ephemeral = true

	rec := ephemeralRecord{
		AccountID:    accountID,
		ImageURL:     out.ImageURL,
		OriginalText: originalText,
		Analysis:     payload,
		CreatedAt:    time.Now().UTC(),
	}
	raw, err := json.Marshal(rec)
	if err == nil {
		err = s.redis.Set(ctx, ephemeralKey(accountID, out.WorkoutID), raw, s.ephemeralTTL).Err()
	}
	if err != nil {
		// The caller still gets the full payload in-memory; the stash only
		// enables a later re-read.
		slog.Warn("Failed to stash ephemeral workout", "workout_id", out.WorkoutID, "error", err)
	}
	return out
}
