// Package wods owns workout records: persisting validated analyses (with
// degraded-but-successful fallbacks), completion results and post-workout
// feedback. Every read and write is scoped by the owning account.
package wods

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/illegalcall/wodsense/internal/models"
)

// EphemeralPrefix marks workout ids that exist only in the Redis stash,
// never in the datastore.
const EphemeralPrefix = "temp-"

// IsEphemeral reports whether id names a non-durable workout.
func IsEphemeral(id string) bool {
	return strings.HasPrefix(id, EphemeralPrefix)
}

// Store is the workout record repository.
type Store struct {
	db           *sqlx.DB
	redis        *redis.Client
	uploader     ImageUploader
	ephemeralTTL time.Duration
}

func NewStore(db *sqlx.DB, rdb *redis.Client, uploader ImageUploader, ephemeralTTL time.Duration) *Store {
	return &Store{db: db, redis: rdb, uploader: uploader, ephemeralTTL: ephemeralTTL}
}

const wodColumns = `id, account_id, image_url, original_text, analysis, result_type,
	result_value, feeling, athlete_notes, post_wod_feedback, created_at, completed_at`

// List returns the account's workouts, newest first.
func (s *Store) List(ctx context.Context, accountID string, limit int) ([]models.Wod, error) {
	if limit <= 0 {
		limit = 50
	}
	var wods []models.Wod
	err := s.db.SelectContext(ctx, &wods,
		`SELECT `+wodColumns+` FROM wods WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`,
		accountID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workouts: %w", err)
	}
	return wods, nil
}

// Get fetches one workout scoped to the owning account. Ephemeral ids are
// resolved from the Redis stash.
func (s *Store) Get(ctx context.Context, accountID, id string) (models.Wod, error) {
	if IsEphemeral(id) {
		return s.getEphemeral(ctx, accountID, id)
	}

	var wod models.Wod
	err := s.db.GetContext(ctx, &wod,
		`SELECT `+wodColumns+` FROM wods WHERE id = $1 AND account_id = $2`,
		id, accountID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Wod{}, models.ErrWodNotFound
		}
		return models.Wod{}, fmt.Errorf("failed to fetch workout: %w", err)
	}
	return wod, nil
}

// SaveResult records the completion fields. Re-submission overwrites the
// previous result; completed_at is stamped on every submission.
func (s *Store) SaveResult(ctx context.Context, accountID, id string, result models.WodResult) error {
	if !models.ValidResultType(result.ResultType) {
		return fmt.Errorf("invalid result type %q", result.ResultType)
	}
	if result.Feeling < 1 || result.Feeling > 4 {
		return fmt.Errorf("feeling must be between 1 and 4, got %d", result.Feeling)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE wods
		SET result_type = $1, result_value = $2, feeling = $3,
		    athlete_notes = NULLIF($4, ''), completed_at = NOW()
		WHERE id = $5 AND account_id = $6`,
		result.ResultType, result.ResultValue, result.Feeling, result.AthleteNotes, id, accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to save workout result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrWodNotFound
	}
	return nil
}

// AttachFeedback sets the post-workout feedback text. The update is scoped
// by (id, account) so a cross-account attempt is indistinguishable from a
// missing record at the storage layer; the caller surfaces it as
// ErrNotAuthorized after an ownership probe.
func (s *Store) AttachFeedback(ctx context.Context, accountID, id, feedbackText string) error {
	if strings.TrimSpace(feedbackText) == "" {
		return fmt.Errorf("feedback text must not be empty")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE wods SET post_wod_feedback = $1 WHERE id = $2 AND account_id = $3`,
		feedbackText, id, accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to attach feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish "not yours" from "does not exist".
		var owner string
		err := s.db.GetContext(ctx, &owner, `SELECT account_id FROM wods WHERE id = $1`, id)
		if err == nil && owner != accountID {
			return models.ErrNotAuthorized
		}
		return models.ErrWodNotFound
	}
	return nil
}

// Delete removes a workout owned by the account.
func (s *Store) Delete(ctx context.Context, accountID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM wods WHERE id = $1 AND account_id = $2`, id, accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete workout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrWodNotFound
	}
	return nil
}

// ephemeralKey namespaces the Redis stash per account so a foreign account
// can never resolve someone else's ephemeral result.
func ephemeralKey(accountID, id string) string {
	return fmt.Sprintf("wod:ephemeral:%s:%s", accountID, id)
}

type ephemeralRecord struct {
	AccountID    string                 `json:"account_id"`
	ImageURL     string                 `json:"image_url,omitempty"`
	OriginalText string                 `json:"original_text,omitempty"`
	Analysis     models.AnalysisPayload `json:"analysis"`
	CreatedAt    time.Time              `json:"created_at"`
}

func (s *Store) getEphemeral(ctx context.Context, accountID, id string) (models.Wod, error) {
	raw, err := s.redis.Get(ctx, ephemeralKey(accountID, id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Wod{}, models.ErrWodNotFound
		}
		return models.Wod{}, fmt.Errorf("failed to read ephemeral workout: %w", err)
	}

	var rec ephemeralRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return models.Wod{}, fmt.Errorf("failed to decode ephemeral workout: %w", err)
	}

	wod := models.Wod{
		ID:        id,
		AccountID: accountID,
		Analysis:  models.NullAnalysis{Analysis: rec.Analysis, Valid: true},
		CreatedAt: rec.CreatedAt,
	}
	if rec.ImageURL != "" {
		wod.ImageURL = sql.NullString{String: rec.ImageURL, Valid: true}
	}
	if rec.OriginalText != "" {
		wod.OriginalText = sql.NullString{String: rec.OriginalText, Valid: true}
	}
	return wod, nil
}
