// Package athlete assembles the personalization context injected into the
// model instruction: the athlete profile plus a bounded rendering of recent
// completed workouts.
package athlete

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/illegalcall/wodsense/internal/models"
)

// Named defaults applied when no profile row exists yet. A genuine fetch
// error is never defaulted away; it propagates to the caller.
const (
	DefaultAthleteName = "Athlete"
	NoInjuries         = "none reported"
)

// NoHistorySentinel is used instead of an empty history section so the
// prompt always carries an explicit history statement.
const NoHistorySentinel = "No completed workouts recorded yet."

const (
	historyLimit   = 10
	summaryMaxRune = 60
)

// Context is the assembled input for one analysis.
type Context struct {
	Name            string
	Age             int     // 0 = unknown
	Sex             string  // "" = unknown
	HeightCM        float64 // 0 = unknown
	ExperienceYears float64 // 0 = unknown
	PRs             models.PRMap
	Injuries        string
	HistoryText     string
}

// Assembler reads profile and workout history. Both reads are row-scoped
// by account id.
type Assembler struct {
	db *sqlx.DB
}

func NewAssembler(db *sqlx.DB) *Assembler {
	return &Assembler{db: db}
}

// Assemble gathers the athlete context. A missing profile row yields the
// named defaults; any other datastore error is fatal for the request.
func (a *Assembler) Assemble(ctx context.Context, accountID string) (Context, error) {
	if accountID == "" {
		return Context{}, models.ErrNotAuthenticated
	}

	out := Context{
		Name:     DefaultAthleteName,
		PRs:      models.PRMap{},
		Injuries: NoInjuries,
	}

	var profile models.Profile
	err := a.db.GetContext(ctx, &profile,
		`SELECT id, full_name, age, sex, height_cm, experience_years, prs, injuries, created_at
		 FROM profiles WHERE id = $1`,
		accountID,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// New athlete; defaults stand.
	case err != nil:
		return Context{}, fmt.Errorf("failed to fetch profile: %w", err)
	default:
		if profile.FullName.Valid && strings.TrimSpace(profile.FullName.String) != "" {
			out.Name = strings.TrimSpace(profile.FullName.String)
		}
		if profile.Age.Valid {
			out.Age = int(profile.Age.Int64)
		}
		if profile.Sex.Valid {
			out.Sex = profile.Sex.String
		}
		if profile.HeightCM.Valid {
			out.HeightCM = profile.HeightCM.Float64
		}
		if profile.ExperienceYears.Valid {
			out.ExperienceYears = profile.ExperienceYears.Float64
		}
		if profile.PRs != nil {
			out.PRs = profile.PRs
		}
		if profile.Injuries.Valid && strings.TrimSpace(profile.Injuries.String) != "" {
			out.Injuries = strings.TrimSpace(profile.Injuries.String)
		}
	}

	history, err := a.fetchHistory(ctx, accountID)
	if err != nil {
		return Context{}, err
	}
	out.HistoryText = RenderHistory(history)

	return out, nil
}

func (a *Assembler) fetchHistory(ctx context.Context, accountID string) ([]models.Wod, error) {
	var wods []models.Wod
	err := a.db.SelectContext(ctx, &wods, `
		SELECT id, account_id, image_url, original_text, analysis, result_type,
		       result_value, feeling, athlete_notes, post_wod_feedback, created_at, completed_at
		FROM wods
		WHERE account_id = $1 AND completed_at IS NOT NULL
		ORDER BY completed_at DESC
		LIMIT $2`,
		accountID, historyLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workout history: %w", err)
	}
	return wods, nil
}

// RenderHistory turns completed workouts (newest first) into the fixed
// per-line summary format. Zero records yields NoHistorySentinel.
func RenderHistory(wods []models.Wod) string {
	if len(wods) == 0 {
		return NoHistorySentinel
	}

	var b strings.Builder
	for _, w := range wods {
		b.WriteString("- ")
		b.WriteString(truncate(workoutText(w), summaryMaxRune))
		b.WriteString(" | ")
		if w.ResultValue.Valid && w.ResultValue.String != "" {
			b.WriteString(w.ResultValue.String)
		} else {
			b.WriteString("done")
		}
		if w.ResultType.Valid && w.ResultType.String != "" {
			b.WriteString(" (" + w.ResultType.String + ")")
		}
		b.WriteString(" | felt ")
		b.WriteString(models.FeelingLabel(int(w.Feeling.Int64)))
		if w.AthleteNotes.Valid && strings.TrimSpace(w.AthleteNotes.String) != "" {
			b.WriteString(" | note: ")
			b.WriteString(strings.TrimSpace(w.AthleteNotes.String))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func workoutText(w models.Wod) string {
	if w.Analysis.Valid && w.Analysis.Analysis.WorkoutSummary != "" {
		return w.Analysis.Analysis.WorkoutSummary
	}
	if w.OriginalText.Valid && strings.TrimSpace(w.OriginalText.String) != "" {
		return strings.TrimSpace(w.OriginalText.String)
	}
	return "(untitled workout)"
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
