package athlete

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/illegalcall/wodsense/internal/models"
)

// GetProfile fetches the raw profile row. Returns sql.ErrNoRows untouched
// so callers can distinguish "new athlete" from a datastore failure.
func (a *Assembler) GetProfile(ctx context.Context, accountID string) (models.Profile, error) {
	var profile models.Profile
	err := a.db.GetContext(ctx, &profile,
		`SELECT id, full_name, age, sex, height_cm, experience_years, prs, injuries, created_at
		 FROM profiles WHERE id = $1`,
		accountID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Profile{}, err
		}
		return models.Profile{}, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return profile, nil
}

// UpsertProfile creates or updates the athlete profile.
func (a *Assembler) UpsertProfile(ctx context.Context, accountID string, upd models.ProfileUpdate) error {
	prs := upd.PRs
	if prs == nil {
		prs = models.PRMap{}
	}
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO profiles (id, full_name, age, sex, height_cm, experience_years, prs, injuries)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, 0), NULLIF($4, ''), NULLIF($5, 0.0), NULLIF($6, 0.0), $7, NULLIF($8, ''))
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			age = EXCLUDED.age,
			sex = EXCLUDED.sex,
			height_cm = EXCLUDED.height_cm,
			experience_years = EXCLUDED.experience_years,
			prs = EXCLUDED.prs,
			injuries = EXCLUDED.injuries`,
		accountID, upd.FullName, upd.Age, upd.Sex, upd.HeightCM, upd.ExperienceYears, prs, upd.Injuries,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// UpdatePRs replaces only the personal-records map.
func (a *Assembler) UpdatePRs(ctx context.Context, accountID string, prs models.PRMap) error {
	if prs == nil {
		prs = models.PRMap{}
	}
	res, err := a.db.ExecContext(ctx,
		`UPDATE profiles SET prs = $1 WHERE id = $2`, prs, accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to update PRs: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
