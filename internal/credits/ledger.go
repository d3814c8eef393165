// Package credits is the entitlement ledger: it tracks remaining free
// analyses and subscription tier per account, and is the only mutation
// surface for the free-use counter.
package credits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/illegalcall/wodsense/internal/models"
)

// Ledger exposes atomic check/consume operations backed by Postgres.
type Ledger struct {
	db      *sqlx.DB
	starter int
}

func NewLedger(db *sqlx.DB, starter int) *Ledger {
	return &Ledger{db: db, starter: starter}
}

// Receipt reports the outcome of a consume operation. Remaining is
// models.UnlimitedRemaining for subscriber accounts.
type Receipt struct {
	Remaining int `json:"remaining"`
}

// Check reports whether the account may run an analysis. If no ledger row
// exists one is created with the starter allowance; the insert is
// idempotent so concurrent first requests are safe.
func (l *Ledger) Check(ctx context.Context, accountID string) (models.EntitlementStatus, error) {
	if accountID == "" {
		return models.EntitlementStatus{}, models.ErrNotAuthenticated
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO entitlements (account_id, credits, tier)
		VALUES ($1, $2, 'free')
		ON CONFLICT (account_id) DO NOTHING`,
		accountID, l.starter,
	)
	if err != nil {
		return models.EntitlementStatus{}, fmt.Errorf("failed to ensure entitlement row: %w", err)
	}

	var ent models.Entitlement
	err = l.db.GetContext(ctx, &ent,
		`SELECT account_id, credits, tier, updated_at FROM entitlements WHERE account_id = $1`,
		accountID,
	)
	if err != nil {
		return models.EntitlementStatus{}, fmt.Errorf("failed to read entitlement: %w", err)
	}

	status := models.EntitlementStatus{
		Remaining:  ent.Credits,
		Tier:       ent.Tier,
		CanProceed: ent.Tier == models.TierSubscriber || ent.Credits > 0,
	}
	if ent.Tier == models.TierSubscriber {
		status.Remaining = models.UnlimitedRemaining
	}
	return status, nil
}

// Consume spends one analysis credit. Subscribers always succeed and never
// decrement. Free accounts decrement through a single conditional update so
// two racing requests cannot both spend the last credit.
func (l *Ledger) Consume(ctx context.Context, accountID string) (Receipt, error) {
	if accountID == "" {
		return Receipt{}, models.ErrNotAuthenticated
	}

	var tier models.Tier
	err := l.db.GetContext(ctx, &tier,
		`SELECT tier FROM entitlements WHERE account_id = $1`, accountID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Receipt{}, models.ErrNoCredits
		}
		return Receipt{}, fmt.Errorf("failed to read entitlement tier: %w", err)
	}

	if tier == models.TierSubscriber {
		return Receipt{Remaining: models.UnlimitedRemaining}, nil
	}

	var remaining int
	err = l.db.GetContext(ctx, &remaining, `
		UPDATE entitlements
		SET credits = credits - 1, updated_at = NOW()
		WHERE account_id = $1 AND credits > 0
		RETURNING credits`,
		accountID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race or already empty; the counter is untouched.
			return Receipt{}, models.ErrNoCredits
		}
		return Receipt{}, fmt.Errorf("failed to consume credit: %w", err)
	}

	slog.Info("Analysis credit consumed", "account_id", accountID, "remaining", remaining)
	return Receipt{Remaining: remaining}, nil
}

// Grant adds n credits to the account, creating the row if needed.
func (l *Ledger) Grant(ctx context.Context, accountID string, n int) error {
	if n <= 0 {
		return fmt.Errorf("grant amount must be positive, got %d", n)
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO entitlements (account_id, credits, tier)
		VALUES ($1, $2, 'free')
		ON CONFLICT (account_id)
		DO UPDATE SET credits = entitlements.credits + $2, updated_at = NOW()`,
		accountID, n,
	)
	if err != nil {
		return fmt.Errorf("failed to grant credits: %w", err)
	}
	return nil
}

// SetTier flips the subscription tier. Called by the billing event handler
// on confirmed provider state; never called from the analysis pipeline.
func (l *Ledger) SetTier(ctx context.Context, accountID string, tier models.Tier) error {
	if tier != models.TierFree && tier != models.TierSubscriber {
		return fmt.Errorf("unknown tier %q", tier)
	}
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO entitlements (account_id, credits, tier)
		VALUES ($1, 0, $2)
		ON CONFLICT (account_id) DO UPDATE SET tier = $2, updated_at = NOW()`,
		accountID, tier,
	)
	if err != nil {
		return fmt.Errorf("failed to set tier: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		slog.Info("Entitlement tier updated", "account_id", accountID, "tier", tier)
	}
	return nil
}
