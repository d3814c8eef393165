package models

import "time"

// Tier is the subscription tier of an account.
type Tier string

const (
	TierFree       Tier = "free"
	TierSubscriber Tier = "subscriber"
)

// UnlimitedRemaining is reported by a consume on a subscriber account,
// which never decrements the free-use counter.
const UnlimitedRemaining = -1

// Entitlement tracks remaining free analyses and tier for an account.
type Entitlement struct {
	AccountID string    `db:"account_id"`
	Credits   int       `db:"credits"`
	Tier      Tier      `db:"tier"`
	UpdatedAt time.Time `db:"updated_at"`
}

// EntitlementStatus is the result of a pre-flight entitlement check.
type EntitlementStatus struct {
	Remaining  int  `json:"remaining"`
	Tier       Tier `json:"tier"`
	CanProceed bool `json:"can_proceed"`
}
