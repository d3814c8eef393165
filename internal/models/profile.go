package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PRMap maps a lift name (e.g. "squat", "deadlift") to the athlete's
// recorded one-rep max in kilograms. Stored as JSONB.
type PRMap map[string]float64

func (p PRMap) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

func (p *PRMap) Scan(src interface{}) error {
	if src == nil {
		*p = PRMap{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into PRMap", src)
	}
	if len(raw) == 0 {
		*p = PRMap{}
		return nil
	}
	return json.Unmarshal(raw, p)
}

// Profile represents an athlete profile in the system.
type Profile struct {
	ID              string          `json:"id" db:"id"` // UUID that matches the auth provider's user id
	FullName        sql.NullString  `json:"-" db:"full_name"`
	Age             sql.NullInt64   `json:"-" db:"age"`
	Sex             sql.NullString  `json:"-" db:"sex"`
	HeightCM        sql.NullFloat64 `json:"-" db:"height_cm"`
	ExperienceYears sql.NullFloat64 `json:"-" db:"experience_years"`
	PRs             PRMap           `json:"prs" db:"prs"`
	Injuries        sql.NullString  `json:"-" db:"injuries"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// ProfileUpdate is the request structure for upserting a profile.
type ProfileUpdate struct {
	FullName        string  `json:"full_name"`
	Age             int     `json:"age,omitempty"`
	Sex             string  `json:"sex,omitempty"`
	HeightCM        float64 `json:"height_cm,omitempty"`
	ExperienceYears float64 `json:"experience_years,omitempty"`
	PRs             PRMap   `json:"prs,omitempty"`
	Injuries        string  `json:"injuries,omitempty"`
}
