package models

import (
	"database/sql"
	"database/sql/driver"
	"time"
)

// ResultType classifies how a completed workout is scored.
type ResultType string

const (
	ResultTime       ResultType = "time"
	ResultReps       ResultType = "reps"
	ResultRoundsReps ResultType = "rounds_reps"
	ResultLoad       ResultType = "load"
	ResultCompleted  ResultType = "completed"
)

// ValidResultType reports whether t is one of the known result types.
func ValidResultType(t ResultType) bool {
	switch t {
	case ResultTime, ResultReps, ResultRoundsReps, ResultLoad, ResultCompleted:
		return true
	}
	return false
}

// Feeling labels for the 1-4 post-workout scale, index 0 = feeling 1.
var FeelingLabels = [4]string{"rough", "okay", "good", "great"}

// FeelingLabel maps a 1-4 feeling score to its label. Out-of-range
// scores map to "okay".
func FeelingLabel(feeling int) string {
	if feeling < 1 || feeling > 4 {
		return FeelingLabels[1]
	}
	return FeelingLabels[feeling-1]
}

// NullAnalysis is a nullable AnalysisPayload column.
type NullAnalysis struct {
	Analysis AnalysisPayload
	Valid    bool
}

func (n NullAnalysis) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Analysis.Value()
}

func (n *NullAnalysis) Scan(src interface{}) error {
	if src == nil {
		n.Valid = false
		return nil
	}
	if err := n.Analysis.Scan(src); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// Wod is one workout record owned by an account.
type Wod struct {
	ID           string         `json:"id" db:"id"`
	AccountID    string         `json:"account_id" db:"account_id"`
	ImageURL     sql.NullString `json:"-" db:"image_url"`
	OriginalText sql.NullString `json:"-" db:"original_text"`
	Analysis     NullAnalysis   `json:"-" db:"analysis"`
	ResultType   sql.NullString `json:"-" db:"result_type"`
	ResultValue  sql.NullString `json:"-" db:"result_value"`
	Feeling      sql.NullInt64  `json:"-" db:"feeling"`
	AthleteNotes sql.NullString `json:"-" db:"athlete_notes"`
	Feedback     sql.NullString `json:"-" db:"post_wod_feedback"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	CompletedAt  sql.NullTime   `json:"-" db:"completed_at"`
}

// WodResult carries the completion fields submitted after a workout.
// Re-submission overwrites the previous result.
type WodResult struct {
	ResultType   ResultType `json:"result_type"`
	ResultValue  string     `json:"result_value"`
	Feeling      int        `json:"feeling"`
	AthleteNotes string     `json:"athlete_notes,omitempty"`
}
