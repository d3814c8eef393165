package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// MaxMovements bounds the canonical movement list returned by the model.
const MaxMovements = 5

// ScalingOption is one suggested adaptation for an exercise.
type ScalingOption struct {
	Exercise   string `json:"exercise"`
	Suggestion string `json:"suggestion"`
	Reason     string `json:"reason"`
}

// AnalysisPayload is the structured coaching output produced by the model
// for one workout submission.
type AnalysisPayload struct {
	WorkoutSummary   string          `json:"workout_summary"`
	Intent           string          `json:"intent"`
	Strategy         string          `json:"strategy"`
	ScalingOptions   []ScalingOption `json:"scaling_options"`
	SuggestedWeights string          `json:"suggested_weights"`
	Movements        []string        `json:"movements,omitempty"`
}

// Normalize enforces the payload invariants: scaling_options is never nil
// and movements is capped at MaxMovements.
func (a *AnalysisPayload) Normalize() {
	if a.ScalingOptions == nil {
		a.ScalingOptions = []ScalingOption{}
	}
	if len(a.Movements) > MaxMovements {
		a.Movements = a.Movements[:MaxMovements]
	}
}

func (a AnalysisPayload) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *AnalysisPayload) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into AnalysisPayload", src)
	}
	if err := json.Unmarshal(raw, a); err != nil {
		return err
	}
	a.Normalize()
	return nil
}
