// Package events defines the wire payloads exchanged over Kafka: the plan
// snapshot pushed by the web content and the confirmation relayed back.
package events

import (
	"encoding/json"
	"time"
)

// Event type header values.
const (
	TypePlanSnapshot   = "plan.snapshot"
	TypeMatchConfirmed = "match.confirmed"
)

// PlanTraining is one planned session inside a snapshot. Content carries the
// raw structured workout description (sections, sets, steps) for consumers
// that derive planned distance from it.
type PlanTraining struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	TrainingDate     time.Time       `json:"trainingDate"`
	EstimatedMinutes *float64        `json:"estimatedMinutes,omitempty"`
	Content          json.RawMessage `json:"content,omitempty"`
}

// PlanSnapshot is the full plan push. Each push replaces the previous
// working set for the user; there is no incremental update.
type PlanSnapshot struct {
	UserID    string         `json:"userId"`
	Trainings []PlanTraining `json:"trainings"`
}

// MatchConfirmed is relayed to the web content when a user accepts a
// candidate. All numeric fields mirror the candidate: nil means unknown.
type MatchConfirmed struct {
	EventID            string    `json:"eventId"`
	UserID             string    `json:"userId"`
	PlanID             string    `json:"planId"`
	PlanTitle          string    `json:"planTitle"`
	WorkoutID          string    `json:"workoutId"`
	WorkoutStart       time.Time `json:"workoutStart"`
	DurationSeconds    *float64  `json:"durationSeconds,omitempty"`
	DistanceMeters     *float64  `json:"distanceMeters,omitempty"`
	EnergyKcal         *float64  `json:"energyKcal,omitempty"`
	StrokeCount        *float64  `json:"strokeCount,omitempty"`
	PacePer100mSeconds *float64  `json:"pacePer100mSeconds,omitempty"`
	SwolfApprox        *float64  `json:"swolfApprox,omitempty"`
	SourceName         string    `json:"sourceName,omitempty"`
	DeviceName         string    `json:"deviceName,omitempty"`
	Reason             string    `json:"reason"`
	ConfirmedAt        time.Time `json:"confirmedAt"`
}
