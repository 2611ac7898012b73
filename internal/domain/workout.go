// Package domain defines the business logic for the swim-match service.
package domain

import "time"

// ActivityTypeSwimming is the canonical workout activity code the matcher
// acts on. The value mirrors the HealthKit swimming activity type; platform
// adapters map their own vocabulary onto it.
const ActivityTypeSwimming = 46

// CanonicalWorkout is the platform-neutral workout record produced by the
// ingestion adapters. It is built fresh on every ingestion call and is never
// mutated afterwards. Optional metrics are pointers: nil means the source
// did not report the value (or reported something malformed).
type CanonicalWorkout struct {
	ID              string
	ActivityType    int
	StartTime       time.Time
	EndTime         time.Time
	DurationSeconds *float64
	DistanceMeters  *float64
	EnergyKcal      *float64
	StrokeCount     *float64
	SourceName      string
	DeviceName      string
}

// HeartRateSample is a single heart-rate reading in beats per minute.
type HeartRateSample struct {
	ValueBPM  float64
	StartTime time.Time
	EndTime   time.Time
}

// Anchors carries the opaque per-stream sync cursors for one platform.
// Empty string means "no anchor yet"; the next fetch reads from scratch.
type Anchors struct {
	Workouts  string
	HeartRate string
}

// IngestionResult is the output of one anchored fetch against a platform
// health store. Adapters return an empty (not partial) result on failure.
type IngestionResult struct {
	Workouts    []CanonicalWorkout
	HeartRates  []HeartRateSample
	NextAnchors Anchors
}

// TrainingPlanEntry is one scheduled session from the plan snapshot pushed
// by the embedded web content. A new push fully replaces the working set.
type TrainingPlanEntry struct {
	ID                    string
	Title                 string
	TrainingDate          time.Time
	EstimatedMinutes      *float64
	PlannedDistanceMeters *float64
}

// MatchCandidate is a proposed pairing between one plan entry and one
// recorded workout, pending user confirmation. Computed fresh on every
// matching pass and never persisted.
type MatchCandidate struct {
	PlanID             string
	PlanTitle          string
	PlanStart          time.Time
	WorkoutID          string
	WorkoutStart       time.Time
	DurationSeconds    *float64
	DistanceMeters     *float64
	EnergyKcal         *float64
	StrokeCount        *float64
	PacePer100mSeconds *float64
	SwolfApprox        *float64
	SourceName         string
	DeviceName         string
	Reason             string
}

// MatchResult is the output of one matching pass. UsedIDs lists the workout
// id of every emitted candidate, in emission order; the caller merges it
// into the offered registry (single-writer discipline over the registry).
type MatchResult struct {
	Candidates []MatchCandidate
	UsedIDs    []string
}
