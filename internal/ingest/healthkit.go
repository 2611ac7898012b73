package ingest

import (
	"context"
	"log"
	"time"

	"example.com/swimmatch/internal/domain"
	"example.com/swimmatch/internal/matching"
	"example.com/swimmatch/internal/observability"
)

// HealthKitStore exposes the minimal anchored-query surface the adapter
// needs from the HealthKit bridge. The anchor arguments are the opaque
// tokens HealthKit returned on the previous call; empty means a first run.
type HealthKitStore interface {
	QueryWorkouts(ctx context.Context, anchor string) (HealthKitWorkoutBatch, error)
	QueryHeartRate(ctx context.Context, anchor string) (HealthKitQuantityBatch, error)
}

// HealthKitWorkout is the vendor-shaped workout record as delivered by the
// HealthKit bridge. Optional quantities are pointers; units ride alongside
// their values because HealthKit reports them per sample.
type HealthKitWorkout struct {
	UUID                     string     `json:"uuid"`
	WorkoutActivityType      int        `json:"workoutActivityType"`
	StartDate                *time.Time `json:"startDate"`
	EndDate                  *time.Time `json:"endDate"`
	DurationSeconds          *float64   `json:"duration"`
	TotalDistance            *float64   `json:"totalDistance"`
	TotalDistanceUnit        string     `json:"totalDistanceUnit"`
	TotalEnergyBurned        *float64   `json:"totalEnergyBurned"`
	TotalEnergyBurnedUnit    string     `json:"totalEnergyBurnedUnit"`
	TotalSwimmingStrokeCount *float64   `json:"totalSwimmingStrokeCount"`
	SourceName               string     `json:"sourceName"`
	DeviceName               string     `json:"deviceName"`
}

// HealthKitQuantitySample is a vendor-shaped quantity sample (heart rate).
type HealthKitQuantitySample struct {
	Quantity  float64    `json:"quantity"`
	Unit      string     `json:"unit"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

// HealthKitWorkoutBatch is one anchored workout query response.
type HealthKitWorkoutBatch struct {
	Workouts  []HealthKitWorkout `json:"workouts"`
	NewAnchor string             `json:"newAnchor"`
}

// HealthKitQuantityBatch is one anchored quantity query response.
type HealthKitQuantityBatch struct {
	Samples   []HealthKitQuantitySample `json:"samples"`
	NewAnchor string                    `json:"newAnchor"`
}

// HealthKitAdapter runs anchored fetches against a HealthKit bridge and
// normalizes the results.
type HealthKitAdapter struct {
	store   HealthKitStore
	anchors AnchorStore
	logger  *log.Logger
}

// NewHealthKitAdapter constructs the adapter.
func NewHealthKitAdapter(store HealthKitStore, anchors AnchorStore) *HealthKitAdapter {
	return &HealthKitAdapter{
		store:   store,
		anchors: anchors,
		logger:  log.New(log.Writer(), "[healthkit] ", log.LstdFlags),
	}
}

// Platform implements Adapter.
func (a *HealthKitAdapter) Platform() string { return PlatformHealthKit }

// Fetch loads the stored anchors, queries both streams, persists the new
// anchors, and returns canonical records. A failed stream keeps its old
// anchor and contributes nothing; only anchor-store errors surface.
func (a *HealthKitAdapter) Fetch(ctx context.Context, userID string) (domain.IngestionResult, error) {
	anchors, err := a.anchors.LoadAnchors(ctx, userID, PlatformHealthKit)
	if err != nil {
		return domain.IngestionResult{}, err
	}
	next := anchors
	var result domain.IngestionResult

	workoutBatch, err := a.store.QueryWorkouts(ctx, anchors.Workouts)
	if err != nil {
		a.logger.Printf("workout anchor query failed (user=%s): %v", userID, err)
		observability.RecordStreamError(PlatformHealthKit, "workouts")
	} else {
		for _, raw := range workoutBatch.Workouts {
			mapped, ok := mapHealthKitWorkout(raw)
			if !ok {
				observability.RecordUnidentifiableWorkout(PlatformHealthKit)
				continue
			}
			result.Workouts = append(result.Workouts, mapped)
		}
		if workoutBatch.NewAnchor != "" {
			next.Workouts = workoutBatch.NewAnchor
		}
	}

	hrBatch, err := a.store.QueryHeartRate(ctx, anchors.HeartRate)
	if err != nil {
		a.logger.Printf("heart rate anchor query failed (user=%s): %v", userID, err)
		observability.RecordStreamError(PlatformHealthKit, "heart_rate")
	} else {
		for _, raw := range hrBatch.Samples {
			if sample, ok := mapHealthKitHeartRate(raw); ok {
				result.HeartRates = append(result.HeartRates, sample)
			}
		}
		if hrBatch.NewAnchor != "" {
			next.HeartRate = hrBatch.NewAnchor
		}
	}

	if err := a.anchors.SaveAnchors(ctx, userID, PlatformHealthKit, next); err != nil {
		return domain.IngestionResult{}, err
	}

	result.NextAnchors = next
	observability.RecordIngestion(PlatformHealthKit, len(result.Workouts), len(result.HeartRates))
	return result, nil
}

// mapHealthKitWorkout normalizes one vendor record. Workouts with no
// resolvable identifier are excluded: they cannot be deduplicated safely.
func mapHealthKitWorkout(raw HealthKitWorkout) (domain.CanonicalWorkout, bool) {
	id, ok := matching.WorkoutID(raw.UUID, "", "", raw.StartDate, raw.EndDate, raw.WorkoutActivityType)
	if !ok {
		return domain.CanonicalWorkout{}, false
	}

	w := domain.CanonicalWorkout{
		ID:             id,
		ActivityType:   raw.WorkoutActivityType,
		DistanceMeters: matching.NormalizeDistance(raw.TotalDistance, raw.TotalDistanceUnit),
		EnergyKcal:     matching.NormalizeEnergy(raw.TotalEnergyBurned, raw.TotalEnergyBurnedUnit),
		StrokeCount:    matching.Sanitize(raw.TotalSwimmingStrokeCount),
		SourceName:     raw.SourceName,
		DeviceName:     raw.DeviceName,
	}
	if raw.StartDate != nil {
		w.StartTime = *raw.StartDate
	}
	if raw.EndDate != nil {
		w.EndTime = *raw.EndDate
	}
	w.DurationSeconds = workoutDuration(matching.Sanitize(raw.DurationSeconds), raw.StartDate, raw.EndDate)
	return w, true
}

func mapHealthKitHeartRate(raw HealthKitQuantitySample) (domain.HeartRateSample, bool) {
	if raw.StartDate == nil || raw.EndDate == nil {
		return domain.HeartRateSample{}, false
	}
	if matching.Sanitize(&raw.Quantity) == nil {
		return domain.HeartRateSample{}, false
	}
	return domain.HeartRateSample{
		ValueBPM:  raw.Quantity,
		StartTime: *raw.StartDate,
		EndTime:   *raw.EndDate,
	}, true
}

// workoutDuration prefers the vendor-supplied duration quantity and falls
// back to the end−start span.
func workoutDuration(vendor *float64, start, end *time.Time) *float64 {
	if vendor != nil {
		return vendor
	}
	if start == nil || end == nil {
		return nil
	}
	span := end.Sub(*start).Seconds()
	return matching.Sanitize(&span)
}
