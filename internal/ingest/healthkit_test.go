package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/swimmatch/internal/domain"
)

type stubAnchorStore struct {
	anchors map[string]domain.Anchors
	loadErr error
	saveErr error
}

func newStubAnchorStore() *stubAnchorStore {
	return &stubAnchorStore{anchors: make(map[string]domain.Anchors)}
}

func (s *stubAnchorStore) LoadAnchors(_ context.Context, userID, platform string) (domain.Anchors, error) {
	if s.loadErr != nil {
		return domain.Anchors{}, s.loadErr
	}
	return s.anchors[userID+"/"+platform], nil
}

func (s *stubAnchorStore) SaveAnchors(_ context.Context, userID, platform string, anchors domain.Anchors) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.anchors[userID+"/"+platform] = anchors
	return nil
}

type stubHealthKitStore struct {
	workouts     HealthKitWorkoutBatch
	workoutsErr  error
	heartRate    HealthKitQuantityBatch
	heartRateErr error
	lastAnchor   string
}

func (s *stubHealthKitStore) QueryWorkouts(_ context.Context, anchor string) (HealthKitWorkoutBatch, error) {
	s.lastAnchor = anchor
	return s.workouts, s.workoutsErr
}

func (s *stubHealthKitStore) QueryHeartRate(_ context.Context, anchor string) (HealthKitQuantityBatch, error) {
	return s.heartRate, s.heartRateErr
}

func tptr(t time.Time) *time.Time { return &t }

func fptr(v float64) *float64 { return &v }

func TestHealthKitFetchNormalizesWorkouts(t *testing.T) {
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(32 * time.Minute)

	store := &stubHealthKitStore{
		workouts: HealthKitWorkoutBatch{
			Workouts: []HealthKitWorkout{{
				UUID:                     "hk-uuid-1",
				WorkoutActivityType:      domain.ActivityTypeSwimming,
				StartDate:                tptr(start),
				EndDate:                  tptr(end),
				TotalDistance:            fptr(1.5),
				TotalDistanceUnit:        "km",
				TotalEnergyBurned:        fptr(412000),
				TotalEnergyBurnedUnit:    "cal",
				TotalSwimmingStrokeCount: fptr(620),
				SourceName:               "Apple Watch",
			}},
			NewAnchor: "anchor-2",
		},
		heartRate: HealthKitQuantityBatch{
			Samples: []HealthKitQuantitySample{
				{Quantity: 132, Unit: "count/min", StartDate: tptr(start), EndDate: tptr(start.Add(time.Minute))},
			},
			NewAnchor: "hr-anchor-2",
		},
	}
	anchors := newStubAnchorStore()
	adapter := NewHealthKitAdapter(store, anchors)

	result, err := adapter.Fetch(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, result.Workouts, 1)
	w := result.Workouts[0]
	require.Equal(t, "hk-uuid-1", w.ID)
	require.Equal(t, domain.ActivityTypeSwimming, w.ActivityType)
	require.Equal(t, 1500.0, *w.DistanceMeters)
	require.Equal(t, 412.0, *w.EnergyKcal)
	require.Equal(t, 620.0, *w.StrokeCount)
	require.Equal(t, end.Sub(start).Seconds(), *w.DurationSeconds)

	require.Len(t, result.HeartRates, 1)
	require.Equal(t, 132.0, result.HeartRates[0].ValueBPM)

	require.Equal(t, "anchor-2", result.NextAnchors.Workouts)
	require.Equal(t, "hr-anchor-2", result.NextAnchors.HeartRate)
	require.Equal(t, result.NextAnchors, anchors.anchors["user-1/healthkit"])
}

func TestHealthKitFetchPassesStoredAnchor(t *testing.T) {
	store := &stubHealthKitStore{}
	anchors := newStubAnchorStore()
	anchors.anchors["user-1/healthkit"] = domain.Anchors{Workouts: "anchor-1"}

	adapter := NewHealthKitAdapter(store, anchors)
	_, err := adapter.Fetch(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "anchor-1", store.lastAnchor)
}

func TestHealthKitFetchDropsUnidentifiableWorkouts(t *testing.T) {
	store := &stubHealthKitStore{
		workouts: HealthKitWorkoutBatch{
			Workouts: []HealthKitWorkout{{
				WorkoutActivityType: domain.ActivityTypeSwimming,
				// No UUID and no end date: the fallback chain cannot resolve.
				StartDate: tptr(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)),
			}},
		},
	}
	adapter := NewHealthKitAdapter(store, newStubAnchorStore())

	result, err := adapter.Fetch(context.Background(), "user-1")
	require.NoError(t, err)
	require.Empty(t, result.Workouts)
}

func TestHealthKitFetchSyntheticIdentifier(t *testing.T) {
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	store := &stubHealthKitStore{
		workouts: HealthKitWorkoutBatch{
			Workouts: []HealthKitWorkout{{
				WorkoutActivityType: domain.ActivityTypeSwimming,
				StartDate:           tptr(start),
				EndDate:             tptr(end),
			}},
		},
	}
	adapter := NewHealthKitAdapter(store, newStubAnchorStore())

	result, err := adapter.Fetch(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, result.Workouts, 1)
	require.Equal(t, "2024-06-01T08:00:00Z-2024-06-01T08:30:00Z-46", result.Workouts[0].ID)
}

func TestHealthKitFetchRecoversStreamFailure(t *testing.T) {
	store := &stubHealthKitStore{
		workoutsErr: errors.New("authorization revoked"),
		heartRate: HealthKitQuantityBatch{
			Samples: []HealthKitQuantitySample{{
				Quantity:  120,
				StartDate: tptr(time.Now()),
				EndDate:   tptr(time.Now()),
			}},
			NewAnchor: "hr-anchor-9",
		},
	}
	anchors := newStubAnchorStore()
	anchors.anchors["user-1/healthkit"] = domain.Anchors{Workouts: "keep-me"}

	adapter := NewHealthKitAdapter(store, anchors)
	result, err := adapter.Fetch(context.Background(), "user-1")
	require.NoError(t, err, "stream failure is recovered, not raised")

	require.Empty(t, result.Workouts)
	require.Len(t, result.HeartRates, 1)
	// The failed stream keeps its previous anchor so nothing is skipped.
	require.Equal(t, "keep-me", result.NextAnchors.Workouts)
	require.Equal(t, "hr-anchor-9", result.NextAnchors.HeartRate)
}

func TestHealthKitFetchAnchorStoreFailure(t *testing.T) {
	anchors := newStubAnchorStore()
	anchors.loadErr = errors.New("db down")
	adapter := NewHealthKitAdapter(&stubHealthKitStore{}, anchors)

	_, err := adapter.Fetch(context.Background(), "user-1")
	require.Error(t, err)
}

func TestHealthKitFetchMalformedMetricsDegradeToUnknown(t *testing.T) {
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	store := &stubHealthKitStore{
		workouts: HealthKitWorkoutBatch{
			Workouts: []HealthKitWorkout{{
				UUID:                     "hk-uuid-2",
				WorkoutActivityType:      domain.ActivityTypeSwimming,
				StartDate:                tptr(start),
				EndDate:                  tptr(end),
				TotalDistance:            fptr(-100),
				TotalDistanceUnit:        "m",
				TotalSwimmingStrokeCount: fptr(-5),
			}},
		},
	}
	adapter := NewHealthKitAdapter(store, newStubAnchorStore())

	result, err := adapter.Fetch(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, result.Workouts, 1)
	require.Nil(t, result.Workouts[0].DistanceMeters)
	require.Nil(t, result.Workouts[0].StrokeCount)
	require.NotNil(t, result.Workouts[0].DurationSeconds)
}
