package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/swimmatch/internal/domain"
	"example.com/swimmatch/internal/persistence"
)

type stubGoogleFitStore struct {
	sessions    []GoogleFitSession
	sessionsErr error
	heartRates  []GoogleFitHeartRate
	hrErr       error
	lastStart   time.Time
	lastEnd     time.Time
}

func (s *stubGoogleFitStore) WorkoutSessions(_ context.Context, start, end time.Time) ([]GoogleFitSession, error) {
	s.lastStart, s.lastEnd = start, end
	return s.sessions, s.sessionsErr
}

func (s *stubGoogleFitStore) HeartRateSamples(_ context.Context, start, end time.Time) ([]GoogleFitHeartRate, error) {
	return s.heartRates, s.hrErr
}

func newGoogleFitAdapter(store GoogleFitStore, anchors AnchorStore, now time.Time) *GoogleFitAdapter {
	a := NewGoogleFitAdapter(store, anchors)
	a.now = func() time.Time { return now }
	return a
}

func TestGoogleFitFetchMapsSessions(t *testing.T) {
	now := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(40 * time.Minute)

	store := &stubGoogleFitStore{
		sessions: []GoogleFitSession{{
			SessionID:   "gf-session-1",
			Activity:    "swimming",
			StartDate:   tptr(start),
			EndDate:     tptr(end),
			Distance:    fptr(2000),
			Calories:    fptr(480),
			StrokeCount: fptr(800),
		}},
		heartRates: []GoogleFitHeartRate{
			{Value: 128, StartDate: tptr(start), EndDate: tptr(start.Add(time.Minute))},
		},
	}
	anchors := newStubAnchorStore()
	adapter := newGoogleFitAdapter(store, anchors, now)

	result, err := adapter.Fetch(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, result.Workouts, 1)
	w := result.Workouts[0]
	require.Equal(t, "gf-session-1", w.ID)
	require.Equal(t, domain.ActivityTypeSwimming, w.ActivityType)
	require.Equal(t, 2000.0, *w.DistanceMeters)
	require.Equal(t, 480.0, *w.EnergyKcal)
	require.Equal(t, end.Sub(start).Seconds(), *w.DurationSeconds)

	// First run queries from the lookback horizon.
	require.Equal(t, now.Add(-defaultLookback), store.lastStart)
	require.Equal(t, now, store.lastEnd)

	// The synthesized anchor carries the newest session end.
	decoded, err := persistence.DecodeTimeAnchor(result.NextAnchors.Workouts)
	require.NoError(t, err)
	require.True(t, decoded.Watermark.Equal(end))
}

func TestGoogleFitFetchResumesFromWatermark(t *testing.T) {
	now := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	watermark := now.Add(-2 * time.Hour)

	store := &stubGoogleFitStore{}
	anchors := newStubAnchorStore()
	anchors.anchors["user-1/googlefit"] = domain.Anchors{
		Workouts: persistence.EncodeTimeAnchor(&persistence.TimeAnchor{Watermark: watermark, Stream: "workouts"}),
	}

	adapter := newGoogleFitAdapter(store, anchors, now)
	_, err := adapter.Fetch(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, store.lastStart.Equal(watermark))
}

func TestGoogleFitActivityVocabulary(t *testing.T) {
	require.Equal(t, domain.ActivityTypeSwimming, mapGoogleFitActivity("swimming"))
	require.Equal(t, domain.ActivityTypeSwimming, mapGoogleFitActivity("swimming.pool"))
	require.Equal(t, domain.ActivityTypeSwimming, mapGoogleFitActivity("swimming.open_water"))
	require.Equal(t, domain.ActivityTypeSwimming, mapGoogleFitActivity("82"))
	require.Equal(t, 7, mapGoogleFitActivity("7"))
	require.Equal(t, 0, mapGoogleFitActivity("biking"))
}

func TestGoogleFitIdentifierFallback(t *testing.T) {
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	// Generic id wins over session id.
	w, ok := mapGoogleFitSession(GoogleFitSession{ID: "id-1", SessionID: "s-1", StartDate: tptr(start), EndDate: tptr(end), Activity: "swimming"})
	require.True(t, ok)
	require.Equal(t, "id-1", w.ID)

	// Source id is the last resort before the synthetic key.
	w, ok = mapGoogleFitSession(GoogleFitSession{SourceID: "src-1", Activity: "swimming"})
	require.True(t, ok)
	require.Equal(t, "src-1", w.ID)

	// Nothing resolves: excluded.
	_, ok = mapGoogleFitSession(GoogleFitSession{Activity: "swimming"})
	require.False(t, ok)
}

func TestGoogleFitFetchRecoversSessionFailure(t *testing.T) {
	now := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	store := &stubGoogleFitStore{sessionsErr: errors.New("sdk unavailable")}
	adapter := newGoogleFitAdapter(store, newStubAnchorStore(), now)

	result, err := adapter.Fetch(context.Background(), "user-1")
	require.NoError(t, err)
	require.Empty(t, result.Workouts)
	require.Empty(t, result.NextAnchors.Workouts)
}

func TestGoogleFitUnreadableAnchorFallsBackToLookback(t *testing.T) {
	now := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	store := &stubGoogleFitStore{}
	anchors := newStubAnchorStore()
	anchors.anchors["user-1/googlefit"] = domain.Anchors{Workouts: "not-base64!!"}

	adapter := newGoogleFitAdapter(store, anchors, now)
	_, err := adapter.Fetch(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, now.Add(-defaultLookback), store.lastStart)
}
