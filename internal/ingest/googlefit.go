package ingest

import (
	"context"
	"log"
	"strconv"
	"time"

	"example.com/swimmatch/internal/domain"
	"example.com/swimmatch/internal/matching"
	"example.com/swimmatch/internal/observability"
	"example.com/swimmatch/internal/persistence"
)

// defaultLookback bounds the first fetch when no anchor exists yet.
const defaultLookback = 30 * 24 * time.Hour

// googleFitSwimCode is the Google Fit activity code for swimming.
const googleFitSwimCode = 82

// GoogleFitStore exposes the minimal range-query surface the adapter needs
// from the Google Fit bridge. Google Fit has no native anchor, so queries
// are time-ranged and the adapter synthesizes its own cursor.
type GoogleFitStore interface {
	WorkoutSessions(ctx context.Context, start, end time.Time) ([]GoogleFitSession, error)
	HeartRateSamples(ctx context.Context, start, end time.Time) ([]GoogleFitHeartRate, error)
}

// GoogleFitSession is the vendor-shaped session record. Identifier fields
// vary by SDK version, hence the id/sessionId/sourceId spread.
type GoogleFitSession struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"sessionId"`
	SourceID     string     `json:"sourceId"`
	Activity     string     `json:"activity"`
	StartDate    *time.Time `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`
	Distance     *float64   `json:"distance"`
	DistanceUnit string     `json:"distanceUnit"`
	Calories     *float64   `json:"calories"`
	CaloriesUnit string     `json:"caloriesUnit"`
	StrokeCount  *float64   `json:"strokeCount"`
	SourceName   string     `json:"sourceName"`
}

// GoogleFitHeartRate is one vendor heart-rate point.
type GoogleFitHeartRate struct {
	Value     float64    `json:"value"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

// GoogleFitAdapter runs range fetches against a Google Fit bridge, mapping
// sessions to canonical workouts and maintaining synthetic time anchors.
type GoogleFitAdapter struct {
	store   GoogleFitStore
	anchors AnchorStore
	now     func() time.Time
	logger  *log.Logger
}

// NewGoogleFitAdapter constructs the adapter.
func NewGoogleFitAdapter(store GoogleFitStore, anchors AnchorStore) *GoogleFitAdapter {
	return &GoogleFitAdapter{
		store:   store,
		anchors: anchors,
		now:     time.Now,
		logger:  log.New(log.Writer(), "[googlefit] ", log.LstdFlags),
	}
}

// Platform implements Adapter.
func (a *GoogleFitAdapter) Platform() string { return PlatformGoogleFit }

// Fetch queries both streams from the stored watermark (or the lookback
// horizon on first run), persists the advanced watermarks, and returns
// canonical records. Stream failures are recovered locally.
func (a *GoogleFitAdapter) Fetch(ctx context.Context, userID string) (domain.IngestionResult, error) {
	anchors, err := a.anchors.LoadAnchors(ctx, userID, PlatformGoogleFit)
	if err != nil {
		return domain.IngestionResult{}, err
	}
	next := anchors
	now := a.now()
	var result domain.IngestionResult

	sessions, err := a.store.WorkoutSessions(ctx, a.rangeStart(anchors.Workouts, now), now)
	if err != nil {
		a.logger.Printf("session fetch failed (user=%s): %v", userID, err)
		observability.RecordStreamError(PlatformGoogleFit, "workouts")
	} else {
		var latest time.Time
		for _, raw := range sessions {
			mapped, ok := mapGoogleFitSession(raw)
			if !ok {
				observability.RecordUnidentifiableWorkout(PlatformGoogleFit)
				continue
			}
			result.Workouts = append(result.Workouts, mapped)
			if mapped.EndTime.After(latest) {
				latest = mapped.EndTime
			}
		}
		if !latest.IsZero() {
			next.Workouts = persistence.EncodeTimeAnchor(&persistence.TimeAnchor{Watermark: latest, Stream: "workouts"})
		}
	}

	samples, err := a.store.HeartRateSamples(ctx, a.rangeStart(anchors.HeartRate, now), now)
	if err != nil {
		a.logger.Printf("heart rate fetch failed (user=%s): %v", userID, err)
		observability.RecordStreamError(PlatformGoogleFit, "heart_rate")
	} else {
		var latest time.Time
		for _, raw := range samples {
			if raw.StartDate == nil || raw.EndDate == nil || matching.Sanitize(&raw.Value) == nil {
				continue
			}
			result.HeartRates = append(result.HeartRates, domain.HeartRateSample{
				ValueBPM:  raw.Value,
				StartTime: *raw.StartDate,
				EndTime:   *raw.EndDate,
			})
			if raw.EndDate.After(latest) {
				latest = *raw.EndDate
			}
		}
		if !latest.IsZero() {
			next.HeartRate = persistence.EncodeTimeAnchor(&persistence.TimeAnchor{Watermark: latest, Stream: "heart_rate"})
		}
	}

	if err := a.anchors.SaveAnchors(ctx, userID, PlatformGoogleFit, next); err != nil {
		return domain.IngestionResult{}, err
	}

	result.NextAnchors = next
	observability.RecordIngestion(PlatformGoogleFit, len(result.Workouts), len(result.HeartRates))
	return result, nil
}

// rangeStart resolves the query start for a stream: the decoded watermark,
// or the lookback horizon when the anchor is missing or unreadable.
func (a *GoogleFitAdapter) rangeStart(token string, now time.Time) time.Time {
	anchor, err := persistence.DecodeTimeAnchor(token)
	if err != nil {
		a.logger.Printf("discarding unreadable anchor: %v", err)
		return now.Add(-defaultLookback)
	}
	if anchor == nil {
		return now.Add(-defaultLookback)
	}
	return anchor.Watermark
}

func mapGoogleFitSession(raw GoogleFitSession) (domain.CanonicalWorkout, bool) {
	activityType := mapGoogleFitActivity(raw.Activity)
	id, ok := matching.WorkoutID("", raw.ID, raw.SessionID, raw.StartDate, raw.EndDate, activityType)
	if !ok && raw.SourceID != "" {
		id, ok = raw.SourceID, true
	}
	if !ok {
		return domain.CanonicalWorkout{}, false
	}

	w := domain.CanonicalWorkout{
		ID:             id,
		ActivityType:   activityType,
		DistanceMeters: matching.NormalizeDistance(raw.Distance, raw.DistanceUnit),
		EnergyKcal:     matching.NormalizeEnergy(raw.Calories, raw.CaloriesUnit),
		StrokeCount:    matching.Sanitize(raw.StrokeCount),
		SourceName:     raw.SourceName,
	}
	if raw.StartDate != nil {
		w.StartTime = *raw.StartDate
	}
	if raw.EndDate != nil {
		w.EndTime = *raw.EndDate
	}
	w.DurationSeconds = workoutDuration(nil, raw.StartDate, raw.EndDate)
	return w, true
}

// mapGoogleFitActivity folds the Google Fit activity vocabulary (names or
// numeric codes, depending on SDK version) onto the canonical codes. Only
// swimming is load-bearing for the matcher; everything else maps to its
// numeric code when parseable, or zero.
func mapGoogleFitActivity(activity string) int {
	switch activity {
	case "swimming", "swimming.pool", "swimming.open_water":
		return domain.ActivityTypeSwimming
	}
	code, err := strconv.Atoi(activity)
	if err != nil {
		return 0
	}
	if code == googleFitSwimCode {
		return domain.ActivityTypeSwimming
	}
	return code
}
