// Package matching correlates ingested swim workouts against scheduled
// training-plan entries and produces ranked candidates for user review.
//
// The engine is pure: it performs no I/O, holds no state, and cannot fail
// under well-formed input. Empty inputs yield an empty result.
package matching

import (
	"fmt"
	"math"
	"strings"
	"time"

	"example.com/swimmatch/internal/domain"
)

// DefaultWindow is the symmetric tolerance between a workout's start and the
// plan's scheduled instant. The product settled on four hours: wide enough to
// absorb a session moved from morning to noon, narrow enough that two swims
// on one day land on different plan entries.
const DefaultWindow = 4 * time.Hour

// Config carries the tunables of one matching pass.
type Config struct {
	// Window is the proximity tolerance; zero means DefaultWindow.
	// The boundary is inclusive: |Δt| == Window still matches.
	Window time.Duration
	// Location resolves the plan's calendar day; nil means time.Local.
	Location *time.Location
}

func (c Config) window() time.Duration {
	if c.Window <= 0 {
		return DefaultWindow
	}
	return c.Window
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Match runs one matching pass. For every plan entry, in input order, every
// workout is considered in input order and must survive all filters:
//
//  1. activity type is the swimming code
//  2. the workout has a resolvable identifier
//  3. the id is not in the offered set from prior passes
//  4. the workout starts on the plan's calendar day (local midnight window)
//  5. |workout start − plan instant| is within the proximity window
//
// A workout may back candidates for several plan entries within one pass;
// the offered set only blocks ids carried over from prior passes. UsedIDs
// records the workout id of every emitted candidate, in order, and is merged
// into the registry by the caller.
func Match(workouts []domain.CanonicalWorkout, plans []domain.TrainingPlanEntry, offered map[string]struct{}, cfg Config) domain.MatchResult {
	var result domain.MatchResult
	window := cfg.window()
	loc := cfg.location()

	for _, plan := range plans {
		dayStart := localMidnight(plan.TrainingDate, loc)
		dayEnd := dayStart.Add(24 * time.Hour)

		for _, w := range workouts {
			if w.ActivityType != domain.ActivityTypeSwimming {
				continue
			}
			if w.ID == "" {
				continue
			}
			if _, seen := offered[w.ID]; seen {
				continue
			}
			if w.StartTime.Before(dayStart) || !w.StartTime.Before(dayEnd) {
				continue
			}
			delta := absDuration(w.StartTime.Sub(plan.TrainingDate))
			if delta > window {
				continue
			}

			result.Candidates = append(result.Candidates, buildCandidate(plan, w, delta))
			result.UsedIDs = append(result.UsedIDs, w.ID)
		}
	}

	return result
}

func buildCandidate(plan domain.TrainingPlanEntry, w domain.CanonicalWorkout, delta time.Duration) domain.MatchCandidate {
	pace, swolf := SwimEfficiency(w)
	return domain.MatchCandidate{
		PlanID:             plan.ID,
		PlanTitle:          plan.Title,
		PlanStart:          plan.TrainingDate,
		WorkoutID:          w.ID,
		WorkoutStart:       w.StartTime,
		DurationSeconds:    w.DurationSeconds,
		DistanceMeters:     w.DistanceMeters,
		EnergyKcal:         w.EnergyKcal,
		StrokeCount:        w.StrokeCount,
		PacePer100mSeconds: pace,
		SwolfApprox:        swolf,
		SourceName:         w.SourceName,
		DeviceName:         w.DeviceName,
		Reason:             reason(plan, w, delta),
	}
}

// reason assembles the human-readable deltas behind a candidate, in fixed
// clause order, each clause present only when its inputs are available.
func reason(plan domain.TrainingPlanEntry, w domain.CanonicalWorkout, delta time.Duration) string {
	parts := []string{fmt.Sprintf("Δtime %.0f min", math.Round(delta.Minutes()))}

	if plan.EstimatedMinutes != nil && w.DurationSeconds != nil {
		diff := math.Abs(*w.DurationSeconds/60 - *plan.EstimatedMinutes)
		parts = append(parts, fmt.Sprintf("Δduration %.1f min", diff))
	}
	if w.DistanceMeters != nil {
		parts = append(parts, fmt.Sprintf("distance %.0f m", *w.DistanceMeters))
	}
	return strings.Join(parts, ", ")
}

// SwimEfficiency derives pace per 100 m and the SWOLF approximation.
// Pace needs distance > 0 and a known duration; SWOLF additionally needs a
// stroke count. The approximation is seconds-per-100m plus strokes-per-100m,
// the standard SWOLF proxy when per-length splits are unavailable.
func SwimEfficiency(w domain.CanonicalWorkout) (pacePer100m, swolfApprox *float64) {
	if w.DistanceMeters == nil || *w.DistanceMeters <= 0 || w.DurationSeconds == nil {
		return nil, nil
	}
	pace := (*w.DurationSeconds / *w.DistanceMeters) * 100
	pacePer100m = &pace

	if w.StrokeCount == nil {
		return pacePer100m, nil
	}
	strokesPer100m := (*w.StrokeCount / *w.DistanceMeters) * 100
	swolf := pace + strokesPer100m
	return pacePer100m, &swolf
}

// PacePerKm derives running-style pace seconds for display surfaces.
func PacePerKm(w domain.CanonicalWorkout) *float64 {
	if w.DistanceMeters == nil || *w.DistanceMeters <= 0 || w.DurationSeconds == nil {
		return nil
	}
	pace := (*w.DurationSeconds / *w.DistanceMeters) * 1000
	return &pace
}

func localMidnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
