package domain

import (
	"context"
	"errors"
	"log"
	"sync"

	"example.com/swimmatch/internal/observability"
)

var (
	// ErrCandidateNotFound is returned when a confirm/dismiss references a
	// pairing that is not in the current review set.
	ErrCandidateNotFound = errors.New("match candidate not found")
	// ErrWorkoutNotFound is returned when a candidate's source workout is no
	// longer held in session memory.
	ErrWorkoutNotFound = errors.New("workout not found")
)

// Ingestor runs one anchored fetch for a user. Implemented by the platform
// adapters in internal/ingest.
type Ingestor interface {
	Fetch(ctx context.Context, userID string) (IngestionResult, error)
}

// StateStore persists the offered-workout registry and owns the reset
// operation that clears anchors and offered ids together.
type StateStore interface {
	OfferedIDs(ctx context.Context, userID string) ([]string, error)
	AddOffered(ctx context.Context, userID string, ids []string) error
	Reset(ctx context.Context, userID string) error
}

// ConfirmationRelay forwards a user-confirmed match to the embedded web
// content, together with the full source workout.
type ConfirmationRelay interface {
	PublishConfirmed(ctx context.Context, userID string, candidate MatchCandidate, workout CanonicalWorkout) error
}

// MatchFunc is the pluggable matching pass. The offered set is the registry
// snapshot taken at pass start; the result's UsedIDs are merged at pass end.
type MatchFunc func(workouts []CanonicalWorkout, plans []TrainingPlanEntry, offered map[string]struct{}) MatchResult

// Service orchestrates ingestion, matching, review, and confirmation for
// each user. The matching pass re-runs whenever either input set (plan
// snapshot or workout batch) changes; ingestion is single-flight per user.
type Service struct {
	ingestor Ingestor
	store    StateStore
	relay    ConfirmationRelay
	match    MatchFunc
	logger   *log.Logger

	mu    sync.Mutex
	users map[string]*userState
}

type userState struct {
	syncing      bool
	registry     *OfferedRegistry
	plans        []TrainingPlanEntry
	workouts     []CanonicalWorkout
	workoutsByID map[string]CanonicalWorkout
	candidates   []MatchCandidate
	heartRates   int
	anchors      Anchors
}

// NewService constructs a Service.
func NewService(ingestor Ingestor, store StateStore, relay ConfirmationRelay, match MatchFunc) *Service {
	return &Service{
		ingestor: ingestor,
		store:    store,
		relay:    relay,
		match:    match,
		logger:   log.New(log.Writer(), "[service] ", log.LstdFlags),
		users:    make(map[string]*userState),
	}
}

// RefreshResult summarises one sync trigger.
type RefreshResult struct {
	// Coalesced is true when another ingestion call was already in flight
	// and this trigger was a no-op.
	Coalesced     bool
	Workouts      int
	HeartRates    int
	NewCandidates int
}

// Refresh runs an anchored ingestion followed by a matching pass. Only one
// ingestion call per user is in flight at a time; concurrent triggers
// coalesce into a no-op rather than queueing. On ingestion failure the
// matching pass does not run for this cycle.
func (s *Service) Refresh(ctx context.Context, userID string) (RefreshResult, error) {
	s.mu.Lock()
	st := s.stateLocked(userID)
	if st.syncing {
		s.mu.Unlock()
		return RefreshResult{Coalesced: true}, nil
	}
	st.syncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		st.syncing = false
		s.mu.Unlock()
	}()

	if err := s.ensureRegistry(ctx, userID, st); err != nil {
		return RefreshResult{}, err
	}

	result, err := s.ingestor.Fetch(ctx, userID)
	if err != nil {
		s.logger.Printf("ingestion failed (user=%s): %v", userID, err)
		return RefreshResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st.workouts = result.Workouts
	st.heartRates += len(result.HeartRates)
	st.anchors = result.NextAnchors
	for _, w := range result.Workouts {
		st.workoutsByID[w.ID] = w
	}

	emitted, err := s.runMatchLocked(ctx, userID, st)
	if err != nil {
		return RefreshResult{}, err
	}
	return RefreshResult{
		Workouts:      len(result.Workouts),
		HeartRates:    len(result.HeartRates),
		NewCandidates: emitted,
	}, nil
}

// RefreshAll triggers a refresh for every user with session state. Used by
// the background sync ticker; per-user failures are logged and skipped.
func (s *Service) RefreshAll(ctx context.Context) {
	s.mu.Lock()
	userIDs := make([]string, 0, len(s.users))
	for id := range s.users {
		userIDs = append(userIDs, id)
	}
	s.mu.Unlock()

	for _, userID := range userIDs {
		if _, err := s.Refresh(ctx, userID); err != nil {
			s.logger.Printf("background refresh failed (user=%s): %v", userID, err)
		}
	}
}

// ReplacePlan installs a new plan snapshot, fully replacing the working set,
// and re-runs the matching pass against the current workout batch.
// Candidates whose plan entry is gone from the snapshot are dropped.
func (s *Service) ReplacePlan(ctx context.Context, userID string, entries []TrainingPlanEntry) error {
	s.mu.Lock()
	st := s.stateLocked(userID)
	s.mu.Unlock()

	if err := s.ensureRegistry(ctx, userID, st); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st.plans = entries
	keep := st.candidates[:0]
	known := make(map[string]struct{}, len(entries))
	for _, p := range entries {
		known[p.ID] = struct{}{}
	}
	for _, c := range st.candidates {
		if _, ok := known[c.PlanID]; ok {
			keep = append(keep, c)
		}
	}
	st.candidates = keep

	_, err := s.runMatchLocked(ctx, userID, st)
	return err
}

// runMatchLocked executes one matching pass and merges its used ids into the
// registry, persisting only the newly added delta. The review set
// accumulates: earlier candidates stay until confirmed or dismissed, and the
// registry guarantees a workout is never offered twice across passes.
func (s *Service) runMatchLocked(ctx context.Context, userID string, st *userState) (int, error) {
	result := s.match(st.workouts, st.plans, st.registry.Snapshot())
	observability.RecordMatchPass(len(result.Candidates))

	st.candidates = append(st.candidates, result.Candidates...)
	added := st.registry.Merge(result.UsedIDs)
	if len(added) > 0 {
		if err := s.store.AddOffered(ctx, userID, added); err != nil {
			return 0, err
		}
	}
	return len(result.Candidates), nil
}

// ReviewSet is the user-facing snapshot of the matching state.
type ReviewSet struct {
	Candidates       []MatchCandidate
	UnmatchedPlanIDs []string
}

// Candidates returns the current review set. Plans with no live candidate
// are reported so the UI can show a "nothing found in window" row.
func (s *Service) Candidates(userID string) ReviewSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateLocked(userID)

	out := ReviewSet{Candidates: append([]MatchCandidate(nil), st.candidates...)}

	matched := make(map[string]struct{}, len(st.candidates))
	for _, c := range st.candidates {
		matched[c.PlanID] = struct{}{}
	}
	for _, p := range st.plans {
		if _, ok := matched[p.ID]; !ok {
			out.UnmatchedPlanIDs = append(out.UnmatchedPlanIDs, p.ID)
		}
	}
	return out
}

// Confirm relays a user-confirmed candidate to the web content and removes
// every candidate referencing the confirmed workout from the review set.
// The workout id is already in the offered registry, so it can never be
// proposed again.
func (s *Service) Confirm(ctx context.Context, userID, planID, workoutID string) error {
	s.mu.Lock()
	st := s.stateLocked(userID)
	candidate, ok := findCandidate(st.candidates, planID, workoutID)
	if !ok {
		s.mu.Unlock()
		return ErrCandidateNotFound
	}
	workout, ok := st.workoutsByID[workoutID]
	s.mu.Unlock()
	if !ok {
		return ErrWorkoutNotFound
	}

	if err := s.relay.PublishConfirmed(ctx, userID, candidate, workout); err != nil {
		// The candidate stays in the review set so the user can retry.
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st.candidates = dropCandidates(st.candidates, func(c MatchCandidate) bool {
		return c.WorkoutID == workoutID
	})
	return nil
}

// Dismiss removes one candidate from the review set. The workout stays in
// the registry, so dismissal is final for this ingestion history.
func (s *Service) Dismiss(userID, planID, workoutID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateLocked(userID)

	if _, ok := findCandidate(st.candidates, planID, workoutID); !ok {
		return ErrCandidateNotFound
	}
	st.candidates = dropCandidates(st.candidates, func(c MatchCandidate) bool {
		return c.PlanID == planID && c.WorkoutID == workoutID
	})
	return nil
}

// Reset clears the persisted anchors and offered registry together: offered
// ids referencing a since-reset ingestion history must not suppress future
// matches. The plan snapshot survives; workouts and candidates do not.
func (s *Service) Reset(ctx context.Context, userID string) error {
	if err := s.store.Reset(ctx, userID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateLocked(userID)
	if st.registry != nil {
		st.registry.Clear()
	}
	st.workouts = nil
	st.workoutsByID = make(map[string]CanonicalWorkout)
	st.candidates = nil
	st.heartRates = 0
	st.anchors = Anchors{}
	return nil
}

// SyncStatus is the QA snapshot of per-user sync state.
type SyncStatus struct {
	Anchors          Anchors
	OfferedWorkouts  int
	HeartRateSamples int
	PlanEntries      int
	Syncing          bool
}

// Status reports the QA snapshot for a user.
func (s *Service) Status(ctx context.Context, userID string) (SyncStatus, error) {
	s.mu.Lock()
	st := s.stateLocked(userID)
	s.mu.Unlock()

	if err := s.ensureRegistry(ctx, userID, st); err != nil {
		return SyncStatus{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return SyncStatus{
		Anchors:          st.anchors,
		OfferedWorkouts:  st.registry.Len(),
		HeartRateSamples: st.heartRates,
		PlanEntries:      len(st.plans),
		Syncing:          st.syncing,
	}, nil
}

func (s *Service) stateLocked(userID string) *userState {
	st, ok := s.users[userID]
	if !ok {
		st = &userState{workoutsByID: make(map[string]CanonicalWorkout)}
		s.users[userID] = st
	}
	return st
}

// ensureRegistry lazily seeds the in-memory registry from persisted state on
// first touch, so offered suppression survives process restarts.
func (s *Service) ensureRegistry(ctx context.Context, userID string, st *userState) error {
	s.mu.Lock()
	if st.registry != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	seed, err := s.store.OfferedIDs(ctx, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st.registry == nil {
		st.registry = NewOfferedRegistry(seed)
	}
	return nil
}

func findCandidate(candidates []MatchCandidate, planID, workoutID string) (MatchCandidate, bool) {
	for _, c := range candidates {
		if c.PlanID == planID && c.WorkoutID == workoutID {
			return c, true
		}
	}
	return MatchCandidate{}, false
}

func dropCandidates(candidates []MatchCandidate, drop func(MatchCandidate) bool) []MatchCandidate {
	out := candidates[:0]
	for _, c := range candidates {
		if !drop(c) {
			out = append(out, c)
		}
	}
	return out
}
