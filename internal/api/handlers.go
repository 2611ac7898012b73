// Package api exposes the HTTP surface of the matching engine.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"example.com/swimmatch/internal/auth"
	"example.com/swimmatch/internal/domain"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/sync", h.sync)
	mux.HandleFunc("/v1/sync/reset", h.reset)
	mux.HandleFunc("/v1/sync/status", h.status)
	mux.HandleFunc("/v1/candidates", h.candidates)
	mux.HandleFunc("/v1/candidates/confirm", h.confirm)
	mux.HandleFunc("/v1/candidates/dismiss", h.dismiss)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeMatchesWrite)
	if !ok {
		return
	}

	result, err := h.service.Refresh(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, http.StatusBadGateway, "ingestion_failed", err.Error())
		return
	}

	status := http.StatusAccepted
	if result.Coalesced {
		status = http.StatusOK
	}
	writeJSON(w, status, SyncResponse{
		Coalesced:     result.Coalesced,
		Workouts:      result.Workouts,
		HeartRates:    result.HeartRates,
		NewCandidates: result.NewCandidates,
	})
}

func (h *Handler) candidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeMatchesRead, auth.ScopeMatchesWrite)
	if !ok {
		return
	}

	review := h.service.Candidates(claims.Subject)

	items := make([]CandidateView, 0, len(review.Candidates))
	for _, c := range review.Candidates {
		items = append(items, toCandidateView(c))
	}
	writeJSON(w, http.StatusOK, CandidatesResponse{
		Items:            items,
		UnmatchedPlanIDs: review.UnmatchedPlanIDs,
	})
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	claims, req, ok := h.decideRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.Confirm(r.Context(), claims.Subject, req.PlanID, req.WorkoutID); err != nil {
		switch {
		case errors.Is(err, domain.ErrCandidateNotFound), errors.Is(err, domain.ErrWorkoutNotFound):
			writeError(w, http.StatusNotFound, "not_found", err.Error())
		default:
			writeError(w, http.StatusBadGateway, "relay_failed", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, DecisionResponse{PlanID: req.PlanID, WorkoutID: req.WorkoutID, Outcome: "confirmed"})
}

func (h *Handler) dismiss(w http.ResponseWriter, r *http.Request) {
	claims, req, ok := h.decideRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.Dismiss(claims.Subject, req.PlanID, req.WorkoutID); err != nil {
		if errors.Is(err, domain.ErrCandidateNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, DecisionResponse{PlanID: req.PlanID, WorkoutID: req.WorkoutID, Outcome: "dismissed"})
}

// decideRequest validates the shared shape of confirm/dismiss calls.
func (h *Handler) decideRequest(w http.ResponseWriter, r *http.Request) (*auth.Claims, DecisionRequest, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return nil, DecisionRequest{}, false
	}
	claims, ok := requireScope(w, r, auth.ScopeMatchesWrite)
	if !ok {
		return nil, DecisionRequest{}, false
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return nil, DecisionRequest{}, false
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return nil, DecisionRequest{}, false
	}
	return claims, req, true
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeMatchesWrite)
	if !ok {
		return
	}

	if err := h.service.Reset(r.Context(), claims.Subject); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeMatchesRead, auth.ScopeMatchesWrite)
	if !ok {
		return
	}

	status, err := h.service.Status(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		WorkoutAnchor:    status.Anchors.Workouts,
		HeartRateAnchor:  status.Anchors.HeartRate,
		OfferedWorkouts:  status.OfferedWorkouts,
		HeartRateSamples: status.HeartRateSamples,
		PlanEntries:      status.PlanEntries,
		Syncing:          status.Syncing,
	})
}

func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return claims, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
	return nil, false
}

// SyncResponse summarises a sync trigger.
type SyncResponse struct {
	Coalesced     bool `json:"coalesced"`
	Workouts      int  `json:"workouts"`
	HeartRates    int  `json:"heart_rate_samples"`
	NewCandidates int  `json:"new_candidates"`
}

// DecisionRequest is the payload for confirm/dismiss.
type DecisionRequest struct {
	PlanID    string `json:"plan_id"`
	WorkoutID string `json:"workout_id"`
}

// Validate ensures request correctness.
func (r DecisionRequest) Validate() error {
	if strings.TrimSpace(r.PlanID) == "" {
		return errors.New("plan_id is required")
	}
	if strings.TrimSpace(r.WorkoutID) == "" {
		return errors.New("workout_id is required")
	}
	return nil
}

// DecisionResponse echoes the decided pairing.
type DecisionResponse struct {
	PlanID    string `json:"plan_id"`
	WorkoutID string `json:"workout_id"`
	Outcome   string `json:"outcome"`
}

// CandidateView exposes one proposed pairing.
type CandidateView struct {
	PlanID             string    `json:"plan_id"`
	PlanTitle          string    `json:"plan_title"`
	PlanStart          time.Time `json:"plan_start"`
	WorkoutID          string    `json:"workout_id"`
	WorkoutStart       time.Time `json:"workout_start"`
	DurationSeconds    *float64  `json:"duration_seconds,omitempty"`
	DistanceMeters     *float64  `json:"distance_meters,omitempty"`
	EnergyKcal         *float64  `json:"energy_kcal,omitempty"`
	StrokeCount        *float64  `json:"stroke_count,omitempty"`
	PacePer100mSeconds *float64  `json:"pace_per_100m_seconds,omitempty"`
	SwolfApprox        *float64  `json:"swolf_approx,omitempty"`
	SourceName         string    `json:"source_name,omitempty"`
	DeviceName         string    `json:"device_name,omitempty"`
	Reason             string    `json:"reason"`
}

// CandidatesResponse packages the review set.
type CandidatesResponse struct {
	Items            []CandidateView `json:"items"`
	UnmatchedPlanIDs []string        `json:"unmatched_plan_ids,omitempty"`
}

// StatusResponse is the QA view of per-user sync state.
type StatusResponse struct {
	WorkoutAnchor    string `json:"workout_anchor,omitempty"`
	HeartRateAnchor  string `json:"heart_rate_anchor,omitempty"`
	OfferedWorkouts  int    `json:"offered_workouts"`
	HeartRateSamples int    `json:"heart_rate_samples"`
	PlanEntries      int    `json:"plan_entries"`
	Syncing          bool   `json:"syncing"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toCandidateView(c domain.MatchCandidate) CandidateView {
	return CandidateView{
		PlanID:             c.PlanID,
		PlanTitle:          c.PlanTitle,
		PlanStart:          c.PlanStart,
		WorkoutID:          c.WorkoutID,
		WorkoutStart:       c.WorkoutStart,
		DurationSeconds:    c.DurationSeconds,
		DistanceMeters:     c.DistanceMeters,
		EnergyKcal:         c.EnergyKcal,
		StrokeCount:        c.StrokeCount,
		PacePer100mSeconds: c.PacePer100mSeconds,
		SwolfApprox:        c.SwolfApprox,
		SourceName:         c.SourceName,
		DeviceName:         c.DeviceName,
		Reason:             c.Reason,
	}
}
