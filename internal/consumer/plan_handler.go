package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"example.com/swimmatch/internal/domain"
	"example.com/swimmatch/internal/events"
)

// PlanSink installs a plan snapshot for a user. Implemented by the domain
// service.
type PlanSink interface {
	ReplacePlan(ctx context.Context, userID string, entries []domain.TrainingPlanEntry) error
}

// PlanHandler decodes plan.snapshot events and forwards them to the sink.
type PlanHandler struct {
	sink   PlanSink
	logger *log.Logger
}

// NewPlanHandler constructs a PlanHandler.
func NewPlanHandler(sink PlanSink) *PlanHandler {
	return &PlanHandler{
		sink:   sink,
		logger: log.New(log.Writer(), "[plan-handler] ", log.LstdFlags),
	}
}

// Handle implements Handler. Unknown event types are skipped, not failed, so
// a mixed topic does not stall the consumer.
func (h *PlanHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.TypePlanSnapshot {
		h.logger.Printf("skipping event_type=%s (topic=%s offset=%d)", msg.EventType, msg.Topic, msg.Offset)
		return nil
	}

	var snapshot events.PlanSnapshot
	if err := json.Unmarshal(msg.Payload, &snapshot); err != nil {
		return fmt.Errorf("unmarshal plan snapshot: %w", err)
	}

	userID := snapshot.UserID
	if userID == "" {
		userID = msg.UserID
	}
	if userID == "" {
		return fmt.Errorf("plan snapshot without user id (topic=%s offset=%d)", msg.Topic, msg.Offset)
	}

	entries := make([]domain.TrainingPlanEntry, 0, len(snapshot.Trainings))
	for _, t := range snapshot.Trainings {
		entry := domain.TrainingPlanEntry{
			ID:               t.ID,
			Title:            t.Title,
			TrainingDate:     t.TrainingDate,
			EstimatedMinutes: t.EstimatedMinutes,
		}
		if planned, ok := plannedDistanceMeters(t.Content); ok {
			entry.PlannedDistanceMeters = &planned
		}
		entries = append(entries, entry)
	}

	if err := h.sink.ReplacePlan(ctx, userID, entries); err != nil {
		return fmt.Errorf("replace plan (user=%s): %w", userID, err)
	}
	h.logger.Printf("installed plan snapshot (user=%s entries=%d)", userID, len(entries))
	return nil
}

type planContent struct {
	Sections []struct {
		Sets []struct {
			Repeat *float64 `json:"repeat"`
			Steps  []struct {
				Repeat   *float64 `json:"repeat"`
				Distance *float64 `json:"distance"`
			} `json:"steps"`
		} `json:"sets"`
	} `json:"sections"`
}

// plannedDistanceMeters sums step distances across sections, multiplying by
// set and step repeats. Content may arrive as an object or as a JSON string
// wrapping one; a zero or unparseable plan yields no planned distance.
func plannedDistanceMeters(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	data := []byte(raw)
	var wrapped string
	if err := json.Unmarshal(data, &wrapped); err == nil {
		data = []byte(wrapped)
	}

	var content planContent
	if err := json.Unmarshal(data, &content); err != nil {
		return 0, false
	}

	var sum float64
	for _, section := range content.Sections {
		for _, set := range section.Sets {
			setRepeat := repeatOrOne(set.Repeat)
			for _, step := range set.Steps {
				if step.Distance == nil {
					continue
				}
				sum += *step.Distance * repeatOrOne(step.Repeat) * setRepeat
			}
		}
	}
	if sum <= 0 {
		return 0, false
	}
	return sum, true
}

func repeatOrOne(v *float64) float64 {
	if v == nil || *v <= 0 {
		return 1
	}
	return *v
}
