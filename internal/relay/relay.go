// Package relay publishes confirmed matches back to the plan side over
// Kafka. Publishing is synchronous but fire-and-forget from the engine's
// point of view: nothing downstream feeds back into matching.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"example.com/swimmatch/internal/domain"
	"example.com/swimmatch/internal/events"
)

// Publisher turns confirmed candidates into match.confirmed messages.
type Publisher struct {
	producer Producer
	now      func() time.Time
	logger   *log.Logger
}

// NewPublisher creates a Publisher on top of a Kafka producer.
func NewPublisher(producer Producer) *Publisher {
	return &Publisher{
		producer: producer,
		now:      time.Now,
		logger:   log.New(log.Writer(), "[relay] ", log.LstdFlags),
	}
}

// PublishConfirmed implements domain.ConfirmationRelay. Messages are keyed
// by user id so confirmations for one user stay ordered.
func (p *Publisher) PublishConfirmed(ctx context.Context, userID string, c domain.MatchCandidate, w domain.CanonicalWorkout) error {
	event := events.MatchConfirmed{
		EventID:            uuid.NewString(),
		UserID:             userID,
		PlanID:             c.PlanID,
		PlanTitle:          c.PlanTitle,
		WorkoutID:          c.WorkoutID,
		WorkoutStart:       w.StartTime,
		DurationSeconds:    w.DurationSeconds,
		DistanceMeters:     w.DistanceMeters,
		EnergyKcal:         w.EnergyKcal,
		StrokeCount:        w.StrokeCount,
		PacePer100mSeconds: c.PacePer100mSeconds,
		SwolfApprox:        c.SwolfApprox,
		SourceName:         w.SourceName,
		DeviceName:         w.DeviceName,
		Reason:             c.Reason,
		ConfirmedAt:        p.now().UTC(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal match.confirmed: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(userID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(events.TypeMatchConfirmed)},
			{Key: "user_id", Value: []byte(userID)},
		},
	}

	if err := p.producer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish match.confirmed: %w", err)
	}
	p.logger.Printf("relayed confirmation (user=%s plan=%s workout=%s)", userID, c.PlanID, c.WorkoutID)
	return nil
}
