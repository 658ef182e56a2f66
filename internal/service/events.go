package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// AttemptGradedEvent is broadcast when an attempt reaches its final grade,
// whether by auto-grading at submit or by the last outstanding manual grade.
type AttemptGradedEvent struct {
	AttemptID    uint      `json:"attempt_id"`
	AssessmentID uint      `json:"assessment_id"`
	StudentID    uint      `json:"student_id"`
	Score        float64   `json:"score"`
	Percentage   float64   `json:"percentage"`
	IsPassed     bool      `json:"is_passed"`
	AutoGraded   bool      `json:"auto_graded"`
	GradedAt     time.Time `json:"graded_at"`
}

// EventPublisher broadcasts grading events to interested consumers
// (notification fan-out, analytics). Publishing is best-effort.
type EventPublisher interface {
	PublishAttemptGraded(ctx context.Context, event AttemptGradedEvent) error
}

type natsEventPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSEventPublisher wraps a NATS connection. A nil connection yields a
// publisher that drops events, so callers need no nil checks.
func NewNATSEventPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) EventPublisher {
	if subject == "" {
		subject = "eduva.assessment.attempt.graded"
	}

	return &natsEventPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsEventPublisher) PublishAttemptGraded(_ context.Context, event AttemptGradedEvent) error {
	if p.conn == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Warn().Err(err).Uint("attempt_id", event.AttemptID).Msg("failed to publish graded event")
		return err
	}

	return nil
}

// publishGraded drops the event when no publisher is configured and never
// fails the grading operation.
func publishGraded(ctx context.Context, publisher EventPublisher, event AttemptGradedEvent) {
	if publisher == nil {
		return
	}
	_ = publisher.PublishAttemptGraded(ctx, event)
}
