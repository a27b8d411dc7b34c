package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox/registry"
)

const (
	outcomePublished  = "published"
	outcomeRetry      = "retry"
	outcomeDeadLetter = "dead_letter"
)

// verdict is what happens to a row after one publish attempt.
type verdict struct {
	outcome string
	reason  enums.OutboxDLQErrorReason
	err     error
}

// judge maps a publish error to a verdict. attempts is the row's count before this try.
func judge(pubErr error, attempts, maxAttempts int) verdict {
	if pubErr == nil {
		return verdict{outcome: outcomePublished}
	}
	var nonRetry registry.NonRetryableError
	if errors.As(pubErr, &nonRetry) {
		return verdict{outcome: outcomeDeadLetter, reason: enums.OutboxDLQReasonNonRetryable, err: pubErr}
	}
	if attempts+1 >= maxAttempts {
		return verdict{
			outcome: outcomeDeadLetter,
			reason:  enums.OutboxDLQReasonMaxAttempts,
			err:     fmt.Errorf("max publish attempts reached: %w", pubErr),
		}
	}
	return verdict{outcome: outcomeRetry, err: pubErr}
}

// processBatch locks one batch of rows and settles each of them inside the same
// transaction. It reports whether any rows were found.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	found := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		found = len(rows) > 0
		for _, row := range rows {
			if err := s.dispatch(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return found, err
}

// dispatch fails only when the row's new state could not be written.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	})

	resolved, err := s.registry.Resolve(row)
	if err != nil {
		return s.settle(ctx, tx, row, verdict{outcome: outcomeDeadLetter, reason: enums.OutboxDLQReasonNonRetryable, err: err})
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id": resolved.Envelope.EventID,
		"topic":    resolved.Descriptor.Topic,
	})
	return s.settle(ctx, tx, row, judge(s.publish(ctx, row, resolved), row.AttemptCount, s.maxAttempts))
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, v verdict) error {
	switch v.outcome {
	case outcomePublished:
		if err := s.repo.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		s.logg.Debug(ctx, "outbox event published")
	case outcomeRetry:
		if err := s.repo.MarkFailedTx(tx, row.ID, v.err); err != nil {
			return fmt.Errorf("mark failed %s: %w", row.ID, err)
		}
		s.logg.Warn(s.logg.WithField(ctx, "error", v.err.Error()), "outbox publish failed, will retry")
	default:
		if err := s.deadLetter(tx, row, v); err != nil {
			return err
		}
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"error":        v.err.Error(),
			"error_reason": v.reason,
		}), "outbox event dead-lettered")
	}
	s.observe(row, v.outcome)
	return nil
}

func (s *Service) deadLetter(tx *gorm.DB, row models.OutboxEvent, v verdict) error {
	msg := v.err.Error()
	err := s.dlq.InsertTx(tx, models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   v.reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, row.ID, v.err, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFactory(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}

	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	res := pub.Publish(ctx, &gcppubsub.Message{
		Data:       row.Payload,
		Attributes: messageAttributes(row, resolved.Envelope),
	})
	if res == nil {
		return registry.NewNonRetryableError(fmt.Errorf("topic %s returned no publish result", topic))
	}
	_, err := res.Get(ctx)
	return err
}

// messageAttributes carry routing and dedupe keys so subscribers can skip decoding.
func messageAttributes(row models.OutboxEvent, env outbox.PayloadEnvelope) map[string]string {
	attrs := map[string]string{
		"event_id":       env.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
	}
	if env.Version > 0 {
		attrs["version"] = strconv.Itoa(env.Version)
	}
	return attrs
}

func (s *Service) observe(row models.OutboxEvent, outcome string) {
	if s.metrics == nil {
		return
	}
	lag := -1.0
	if outcome == outcomePublished && !row.CreatedAt.IsZero() {
		lag = s.now().Sub(row.CreatedAt).Seconds()
	}
	s.metrics.Observe(string(row.EventType), outcome, lag)
}
