package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox/idempotency"
)

const consumerName = "ledger-notifications"

type store interface {
	CreateOnce(ctx context.Context, n *models.Notification) (bool, error)
}

type decoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error)
}

// Consumer turns ledger events from the notifications subscription into user notifications.
type Consumer struct {
	repo         store
	subscription *pubsub.Subscriber
	decoders     decoder
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

func NewConsumer(repo store, subscription *pubsub.Subscriber, decoders decoder, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, errors.New("notifications repository required")
	}
	if subscription == nil {
		return nil, errors.New("notifications subscription required")
	}
	if decoders == nil {
		return nil, errors.New("payload decoders required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		decoders:     decoders,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run receives until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether msg should be acked. Malformed messages are acked
// and dropped; storage failures release the claim and nack for redelivery.
func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) bool {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if !eventType.IsValid() {
		c.logg.Warn(logCtx, "skipping unknown event type")
		return true
	}

	envelope, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return true
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return true
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return true
	}
	n, ok := Build(eventID, payload)
	if !ok {
		c.logg.Debug(logCtx, "event produces no notification")
		return true
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return false
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return true
	}

	created, err := c.repo.CreateOnce(ctx, n)
	if err != nil {
		c.logg.Error(logCtx, "failed to store notification", err)
		if relErr := c.idempotency.Release(ctx, consumerName, eventID); relErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency claim", relErr)
		}
		return false
	}
	if created {
		c.logg.Info(c.logg.WithField(logCtx, "user_id", n.UserID.String()), fmt.Sprintf("%s notification stored", n.Type))
	}
	return true
}
