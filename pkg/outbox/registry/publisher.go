package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/elibrary-backend/pkg/config"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

// EventDescriptor links an event type to its aggregate, topic and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError tells the publisher to dead-letter the row instead of retrying.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// LedgerDescriptors lists every ledger event with its aggregate and payload type.
// Both the publisher registry and the consumer decoders are built from it.
func LedgerDescriptors(topic string) []EventDescriptor {
	return []EventDescriptor{
		{enums.EventOrderPlaced, enums.AggregateOrder, topic, func() any { return &payloads.OrderPlacedEvent{} }},
		{enums.EventBookBorrowed, enums.AggregateBorrow, topic, func() any { return &payloads.BookBorrowedEvent{} }},
		{enums.EventBookReturned, enums.AggregateBorrow, topic, func() any { return &payloads.BookReturnedEvent{} }},
		{enums.EventRefundIssued, enums.AggregateBorrow, topic, func() any { return &payloads.RefundIssuedEvent{} }},
		{enums.EventBookPurchased, enums.AggregatePurchase, topic, func() any { return &payloads.BookPurchasedEvent{} }},
		{enums.EventBorrowOverdue, enums.AggregateBorrow, topic, func() any { return &payloads.BorrowOverdueEvent{} }},
	}
}

// NewEventRegistry builds the registry routing every ledger event to the ledger topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.LedgerTopic == "" {
		return nil, errors.New("ledger topic is required")
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	for _, desc := range LedgerDescriptors(cfg.LedgerTopic) {
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(errors.New("missing aggregate_id"))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	payload, err := decodeData(desc, envelope.Data)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

func decodeData(desc EventDescriptor, data json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("payload missing for %s", desc.EventType)
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(trimmed, payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", desc.EventType, err)
	}
	return payload, nil
}
