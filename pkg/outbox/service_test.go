package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/pkg/db/dbtest"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox/payloads"
)

func TestEmitWritesEnvelope(t *testing.T) {
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)
	svc := outbox.NewService(repo, logger.Nop())
	borrowID := uuid.New()
	actor := &outbox.ActorRef{UserID: uuid.New(), Role: "user"}

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventBookBorrowed,
			AggregateType: enums.AggregateBorrow,
			AggregateID:   borrowID,
			Actor:         actor,
			Data:          payloads.BookBorrowedEvent{BorrowID: borrowID, Title: "Dune", Days: 3},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, borrowID, rows[0].AggregateID)
	require.Nil(t, rows[0].PublishedAt)

	env, err := outbox.DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	require.Equal(t, 1, env.Version)
	require.NotEmpty(t, env.EventID)
	require.Equal(t, actor.UserID, env.Actor.UserID)
	require.JSONEq(t, `"Dune"`, string(mustField(t, env.Data, "title")))
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)

	boom := errors.New("boom")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          payloads.OrderPlacedEvent{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEmitValidatesEvent(t *testing.T) {
	conn := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)
	ctx := context.Background()

	require.Error(t, svc.Emit(ctx, nil, outbox.DomainEvent{}))
	require.Error(t, svc.Emit(ctx, conn, outbox.DomainEvent{EventType: "nope", AggregateType: enums.AggregateOrder, AggregateID: uuid.New()}))
	require.Error(t, svc.Emit(ctx, conn, outbox.DomainEvent{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder}))
}

func TestEmitIfNotExistsIsOncePerAggregate(t *testing.T) {
	conn := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)
	borrowID := uuid.New()
	event := outbox.DomainEvent{
		EventType:     enums.EventBorrowOverdue,
		AggregateType: enums.AggregateBorrow,
		AggregateID:   borrowID,
		Data:          payloads.BorrowOverdueEvent{BorrowID: borrowID},
	}

	written, err := svc.EmitIfNotExists(context.Background(), conn, event)
	require.NoError(t, err)
	require.True(t, written)

	written, err = svc.EmitIfNotExists(context.Background(), conn, event)
	require.NoError(t, err)
	require.False(t, written)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)
	svc := outbox.NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Emit(ctx, conn, outbox.DomainEvent{
			EventType:     enums.EventBookPurchased,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   uuid.New(),
			Data:          payloads.BookPurchasedEvent{},
		}))
	}

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(conn, rows[1].ID, errors.New("unavailable")))
	require.NoError(t, repo.MarkTerminalTx(conn, rows[2].ID, errors.New("bad payload"), 3))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	require.Equal(t, "unavailable", *rows[0].LastError)
}

func TestRepositoryDeletePublishedBefore(t *testing.T) {
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)
	svc := outbox.NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Emit(ctx, conn, outbox.DomainEvent{
			EventType:     enums.EventBookReturned,
			AggregateType: enums.AggregateBorrow,
			AggregateID:   uuid.New(),
			Data:          payloads.BookReturnedEvent{},
		}))
	}
	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkTerminalTx(conn, rows[1].ID, errors.New("bad payload"), 3))

	deleted, err := repo.DeletePublishedBefore(conn, time.Now().UTC().Add(-time.Hour), 3)
	require.NoError(t, err)
	require.Zero(t, deleted)

	deleted, err = repo.DeletePublishedBefore(conn, time.Now().UTC().Add(time.Hour), 3)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	var left []models.OutboxEvent
	require.NoError(t, conn.Find(&left).Error)
	require.Len(t, left, 1)
	require.Equal(t, rows[2].ID, left[0].ID)
}

func TestDLQRepository(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := outbox.NewDLQRepository(conn)
	ctx := context.Background()
	eventID := uuid.New()

	found, err := dlq.FindByEventID(ctx, eventID)
	require.NoError(t, err)
	require.Nil(t, found)

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &msg,
	}))

	found, err = dlq.FindByEventID(ctx, eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Len(t, *found.ErrorMessage, 1024)

	list, err := dlq.List(ctx, outbox.DLQFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = dlq.List(ctx, outbox.DLQFilter{Reason: enums.OutboxDLQReasonMaxAttempts})
	require.NoError(t, err)
	require.Empty(t, list)

	list, err = dlq.List(ctx, outbox.DLQFilter{Reason: enums.OutboxDLQReasonNonRetryable, EventType: enums.EventOrderPlaced})
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.Error(t, dlq.InsertTx(conn, models.OutboxDLQ{EventID: uuid.New(), Payload: []byte(`{}`)}))
}

func mustField(t *testing.T, raw []byte, name string) []byte {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	return fields[name]
}
