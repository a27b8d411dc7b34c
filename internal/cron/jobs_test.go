package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/elibrary-backend/internal/borrowing"
	"github.com/angelmondragon/elibrary-backend/internal/catalog"
	"github.com/angelmondragon/elibrary-backend/internal/notifications"
	"github.com/angelmondragon/elibrary-backend/pkg/db/dbtest"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox/payloads"
)

type memLockStore struct {
	values map[string]string
}

func (m *memLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memLockStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memLockStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func TestRedisLockExclusiveAndOwnerChecked(t *testing.T) {
	store := &memLockStore{values: map[string]string{}}
	first, err := NewRedisLock(store, "elib:lock:cron", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "elib:lock:cron", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	// releasing a lock never acquired leaves the holder alone
	require.NoError(t, second.Release(context.Background()))
	assert.Contains(t, store.values, "elib:lock:cron")

	// simulate expiry and takeover by another worker
	store.values["elib:lock:cron"] = "someone-else"
	require.NoError(t, first.Release(context.Background()))
	assert.Equal(t, "someone-else", store.values["elib:lock:cron"])

	delete(store.values, "elib:lock:cron")
	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, second.Release(context.Background()))
	assert.Empty(t, store.values)
}

func TestNewRedisLockValidation(t *testing.T) {
	_, err := NewRedisLock(nil, "k", time.Minute)
	require.Error(t, err)
	_, err = NewRedisLock(&memLockStore{}, "", time.Minute)
	require.Error(t, err)
}

type stubSyncer struct {
	stats catalog.SyncStats
	err   error
}

func (s stubSyncer) SyncCategories(context.Context) (catalog.SyncStats, error) {
	return s.stats, s.err
}

func TestCatalogSyncJobReturnsCombinedError(t *testing.T) {
	job, err := NewCatalogSyncJob(logger.Nop(), stubSyncer{
		stats: catalog.SyncStats{Categories: 2, Subjects: 3, Books: 10},
		err:   errors.New("Fiction/fiction: timeout"),
	})
	require.NoError(t, err)
	assert.Equal(t, "catalog_sync", job.Name())
	require.EqualError(t, job.Run(context.Background()), "Fiction/fiction: timeout")

	_, err = NewCatalogSyncJob(logger.Nop(), nil)
	require.Error(t, err)
}

func TestOverdueBorrowsJobEmitsOncePerBorrow(t *testing.T) {
	client := dbtest.Client(t)
	conn := client.DB()
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

	user := models.User{Username: "reader", Email: "reader@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, conn.Create(&user).Error)
	book := models.Book{Title: "Emma", Source: enums.BookSourceGutenberg}
	require.NoError(t, conn.Create(&book).Error)
	other := models.Book{Title: "Dune", Source: enums.BookSourceOpenLibrary}
	require.NoError(t, conn.Create(&other).Error)

	late := models.BorrowRecord{
		UserID: user.ID, BookID: book.ID,
		BorrowDate: now.AddDate(0, 0, -10), ReturnDate: now.Add(-49 * time.Hour),
		DaysBorrowed: 8, TotalCost: decimal.RequireFromString("1.60"),
	}
	onTime := models.BorrowRecord{
		UserID: user.ID, BookID: other.ID,
		BorrowDate: now.AddDate(0, 0, -1), ReturnDate: now.AddDate(0, 0, 6),
		DaysBorrowed: 7, TotalCost: decimal.RequireFromString("1.40"),
	}
	require.NoError(t, conn.Create(&late).Error)
	require.NoError(t, conn.Create(&onTime).Error)

	jobIface, err := NewOverdueBorrowsJob(OverdueBorrowsJobParams{
		Logger:  logger.Nop(),
		DB:      client,
		Borrows: borrowing.NewRepository(conn),
		Outbox:  outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
	})
	require.NoError(t, err)
	job := jobIface.(*overdueBorrowsJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventBorrowOverdue, rows[0].EventType)
	assert.Equal(t, late.ID, rows[0].AggregateID)

	env, err := outbox.DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	var payload payloads.BorrowOverdueEvent
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "Emma", payload.Title)
	assert.Equal(t, 3, payload.DaysOverdue)
	assert.Equal(t, user.ID, payload.UserID)
}

func TestDaysOverdue(t *testing.T) {
	due := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysOverdue(due, due.Add(time.Minute)))
	assert.Equal(t, 1, DaysOverdue(due, due.Add(24*time.Hour)))
	assert.Equal(t, 2, DaysOverdue(due, due.Add(25*time.Hour)))
	assert.Equal(t, 1, DaysOverdue(due, due))
}

func TestNotificationCleanupJobDeletesOldReadRows(t *testing.T) {
	conn := dbtest.Open(t)
	repo := notifications.NewRepository(conn)
	now := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	userID := uuid.New()

	for _, n := range []models.Notification{
		{UserID: userID, Type: enums.NotificationTypeOrder, Title: "old read", Message: "m", CreatedAt: now.AddDate(0, 0, -40), ReadAt: ptrTime(now.AddDate(0, 0, -39))},
		{UserID: userID, Type: enums.NotificationTypeOrder, Title: "old unread", Message: "m", CreatedAt: now.AddDate(0, 0, -40)},
		{UserID: userID, Type: enums.NotificationTypeOrder, Title: "new read", Message: "m", CreatedAt: now.AddDate(0, 0, -2), ReadAt: ptrTime(now)},
	} {
		n := n
		require.NoError(t, conn.Create(&n).Error)
	}

	jobIface, err := NewNotificationCleanupJob(logger.Nop(), repo, 0)
	require.NoError(t, err)
	job := jobIface.(*notificationCleanupJob)
	job.now = func() time.Time { return now }
	require.NoError(t, job.Run(context.Background()))

	var titles []string
	require.NoError(t, conn.Model(&models.Notification{}).Order("title").Pluck("title", &titles).Error)
	assert.Equal(t, []string{"new read", "old unread"}, titles)
}

type failingPruner struct{}

func (failingPruner) DeleteReadBefore(context.Context, time.Time) (int64, error) {
	return 0, errors.New("boom")
}

func TestNotificationCleanupJobPropagatesErrors(t *testing.T) {
	job, err := NewNotificationCleanupJob(logger.Nop(), failingPruner{}, 7)
	require.NoError(t, err)
	require.Error(t, job.Run(context.Background()))
}

func TestOutboxRetentionJobUsesCutoff(t *testing.T) {
	client := dbtest.Client(t)
	conn := client.DB()
	repo := outbox.NewRepository(conn)
	svc := outbox.NewService(repo, logger.Nop())
	ctx := context.Background()

	require.NoError(t, svc.Emit(ctx, conn, outbox.DomainEvent{
		EventType:     enums.EventBookReturned,
		AggregateType: enums.AggregateBorrow,
		AggregateID:   uuid.New(),
		Data:          payloads.BookReturnedEvent{},
	}))
	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))

	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop(), DB: client, Repository: repo})
	require.NoError(t, err)
	job := jobIface.(*outboxRetentionJob)
	assert.Equal(t, outboxRetentionDays, job.retention)

	require.NoError(t, job.Run(ctx))
	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "recently published rows are kept")

	job.now = func() time.Time { return time.Now().AddDate(0, 0, 31) }
	require.NoError(t, job.Run(ctx))
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func ptrTime(t time.Time) *time.Time { return &t }
