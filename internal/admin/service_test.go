package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/orders"
	"github.com/angelmondragon/elibrary-backend/pkg/config"
	"github.com/angelmondragon/elibrary-backend/pkg/db/dbtest"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox"
)

type stubRevoker struct {
	revoked []uuid.UUID
	err     error
}

func (s *stubRevoker) RevokeUser(_ context.Context, userID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.revoked = append(s.revoked, userID)
	return nil
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	sessions *stubRevoker
	admin    models.User
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Client(t)
	f := &fixture{db: client.DB(), sessions: &stubRevoker{}, now: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)}
	svc, err := NewService(ServiceParams{
		DB:          client,
		Orders:      orders.NewRepository(client.DB()),
		DeadLetters: outbox.NewDLQRepository(client.DB()),
		Sessions:    f.sessions,
		PasswordConfig: config.PasswordConfig{
			ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32,
		},
		Now: func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc
	f.admin = models.User{Username: "admin", Email: "admin@elibrary.com", PasswordHash: "x", IsAdmin: true, IsActive: true}
	require.NoError(t, f.db.Create(&f.admin).Error)
	return f
}

func (f *fixture) logs(t *testing.T) []models.AdminLog {
	t.Helper()
	var rows []models.AdminLog
	require.NoError(t, f.db.Order("created_at ASC").Order("rowid ASC").Find(&rows).Error)
	return rows
}

func TestBookLifecycleIsAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat, err := f.svc.AddCategory(ctx, f.admin.ID, CategoryInput{Name: "Science"})
	require.NoError(t, err)

	price := decimal.RequireFromString("15.00")
	book, err := f.svc.AddBook(ctx, f.admin.ID, BookInput{Title: " Cosmos ", Description: "space", Price: &price, CategoryID: &cat.ID})
	require.NoError(t, err)
	assert.Equal(t, "Cosmos", book.Title)
	assert.Equal(t, enums.BookSourceAdmin, book.Source)
	require.NotNil(t, book.CategoryName)
	assert.Equal(t, "Science", *book.CategoryName)
	require.NotNil(t, book.AddedByUsername)
	assert.Equal(t, "admin", *book.AddedByUsername)

	edited, err := f.svc.EditBook(ctx, f.admin.ID, book.ID, BookInput{Title: "Cosmos (2nd ed.)", Description: "space"})
	require.NoError(t, err)
	assert.Equal(t, "Cosmos (2nd ed.)", edited.Title)
	assert.True(t, edited.Price.Equal(models.DefaultBookPrice))

	listed, err := f.svc.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, f.svc.DeleteBook(ctx, f.admin.ID, book.ID))
	err = f.svc.DeleteBook(ctx, f.admin.ID, book.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	logs := f.logs(t)
	require.Len(t, logs, 4)
	assert.Equal(t, enums.AdminActionAddCategory, logs[0].ActionType)
	assert.Equal(t, "Added book: Cosmos", logs[1].Details)
	assert.Equal(t, "Edited book: Cosmos (2nd ed.)", logs[2].Details)
	assert.Equal(t, "Deleted book: Cosmos (2nd ed.)", logs[3].Details)
}

func TestBookValidationWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddBook(ctx, f.admin.ID, BookInput{Title: "  "})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missing := uuid.New()
	_, err = f.svc.AddBook(ctx, f.admin.ID, BookInput{Title: "Orphan", CategoryID: &missing})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.EditBook(ctx, f.admin.ID, uuid.New(), BookInput{Title: "Ghost"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	assert.Empty(t, f.logs(t))
}

func TestUserManagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.AddUser(ctx, f.admin.ID, UserInput{Username: "alice", Email: "Alice@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.IsActive)

	_, err = f.svc.AddUser(ctx, f.admin.ID, UserInput{Username: "alice", Email: "other@example.com", Password: "secret1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, "username already exists", pkgerrors.As(err).Message())
	_, err = f.svc.AddUser(ctx, f.admin.ID, UserInput{Username: "alicia", Email: "alice@example.com", Password: "secret1"})
	assert.Equal(t, "email already exists", pkgerrors.As(err).Message())

	edited, err := f.svc.EditUser(ctx, f.admin.ID, user.ID, UserUpdate{Username: "alice2", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "alice2", edited.Username)

	toggled, err := f.svc.ToggleUserStatus(ctx, f.admin.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	assert.Equal(t, []uuid.UUID{user.ID}, f.sessions.revoked)
	toggled, err = f.svc.ToggleUserStatus(ctx, f.admin.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)
	assert.Len(t, f.sessions.revoked, 1)

	err = f.svc.DeleteUser(ctx, f.admin.ID, f.admin.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	promoted, err := f.svc.MakeAdmin(ctx, f.admin.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, promoted.Role)

	got, err := f.svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)

	_, err = f.svc.GetUser(ctx, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	details := make([]string, 0)
	for _, l := range f.logs(t) {
		details = append(details, l.Details)
	}
	assert.Equal(t, []string{
		"Added user: alice",
		"Edited user: alice -> alice2",
		"Deactivated user: alice2",
		"Activated user: alice2",
		"Promoted user to admin: alice2",
	}, details)
}

func TestDeactivationKeepsUserActiveWhenRevokeFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, f.db.Create(&user).Error)

	f.sessions.err = errors.New("redis down")
	_, err := f.svc.ToggleUserStatus(ctx, f.admin.ID, user.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	var stored models.User
	require.NoError(t, f.db.First(&stored, "id = ?", user.ID).Error)
	assert.True(t, stored.IsActive)
	assert.Empty(t, f.logs(t))

	f.sessions.err = nil
	toggled, err := f.svc.ToggleUserStatus(ctx, f.admin.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	assert.Equal(t, []uuid.UUID{user.ID}, f.sessions.revoked)
	require.Len(t, f.logs(t), 1)
}

func TestDeleteReaderAndCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reader, err := f.svc.AddUser(ctx, f.admin.ID, UserInput{Username: "bob", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteUser(ctx, f.admin.ID, reader.ID))
	assert.Equal(t, []uuid.UUID{reader.ID}, f.sessions.revoked)
	err = f.svc.DeleteUser(ctx, f.admin.ID, reader.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	cat, err := f.svc.AddCategory(ctx, f.admin.ID, CategoryInput{Name: "History"})
	require.NoError(t, err)
	_, err = f.svc.AddCategory(ctx, f.admin.ID, CategoryInput{Name: "History"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	book := models.Book{Title: "SPQR", Source: enums.BookSourceAdmin, CategoryID: &cat.ID}
	require.NoError(t, f.db.Create(&book).Error)
	require.NoError(t, f.svc.DeleteCategory(ctx, f.admin.ID, cat.ID))

	var reloaded models.Book
	require.NoError(t, f.db.First(&reloaded, "id = ?", book.ID).Error)
	assert.Nil(t, reloaded.CategoryID)

	cats, err := f.svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)

	logs := f.logs(t)
	assert.Equal(t, "Deleted book category: History", logs[len(logs)-1].Details)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	recent := f.now.Add(-2 * time.Hour)
	stale := f.now.Add(-48 * time.Hour)
	require.NoError(t, f.db.Create(&models.User{Username: "fresh", Email: "fresh@example.com", PasswordHash: "x", IsActive: true, LastLogin: &recent}).Error)
	require.NoError(t, f.db.Create(&models.User{Username: "stale", Email: "stale@example.com", PasswordHash: "x", IsActive: true, LastLogin: &stale}).Error)
	require.NoError(t, f.db.Create(&models.Book{Title: "Imported", Source: enums.BookSourceOpenLibrary}).Error)
	_, err := f.svc.AddBook(ctx, f.admin.ID, BookInput{Title: "Local"})
	require.NoError(t, err)

	dash, err := f.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, dash.TotalBooks)
	assert.EqualValues(t, 3, dash.TotalUsers)
	assert.EqualValues(t, 1, dash.ActiveUsers)
	assert.Len(t, dash.RecentUsers, 3)
	require.Len(t, dash.RecentLogs, 1)
	assert.Equal(t, "admin", dash.RecentLogs[0].AdminUsername)
}

func TestListingsAndDeadLetters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	borrows, err := f.svc.BorrowedBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, borrows)
	bought, err := f.svc.PurchasedBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, bought)
	txns, err := f.svc.Transactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txns)

	require.NoError(t, outbox.NewDLQRepository(f.db).InsertTx(f.db, models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		AttemptCount:  10,
		FailedAt:      f.now,
	}))
	dead, err := f.svc.DeadLetters(ctx, outbox.DLQFilter{})
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, 10, dead[0].AttemptCount)

	dead, err = f.svc.DeadLetters(ctx, outbox.DLQFilter{Reason: enums.OutboxDLQReasonNonRetryable})
	require.NoError(t, err)
	assert.Empty(t, dead)

	_, err = f.svc.DeadLetters(ctx, outbox.DLQFilter{Reason: "gave_up"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
