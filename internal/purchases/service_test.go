package purchases

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/elibrary-backend/pkg/db/dbtest"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox"
)

type countingMetrics struct{ byChannel map[string]int }

func (m *countingMetrics) IncPurchase(channel string, n int) { m.byChannel[channel] += n }

func TestBuySnapshotsEffectivePrice(t *testing.T) {
	client := dbtest.Client(t)
	conn := client.DB()
	metrics := &countingMetrics{byChannel: map[string]int{}}
	svc, err := NewService(ServiceParams{
		DB:      client,
		Outbox:  outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Metrics: metrics,
	})
	require.NoError(t, err)
	ctx := context.Background()

	user := models.User{Username: "reader", Email: "r@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, conn.Create(&user).Error)
	unpriced := models.Book{Title: "Free Text", Source: enums.BookSourceGutenberg}
	require.NoError(t, conn.Create(&unpriced).Error)
	price := decimal.RequireFromString("15.25")
	priced := models.Book{Title: "Priced", Source: enums.BookSourceAdmin, Price: &price}
	require.NoError(t, conn.Create(&priced).Error)

	dto, err := svc.Buy(ctx, user.ID, unpriced.ID)
	require.NoError(t, err)
	require.Equal(t, "29.99", dto.Price.StringFixed(2))

	dto, err = svc.Buy(ctx, user.ID, priced.ID)
	require.NoError(t, err)
	require.Equal(t, "15.25", dto.Price.StringFixed(2))
	require.Equal(t, 2, metrics.byChannel["direct"])

	_, err = svc.Buy(ctx, user.ID, priced.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	require.Equal(t, AlreadyPurchasedMessage, pkgerrors.As(err).Message())

	_, err = svc.Buy(ctx, user.ID, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventBookPurchased).Count(&events).Error)
	require.EqualValues(t, 2, events)

	rows, err := NewRepository(conn).ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "reader", FromListings(rows)[0].Username)
}

func TestInsertIgnoreSkipsOwnedBook(t *testing.T) {
	conn := dbtest.Open(t)
	r := NewRepository(conn)
	ctx := context.Background()
	userID, bookID := uuid.New(), uuid.New()

	wrote, err := r.InsertIgnore(ctx, &models.PurchaseRecord{UserID: userID, BookID: bookID, PurchaseDate: time.Now().UTC(), Price: decimal.NewFromInt(1)})
	require.NoError(t, err)
	require.True(t, wrote)

	wrote, err = r.InsertIgnore(ctx, &models.PurchaseRecord{UserID: userID, BookID: bookID, PurchaseDate: time.Now().UTC(), Price: decimal.NewFromInt(2)})
	require.NoError(t, err)
	require.False(t, wrote)

	owned, err := r.Exists(ctx, userID, bookID)
	require.NoError(t, err)
	require.True(t, owned)
}
