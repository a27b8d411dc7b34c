package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
)

const NoPendingMessage = "no pending checkout"

// PendingCheckout is a single-book selection waiting for payment.
type PendingCheckout struct {
	Action    enums.OrderType `json:"action"`
	BookID    uuid.UUID       `json:"book_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

type pendingStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	PendingCheckoutKey(userID string) string
}

func (s *service) savePending(ctx context.Context, userID uuid.UUID, p PendingCheckout) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode pending checkout")
	}
	if err := s.pending.Set(ctx, s.pending.PendingCheckoutKey(userID.String()), string(raw), s.pendingTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store pending checkout")
	}
	return nil
}

func (s *service) loadPending(ctx context.Context, userID uuid.UUID) (*PendingCheckout, error) {
	raw, err := s.pending.Get(ctx, s.pending.PendingCheckoutKey(userID.String()))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, pkgerrors.NotFound(NoPendingMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending checkout")
	}
	var p PendingCheckout
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, fmt.Errorf("decode pending checkout: %w", err), "load pending checkout")
	}
	return &p, nil
}

func (s *service) clearPending(ctx context.Context, userID uuid.UUID) {
	if err := s.pending.Del(ctx, s.pending.PendingCheckoutKey(userID.String())); err != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"user_id": userID.String(), "error": err.Error()})
		s.logg.Warn(ctx, "failed to clear pending checkout")
	}
}
