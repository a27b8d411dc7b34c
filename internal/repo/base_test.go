package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
)

type ctxKey struct{}

func TestNewBaseStoresConnection(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	if base.db != db {
		t.Fatalf("expected base db to match provided connection")
	}
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	withCtx := base.DB(ctx)
	if withCtx == nil || withCtx.Statement == nil {
		t.Fatalf("expected statement created after WithContext")
	}
	if withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through, got %v", withCtx.Statement.Context)
	}

	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseConnPrefersTransaction(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		if base.Conn(context.Background(), tx) != tx {
			t.Fatalf("expected tx to be returned")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if base.Conn(context.Background(), nil) == nil {
		t.Fatalf("expected pooled connection when tx is nil")
	}
}

func TestNotFoundMapping(t *testing.T) {
	err := NotFound(fmt.Errorf("load: %w", gorm.ErrRecordNotFound), "book not found")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found code, got %v", err)
	}
	if pkgerrors.As(err).Message() != "book not found" {
		t.Fatalf("unexpected message %q", pkgerrors.As(err).Message())
	}

	other := errors.New("boom")
	if NotFound(other, "x") != other {
		t.Fatalf("expected unrelated errors to pass through")
	}
}
