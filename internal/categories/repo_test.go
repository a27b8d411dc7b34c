package categories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/pkg/db"
	"github.com/angelmondragon/elibrary-backend/pkg/db/dbtest"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
)

func TestRepositoryListOrderedByName(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(dbtest.Open(t))

	added, err := r.EnsureNames(ctx, DefaultNames)
	require.NoError(t, err)
	require.Equal(t, len(DefaultNames), added)

	again, err := r.EnsureNames(ctx, DefaultNames)
	require.NoError(t, err)
	require.Zero(t, again)

	rows, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, len(DefaultNames))
	require.Equal(t, "Arts", rows[0].Name)
	require.Equal(t, "Technology", rows[len(rows)-1].Name)
}

func TestRepositoryUniqueName(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(dbtest.Open(t))

	_, err := r.Create(ctx, "Poetry")
	require.NoError(t, err)
	_, err = r.Create(ctx, "Poetry")
	require.True(t, db.IsUniqueViolation(err, NameConstraint, "name"))
}

func TestRepositoryDeleteDetachesBooks(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	r := NewRepository(conn)

	cat, err := r.Create(ctx, "Poetry")
	require.NoError(t, err)
	book := models.Book{Title: "Odes", Source: enums.BookSourceAdmin, CategoryID: &cat.ID}
	require.NoError(t, conn.Create(&book).Error)

	require.NoError(t, r.Delete(ctx, cat.ID))
	require.ErrorIs(t, r.Delete(ctx, cat.ID), gorm.ErrRecordNotFound)

	var reloaded models.Book
	require.NoError(t, conn.First(&reloaded, "id = ?", book.ID).Error)
	require.Nil(t, reloaded.CategoryID)
}
