package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/pkg/db"
	"github.com/angelmondragon/elibrary-backend/pkg/db/dbtest"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(dbtest.Open(t))

	created, err := r.Create(ctx, CreateUserDTO{Username: "reader", Email: "reader@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.True(t, created.IsActive)

	byName, err := r.FindByUsername(ctx, "reader")
	require.NoError(t, err)
	require.Equal(t, created.ID, byName.ID)

	byEmail, err := r.FindByEmail(ctx, "reader@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)

	_, err = r.FindByUsername(ctx, "nobody")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepositoryUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(dbtest.Open(t))

	first, err := r.Create(ctx, CreateUserDTO{Username: "dup", Email: "a@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = r.Create(ctx, CreateUserDTO{Username: "dup", Email: "b@example.com", PasswordHash: "h"})
	require.True(t, db.IsUniqueViolation(err, UsernameConstraint, "username"))

	taken, err := r.UsernameTaken(ctx, "dup", uuid.Nil)
	require.NoError(t, err)
	require.True(t, taken)

	taken, err = r.UsernameTaken(ctx, "dup", first.ID)
	require.NoError(t, err)
	require.False(t, taken)

	taken, err = r.EmailTaken(ctx, "a@example.com", uuid.Nil)
	require.NoError(t, err)
	require.True(t, taken)
}

func TestRepositoryDashboardQueries(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(dbtest.Open(t))

	now := time.Now().UTC()
	for i, name := range []string{"u1", "u2", "u3"} {
		u, err := r.Create(ctx, CreateUserDTO{Username: name, Email: name + "@example.com", PasswordHash: "h"})
		require.NoError(t, err)
		if i < 2 {
			require.NoError(t, r.UpdateLastLogin(ctx, u.ID, now.Add(-time.Duration(i*30)*time.Hour)))
		}
	}

	total, err := r.CountAll(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)

	active, err := r.CountActiveSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, active)

	recent, err := r.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
}

func TestRepositoryUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(dbtest.Open(t))

	u, err := r.Create(ctx, CreateUserDTO{Username: "old", Email: "old@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	u.Username = "new"
	u.IsAdmin = true
	require.NoError(t, r.Update(ctx, u))

	reloaded, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "new", reloaded.Username)
	require.Equal(t, enums.RoleAdmin, FromModel(reloaded).Role)

	require.NoError(t, r.Delete(ctx, u.ID))
	require.ErrorIs(t, r.Delete(ctx, u.ID), gorm.ErrRecordNotFound)
}
