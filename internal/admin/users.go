package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/users"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/security"
)

const (
	UserNotFoundMessage    = "user not found"
	CannotDeleteAdminError = "cannot delete admin user"
)

func (s *service) ListUsers(ctx context.Context) ([]users.UserDTO, error) {
	var out []users.UserDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := users.NewRepository(tx).List(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
		}
		out = users.FromModels(rows)
		return nil
	})
	return out, err
}

func (s *service) GetUser(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	var out *users.UserDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := users.NewRepository(tx).FindByID(ctx, userID)
		if err != nil {
			return wrapLookup(err, UserNotFoundMessage, "load user")
		}
		out = users.FromModel(user)
		return nil
	})
	return out, err
}

func (s *service) AddUser(ctx context.Context, adminID uuid.UUID, in UserInput) (*users.UserDTO, error) {
	username, email, err := users.NormalizeIdentity(in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	var out *users.UserDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := users.CreateUnique(ctx, users.NewRepository(tx), users.CreateUserDTO{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			IsAdmin:      in.IsAdmin,
		})
		if err != nil {
			return err
		}
		if err := audit(ctx, tx, adminID, enums.AdminActionAddUser, user.ID, "Added user: "+user.Username); err != nil {
			return err
		}
		out = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) EditUser(ctx context.Context, adminID, userID uuid.UUID, in UserUpdate) (*users.UserDTO, error) {
	username, email, err := users.NormalizeIdentity(in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	var hash string
	if in.Password != "" {
		if hash, err = s.hash(in.Password); err != nil {
			return nil, err
		}
	}

	var out *users.UserDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		r := users.NewRepository(tx)
		user, err := r.FindByID(ctx, userID)
		if err != nil {
			return wrapLookup(err, UserNotFoundMessage, "load user")
		}
		if err := users.CheckUnique(ctx, r, username, email, user.ID); err != nil {
			return err
		}
		old := user.Username
		user.Username = username
		user.Email = email
		if hash != "" {
			user.PasswordHash = hash
		}
		if err := r.Update(ctx, user); err != nil {
			return users.MapUniqueViolation(err, "update user")
		}
		details := fmt.Sprintf("Edited user: %s -> %s", old, user.Username)
		if err := audit(ctx, tx, adminID, enums.AdminActionEditUser, user.ID, details); err != nil {
			return err
		}
		out = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) MakeAdmin(ctx context.Context, adminID, userID uuid.UUID) (*users.UserDTO, error) {
	return s.mutateUser(ctx, userID, func(tx *gorm.DB, r *users.Repository, u *models.User) error {
		u.IsAdmin = true
		if err := r.Update(ctx, u); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "promote user")
		}
		return audit(ctx, tx, adminID, enums.AdminActionMakeAdmin, u.ID, "Promoted user to admin: "+u.Username)
	})
}

// ToggleUserStatus flips is_active. Deactivation also revokes the user's
// sessions before the transaction commits, so a revocation failure leaves the
// user active and the call can be retried.
func (s *service) ToggleUserStatus(ctx context.Context, adminID, userID uuid.UUID) (*users.UserDTO, error) {
	return s.mutateUser(ctx, userID, func(tx *gorm.DB, r *users.Repository, u *models.User) error {
		u.IsActive = !u.IsActive
		if err := r.Update(ctx, u); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle user status")
		}
		verb := "Deactivated"
		if u.IsActive {
			verb = "Activated"
		}
		if err := audit(ctx, tx, adminID, enums.AdminActionToggleUserStatus, u.ID, verb+" user: "+u.Username); err != nil {
			return err
		}
		if u.IsActive {
			return nil
		}
		return s.revokeSessions(ctx, u.ID)
	})
}

func (s *service) revokeSessions(ctx context.Context, userID uuid.UUID) error {
	if s.sessions == nil {
		return nil
	}
	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke user sessions")
	}
	return nil
}

// DeleteUser refuses to remove administrators and ends the user's sessions.
func (s *service) DeleteUser(ctx context.Context, adminID, userID uuid.UUID) error {
	_, err := s.mutateUser(ctx, userID, func(tx *gorm.DB, r *users.Repository, u *models.User) error {
		if u.IsAdmin {
			return pkgerrors.Forbidden(CannotDeleteAdminError)
		}
		if err := r.Delete(ctx, u.ID); err != nil {
			return wrapLookup(err, UserNotFoundMessage, "delete user")
		}
		if err := audit(ctx, tx, adminID, enums.AdminActionDeleteUser, u.ID, "Deleted user: "+u.Username); err != nil {
			return err
		}
		return s.revokeSessions(ctx, u.ID)
	})
	return err
}

func (s *service) mutateUser(ctx context.Context, userID uuid.UUID, fn func(tx *gorm.DB, r *users.Repository, u *models.User) error) (*users.UserDTO, error) {
	var out *users.UserDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		r := users.NewRepository(tx)
		user, err := r.FindByID(ctx, userID)
		if err != nil {
			return wrapLookup(err, UserNotFoundMessage, "load user")
		}
		if err := fn(tx, r, user); err != nil {
			return err
		}
		out = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) hash(password string) (string, error) {
	if err := security.CheckPolicy(password); err != nil {
		return "", pkgerrors.Validation(err.Error())
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return hash, nil
}
