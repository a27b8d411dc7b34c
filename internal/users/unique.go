package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/elibrary-backend/pkg/db"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
)

const (
	UsernameExistsMessage = "username already exists"
	EmailExistsMessage    = "email already exists"
)

// CheckUnique returns a typed conflict when username or email belongs to a user
// other than exclude.
func CheckUnique(ctx context.Context, repo *Repository, username, email string, exclude uuid.UUID) error {
	taken, err := repo.UsernameTaken(ctx, username, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check username")
	}
	if taken {
		return pkgerrors.Conflict(UsernameExistsMessage)
	}
	taken, err = repo.EmailTaken(ctx, email, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check email")
	}
	if taken {
		return pkgerrors.Conflict(EmailExistsMessage)
	}
	return nil
}

// MapUniqueViolation turns a racing unique violation into the same conflicts CheckUnique returns.
func MapUniqueViolation(err error, action string) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, UsernameConstraint, "username"):
		return pkgerrors.Conflict(UsernameExistsMessage)
	case db.IsUniqueViolation(err, EmailConstraint, "email"):
		return pkgerrors.Conflict(EmailExistsMessage)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}

// CreateUnique pre-checks username and email, then inserts.
func CreateUnique(ctx context.Context, repo *Repository, dto CreateUserDTO) (*models.User, error) {
	if err := CheckUnique(ctx, repo, dto.Username, dto.Email, uuid.Nil); err != nil {
		return nil, err
	}
	user, err := repo.Create(ctx, dto)
	if err != nil {
		return nil, MapUniqueViolation(err, "create user")
	}
	return user, nil
}
