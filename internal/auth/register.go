package auth

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/users"
	"github.com/angelmondragon/elibrary-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/security"
)

// RegisterService signs up readers. Admin accounts only come from the admin console or the seed.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type RegisterServiceParams struct {
	DB             txRunner
	PasswordConfig config.PasswordConfig
}

type registrar struct {
	db       txRunner
	password config.PasswordConfig
}

func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &registrar{db: params.DB, password: params.PasswordConfig}, nil
}

// Register validates identity and password policy before hashing, so a
// rejected signup never pays for argon2.
func (s *registrar) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	username, email, err := users.NormalizeIdentity(req.Username, req.Email)
	if err != nil {
		return nil, err
	}
	if err := security.CheckPolicy(req.Password); err != nil {
		return nil, pkgerrors.Validation(err.Error())
	}
	hash, err := security.HashPassword(req.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var out *users.UserDTO
	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		row, err := users.CreateUnique(ctx, users.NewRepository(tx), users.CreateUserDTO{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
		})
		if err != nil {
			return err
		}
		out = users.FromModel(row)
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}
