// Package seed installs the default admin account and book categories.
package seed

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/categories"
	"github.com/angelmondragon/elibrary-backend/pkg/config"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/security"
)

const (
	AdminUsername = "admin"
	AdminPassword = "admin123"
	AdminEmail    = "admin@elibrary.com"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Result reports what a seed pass changed.
type Result struct {
	AdminID         string
	AdminReplaced   bool
	CategoriesAdded int
}

// Run replaces any existing admin account (matched by username or email)
// and inserts the missing default categories in one transaction.
func Run(ctx context.Context, db txRunner, passwordCfg config.PasswordConfig) (Result, error) {
	var res Result
	hash, err := security.HashPassword(AdminPassword, passwordCfg)
	if err != nil {
		return res, fmt.Errorf("hash admin password: %w", err)
	}

	err = db.WithTx(ctx, func(tx *gorm.DB) error {
		var existing models.User
		err := tx.WithContext(ctx).
			Where("username = ? OR email = ?", AdminUsername, AdminEmail).
			First(&existing).Error
		switch {
		case err == nil:
			res.AdminReplaced = true
			if err := tx.WithContext(ctx).Delete(&models.User{}, "id = ?", existing.ID).Error; err != nil {
				return fmt.Errorf("delete existing admin: %w", err)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("lookup admin: %w", err)
		}

		admin := models.User{
			Username:     AdminUsername,
			Email:        AdminEmail,
			PasswordHash: hash,
			IsAdmin:      true,
			IsActive:     true,
		}
		if err := tx.WithContext(ctx).Create(&admin).Error; err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		res.AdminID = admin.ID.String()

		added, err := categories.NewRepository(tx).EnsureNames(ctx, categories.DefaultNames)
		if err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		res.CategoriesAdded = added
		return nil
	})
	return res, err
}
