package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/repo"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
)

const (
	UsernameConstraint = "ux_users_username"
	EmailConstraint    = "ux_users_email"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB or transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername retrieves the user matching the provided username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UsernameTaken reports whether another user already owns username. exclude may be uuid.Nil.
func (r *Repository) UsernameTaken(ctx context.Context, username string, exclude uuid.UUID) (bool, error) {
	return r.taken(ctx, "username", username, exclude)
}

// EmailTaken reports whether another user already owns email. exclude may be uuid.Nil.
func (r *Repository) EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	return r.taken(ctx, "email", email, exclude)
}

func (r *Repository) taken(ctx context.Context, column, value string, exclude uuid.UUID) (bool, error) {
	q := r.DB(ctx).Model(&models.User{}).Where(column+" = ?", value)
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateLastLogin refreshes the user's last_login timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login", at).Error
}

// Update persists the mutable columns of user.
func (r *Repository) Update(ctx context.Context, user *models.User) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"username":      user.Username,
			"email":         user.Email,
			"password_hash": user.PasswordHash,
			"is_admin":      user.IsAdmin,
			"is_active":     user.IsActive,
			"updated_at":    time.Now().UTC(),
		}).Error
}

// Delete removes the user row. It reports gorm.ErrRecordNotFound when nothing matched.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns every user, newest first.
func (r *Repository) List(ctx context.Context) ([]models.User, error) {
	var rows []models.User
	err := r.DB(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// Recent returns the n newest users.
func (r *Repository) Recent(ctx context.Context, n int) ([]models.User, error) {
	var rows []models.User
	err := r.DB(ctx).Order("created_at DESC").Order("id DESC").Limit(n).Find(&rows).Error
	return rows, err
}

func (r *Repository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

// CountActiveSince counts users whose last login is at or after since.
func (r *Repository) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.User{}).Where("last_login >= ?", since).Count(&count).Error
	return count, err
}
