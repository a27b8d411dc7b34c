package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/elibrary-backend/internal/repo"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/pagination"
)

// Repository persists user notifications.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// CreateOnce inserts n unless a notification for the same event id exists.
// It reports whether a row was written.
func (r *Repository) CreateOnce(ctx context.Context, n *models.Notification) (bool, error) {
	res := r.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(n)
	return res.RowsAffected == 1, res.Error
}

// List returns one page of the user's notifications, newest first, plus one
// buffered row when a next page exists.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Notification, error) {
	q, err := pagination.Apply(
		r.DB(ctx).Model(&models.Notification{}).Where("notifications.user_id = ?", userID),
		"notifications", params,
	)
	if err != nil {
		return nil, err
	}
	var rows []models.Notification
	return rows, q.Find(&rows).Error
}

func (r *Repository) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&n).Error
	return n, err
}

// MarkRead stamps read_at on an owned notification. Already-read rows keep
// their first timestamp. found is false when the user owns no such row.
func (r *Repository) MarkRead(ctx context.Context, userID, id uuid.UUID, now time.Time) (found bool, err error) {
	res := r.DB(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	var n int64
	if err := r.DB(ctx).Model(&models.Notification{}).Where("id = ? AND user_id = ?", id, userID).Count(&n).Error; err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteReadBefore removes read notifications older than cutoff.
func (r *Repository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB(ctx).Where("read_at IS NOT NULL AND created_at < ?", cutoff).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
