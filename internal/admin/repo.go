package admin

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/repo"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
)

// LogRow is an audit entry joined with the acting admin's username.
type LogRow struct {
	models.AdminLog `gorm:"embedded"`
	AdminUsername   string `gorm:"column:admin_username"`
}

// LogRepository appends and reads the admin audit trail.
type LogRepository struct {
	repo.Base
}

func NewLogRepository(db *gorm.DB) *LogRepository {
	return &LogRepository{Base: repo.NewBase(db)}
}

func (r *LogRepository) Append(ctx context.Context, entry *models.AdminLog) error {
	return r.DB(ctx).Create(entry).Error
}

// Recent returns the n newest entries.
func (r *LogRepository) Recent(ctx context.Context, n int) ([]LogRow, error) {
	var rows []LogRow
	err := r.DB(ctx).
		Table("admin_logs").
		Select("admin_logs.*, COALESCE(users.username, '') AS admin_username").
		Joins("LEFT JOIN users ON users.id = admin_logs.admin_id").
		Order("admin_logs.created_at DESC").
		Limit(n).
		Scan(&rows).Error
	return rows, err
}
