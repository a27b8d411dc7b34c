package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/pkg/enums"
)

// AdminLog is an append-only audit entry for admin mutations.
type AdminLog struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	AdminID    uuid.UUID         `gorm:"column:admin_id;type:uuid;not null;index"`
	ActionType enums.AdminAction `gorm:"column:action_type;not null"`
	TargetID   *uuid.UUID        `gorm:"column:target_id;type:uuid"`
	Details    string            `gorm:"column:details;not null"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime;index"`
}

func (l *AdminLog) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
