package admin

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/elibrary-backend/internal/users"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
)

// BookInput is the admin add/edit payload. A nil CoverImage on edit keeps the current cover.
type BookInput struct {
	Title       string           `json:"title" validate:"required,max=255"`
	Authors     string           `json:"authors" validate:"max=255"`
	Description string           `json:"description"`
	CoverImage  *string          `json:"cover_image,omitempty" validate:"omitempty,url"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Quantity    *int             `json:"quantity,omitempty" validate:"omitempty,min=0"`
	CategoryID  *uuid.UUID       `json:"category_id,omitempty"`
}

type UserInput struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	IsAdmin  bool   `json:"is_admin"`
}

// UserUpdate leaves the password untouched when Password is empty.
type UserUpdate struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password,omitempty"`
}

type CategoryInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

type LogDTO struct {
	ID            uuid.UUID         `json:"id"`
	AdminID       uuid.UUID         `json:"admin_id"`
	AdminUsername string            `json:"admin_username"`
	ActionType    enums.AdminAction `json:"action_type"`
	TargetID      *uuid.UUID        `json:"target_id,omitempty"`
	Details       string            `json:"details"`
	CreatedAt     time.Time         `json:"created_at"`
}

type Dashboard struct {
	TotalBooks  int64           `json:"total_books"`
	TotalUsers  int64           `json:"total_users"`
	ActiveUsers int64           `json:"active_users"`
	RecentUsers []users.UserDTO `json:"recent_users"`
	RecentLogs  []LogDTO        `json:"recent_logs"`
}

// DeadLetterDTO exposes a dead-lettered outbox event for inspection.
type DeadLetterDTO struct {
	ID            uuid.UUID                  `json:"id"`
	EventID       uuid.UUID                  `json:"event_id"`
	EventType     enums.OutboxEventType      `json:"event_type"`
	AggregateType enums.OutboxAggregateType  `json:"aggregate_type"`
	AggregateID   uuid.UUID                  `json:"aggregate_id"`
	ErrorReason   enums.OutboxDLQErrorReason `json:"error_reason"`
	ErrorMessage  *string                    `json:"error_message,omitempty"`
	AttemptCount  int                        `json:"attempt_count"`
	FailedAt      time.Time                  `json:"failed_at"`
}

func logsFromRows(rows []LogRow) []LogDTO {
	out := make([]LogDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, LogDTO{
			ID:            r.ID,
			AdminID:       r.AdminID,
			AdminUsername: r.AdminUsername,
			ActionType:    r.ActionType,
			TargetID:      r.TargetID,
			Details:       r.Details,
			CreatedAt:     r.CreatedAt,
		})
	}
	return out
}

func deadLettersFromModels(rows []models.OutboxDLQ) []DeadLetterDTO {
	out := make([]DeadLetterDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, DeadLetterDTO{
			ID:            r.ID,
			EventID:       r.EventID,
			EventType:     r.EventType,
			AggregateType: r.AggregateType,
			AggregateID:   r.AggregateID,
			ErrorReason:   r.ErrorReason,
			ErrorMessage:  r.ErrorMessage,
			AttemptCount:  r.AttemptCount,
			FailedAt:      r.FailedAt,
		})
	}
	return out
}
