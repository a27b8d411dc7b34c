package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/pagination"
)

const NotFoundMessage = "notification not found"

type NotificationDTO struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Link      *string    `json:"link,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Page struct {
	Items      []NotificationDTO `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
	Unread     int64             `json:"unread"`
}

type Service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository, now func() time.Time) *Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{repo: repo, now: now}
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Validation("invalid cursor")
	}
	rows, err := s.repo.List(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}
	rows, next := pagination.Trim(rows, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	unread, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unread notifications")
	}

	items := make([]NotificationDTO, 0, len(rows))
	for _, n := range rows {
		items = append(items, NotificationDTO{
			ID:        n.ID,
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			Link:      n.Link,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		})
	}
	return &Page{Items: items, NextCursor: next, Unread: unread}, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	found, err := s.repo.MarkRead(ctx, userID, id, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification read")
	}
	if !found {
		return pkgerrors.NotFound(NotFoundMessage)
	}
	return nil
}
