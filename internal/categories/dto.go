package categories

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
)

// DefaultNames seeds an empty catalog and drives catalog sync.
var DefaultNames = []string{
	"Fiction",
	"Non-Fiction",
	"Science",
	"Technology",
	"History",
	"Business",
	"Self-Help",
	"Arts",
}

type CategoryDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func FromModel(c models.BookCategory) CategoryDTO {
	return CategoryDTO{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
}

func FromModels(list []models.BookCategory) []CategoryDTO {
	out := make([]CategoryDTO, 0, len(list))
	for _, c := range list {
		out = append(out, FromModel(c))
	}
	return out
}
