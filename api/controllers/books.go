package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/elibrary-backend/api/responses"
	"github.com/angelmondragon/elibrary-backend/api/validators"
	"github.com/angelmondragon/elibrary-backend/internal/books"
	"github.com/angelmondragon/elibrary-backend/internal/catalog"
	"github.com/angelmondragon/elibrary-backend/pkg/bookapi"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
	"github.com/angelmondragon/elibrary-backend/pkg/pagination"
)

const maxQueryLength = 200

type CatalogSearcher interface {
	Search(ctx context.Context, query string) (*catalog.SearchResult, error)
	External(ctx context.Context, query string) []bookapi.VolumeInfo
}

// Home returns the newest books and every category.
func Home(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("books service"))
			return
		}
		view, err := svc.Home(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// ListBooks supports ?category_id=, ?source= and cursor pagination.
func ListBooks(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("books service"))
			return
		}

		categoryID, err := validators.ParseOptionalUUIDQuery(r, "category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := books.ListFilter{CategoryID: categoryID}
		if raw := strings.TrimSpace(r.URL.Query().Get("source")); raw != "" {
			source, err := enums.ParseBookSource(strings.ToLower(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source"))
				return
			}
			filter.Source = source
		}

		q := r.URL.Query()
		page, err := svc.List(r.Context(), filter, pagination.FromQuery(q.Get("limit"), q.Get("cursor")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("books service"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func ListCategories(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("books service"))
			return
		}
		cats, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cats)
	}
}

// SearchBooks searches locally and imports from the public catalogs when results are thin.
func SearchBooks(svc CatalogSearcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}
		query := validators.SanitizeString(r.URL.Query().Get("q"), maxQueryLength)
		result, err := svc.Search(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ExternalBooks proxies Google Books without persisting anything.
func ExternalBooks(svc CatalogSearcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}
		query := validators.SanitizeString(r.URL.Query().Get("q"), maxQueryLength)
		responses.WriteSuccess(w, svc.External(r.Context(), query))
	}
}
