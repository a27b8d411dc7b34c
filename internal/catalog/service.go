package catalog

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/elibrary-backend/internal/books"
	"github.com/angelmondragon/elibrary-backend/pkg/bookapi"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
)

const (
	localSearchLimit    = 20
	localEnoughResults  = 10
	openLibraryEnough   = 4
	defaultImportLimit  = 10
	syncOpenLibraryEach = 3
	syncGutendexEach    = 2
	externalSearchLimit = 10
)

var (
	minGeneratedPrice = decimal.RequireFromString("9.99")
	maxGeneratedPrice = decimal.RequireFromString("49.99")
)

// Provider selects the external catalog an import reads from.
type Provider string

const (
	ProviderOpenLibrary Provider = "openlibrary"
	ProviderGutendex    Provider = "gutendex"
)

type openLibrary interface {
	Subject(ctx context.Context, subject string, limit int) ([]bookapi.Record, error)
}

type gutendex interface {
	Topic(ctx context.Context, topic string, limit int) ([]bookapi.Record, error)
}

type googleBooks interface {
	Search(ctx context.Context, query string, maxResults int) ([]bookapi.VolumeInfo, error)
}

type bookStore interface {
	Search(ctx context.Context, q string, limit int) ([]models.Book, error)
	InsertOrGet(ctx context.Context, book *models.Book) (*models.Book, bool, error)
}

type categoryLister interface {
	List(ctx context.Context) ([]models.BookCategory, error)
}

type importMetrics interface {
	IncImported(source string, n int)
}

// SearchResult lists local hits first, then newly imported ones, without duplicates.
type SearchResult struct {
	Query    string          `json:"query"`
	Books    []books.BookDTO `json:"books"`
	Local    int             `json:"local_count"`
	External int             `json:"external_count"`
}

// ServiceParams bundles the catalog collaborators.
type ServiceParams struct {
	Books       bookStore
	Categories  categoryLister
	OpenLibrary openLibrary
	Gutendex    gutendex
	GoogleBooks googleBooks
	Metrics     importMetrics
	Logger      *logger.Logger
	ImportLimit int
	// Price overrides the random price generator; tests pin it.
	Price func() decimal.Decimal
}

type Service struct {
	books       bookStore
	categories  categoryLister
	openLibrary openLibrary
	gutendex    gutendex
	google      googleBooks
	metrics     importMetrics
	logg        *logger.Logger
	importLimit int
	price       func() decimal.Decimal
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Books == nil {
		return nil, fmt.Errorf("book store required")
	}
	if params.OpenLibrary == nil || params.Gutendex == nil {
		return nil, fmt.Errorf("catalog providers required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.ImportLimit <= 0 {
		params.ImportLimit = defaultImportLimit
	}
	if params.Price == nil {
		params.Price = RandomPrice
	}
	return &Service{
		books:       params.Books,
		categories:  params.Categories,
		openLibrary: params.OpenLibrary,
		gutendex:    params.Gutendex,
		google:      params.GoogleBooks,
		metrics:     params.Metrics,
		logg:        params.Logger,
		importLimit: params.ImportLimit,
		price:       params.Price,
	}, nil
}

// RandomPrice draws a price in [9.99, 49.99] rounded to cents.
func RandomPrice() decimal.Decimal {
	span := maxGeneratedPrice.Sub(minGeneratedPrice)
	return minGeneratedPrice.Add(span.Mul(decimal.NewFromFloat(rand.Float64()))).Round(2)
}

// Import fetches up to limit records for subject from provider and upserts them on
// (title, source). Fetch failures are logged and yield no books; only storage
// errors are returned.
func (s *Service) Import(ctx context.Context, provider Provider, subject string, limit int, categoryID *uuid.UUID) ([]models.Book, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" || limit <= 0 {
		return nil, nil
	}

	records, err := s.fetch(ctx, provider, subject, limit)
	if err != nil {
		warnCtx := s.logg.WithFields(ctx, map[string]any{
			"provider": string(provider),
			"subject":  subject,
			"error":    err.Error(),
		})
		s.logg.Warn(warnCtx, "catalog fetch failed")
		return nil, nil
	}

	out := make([]models.Book, 0, len(records))
	var errs error
	inserted := 0
	for _, rec := range records {
		candidate := &models.Book{
			Title:       rec.Title,
			Authors:     rec.Authors,
			Description: rec.Description,
			CoverImage:  rec.CoverImage,
			PreviewLink: rec.PreviewLink,
			Source:      rec.Source,
			CategoryID:  categoryID,
		}
		price := s.price()
		candidate.Price = &price

		book, created, err := s.books.InsertOrGet(ctx, candidate)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("upsert %q: %w", rec.Title, err))
			continue
		}
		if created {
			inserted++
		}
		out = append(out, *book)
	}
	if inserted > 0 && s.metrics != nil {
		s.metrics.IncImported(string(sourceFor(provider)), inserted)
	}
	return out, errs
}

func (s *Service) fetch(ctx context.Context, provider Provider, subject string, limit int) ([]bookapi.Record, error) {
	switch provider {
	case ProviderOpenLibrary:
		return s.openLibrary.Subject(ctx, subject, limit)
	case ProviderGutendex:
		return s.gutendex.Topic(ctx, subject, limit)
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// Search runs the local LIKE search, topping it up from OpenLibrary and then
// Gutendex when the local catalog is thin.
func (s *Service) Search(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	result := &SearchResult{Query: query, Books: []books.BookDTO{}}
	if query == "" {
		return result, nil
	}

	local, err := s.books.Search(ctx, query, localSearchLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search books")
	}
	seen := make(map[uuid.UUID]struct{}, len(local))
	for _, b := range local {
		seen[b.ID] = struct{}{}
		result.Books = append(result.Books, books.FromModel(b))
	}
	result.Local = len(local)
	if len(local) >= localEnoughResults {
		return result, nil
	}

	external := s.importQuietly(ctx, ProviderOpenLibrary, query)
	if len(external) < openLibraryEnough {
		external = append(external, s.importQuietly(ctx, ProviderGutendex, query)...)
	}
	for _, b := range external {
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}
		result.Books = append(result.Books, books.FromModel(b))
		result.External++
	}
	return result, nil
}

func (s *Service) importQuietly(ctx context.Context, provider Provider, query string) []models.Book {
	imported, err := s.Import(ctx, provider, query, s.importLimit, nil)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "catalog import partially failed")
	}
	return imported
}

// External proxies a Google Books search. Failures give an empty list.
func (s *Service) External(ctx context.Context, query string) []bookapi.VolumeInfo {
	query = strings.TrimSpace(query)
	if query == "" || s.google == nil {
		return []bookapi.VolumeInfo{}
	}
	items, err := s.google.Search(ctx, query, externalSearchLimit)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "google books search failed")
		return []bookapi.VolumeInfo{}
	}
	if items == nil {
		items = []bookapi.VolumeInfo{}
	}
	return items
}

// SyncStats summarizes one catalog sync pass.
type SyncStats struct {
	Categories int
	Subjects   int
	Books      int
}

// SyncCategories imports a few books per subject for every category. Per-subject
// storage errors are combined and returned after every subject has been tried.
func (s *Service) SyncCategories(ctx context.Context) (SyncStats, error) {
	var stats SyncStats
	if s.categories == nil {
		return stats, fmt.Errorf("category lister required")
	}
	cats, err := s.categories.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("list categories: %w", err)
	}

	var errs error
	for _, cat := range cats {
		if err := ctx.Err(); err != nil {
			return stats, multierr.Append(errs, err)
		}
		stats.Categories++
		categoryID := cat.ID
		for _, subject := range SubjectsFor(cat.Name) {
			stats.Subjects++
			for _, step := range []struct {
				provider Provider
				limit    int
			}{
				{ProviderOpenLibrary, syncOpenLibraryEach},
				{ProviderGutendex, syncGutendexEach},
			} {
				imported, err := s.Import(ctx, step.provider, subject, step.limit, &categoryID)
				stats.Books += len(imported)
				if err != nil {
					errs = multierr.Append(errs, fmt.Errorf("%s/%s: %w", cat.Name, subject, err))
				}
			}
		}
	}
	return stats, errs
}

// sourceFor maps a provider onto the book source it writes.
func sourceFor(p Provider) enums.BookSource {
	if p == ProviderGutendex {
		return enums.BookSourceGutenberg
	}
	return enums.BookSourceOpenLibrary
}
