// Package bootstrap holds the startup sequence shared by every binary under cmd/:
// .env, envconfig, the zerolog logger, signal handling and the long-lived clients.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/internal/books"
	"github.com/angelmondragon/elibrary-backend/internal/catalog"
	"github.com/angelmondragon/elibrary-backend/internal/categories"
	"github.com/angelmondragon/elibrary-backend/pkg/bookapi"
	"github.com/angelmondragon/elibrary-backend/pkg/config"
	"github.com/angelmondragon/elibrary-backend/pkg/db"
	"github.com/angelmondragon/elibrary-backend/pkg/instance"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
	"github.com/angelmondragon/elibrary-backend/pkg/metrics"
	"github.com/angelmondragon/elibrary-backend/pkg/migrate"
	"github.com/angelmondragon/elibrary-backend/pkg/pubsub"
	"github.com/angelmondragon/elibrary-backend/pkg/redis"
)

type closer struct {
	name string
	fn   func() error
}

// Process is one running binary. Clients opened through it are closed in
// reverse order by Close.
type Process struct {
	Config *config.Config
	Logger *logger.Logger

	closers []closer
	exit    func(code int)
}

// Start loads configuration and builds the logger for kind. A bad config is fatal.
func Start(kind string) *Process {
	boot := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		boot.Debug(context.Background(), "no .env file, using process environment")
	}
	cfg, err := config.Load()
	if err != nil {
		boot.Error(context.Background(), "load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = kind
	return New(cfg, logger.New(logger.Options{
		ServiceName: kind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	}))
}

// New wraps an already loaded config, mostly for tests.
func New(cfg *config.Config, logg *logger.Logger) *Process {
	return &Process{Config: cfg, Logger: logg, exit: os.Exit}
}

// SignalContext is canceled on SIGINT or SIGTERM and carries the process log fields.
func (p *Process) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return p.Logger.WithFields(ctx, map[string]any{
		"env":          p.Config.App.Env,
		"service_kind": p.Config.Service.Kind,
		"instance":     instance.GetID(),
	}), stop
}

// Must stops the process when err is set, closing whatever was opened so far.
func (p *Process) Must(ctx context.Context, what string, err error) {
	if err == nil {
		return
	}
	p.Logger.Error(ctx, what, err)
	if cerr := p.Close(); cerr != nil {
		p.Logger.Error(ctx, "close resources", cerr)
	}
	p.exit(1)
}

// OnClose registers fn to run during Close.
func (p *Process) OnClose(name string, fn func() error) {
	p.closers = append(p.closers, closer{name: name, fn: fn})
}

// Close runs the registered closers newest first and combines their errors.
func (p *Process) Close() error {
	var errs error
	for i := len(p.closers) - 1; i >= 0; i-- {
		c := p.closers[i]
		if err := c.fn(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	p.closers = nil
	return errs
}

// Database opens the configured database. Dev environments with auto-migrate
// enabled are migrated before it is returned.
func (p *Process) Database(ctx context.Context) *db.Client {
	client, err := db.New(ctx, p.Config.DB, p.Logger)
	p.Must(ctx, "connect database", err)
	p.OnClose("database", client.Close)
	p.Must(ctx, "dev migrations", migrate.MaybeRunDev(ctx, p.Config, p.Logger, client))
	return client
}

func (p *Process) Redis(ctx context.Context) *redis.Client {
	client, err := redis.New(ctx, p.Config.Redis, p.Logger)
	p.Must(ctx, "connect redis", err)
	p.OnClose("redis", client.Close)
	return client
}

func (p *Process) PubSub(ctx context.Context) *pubsub.Client {
	client, err := pubsub.NewClient(ctx, p.Config.GCP, p.Config.PubSub, p.Logger)
	p.Must(ctx, "connect pubsub", err)
	p.OnClose("pubsub", client.Close)
	return client
}

// Catalog builds the import service over Open Library, Gutendex and Google Books.
// The api and the cron worker share it.
func Catalog(cfg *config.Config, logg *logger.Logger, conn *gorm.DB, m *metrics.LedgerMetrics) (*catalog.Service, error) {
	c := cfg.Catalog
	client := func(base string) []bookapi.Option {
		return []bookapi.Option{bookapi.WithTimeout(c.HTTPTimeout), bookapi.WithBaseURL(base)}
	}
	return catalog.NewService(catalog.ServiceParams{
		Books:       books.NewRepository(conn),
		Categories:  categories.NewRepository(conn),
		OpenLibrary: bookapi.NewOpenLibrary(client(c.OpenLibraryBaseURL)...),
		Gutendex:    bookapi.NewGutendex(client(c.GutendexBaseURL)...),
		GoogleBooks: bookapi.NewGoogleBooks(c.GoogleBooksAPIKey, client(c.GoogleBooksBaseURL)...),
		Metrics:     m,
		Logger:      logg,
		ImportLimit: c.SearchImportLimit,
	})
}
