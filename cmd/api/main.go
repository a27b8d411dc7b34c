package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/elibrary-backend/api/routes"
	"github.com/angelmondragon/elibrary-backend/internal/admin"
	"github.com/angelmondragon/elibrary-backend/internal/auth"
	"github.com/angelmondragon/elibrary-backend/internal/bootstrap"
	"github.com/angelmondragon/elibrary-backend/internal/books"
	"github.com/angelmondragon/elibrary-backend/internal/borrowing"
	"github.com/angelmondragon/elibrary-backend/internal/cart"
	"github.com/angelmondragon/elibrary-backend/internal/categories"
	"github.com/angelmondragon/elibrary-backend/internal/checkout"
	"github.com/angelmondragon/elibrary-backend/internal/inventory"
	"github.com/angelmondragon/elibrary-backend/internal/library"
	"github.com/angelmondragon/elibrary-backend/internal/notifications"
	"github.com/angelmondragon/elibrary-backend/internal/orders"
	"github.com/angelmondragon/elibrary-backend/internal/purchases"
	"github.com/angelmondragon/elibrary-backend/internal/users"
	"github.com/angelmondragon/elibrary-backend/pkg/auth/session"
	"github.com/angelmondragon/elibrary-backend/pkg/config"
	"github.com/angelmondragon/elibrary-backend/pkg/db"
	"github.com/angelmondragon/elibrary-backend/pkg/env"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
	"github.com/angelmondragon/elibrary-backend/pkg/metrics"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox"
	"github.com/angelmondragon/elibrary-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	proc := bootstrap.Start("api")
	cfg, logg := proc.Config, proc.Logger
	ctx, stop := proc.SignalContext()
	defer stop()

	dbClient := proc.Database(ctx)
	redisClient := proc.Redis(ctx)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	proc.Must(ctx, "create session manager", err)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewLedgerMetrics(reg)

	deps, err := buildDeps(cfg, logg, dbClient, redisClient, sessionManager, ledgerMetrics)
	proc.Must(ctx, "wire services", err)
	deps.Gatherer = reg
	deps.HTTP = metrics.NewHTTPMetrics(reg)

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx = logg.WithField(ctx, "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logg.Info(ctx, "api listening")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			proc.Must(ctx, "api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := multierr.Combine(server.Shutdown(shutdownCtx), proc.Close()); err != nil {
		logg.Error(ctx, "api shutdown", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api stopped")
}

func buildDeps(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, sessionManager *session.Manager, ledgerMetrics *metrics.LedgerMetrics) (routes.Deps, error) {
	conn := dbClient.DB()
	now := func() time.Time { return time.Now().UTC() }
	ordersRepo := orders.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	bookRepo := books.NewRepository(conn)
	categoryRepo := categories.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	bookService, err := books.NewService(bookRepo, categoryRepo)
	if err != nil {
		return routes.Deps{}, err
	}

	catalogService, err := bootstrap.Catalog(cfg, logg, conn, ledgerMetrics)
	if err != nil {
		return routes.Deps{}, err
	}

	borrowService, err := borrowing.NewService(borrowing.ServiceParams{
		DB:      dbClient,
		Outbox:  outboxSvc,
		Metrics: ledgerMetrics,
		Logger:  logg,
		Now:     now,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	purchaseService, err := purchases.NewService(purchases.ServiceParams{
		DB:      dbClient,
		Outbox:  outboxSvc,
		Metrics: ledgerMetrics,
		Now:     now,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	inventoryService, err := inventory.NewService(dbClient, now)
	if err != nil {
		return routes.Deps{}, err
	}
	cartService, err := cart.NewService(dbClient, now)
	if err != nil {
		return routes.Deps{}, err
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		DB:         dbClient,
		Orders:     ordersRepo,
		Outbox:     outboxSvc,
		Pending:    redisClient,
		PendingTTL: cfg.Checkout.PendingTTL,
		Metrics:    ledgerMetrics,
		Logger:     logg,
		Now:        now,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	libraryService, err := library.NewService(dbClient, ordersRepo, now)
	if err != nil {
		return routes.Deps{}, err
	}
	adminService, err := admin.NewService(admin.ServiceParams{
		DB:             dbClient,
		Orders:         ordersRepo,
		DeadLetters:    outbox.NewDLQRepository(conn),
		Sessions:       sessionManager,
		PasswordConfig: cfg.Password,
		Now:            now,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	return routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Sessions:      sessionManager,
		Auth:          authService,
		Register:      registerService,
		Books:         bookService,
		Catalog:       catalogService,
		Borrowing:     borrowService,
		Purchases:     purchaseService,
		Inventory:     inventoryService,
		Cart:          cartService,
		Checkout:      checkoutService,
		Library:       libraryService,
		Notifications: notifications.NewService(notifications.NewRepository(conn), now),
		Admin:         adminService,
	}, nil
}
