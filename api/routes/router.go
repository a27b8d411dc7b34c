package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/elibrary-backend/api/controllers"
	"github.com/angelmondragon/elibrary-backend/api/middleware"
	"github.com/angelmondragon/elibrary-backend/internal/admin"
	"github.com/angelmondragon/elibrary-backend/internal/auth"
	"github.com/angelmondragon/elibrary-backend/internal/books"
	"github.com/angelmondragon/elibrary-backend/internal/borrowing"
	"github.com/angelmondragon/elibrary-backend/internal/cart"
	"github.com/angelmondragon/elibrary-backend/internal/checkout"
	"github.com/angelmondragon/elibrary-backend/internal/inventory"
	"github.com/angelmondragon/elibrary-backend/internal/library"
	"github.com/angelmondragon/elibrary-backend/internal/purchases"
	"github.com/angelmondragon/elibrary-backend/pkg/auth/session"
	"github.com/angelmondragon/elibrary-backend/pkg/config"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
	"github.com/angelmondragon/elibrary-backend/pkg/metrics"
)

// redisStore covers the rate limiter and the idempotency middleware.
type redisStore interface {
	middleware.ResponseStore
	middleware.RateLimitStore
}

// Deps carries everything the router mounts. Nil services answer with a 500.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    redisStore
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics

	Auth          auth.Service
	Register      auth.RegisterService
	Books         books.Service
	Catalog       controllers.CatalogSearcher
	Borrowing     borrowing.Service
	Purchases     purchases.Service
	Inventory     inventory.Service
	Cart          cart.Service
	Checkout      checkout.Service
	Library       library.Service
	Notifications controllers.NotificationsService
	Admin         admin.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
		middleware.Logging(logg, d.HTTP),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterUsernameLimit,
	)

	var redisPinger controllers.Pinger
	if p, ok := d.Redis.(controllers.Pinger); ok {
		redisPinger = p
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.DB, redisPinger, logg))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	authenticate := middleware.Auth(cfg.JWT, d.Sessions, logg)
	idempotent := middleware.Idempotency(d.Redis, cfg.Checkout.IdempotencyTTL, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", controllers.Home(d.Books, logg))
		r.Get("/categories", controllers.ListCategories(d.Books, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, d.Redis, logg)).Post("/register", controllers.AuthRegister(d.Register, d.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
			r.With(authenticate).Post("/logout", controllers.AuthLogout(d.Auth, logg))
		})

		r.Route("/books", func(r chi.Router) {
			r.Get("/", controllers.ListBooks(d.Books, logg))
			r.Get("/search", controllers.SearchBooks(d.Catalog, logg))
			r.Get("/external", controllers.ExternalBooks(d.Catalog, logg))
			r.Get("/{id}", controllers.GetBook(d.Books, logg))

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/{id}/borrow", controllers.BorrowBook(d.Borrowing, logg))
				r.With(idempotent).Post("/{id}/buy", controllers.BuyBook(d.Purchases, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/borrows/{id}/return", controllers.ReturnBorrow(d.Borrowing, logg))

			r.Route("/stock", func(r chi.Router) {
				r.Get("/", controllers.StockAvailable(d.Inventory, logg))
				r.Get("/history", controllers.StockHistory(d.Inventory, logg))
				r.Post("/{id}/borrow", controllers.StockBorrow(d.Inventory, logg))
				r.Post("/{id}/return", controllers.StockReturn(d.Inventory, logg))
				r.With(idempotent).Post("/{id}/buy", controllers.StockBuy(d.Inventory, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.ViewCart(d.Cart, logg))
				r.Post("/items/{book_id}", controllers.AddToCart(d.Cart, logg))
				r.Patch("/items/{id}", controllers.UpdateCartItem(d.Cart, logg))
				r.Delete("/items/{id}", controllers.RemoveCartItem(d.Cart, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", controllers.CheckoutSummary(d.Checkout, logg))
				r.With(idempotent).Post("/payment", controllers.CheckoutPayment(d.Checkout, logg))
				r.Get("/direct", controllers.DirectCheckoutPending(d.Checkout, logg))
				r.With(idempotent).Post("/direct/confirm", controllers.DirectCheckoutConfirm(d.Checkout, logg))
				r.Post("/direct/{book_id}/{action}", controllers.DirectCheckoutStart(d.Checkout, logg))
			})

			r.Route("/me", func(r chi.Router) {
				r.Get("/books", controllers.MyBooks(d.Library, logg))
				r.Get("/orders", controllers.MyOrders(d.Library, logg))
				r.Get("/notifications", controllers.ListNotifications(d.Notifications, logg))
				r.Post("/notifications/{id}/read", controllers.MarkNotificationRead(d.Notifications, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireAdmin(logg))

			r.Get("/", controllers.AdminDashboard(d.Admin, logg))

			r.Route("/books", func(r chi.Router) {
				r.Get("/", controllers.AdminListBooks(d.Admin, logg))
				r.Post("/", controllers.AdminAddBook(d.Admin, logg))
				r.Put("/{id}", controllers.AdminEditBook(d.Admin, logg))
				r.Delete("/{id}", controllers.AdminDeleteBook(d.Admin, logg))
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.AdminListUsers(d.Admin, logg))
				r.Post("/", controllers.AdminAddUser(d.Admin, logg))
				r.Get("/{id}", controllers.AdminGetUser(d.Admin, logg))
				r.Put("/{id}", controllers.AdminEditUser(d.Admin, logg))
				r.Delete("/{id}", controllers.AdminDeleteUser(d.Admin, logg))
				r.Post("/{id}/make-admin", controllers.AdminMakeAdmin(d.Admin, logg))
				r.Post("/{id}/toggle-status", controllers.AdminToggleUserStatus(d.Admin, logg))
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", controllers.AdminListCategories(d.Admin, logg))
				r.Post("/", controllers.AdminAddCategory(d.Admin, logg))
				r.Delete("/{id}", controllers.AdminDeleteCategory(d.Admin, logg))
			})

			r.Get("/borrowed-books", controllers.AdminBorrowedBooks(d.Admin, logg))
			r.Get("/purchased-books", controllers.AdminPurchasedBooks(d.Admin, logg))
			r.Get("/transactions", controllers.AdminTransactions(d.Admin, logg))
			r.Get("/outbox-dlq", controllers.AdminOutboxDLQ(d.Admin, logg))
		})
	})

	return r
}
