package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	Catalog       CatalogConfig
	Checkout      CheckoutConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ELIBRARY_APP_ENV" required:"true"`
	Port         string `envconfig:"ELIBRARY_APP_PORT" required:"true"`
	Name         string `envconfig:"ELIBRARY_APP_NAME" default:"elibrary"`
	LogLevel     string `envconfig:"ELIBRARY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ELIBRARY_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"ELIBRARY_LOG_FORMAT" default:"json"`
	CORSOrigins  string `envconfig:"ELIBRARY_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

type ServiceConfig struct {
	Kind string `envconfig:"ELIBRARY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ELIBRARY_DB_DSN"`
	Driver string `envconfig:"ELIBRARY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ELIBRARY_DB_HOST"`
	LegacyPort     int    `envconfig:"ELIBRARY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ELIBRARY_DB_USER"`
	LegacyPassword string `envconfig:"ELIBRARY_DB_PASSWORD"`
	LegacyName     string `envconfig:"ELIBRARY_DB_NAME"`
	LegacySSLMode  string `envconfig:"ELIBRARY_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"ELIBRARY_SQLITE_PATH" default:"elibrary.db"`

	MaxOpenConns    int           `envconfig:"ELIBRARY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ELIBRARY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ELIBRARY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ELIBRARY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"ELIBRARY_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ELIBRARY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ELIBRARY_REDIS_ADDR"`
	Password     string        `envconfig:"ELIBRARY_REDIS_PASSWORD"`
	DB           int           `envconfig:"ELIBRARY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ELIBRARY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ELIBRARY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ELIBRARY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ELIBRARY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ELIBRARY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ELIBRARY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ELIBRARY_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"ELIBRARY_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"ELIBRARY_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ELIBRARY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ELIBRARY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ELIBRARY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ELIBRARY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ELIBRARY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow           time.Duration `envconfig:"ELIBRARY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit    int           `envconfig:"ELIBRARY_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit          int           `envconfig:"ELIBRARY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow        time.Duration `envconfig:"ELIBRARY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterUsernameLimit int           `envconfig:"ELIBRARY_AUTH_RATE_LIMIT_REGISTER_USERNAME_LIMIT" default:"3"`
	RegisterIPLimit       int           `envconfig:"ELIBRARY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ELIBRARY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ELIBRARY_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	ConsumerIdempotencyTTL time.Duration `envconfig:"ELIBRARY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type CatalogConfig struct {
	HTTPTimeout        time.Duration `envconfig:"ELIBRARY_CATALOG_HTTP_TIMEOUT" default:"10s"`
	OpenLibraryBaseURL string        `envconfig:"ELIBRARY_OPENLIBRARY_BASE_URL" default:"https://openlibrary.org"`
	GutendexBaseURL    string        `envconfig:"ELIBRARY_GUTENDEX_BASE_URL" default:"https://gutendex.com"`
	GoogleBooksBaseURL string        `envconfig:"ELIBRARY_GOOGLE_BOOKS_BASE_URL" default:"https://www.googleapis.com/books/v1"`
	GoogleBooksAPIKey  string        `envconfig:"ELIBRARY_GOOGLE_BOOKS_API_KEY"`
	SearchImportLimit  int           `envconfig:"ELIBRARY_CATALOG_SEARCH_IMPORT_LIMIT" default:"10"`
}

type CheckoutConfig struct {
	PendingTTL     time.Duration `envconfig:"ELIBRARY_CHECKOUT_PENDING_TTL" default:"15m"`
	IdempotencyTTL time.Duration `envconfig:"ELIBRARY_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ELIBRARY_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"ELIBRARY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	LedgerTopic               string `envconfig:"ELIBRARY_PUBSUB_LEDGER_TOPIC" default:"elibrary-ledger-events"`
	NotificationsSubscription string `envconfig:"ELIBRARY_PUBSUB_NOTIFICATIONS_SUBSCRIPTION" default:"elibrary-notifications"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ELIBRARY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ELIBRARY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ELIBRARY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"ELIBRARY_CRON_INTERVAL" default:"1h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
