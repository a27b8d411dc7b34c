package config

const (
	EnvPrefix = "ELIBRARY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                 = "ELIBRARY_APP_ENV"
	EnvPort                   = "ELIBRARY_APP_PORT"
	EnvDBDSN                  = "ELIBRARY_DB_DSN"
	EnvDBHost                 = "ELIBRARY_DB_HOST"
	EnvDBUser                 = "ELIBRARY_DB_USER"
	EnvDBName                 = "ELIBRARY_DB_NAME"
	EnvDBPassword             = "ELIBRARY_DB_PASSWORD"
	EnvRedisURL               = "ELIBRARY_REDIS_URL"
	EnvJWTSecret              = "ELIBRARY_JWT_SECRET"
	EnvJWTIssuer              = "ELIBRARY_JWT_ISSUER"
	EnvJWTExpMins             = "ELIBRARY_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "ELIBRARY_REFRESH_TOKEN_TTL_MINUTES"
	EnvCatalogTimeout         = "ELIBRARY_CATALOG_HTTP_TIMEOUT"
	EnvCheckoutPendingTTL     = "ELIBRARY_CHECKOUT_PENDING_TTL"
	EnvPubSubLedgerTopic      = "ELIBRARY_PUBSUB_LEDGER_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
