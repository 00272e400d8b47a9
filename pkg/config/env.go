package config

// EnvPrefix is empty because every field carries its full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	LockBackendRedis = "redis"
	LockBackendLocal = "local"
)

const (
	EnvAppEnv       = "HRTHIS_APP_ENV"
	EnvPort         = "HRTHIS_APP_PORT"
	EnvLogLevel     = "HRTHIS_LOG_LEVEL"
	EnvServiceKind  = "HRTHIS_SERVICE_KIND"
	EnvDBDSN        = "HRTHIS_DB_DSN"
	EnvDBHost       = "HRTHIS_DB_HOST"
	EnvDBPort       = "HRTHIS_DB_PORT"
	EnvDBUser       = "HRTHIS_DB_USER"
	EnvDBPassword   = "HRTHIS_DB_PASSWORD"
	EnvDBName       = "HRTHIS_DB_NAME"
	EnvDBSSLMode    = "HRTHIS_DB_SSLMODE"
	EnvRedisURL     = "HRTHIS_REDIS_URL"
	EnvJWTSecret    = "HRTHIS_JWT_SECRET"
	EnvJWTIssuer    = "HRTHIS_JWT_ISSUER"
	EnvUseSQLite    = "HRTHIS_USE_SQLITE"
	EnvAutoMigrate  = "HRTHIS_AUTO_MIGRATE"
	EnvAllowDevSeed = "HRTHIS_ALLOW_DEV_SEED"
	EnvGCPProjectID = "HRTHIS_GCP_PROJECT_ID"

	EnvPubSubCoinsTopic = "HRTHIS_PUBSUB_COINS_TOPIC"
	EnvPubSubShopTopic  = "HRTHIS_PUBSUB_SHOP_TOPIC"

	EnvCoinsPurchaseTimeout = "HRTHIS_COINS_PURCHASE_TIMEOUT"
	EnvCoinsLockBackend     = "HRTHIS_COINS_LOCK_BACKEND"
	EnvCoinsLockTTL         = "HRTHIS_COINS_LOCK_TTL"
	EnvCoinsLockRetries     = "HRTHIS_COINS_LOCK_RETRIES"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
