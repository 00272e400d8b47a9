package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	HTTP         HTTPConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Coins        CoinsConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Coins.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HRTHIS_APP_ENV" required:"true"`
	Port         string `envconfig:"HRTHIS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HRTHIS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HRTHIS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"HRTHIS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"HRTHIS_DB_DSN"`
	Driver string `envconfig:"HRTHIS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"HRTHIS_DB_HOST"`
	Port     int    `envconfig:"HRTHIS_DB_PORT" default:"5432"`
	User     string `envconfig:"HRTHIS_DB_USER"`
	Password string `envconfig:"HRTHIS_DB_PASSWORD"`
	Name     string `envconfig:"HRTHIS_DB_NAME"`
	SSLMode  string `envconfig:"HRTHIS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HRTHIS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HRTHIS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HRTHIS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HRTHIS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HRTHIS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HRTHIS_REDIS_ADDR"`
	Password     string        `envconfig:"HRTHIS_REDIS_PASSWORD"`
	DB           int           `envconfig:"HRTHIS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HRTHIS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HRTHIS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HRTHIS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HRTHIS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HRTHIS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// HTTPConfig shapes the public API surface.
type HTTPConfig struct {
	CORSAllowedOrigins []string      `envconfig:"HRTHIS_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	PurchaseRateLimit  int           `envconfig:"HRTHIS_PURCHASE_RATE_LIMIT" default:"10"`
	RateLimitWindow    time.Duration `envconfig:"HRTHIS_RATE_LIMIT_WINDOW" default:"1m"`
}

// JWTConfig holds the verification settings for access tokens minted by the
// identity service.
type JWTConfig struct {
	Secret string `envconfig:"HRTHIS_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"HRTHIS_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite    bool `envconfig:"HRTHIS_USE_SQLITE" default:"false"`
	AutoMigrate  bool `envconfig:"HRTHIS_AUTO_MIGRATE" default:"false"`
	AllowDevSeed bool `envconfig:"HRTHIS_ALLOW_DEV_SEED" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL  time.Duration `envconfig:"HRTHIS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	RequestIdempotencyTTL time.Duration `envconfig:"HRTHIS_REQUEST_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"HRTHIS_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"HRTHIS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	CoinsTopic string `envconfig:"HRTHIS_PUBSUB_COINS_TOPIC" default:"hrthis-coin-events"`
	ShopTopic  string `envconfig:"HRTHIS_PUBSUB_SHOP_TOPIC" default:"hrthis-shop-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"HRTHIS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"HRTHIS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"HRTHIS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"HRTHIS_OUTBOX_RETENTION" default:"720h"`
}

// CoinsConfig bounds the purchase workflow. Every blocking step of a purchase
// runs inside PurchaseTimeout.
type CoinsConfig struct {
	PurchaseTimeout time.Duration `envconfig:"HRTHIS_COINS_PURCHASE_TIMEOUT" default:"5s"`
	ReleaseTimeout  time.Duration `envconfig:"HRTHIS_COINS_RELEASE_TIMEOUT" default:"5s"`
	LockBackend     string        `envconfig:"HRTHIS_COINS_LOCK_BACKEND" default:"redis"`
	LockTTL         time.Duration `envconfig:"HRTHIS_COINS_LOCK_TTL" default:"10s"`
	LockRetries     uint64        `envconfig:"HRTHIS_COINS_LOCK_RETRIES" default:"5"`
	LockRetryDelay  time.Duration `envconfig:"HRTHIS_COINS_LOCK_RETRY_DELAY" default:"50ms"`
}

func (c CoinsConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.LockBackend)) {
	case LockBackendRedis, LockBackendLocal:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvCoinsLockBackend, LockBackendRedis, LockBackendLocal)
	}
	if c.PurchaseTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvCoinsPurchaseTimeout)
	}
	if c.LockTTL < c.PurchaseTimeout {
		return fmt.Errorf("%s must not be shorter than %s", EnvCoinsLockTTL, EnvCoinsPurchaseTimeout)
	}
	return nil
}

// UsesRedisLock reports whether per-user purchase locks live in Redis.
func (c CoinsConfig) UsesRedisLock() bool {
	return strings.EqualFold(strings.TrimSpace(c.LockBackend), LockBackendRedis)
}

type CronConfig struct {
	Interval time.Duration `envconfig:"HRTHIS_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"HRTHIS_CRON_LOCK_TTL" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, "sqlite") {
		return fmt.Errorf("%s is required for sqlite", EnvDBDSN)
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
