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
	API          APIConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Pricing      PricingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
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
	Env          string `envconfig:"PARTSDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"PARTSDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PARTSDESK_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PARTSDESK_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PARTSDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PARTSDESK_SERVICE_KIND" default:"api"`
}

// APIConfig covers the HTTP surface of cmd/api. RateLimitRequests caps pricing
// calls per client and window; zero disables the limit.
type APIConfig struct {
	CORSAllowedOrigins []string      `envconfig:"PARTSDESK_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ReadTimeout        time.Duration `envconfig:"PARTSDESK_API_READ_TIMEOUT" default:"10s"`
	WriteTimeout       time.Duration `envconfig:"PARTSDESK_API_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout    time.Duration `envconfig:"PARTSDESK_API_SHUTDOWN_TIMEOUT" default:"10s"`
	IdempotencyTTL     time.Duration `envconfig:"PARTSDESK_API_IDEMPOTENCY_TTL" default:"24h"`
	RateLimitRequests  int           `envconfig:"PARTSDESK_API_RATE_LIMIT_REQUESTS" default:"600"`
	RateLimitWindow    time.Duration `envconfig:"PARTSDESK_API_RATE_LIMIT_WINDOW" default:"1m"`
}

type DBConfig struct {
	DSN    string `envconfig:"PARTSDESK_DB_DSN"`
	Driver string `envconfig:"PARTSDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PARTSDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"PARTSDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PARTSDESK_DB_USER"`
	LegacyPassword string `envconfig:"PARTSDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"PARTSDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"PARTSDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PARTSDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PARTSDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PARTSDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PARTSDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"PARTSDESK_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PARTSDESK_REDIS_URL"`
	Address      string        `envconfig:"PARTSDESK_REDIS_ADDR"`
	Password     string        `envconfig:"PARTSDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"PARTSDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PARTSDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PARTSDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PARTSDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PARTSDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PARTSDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate      bool `envconfig:"PARTSDESK_AUTO_MIGRATE" default:"false"`
	AllowClientWide  bool `envconfig:"PARTSDESK_ALLOW_CLIENT_WIDE_OVERRIDES" default:"true"`
	EmitOutboxEvents bool `envconfig:"PARTSDESK_EMIT_OUTBOX_EVENTS" default:"true"`
}

// PricingConfig tunes the resolver surface.
type PricingConfig struct {
	StoreTimeout  time.Duration `envconfig:"PARTSDESK_PRICING_STORE_TIMEOUT" default:"2s"`
	MaxQuoteLines int           `envconfig:"PARTSDESK_PRICING_MAX_QUOTE_LINES" default:"200"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"PARTSDESK_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"PARTSDESK_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OverrideSyncTopic        string `envconfig:"PARTSDESK_PUBSUB_OVERRIDE_SYNC_TOPIC" default:"pd-override-sync-events"`
	OverrideSyncSubscription string `envconfig:"PARTSDESK_PUBSUB_OVERRIDE_SYNC_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize           int `envconfig:"PARTSDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS      int `envconfig:"PARTSDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts         int `envconfig:"PARTSDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays       int `envconfig:"PARTSDESK_OUTBOX_RETENTION_DAYS" default:"30"`
	ParkedRetentionDays int `envconfig:"PARTSDESK_OUTBOX_PARKED_RETENTION_DAYS" default:"90"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"PARTSDESK_CRON_INTERVAL" default:"1h"`
	SyncFailureLookback time.Duration `envconfig:"PARTSDESK_CRON_SYNC_FAILURE_LOOKBACK" default:"168h"`
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
