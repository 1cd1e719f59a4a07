package config

// EnvPrefix is handed to envconfig; every field carries an explicit key so the
// prefix only matters for untagged fields.
const EnvPrefix = "PARTSDESK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "PARTSDESK_APP_ENV"
	EnvPort      = "PARTSDESK_APP_PORT"
	EnvLogLevel  = "PARTSDESK_LOG_LEVEL"
	EnvDBDSN     = "PARTSDESK_DB_DSN"
	EnvDBHost    = "PARTSDESK_DB_HOST"
	EnvDBUser    = "PARTSDESK_DB_USER"
	EnvDBName    = "PARTSDESK_DB_NAME"
	EnvRedisURL  = "PARTSDESK_REDIS_URL"
	EnvStoreTTL  = "PARTSDESK_PRICING_STORE_TIMEOUT"
	EnvSyncTopic = "PARTSDESK_PUBSUB_OVERRIDE_SYNC_TOPIC"
	EnvCORS      = "PARTSDESK_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
