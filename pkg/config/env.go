package config

const EnvPrefix = "GATIC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	DefaultSQLiteDSN = "file:gatic.db?_foreign_keys=on"
)

const (
	EnvAppEnv   = "GATIC_APP_ENV"
	EnvPort     = "GATIC_APP_PORT"
	EnvLogLevel = "GATIC_LOG_LEVEL"

	EnvDBDSN    = "GATIC_DB_DSN"
	EnvDBDriver = "GATIC_DB_DRIVER"
	EnvDBHost   = "GATIC_DB_HOST"
	EnvDBPort   = "GATIC_DB_PORT"
	EnvDBUser   = "GATIC_DB_USER"
	EnvDBPass   = "GATIC_DB_PASSWORD"
	EnvDBName   = "GATIC_DB_NAME"

	EnvRedisURL = "GATIC_REDIS_URL"

	EnvGCPProjectID = "GATIC_GCP_PROJECT_ID"

	EnvPubSubInventoryTopic = "GATIC_PUBSUB_INVENTORY_TOPIC"
	EnvPubSubLoansTopic     = "GATIC_PUBSUB_LOANS_TOPIC"

	EnvInventoryLockTTL = "GATIC_INVENTORY_LOCK_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
