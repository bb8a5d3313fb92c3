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
	FeatureFlags FeatureFlagsConfig
	Inventory    InventoryConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	RateLimit    RateLimitConfig
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
	Env          string `envconfig:"GATIC_APP_ENV" required:"true"`
	Port         string `envconfig:"GATIC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GATIC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GATIC_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"GATIC_CORS_ORIGINS" default:"*"`
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
	Kind string `envconfig:"GATIC_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GATIC_DB_DSN"`
	Driver string `envconfig:"GATIC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GATIC_DB_HOST"`
	LegacyPort     int    `envconfig:"GATIC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GATIC_DB_USER"`
	LegacyPassword string `envconfig:"GATIC_DB_PASSWORD"`
	LegacyName     string `envconfig:"GATIC_DB_NAME"`
	LegacySSLMode  string `envconfig:"GATIC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GATIC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GATIC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GATIC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GATIC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"GATIC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GATIC_REDIS_ADDR"`
	Password     string        `envconfig:"GATIC_REDIS_PASSWORD"`
	DB           int           `envconfig:"GATIC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GATIC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GATIC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GATIC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GATIC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GATIC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GATIC_AUTO_MIGRATE" default:"false"`
}

// InventoryConfig tunes the group lock taken around every reconciliation command.
type InventoryConfig struct {
	LockTTL          time.Duration `envconfig:"GATIC_INVENTORY_LOCK_TTL" default:"15s"`
	LockRetries      int           `envconfig:"GATIC_INVENTORY_LOCK_RETRIES" default:"20"`
	LockRetryBackoff time.Duration `envconfig:"GATIC_INVENTORY_LOCK_RETRY_BACKOFF" default:"100ms"`
	OverdueInterval  time.Duration `envconfig:"GATIC_INVENTORY_OVERDUE_INTERVAL" default:"15m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GATIC_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"GATIC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GATIC_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	InventoryTopic string `envconfig:"GATIC_PUBSUB_INVENTORY_TOPIC" required:"true"`
	LoansTopic     string `envconfig:"GATIC_PUBSUB_LOANS_TOPIC" required:"true"`
	TasksTopic     string `envconfig:"GATIC_PUBSUB_TASKS_TOPIC" default:"gatic-task-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"GATIC_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"GATIC_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"GATIC_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"GATIC_OUTBOX_RETENTION" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
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

// RateLimitConfig throttles mutating requests per actor. A zero limit disables it.
type RateLimitConfig struct {
	WriteLimit  int           `envconfig:"GATIC_RATE_LIMIT_WRITES" default:"120"`
	WriteWindow time.Duration `envconfig:"GATIC_RATE_LIMIT_WINDOW" default:"1m"`
}
