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
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Journeys     JourneysConfig
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
	Env          string `envconfig:"FLEETOPS_APP_ENV" required:"true"`
	Port         string `envconfig:"FLEETOPS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FLEETOPS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FLEETOPS_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"FLEETOPS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FLEETOPS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FLEETOPS_DB_DSN"`
	Driver string `envconfig:"FLEETOPS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FLEETOPS_DB_HOST"`
	LegacyPort     int    `envconfig:"FLEETOPS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FLEETOPS_DB_USER"`
	LegacyPassword string `envconfig:"FLEETOPS_DB_PASSWORD"`
	LegacyName     string `envconfig:"FLEETOPS_DB_NAME"`
	LegacySSLMode  string `envconfig:"FLEETOPS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FLEETOPS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FLEETOPS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FLEETOPS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FLEETOPS_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"FLEETOPS_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FLEETOPS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FLEETOPS_REDIS_ADDR"`
	Password     string        `envconfig:"FLEETOPS_REDIS_PASSWORD"`
	DB           int           `envconfig:"FLEETOPS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FLEETOPS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FLEETOPS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FLEETOPS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FLEETOPS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FLEETOPS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FLEETOPS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FLEETOPS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FLEETOPS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FLEETOPS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FLEETOPS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FLEETOPS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FLEETOPS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FLEETOPS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"FLEETOPS_PUBSUB_NOTIFICATION_TOPIC" default:"fleetops-notification-events"`
	JourneyTopic      string `envconfig:"FLEETOPS_PUBSUB_JOURNEY_TOPIC" default:"fleetops-journey-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FLEETOPS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FLEETOPS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FLEETOPS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// JourneysConfig tunes destination classification and per-truck serialization.
type JourneysConfig struct {
	MSADestinationPatterns []string      `envconfig:"FLEETOPS_MSA_DESTINATION_PATTERNS" default:"MSA,MOMBASA"`
	TruckLockTTL           time.Duration `envconfig:"FLEETOPS_TRUCK_LOCK_TTL" default:"30s"`
	TruckLockWait          time.Duration `envconfig:"FLEETOPS_TRUCK_LOCK_WAIT" default:"5s"`
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"FLEETOPS_CRON_INTERVAL" default:"15m"`
	LockTTL                   time.Duration `envconfig:"FLEETOPS_CRON_LOCK_TTL" default:"30m"`
	NotificationRetentionDays int           `envconfig:"FLEETOPS_NOTIFICATION_RETENTION_DAYS" default:"90"`
	OutboxRetentionDays       int           `envconfig:"FLEETOPS_OUTBOX_RETENTION_DAYS" default:"30"`
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
