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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Workflow     WorkflowConfig
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
	Env          string `envconfig:"PAPRFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"PAPRFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PAPRFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAPRFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PAPRFLOW_DB_DSN"`
	Driver string `envconfig:"PAPRFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PAPRFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"PAPRFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PAPRFLOW_DB_USER"`
	LegacyPassword string `envconfig:"PAPRFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"PAPRFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"PAPRFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAPRFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAPRFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAPRFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAPRFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAPRFLOW_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"PAPRFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAPRFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAPRFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAPRFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAPRFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PAPRFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PAPRFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PAPRFLOW_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PAPRFLOW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PAPRFLOW_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"PAPRFLOW_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OCRTopic        string `envconfig:"PAPRFLOW_PUBSUB_OCR_TOPIC"`
	OCRSubscription string `envconfig:"PAPRFLOW_PUBSUB_OCR_SUBSCRIPTION"`
}

// WorkflowConfig tunes the invoice workflow core.
type WorkflowConfig struct {
	DefaultCurrency string        `envconfig:"PAPRFLOW_DEFAULT_CURRENCY" default:"GHS"`
	IdempotencyTTL  time.Duration `envconfig:"PAPRFLOW_IDEMPOTENCY_TTL" default:"24h"`
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
