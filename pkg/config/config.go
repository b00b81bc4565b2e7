package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	LocalStore   LocalStoreConfig
	RemoteDB     RemoteDBConfig
	Redis        RedisConfig
	VAT          VATConfig
	Mirror       MirrorConfig
	Sync         SyncConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.VAT.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SARIPOS_APP_ENV" required:"true"`
	Port         string `envconfig:"SARIPOS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SARIPOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SARIPOS_LOG_WARN_STACK" default:"false"`
	DeviceID     string `envconfig:"SARIPOS_DEVICE_ID" default:"till-1"`
	StaffID      string `envconfig:"SARIPOS_STAFF_ID" default:"staff-1"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// LocalStoreConfig points at the sqlite file that backs the durable queue,
// cached catalog and cached baskets. It must survive process restarts.
type LocalStoreConfig struct {
	Path            string        `envconfig:"SARIPOS_LOCAL_STORE_PATH" default:"sari-pos.db"`
	BusyTimeout     time.Duration `envconfig:"SARIPOS_LOCAL_STORE_BUSY_TIMEOUT" default:"5s"`
	MaxOpenConns    int           `envconfig:"SARIPOS_LOCAL_STORE_MAX_OPEN_CONNS" default:"1"`
	ConnMaxLifetime time.Duration `envconfig:"SARIPOS_LOCAL_STORE_CONN_MAX_LIFETIME" default:"1h"`
}

// RemoteDBConfig configures the reference remote-store implementation
// (transactions, baskets, stock). Leave the DSN empty on devices that talk to
// a hosted API instead.
type RemoteDBConfig struct {
	DSN             string        `envconfig:"SARIPOS_REMOTE_DB_DSN"`
	MaxOpenConns    int           `envconfig:"SARIPOS_REMOTE_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"SARIPOS_REMOTE_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"SARIPOS_REMOTE_DB_CONN_MAX_LIFETIME" default:"1h"`
}

func (r RemoteDBConfig) Enabled() bool {
	return strings.TrimSpace(r.DSN) != ""
}

type RedisConfig struct {
	URL          string        `envconfig:"SARIPOS_REDIS_URL" required:"true"`
	Password     string        `envconfig:"SARIPOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"SARIPOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SARIPOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SARIPOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SARIPOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SARIPOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SARIPOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// VATConfig carries the tax settings frozen into each composed transaction.
type VATConfig struct {
	Enabled     bool    `envconfig:"SARIPOS_VAT_ENABLED" default:"true"`
	Inclusive   bool    `envconfig:"SARIPOS_VAT_INCLUSIVE" default:"true"`
	RatePercent float64 `envconfig:"SARIPOS_VAT_RATE_PERCENT" default:"12"`
}

func (v VATConfig) validate() error {
	if v.RatePercent < 0 {
		return fmt.Errorf("vat rate must be non-negative, got %v", v.RatePercent)
	}
	return nil
}

type MirrorConfig struct {
	DebounceWindow time.Duration `envconfig:"SARIPOS_MIRROR_DEBOUNCE" default:"300ms"`
	PushTimeout    time.Duration `envconfig:"SARIPOS_MIRROR_PUSH_TIMEOUT" default:"500ms"`
}

type SyncConfig struct {
	PollInterval  time.Duration `envconfig:"SARIPOS_SYNC_POLL_INTERVAL" default:"5s"`
	RetryAttempts uint64        `envconfig:"SARIPOS_SYNC_RETRY_ATTEMPTS" default:"3"`
	RetryBase     time.Duration `envconfig:"SARIPOS_SYNC_RETRY_BASE" default:"250ms"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SARIPOS_AUTO_MIGRATE" default:"false"`
}
