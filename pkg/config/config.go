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
	Stripe       StripeConfig
	Sweeps       SweepsConfig
	Machines     MachinesConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = "file:vendorbox.db?cache=shared"
		}
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Machines.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VENDORBOX_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDORBOX_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"VENDORBOX_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"VENDORBOX_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"VENDORBOX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VENDORBOX_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VENDORBOX_DB_DSN"`
	Driver string `envconfig:"VENDORBOX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENDORBOX_DB_HOST"`
	LegacyPort     int    `envconfig:"VENDORBOX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENDORBOX_DB_USER"`
	LegacyPassword string `envconfig:"VENDORBOX_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENDORBOX_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENDORBOX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDORBOX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDORBOX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDORBOX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDORBOX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDORBOX_REDIS_URL"`
	Address      string        `envconfig:"VENDORBOX_REDIS_ADDR"`
	Password     string        `envconfig:"VENDORBOX_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDORBOX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDORBOX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDORBOX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDORBOX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDORBOX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDORBOX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VENDORBOX_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VENDORBOX_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey            string        `envconfig:"VENDORBOX_STRIPE_API_KEY"`
	Env               string        `envconfig:"VENDORBOX_STRIPE_ENV" default:"test"`
	MaxNetworkRetries int           `envconfig:"VENDORBOX_STRIPE_MAX_RETRIES" default:"2"`
	Timeout           time.Duration `envconfig:"VENDORBOX_STRIPE_TIMEOUT" default:"20s"`
	// APIURL overrides the API host, e.g. a local stripe-mock.
	APIURL            string        `envconfig:"VENDORBOX_STRIPE_API_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// SweepsConfig controls cadence and sizing of the reconciliation jobs.
type SweepsConfig struct {
	CronTick                   time.Duration `envconfig:"VENDORBOX_CRON_TICK" default:"1m"`
	OrderExpirationInterval    time.Duration `envconfig:"VENDORBOX_ORDER_EXPIRATION_INTERVAL" default:"5m"`
	PaymentCleanupInterval     time.Duration `envconfig:"VENDORBOX_PAYMENT_CLEANUP_INTERVAL" default:"168h"`
	ReservationCleanupInterval time.Duration `envconfig:"VENDORBOX_RESERVATION_CLEANUP_INTERVAL" default:"15m"`
	AlertMaintenanceInterval   time.Duration `envconfig:"VENDORBOX_ALERT_MAINTENANCE_INTERVAL" default:"24h"`
	LockTTL                    time.Duration `envconfig:"VENDORBOX_CRON_LOCK_TTL" default:"30m"`
	OrderBatchSize             int           `envconfig:"VENDORBOX_ORDER_BATCH_SIZE" default:"100"`
	PaymentBatchSize           int           `envconfig:"VENDORBOX_PAYMENT_BATCH_SIZE" default:"50"`
	PaymentStaleAfter          time.Duration `envconfig:"VENDORBOX_PAYMENT_STALE_AFTER" default:"168h"`
	CandidateLimit             int           `envconfig:"VENDORBOX_CANDIDATE_LIMIT" default:"1000"`
}

// MachinesConfig holds the physical layout shared by the ledger and the alert calculator.
type MachinesConfig struct {
	SlotCapacity  int     `envconfig:"VENDORBOX_SLOT_CAPACITY" default:"6"`
	LowStockRatio float64 `envconfig:"VENDORBOX_LOW_STOCK_RATIO" default:"0.5"`
}

func (m MachinesConfig) validate() error {
	if m.SlotCapacity <= 0 {
		return fmt.Errorf("%s must be positive", EnvSlotCapacity)
	}
	if m.LowStockRatio <= 0 || m.LowStockRatio > 1 {
		return fmt.Errorf("%s must be within (0, 1]", EnvLowStockRatio)
	}
	return nil
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
