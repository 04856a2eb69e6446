package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Gateway      GatewayConfig
	Fees         FeesConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"MESHBAZAAR_APP_ENV" required:"true"`
	Port         string `envconfig:"MESHBAZAAR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MESHBAZAAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MESHBAZAAR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MESHBAZAAR_DB_DSN"`
	Driver string `envconfig:"MESHBAZAAR_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MESHBAZAAR_DB_HOST"`
	Port     int    `envconfig:"MESHBAZAAR_DB_PORT" default:"5432"`
	User     string `envconfig:"MESHBAZAAR_DB_USER"`
	Password string `envconfig:"MESHBAZAAR_DB_PASSWORD"`
	Name     string `envconfig:"MESHBAZAAR_DB_NAME"`
	SSLMode  string `envconfig:"MESHBAZAAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MESHBAZAAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MESHBAZAAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MESHBAZAAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MESHBAZAAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MESHBAZAAR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MESHBAZAAR_REDIS_ADDR"`
	Password     string        `envconfig:"MESHBAZAAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"MESHBAZAAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MESHBAZAAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MESHBAZAAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MESHBAZAAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MESHBAZAAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MESHBAZAAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MESHBAZAAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MESHBAZAAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MESHBAZAAR_JWT_EXPIRATION_MINUTES" default:"60"`
}

// GatewayConfig describes the external payment processor used for online orders.
type GatewayConfig struct {
	BaseURL  string        `envconfig:"MESHBAZAAR_GATEWAY_BASE_URL" required:"true"`
	KeyID    string        `envconfig:"MESHBAZAAR_GATEWAY_KEY_ID" required:"true"`
	Secret   string        `envconfig:"MESHBAZAAR_GATEWAY_SECRET" required:"true"`
	Currency string        `envconfig:"MESHBAZAAR_GATEWAY_CURRENCY" default:"INR"`
	Timeout  time.Duration `envconfig:"MESHBAZAAR_GATEWAY_TIMEOUT" default:"10s"`
}

// FeesConfig carries the order fee policy and the platform commission.
// Delivery is free at or above the threshold, otherwise the flat fee applies.
type FeesConfig struct {
	FreeDeliveryThresholdCents int `envconfig:"MESHBAZAAR_FEES_FREE_DELIVERY_THRESHOLD_CENTS" default:"50000"`
	DeliveryFeeCents           int `envconfig:"MESHBAZAAR_FEES_DELIVERY_FEE_CENTS" default:"4000"`
	GiftPackagingFeeCents      int `envconfig:"MESHBAZAAR_FEES_GIFT_PACKAGING_FEE_CENTS" default:"3000"`
	CODFeeCents                int `envconfig:"MESHBAZAAR_FEES_COD_FEE_CENTS" default:"1000"`
	CommissionPercent          int `envconfig:"MESHBAZAAR_FEES_COMMISSION_PERCENT" default:"5"`
	WithdrawalMinimumCents     int `envconfig:"MESHBAZAAR_FEES_WITHDRAWAL_MINIMUM_CENTS" default:"50000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MESHBAZAAR_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, val := range map[string]string{
		"MESHBAZAAR_DB_HOST": db.Host,
		"MESHBAZAAR_DB_USER": db.User,
		"MESHBAZAAR_DB_NAME": db.Name,
	} {
		if val == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either MESHBAZAAR_DB_DSN or %s are required", strings.Join(missing, ", "))
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
