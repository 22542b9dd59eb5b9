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
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Pricing      PricingConfig
	Checkout     CheckoutConfig
	Push         PushConfig
	Cron         CronConfig
	CORS         CORSConfig
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
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SWIFTCART_APP_ENV" required:"true"`
	Port         string `envconfig:"SWIFTCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SWIFTCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SWIFTCART_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SWIFTCART_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SWIFTCART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SWIFTCART_DB_DSN"`
	Driver string `envconfig:"SWIFTCART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SWIFTCART_DB_HOST"`
	LegacyPort     int    `envconfig:"SWIFTCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SWIFTCART_DB_USER"`
	LegacyPassword string `envconfig:"SWIFTCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"SWIFTCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"SWIFTCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SWIFTCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SWIFTCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SWIFTCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SWIFTCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"SWIFTCART_DB_SLOW_QUERY" default:"250ms"`
}

// IsSQLite reports whether the store runs against an embedded sqlite file.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"SWIFTCART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SWIFTCART_REDIS_ADDR"`
	Password     string        `envconfig:"SWIFTCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"SWIFTCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SWIFTCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SWIFTCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SWIFTCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SWIFTCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SWIFTCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SWIFTCART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SWIFTCART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SWIFTCART_JWT_EXPIRATION_MINUTES" default:"60"`

	Leeway time.Duration `envconfig:"SWIFTCART_JWT_LEEWAY" default:"30s"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SWIFTCART_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SWIFTCART_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SWIFTCART_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SWIFTCART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SWIFTCART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"SWIFTCART_PUBSUB_NOTIFICATION_TOPIC" default:"sc-notification-events"`
	NotificationSubscription string `envconfig:"SWIFTCART_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"sc-notification-events-sub"`

	MaxOutstandingMessages int `envconfig:"SWIFTCART_PUBSUB_MAX_OUTSTANDING" default:"50"`
	ReceiveGoroutines      int `envconfig:"SWIFTCART_PUBSUB_RECEIVE_GOROUTINES" default:"2"`
}

// PricingConfig holds the fee policy constants used by checkout and order placement.
type PricingConfig struct {
	BaseDeliveryFee            int64   `envconfig:"SWIFTCART_PRICING_BASE_DELIVERY_FEE" default:"20"`
	PlatformFee                int64   `envconfig:"SWIFTCART_PRICING_PLATFORM_FEE" default:"10"`
	PremiumThreshold           int64   `envconfig:"SWIFTCART_PRICING_PREMIUM_THRESHOLD" default:"10000"`
	PremiumRate                float64 `envconfig:"SWIFTCART_PRICING_PREMIUM_RATE" default:"0.00001"`
	DefaultCommissionPercent   float64 `envconfig:"SWIFTCART_PRICING_DEFAULT_COMMISSION_PERCENT" default:"15"`
	DefaultDeliveryChargePerKm float64 `envconfig:"SWIFTCART_PRICING_DEFAULT_DELIVERY_CHARGE_PER_KM" default:"5"`
	DistanceMultiplier         float64 `envconfig:"SWIFTCART_PRICING_DISTANCE_MULTIPLIER" default:"1.3"`
}

func (p PricingConfig) validate() error {
	switch {
	case p.BaseDeliveryFee < 0:
		return fmt.Errorf("%s must be >= 0", EnvPricingBaseDeliveryFee)
	case p.PlatformFee < 0:
		return fmt.Errorf("%s must be >= 0", EnvPricingPlatformFee)
	case p.PremiumRate < 0:
		return fmt.Errorf("%s must be >= 0", EnvPricingPremiumRate)
	case p.DefaultCommissionPercent < 0 || p.DefaultCommissionPercent > 100:
		return fmt.Errorf("%s must be between 0 and 100", EnvPricingDefaultCommission)
	case p.DistanceMultiplier <= 0:
		return fmt.Errorf("%s must be > 0", EnvPricingDistanceMultiplier)
	}
	return nil
}

type CheckoutConfig struct {
	AtomicCommit   bool          `envconfig:"SWIFTCART_CHECKOUT_ATOMIC_COMMIT" default:"false"`
	IdempotencyTTL time.Duration `envconfig:"SWIFTCART_CHECKOUT_IDEMPOTENCY_TTL" default:"168h"`
}

type PushConfig struct {
	ExpoURL     string        `envconfig:"SWIFTCART_PUSH_EXPO_URL" default:"https://exp.host/--/api/v2/push/send"`
	AccessToken string        `envconfig:"SWIFTCART_PUSH_EXPO_ACCESS_TOKEN"`
	Timeout     time.Duration `envconfig:"SWIFTCART_PUSH_TIMEOUT" default:"10s"`
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"SWIFTCART_CRON_INTERVAL" default:"5m"`
	LockTTL          time.Duration `envconfig:"SWIFTCART_CRON_LOCK_TTL" default:"10m"`
	CleanupBatchSize int           `envconfig:"SWIFTCART_CRON_CART_CLEANUP_BATCH_SIZE" default:"100"`
	JobTimeout       time.Duration `envconfig:"SWIFTCART_CRON_JOB_TIMEOUT" default:"2m"`
	// MetricsAddr serves /metrics for the worker; empty disables it.
	MetricsAddr string `envconfig:"SWIFTCART_CRON_METRICS_ADDR" default:":9102"`
}

// RateLimitConfig throttles coupon probing. A zero window disables the limit.
type RateLimitConfig struct {
	CouponWindow    time.Duration `envconfig:"SWIFTCART_RATE_LIMIT_COUPON_WINDOW" default:"1m"`
	CouponUserLimit int           `envconfig:"SWIFTCART_RATE_LIMIT_COUPON_USER" default:"10"`
	CouponIPLimit   int           `envconfig:"SWIFTCART_RATE_LIMIT_COUPON_IP" default:"30"`
}

type CORSConfig struct {
	AllowedOrigins []string      `envconfig:"SWIFTCART_CORS_ALLOWED_ORIGINS" default:"http://localhost:19006,exp://localhost:19000"`
	MaxAge         time.Duration `envconfig:"SWIFTCART_CORS_MAX_AGE" default:"5m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvDBDriver, DBDriverSQLite)
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
