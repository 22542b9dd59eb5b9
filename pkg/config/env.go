package config

const (
	EnvPrefix = "SWIFTCART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv    = "SWIFTCART_APP_ENV"
	EnvPort      = "SWIFTCART_APP_PORT"
	EnvLogLevel  = "SWIFTCART_LOG_LEVEL"
	EnvLogFormat = "SWIFTCART_LOG_FORMAT"

	EnvDBDSN    = "SWIFTCART_DB_DSN"
	EnvDBDriver = "SWIFTCART_DB_DRIVER"
	EnvDBHost   = "SWIFTCART_DB_HOST"
	EnvDBUser   = "SWIFTCART_DB_USER"
	EnvDBName   = "SWIFTCART_DB_NAME"

	EnvRedisURL = "SWIFTCART_REDIS_URL"

	EnvJWTSecret  = "SWIFTCART_JWT_SECRET"
	EnvJWTIssuer  = "SWIFTCART_JWT_ISSUER"
	EnvJWTExpMins = "SWIFTCART_JWT_EXPIRATION_MINUTES"
	EnvJWTLeeway  = "SWIFTCART_JWT_LEEWAY"

	EnvGCPProjectID = "SWIFTCART_GCP_PROJECT_ID"

	EnvPubSubNotificationTopic = "SWIFTCART_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub   = "SWIFTCART_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvPricingBaseDeliveryFee    = "SWIFTCART_PRICING_BASE_DELIVERY_FEE"
	EnvPricingPlatformFee        = "SWIFTCART_PRICING_PLATFORM_FEE"
	EnvPricingPremiumRate        = "SWIFTCART_PRICING_PREMIUM_RATE"
	EnvPricingDefaultCommission  = "SWIFTCART_PRICING_DEFAULT_COMMISSION_PERCENT"
	EnvPricingDistanceMultiplier = "SWIFTCART_PRICING_DISTANCE_MULTIPLIER"

	EnvCheckoutAtomicCommit = "SWIFTCART_CHECKOUT_ATOMIC_COMMIT"

	EnvCORSAllowedOrigins = "SWIFTCART_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
