package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "VENDORBOX"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv         = "VENDORBOX_APP_ENV"
	EnvPort           = "VENDORBOX_APP_PORT"
	EnvLogLevel       = "VENDORBOX_LOG_LEVEL"
	EnvDBDSN          = "VENDORBOX_DB_DSN"
	EnvDBHost         = "VENDORBOX_DB_HOST"
	EnvDBUser         = "VENDORBOX_DB_USER"
	EnvDBName         = "VENDORBOX_DB_NAME"
	EnvDBPassword     = "VENDORBOX_DB_PASSWORD"
	EnvRedisURL       = "VENDORBOX_REDIS_URL"
	EnvStripeAPIKey   = "VENDORBOX_STRIPE_API_KEY"
	EnvStripeEnv      = "VENDORBOX_STRIPE_ENV"
	EnvOrderBatchSize = "VENDORBOX_ORDER_BATCH_SIZE"
	EnvPaymentStale   = "VENDORBOX_PAYMENT_STALE_AFTER"
	EnvSlotCapacity   = "VENDORBOX_SLOT_CAPACITY"
	EnvLowStockRatio  = "VENDORBOX_LOW_STOCK_RATIO"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
