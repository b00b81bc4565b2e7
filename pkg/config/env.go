package config

const (
	// EnvPrefix namespaces every environment variable envconfig reads.
	EnvPrefix = "saripos"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv         = "SARIPOS_APP_ENV"
	EnvAppPort        = "SARIPOS_APP_PORT"
	EnvDeviceID       = "SARIPOS_DEVICE_ID"
	EnvLocalStorePath = "SARIPOS_LOCAL_STORE_PATH"
	EnvRemoteDBDSN    = "SARIPOS_REMOTE_DB_DSN"
	EnvRedisURL       = "SARIPOS_REDIS_URL"
	EnvVATEnabled     = "SARIPOS_VAT_ENABLED"
	EnvVATInclusive   = "SARIPOS_VAT_INCLUSIVE"
	EnvVATRatePercent = "SARIPOS_VAT_RATE_PERCENT"
)
