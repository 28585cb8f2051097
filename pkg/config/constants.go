package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvStripeAPIKey        = "STOREFRONT_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "STOREFRONT_STRIPE_WEBHOOK_SECRET"
	EnvStripeEnv           = "STOREFRONT_STRIPE_ENV"

	EnvIdentityIssuer   = "STOREFRONT_IDENTITY_ISSUER_URL"
	EnvIdentityClientID = "STOREFRONT_IDENTITY_CLIENT_ID"

	EnvCSRFSecret = "STOREFRONT_CSRF_SECRET"

	EnvCheckoutTaxRate    = "STOREFRONT_CHECKOUT_TAX_RATE"
	EnvCheckoutSuccessURL = "STOREFRONT_CHECKOUT_SUCCESS_URL"
	EnvCheckoutCancelURL  = "STOREFRONT_CHECKOUT_CANCEL_URL"

	EnvGCPProjectID      = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
