package config

// EnvPrefix namespaces every environment variable this service reads.
const EnvPrefix = "PAPRFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv     = "PAPRFLOW_APP_ENV"
	EnvPort       = "PAPRFLOW_APP_PORT"
	EnvDBDSN      = "PAPRFLOW_DB_DSN"
	EnvDBHost     = "PAPRFLOW_DB_HOST"
	EnvDBUser     = "PAPRFLOW_DB_USER"
	EnvDBName     = "PAPRFLOW_DB_NAME"
	EnvRedisURL   = "PAPRFLOW_REDIS_URL"
	EnvJWTSecret  = "PAPRFLOW_JWT_SECRET"
	EnvJWTIssuer  = "PAPRFLOW_JWT_ISSUER"
	EnvGCPProject = "PAPRFLOW_GCP_PROJECT_ID"
	EnvOCRTopic   = "PAPRFLOW_PUBSUB_OCR_TOPIC"
	EnvOCRSub     = "PAPRFLOW_PUBSUB_OCR_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
