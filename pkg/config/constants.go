package config

// EnvPrefix namespaces every environment variable consumed by the platform.
const EnvPrefix = "RENTFOLIO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "RENTFOLIO_DB_DSN"
	EnvDBHost = "RENTFOLIO_DB_HOST"
	EnvDBUser = "RENTFOLIO_DB_USER"
	EnvDBName = "RENTFOLIO_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
