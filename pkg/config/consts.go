package config

// EnvPrefix namespaces every environment variable the app reads.
const EnvPrefix = "OFFERHUB"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "OFFERHUB_DB_DSN"
	EnvDBHost = "OFFERHUB_DB_HOST"
	EnvDBUser = "OFFERHUB_DB_USER"
	EnvDBName = "OFFERHUB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
