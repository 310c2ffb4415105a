package config

const EnvPrefix = "FLEETOPS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "FLEETOPS_APP_ENV"
	EnvPort      = "FLEETOPS_APP_PORT"
	EnvDBDSN     = "FLEETOPS_DB_DSN"
	EnvDBHost    = "FLEETOPS_DB_HOST"
	EnvDBUser    = "FLEETOPS_DB_USER"
	EnvDBName    = "FLEETOPS_DB_NAME"
	EnvRedisURL  = "FLEETOPS_REDIS_URL"
	EnvJWTSecret = "FLEETOPS_JWT_SECRET"
	EnvJWTIssuer = "FLEETOPS_JWT_ISSUER"

	EnvMSAPatterns  = "FLEETOPS_MSA_DESTINATION_PATTERNS"
	EnvTruckLockTTL = "FLEETOPS_TRUCK_LOCK_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
