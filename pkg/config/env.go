package config

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// IsProductionLike reports whether env must satisfy production configuration requirements.
func IsProductionLike(env string) bool {
	return env == EnvStaging || env == EnvProduction
}
