package config

type Config interface {
	EnvConfig
	CorsConfig
	ProviderConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetAPIBaseURL() string
	GetBaseURL() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// ProviderConfig describes the external identity provider used for
// interactive sign-in and silent refresh.
type ProviderConfig interface {
	GetIdentityIssuerURL() string
	GetIdentityClientID() string
	GetIdentityClientSecret() string
	GetIdentityTokenURL() string
}

type mainConfig struct {
	EnvVars
	Cors
	Provider
}

func New() Config {
	return mainConfig{}
}
