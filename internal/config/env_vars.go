package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	apiBaseVar    = "API_BASE_URL"
	baseURLVar    = "NEXTAUTH_URL"
	altBaseURLVar = "NEXT_PUBLIC_BASE_URL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" || port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Session Gateway")
}

// GetAPIBaseURL returns the base address of the property-management backend
// that credentials are exchanged against.
func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiBaseVar, "http://localhost:8000/api/v1")
}

// GetBaseURL returns the public origin used to build absolute redirect URLs.
// Required behind reverse proxies to avoid leaking an internal hostname.
// Empty means "fall back to the request origin".
func (EnvVars) GetBaseURL() string {
	base := os.Getenv(baseURLVar)
	if base == "" {
		base = os.Getenv(altBaseURLVar)
	}
	return base
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
