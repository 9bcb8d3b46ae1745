package config

type Provider struct{}

var _ ProviderConfig = Provider{}

func (Provider) GetIdentityIssuerURL() string {
	return GetEnv("IDP_ISSUER_URL", "https://securetoken.googleapis.com/demo-project")
}

func (Provider) GetIdentityClientID() string {
	return GetEnv("IDP_CLIENT_ID", "demo-project")
}

func (Provider) GetIdentityClientSecret() string {
	return GetEnv("IDP_CLIENT_SECRET", "")
}

// GetIdentityTokenURL returns the provider endpoint used for the
// password-credential sign-in call.
func (Provider) GetIdentityTokenURL() string {
	return GetEnv("IDP_TOKEN_URL", "")
}
