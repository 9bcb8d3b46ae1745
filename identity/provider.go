package identity

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	errs "github.com/rentdesk/sessiongate/internal/errors"
)

// ProviderSession is the capability the refresh policy draws fresh
// assertions from: a live, still-authenticated identity-provider context.
// Implementations must return the provider's current assertion, not a
// value replayed from storage.
type ProviderSession interface {
	CurrentAssertion(ctx context.Context) (string, error)
}

// OIDCProviderSession is a ProviderSession backed by an oauth2 token
// source, which transparently renews the provider-side grant while it
// remains valid. An optional verifier checks the assertion's signature and
// claims before it is handed out.
type OIDCProviderSession struct {
	tokenSource oauth2.TokenSource
	verifier    *oidc.IDTokenVerifier
}

func NewOIDCProviderSession(tokenSource oauth2.TokenSource, verifier *oidc.IDTokenVerifier) *OIDCProviderSession {
	return &OIDCProviderSession{
		tokenSource: tokenSource,
		verifier:    verifier,
	}
}

// CurrentAssertion returns the provider's current identity token. Prefers
// the id_token extra when present, falling back to the access token.
func (p *OIDCProviderSession) CurrentAssertion(ctx context.Context) (string, error) {
	token, err := p.tokenSource.Token()
	if err != nil {
		return "", errs.Wrapf(errs.ErrNoLiveAssertion, "[OIDCProviderSession.CurrentAssertion] token source: %v", err)
	}

	assertion := token.AccessToken
	if raw, ok := token.Extra("id_token").(string); ok && raw != "" {
		assertion = raw
	}
	if assertion == "" {
		return "", errs.ErrNoLiveAssertion
	}

	if p.verifier != nil {
		if _, err := p.verifier.Verify(ctx, assertion); err != nil {
			return "", errs.Wrapf(errs.ErrNoLiveAssertion, "[OIDCProviderSession.CurrentAssertion] verify: %v", err)
		}
	}

	return assertion, nil
}

// Provider performs interactive password sign-in against the identity
// provider and hands back the live session used for silent refresh later.
type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// NewProvider discovers the issuer's endpoints and builds the sign-in
// surface. tokenURL overrides the discovered token endpoint when the
// provider uses a dedicated password-grant endpoint.
func NewProvider(ctx context.Context, issuerURL, clientID, clientSecret, tokenURL string) (*Provider, error) {
	oidcProvider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "[NewProvider] oidc discovery")
	}

	endpoint := oidcProvider.Endpoint()
	if tokenURL != "" {
		endpoint.TokenURL = tokenURL
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// SignInProvider is an identity provider supporting interactive password
// sign-in. It returns the live provider session (used for silent refresh
// later) and the initial identity assertion.
type SignInProvider interface {
	SignIn(ctx context.Context, email, password string) (ProviderSession, string, error)
}

var _ SignInProvider = (*Provider)(nil)

// SignIn exchanges an email/password pair for a live provider session and
// the initial identity assertion. Provider rejections are mapped onto the
// sign-in error taxonomy so the form can show a specific message.
func (p *Provider) SignIn(ctx context.Context, email, password string) (ProviderSession, string, error) {
	token, err := p.oauthConfig.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return nil, "", mapCredentialError(err)
	}

	providerSession := NewOIDCProviderSession(p.oauthConfig.TokenSource(ctx, token), p.verifier)
	assertion, err := providerSession.CurrentAssertion(ctx)
	if err != nil {
		return nil, "", errors.Wrap(err, "[Provider.SignIn] initial assertion")
	}
	return providerSession, assertion, nil
}

// mapCredentialError translates the provider's rejection into one of the
// sign-in sentinels. Unknown rejections collapse into the generic one.
func mapCredentialError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return errs.Wrapf(errs.ErrCredentialRejected, "provider sign-in: %v", err)
	}

	body := string(retrieveErr.Body)
	switch {
	case strings.Contains(body, "INVALID_PASSWORD"), strings.Contains(body, "INVALID_LOGIN_CREDENTIALS"):
		return errs.ErrWrongPassword
	case strings.Contains(body, "EMAIL_NOT_FOUND"), strings.Contains(body, "USER_NOT_FOUND"):
		return errs.ErrUnknownAccount
	case strings.Contains(body, "INVALID_EMAIL"):
		return errs.ErrMalformedEmail
	default:
		return errs.Wrapf(errs.ErrCredentialRejected, "provider sign-in: status %d", retrieveErr.Response.StatusCode)
	}
}

// SignInMessage converts a sign-in error into actionable user-facing text.
// Raw error codes never reach the form.
func SignInMessage(err error) string {
	switch {
	case errs.Is(err, errs.ErrWrongPassword):
		return "Incorrect password. Please try again."
	case errs.Is(err, errs.ErrUnknownAccount):
		return "No account found for that email address."
	case errs.Is(err, errs.ErrMalformedEmail):
		return "That email address doesn't look right. Please check it."
	default:
		return "Authentication failed. Please try again."
	}
}
