package guard_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rentdesk/sessiongate/guard"
	"github.com/rentdesk/sessiongate/internal/utils"
	"github.com/rentdesk/sessiongate/session"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

const baseURL = "https://app.example.com"

func newGuard() *guard.Guard {
	return guard.New(guard.WithNowTime(func() time.Time { return fixedNow }))
}

func validSession(role session.Role) *session.Session {
	sess := session.Session{UserID: "u1", Role: role}.
		WithCredentials("tok", "u1", fixedNow.Add(time.Hour).UnixMilli())
	return &sess
}

func TestBypassedPathsAreNeverGated(t *testing.T) {
	g := newGuard()

	for _, path := range []string{"/_next/static/chunk.js", "/api/auth/signin", "/api/v1/properties"} {
		decision := g.Evaluate(guard.Request{Path: path, BaseURL: baseURL})
		require.True(t, decision.Allow, path)
	}
}

func TestPublicRoutesNeverRedirect(t *testing.T) {
	g := newGuard()

	for _, path := range []string{
		"/signin",
		"/tenant/signin",
		"/signup",
		"/forgot-password",
		"/forgot-password/confirm",
		"/help",
		"/manifest.json",
	} {
		decision := g.Evaluate(guard.Request{Path: path, BaseURL: baseURL})
		require.True(t, decision.Allow, path)
	}
}

func TestNoTokenNoCookieRedirectsToSignin(t *testing.T) {
	g := newGuard()

	decision := g.Evaluate(guard.Request{Path: "/dashboard/payments", BaseURL: baseURL})
	require.False(t, decision.Allow)
	require.Equal(t, baseURL+"/signin?callbackUrl=https%3A%2F%2Fapp.example.com%2Fdashboard", decision.RedirectURL)
}

func TestTenantAreaRedirectsToTenantSignin(t *testing.T) {
	g := newGuard()

	decision := g.Evaluate(guard.Request{Path: "/dashboard/tenant/payments", BaseURL: baseURL})
	require.False(t, decision.Allow)
	require.Equal(t, baseURL+"/tenant/signin?callbackUrl=https%3A%2F%2Fapp.example.com%2Fdashboard", decision.RedirectURL)
}

func TestSelfRedirectIsSuppressed(t *testing.T) {
	g := newGuard()

	// No cookie and no token on the sign-in pages: both are public
	// routes, so no redirect loop can form
	decision := g.Evaluate(guard.Request{Path: "/signin", BaseURL: baseURL})
	require.True(t, decision.Allow)

	decision = g.Evaluate(guard.Request{Path: "/tenant/signin", BaseURL: baseURL})
	require.True(t, decision.Allow)
}

func TestExpiredTokenTreatedAsNoToken(t *testing.T) {
	g := newGuard()

	expired := session.Session{UserID: "u1", Role: session.RoleLandlord}.
		WithCredentials("tok", "u1", fixedNow.Add(-time.Minute).UnixMilli())

	decision := g.Evaluate(guard.Request{
		Path:      "/dashboard/payments",
		BaseURL:   baseURL,
		Session:   &expired,
		HasCookie: true,
	})
	require.False(t, decision.Allow)
	require.Contains(t, decision.RedirectURL, "/signin?callbackUrl=")
}

func TestCookieWithoutDecodedTokenIsAllowed(t *testing.T) {
	g := newGuard()

	// Token decode can fail transiently while the cookie still exists
	decision := g.Evaluate(guard.Request{Path: "/dashboard", BaseURL: baseURL, HasCookie: true})
	require.True(t, decision.Allow)
}

func TestInvalidatedSessionRedirects(t *testing.T) {
	g := newGuard()

	// A failed refresh strips credentials; the user discovers it here
	invalidated := session.Session{UserID: "u1", Role: session.RoleLandlord}.WithoutCredentials()
	decision := g.Evaluate(guard.Request{
		Path:      "/dashboard/payments",
		BaseURL:   baseURL,
		Session:   &invalidated,
		HasCookie: true,
	})
	require.False(t, decision.Allow)
	require.Contains(t, decision.RedirectURL, "/signin?callbackUrl=")
}

func TestTenantRoleRedirectedFromLandlordRoot(t *testing.T) {
	g := newGuard()

	decision := g.Evaluate(guard.Request{
		Path:      "/dashboard",
		BaseURL:   baseURL,
		Session:   validSession(session.RoleTenant),
		HasCookie: true,
	})
	require.False(t, decision.Allow)
	require.Equal(t, baseURL+"/dashboard/tenant", decision.RedirectURL)
}

func TestLandlordRedirectedFromTenantArea(t *testing.T) {
	g := newGuard()

	decision := g.Evaluate(guard.Request{
		Path:      "/dashboard/tenant/payments",
		BaseURL:   baseURL,
		Session:   validSession(session.RoleLandlord),
		HasCookie: true,
	})
	require.False(t, decision.Allow)
	require.Equal(t, baseURL+"/dashboard", decision.RedirectURL)
}

func TestTenantAllowedInTenantArea(t *testing.T) {
	g := newGuard()

	decision := g.Evaluate(guard.Request{
		Path:      "/dashboard/tenant/payments",
		BaseURL:   baseURL,
		Session:   validSession(session.RoleTenant),
		HasCookie: true,
	})
	require.True(t, decision.Allow)
}

func TestAllowedRequestsDisableCaching(t *testing.T) {
	g := newGuard()

	decision := g.Evaluate(guard.Request{
		Path:      "/dashboard/expenses",
		BaseURL:   baseURL,
		Session:   validSession(session.RoleLandlord),
		HasCookie: true,
	})
	require.True(t, decision.Allow)
	require.Equal(t, "no-store, no-cache, must-revalidate", decision.Headers["Cache-Control"])
}

func TestDecisionHeadersAreIsolated(t *testing.T) {
	g := newGuard()

	req := guard.Request{
		Path:      "/dashboard/expenses",
		BaseURL:   baseURL,
		Session:   validSession(session.RoleLandlord),
		HasCookie: true,
	}

	first := g.Evaluate(req)
	first.Headers["Cache-Control"] = "public"
	first.Headers["X-Extra"] = "mutated"

	second := g.Evaluate(req)
	require.Equal(t, "no-store, no-cache, must-revalidate", second.Headers["Cache-Control"])
	require.NotContains(t, second.Headers, "X-Extra")
}

func TestRequestOriginFallback(t *testing.T) {
	g := newGuard()

	decision := g.Evaluate(guard.Request{
		Path:          "/dashboard",
		RequestOrigin: "http://localhost:3000",
	})
	require.False(t, decision.Allow)
	require.Contains(t, decision.RedirectURL, "http://localhost:3000/signin")
}

func TestEvaluationFailureNeverFailsOpen(t *testing.T) {
	g := guard.New(guard.WithNowTime(func() time.Time { panic("clock unavailable") }))

	expiry := utils.Ptr(fixedNow.Add(time.Hour).UnixMilli())
	decision := g.Evaluate(guard.Request{
		Path:      "/dashboard/expenses",
		BaseURL:   baseURL,
		Session:   &session.Session{AccessToken: "tok", TokenExpiry: expiry},
		HasCookie: true,
	})
	require.False(t, decision.Allow)
	// Hard redirect to plain sign-in, no callback url
	require.Equal(t, baseURL+"/signin", decision.RedirectURL)
}
