package guard

import (
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rentdesk/sessiongate/session"
)

// Route path constants gated by the guard
const (
	RouteSignin       = "/signin"
	RouteTenantSignin = "/tenant/signin"

	RouteDashboard       = "/dashboard"
	RouteTenantDashboard = "/dashboard/tenant"
)

// bypassPrefixes are never gated: static assets, the identity bridge's own
// callback paths and the raw backend proxy. Gating these creates a
// redirect loop.
var bypassPrefixes = []string{"/_next", "/api/auth", "/api/v1"}

// publicRoutes are reachable without a session, matched by exact path or
// prefix.
var publicRoutes = []string{
	RouteSignin,
	RouteTenantSignin,
	"/signup",
	"/forgot-password",
	"/help",
	"/manifest.json",
}

// noCacheHeaders keep gated pages out of client and intermediary caches so
// a page is never served stale after a role or auth change. Each decision
// gets its own map; callers may add headers without affecting later
// decisions.
func noCacheHeaders() map[string]string {
	return map[string]string{
		"Cache-Control": "no-store, no-cache, must-revalidate",
	}
}

// Request is everything one navigation gives the guard: the requested
// path, the origin to build absolute redirects from, the decoded session
// (nil when decoding failed or no session exists), and whether a raw
// session cookie was seen. Cookie presence is checked independently
// because the decode can fail transiently while a cookie still exists.
type Request struct {
	Path          string
	BaseURL       string // configured public origin; empty falls back to RequestOrigin
	RequestOrigin string
	Session       *session.Session
	HasCookie     bool
}

// Decision is the guard's verdict: allow (with response headers to set) or
// redirect.
type Decision struct {
	Allow       bool
	RedirectURL string
	Headers     map[string]string
}

func allow(headers map[string]string) Decision {
	return Decision{Allow: true, Headers: headers}
}

func redirect(target string) Decision {
	return Decision{RedirectURL: target}
}

// Guard gates every navigation before page logic runs.
type Guard struct {
	nowTime func() time.Time
}

// Option defines a function type to modify the Guard instance.
type Option func(*Guard)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(g *Guard) {
		g.nowTime = nowFunc
	}
}

func New(options ...Option) *Guard {
	g := &Guard{nowTime: time.Now}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Evaluate decides whether the navigation may proceed. Evaluation never
// fails open: an unexpected panic is converted into a hard redirect to
// plain sign-in.
func (g *Guard) Evaluate(req Request) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("path", req.Path).Msg("guard evaluation failed")
			decision = redirect(g.origin(req) + RouteSignin)
		}
	}()

	for _, prefix := range bypassPrefixes {
		if strings.HasPrefix(req.Path, prefix) {
			return allow(nil)
		}
	}

	for _, route := range publicRoutes {
		if req.Path == route || strings.HasPrefix(req.Path, route+"/") {
			return allow(nil)
		}
	}

	// Back to the role-appropriate sign-in page when there is nothing to
	// go on (no decoded session and no cookie), when the session was
	// invalidated (decoded but stripped of credentials by a failed
	// refresh), or when the token is already past its expiry. A cookie
	// with no decodable session passes: the decode can fail transiently.
	switch {
	case req.Session == nil && !req.HasCookie:
		return g.signinRedirect(req)
	case req.Session != nil && !req.Session.HasCredentials():
		return g.signinRedirect(req)
	case req.Session != nil && req.Session.ExpiredAt(g.nowTime()):
		return g.signinRedirect(req)
	}

	if req.Session != nil {
		if req.Path == RouteDashboard && req.Session.Role == session.RoleTenant {
			return redirect(g.origin(req) + RouteTenantDashboard)
		}
		if strings.HasPrefix(req.Path, RouteTenantDashboard) && req.Session.Role != session.RoleTenant {
			return redirect(g.origin(req) + RouteDashboard)
		}
	}

	return allow(noCacheHeaders())
}

// signinRedirect builds the sign-in redirect with a callbackUrl pointing
// at the dashboard root. Redirect loops need no check here: both sign-in
// pages are public routes, allowed before this point is reached.
func (g *Guard) signinRedirect(req Request) Decision {
	signinPath := RouteSignin
	if strings.HasPrefix(req.Path, RouteTenantDashboard) {
		signinPath = RouteTenantSignin
	}

	origin := g.origin(req)
	callback := origin + RouteDashboard
	return redirect(origin + signinPath + "?callbackUrl=" + url.QueryEscape(callback))
}

// origin resolves the absolute origin redirects are built against. The
// configured base wins over the request origin so redirects behind a
// reverse proxy never leak an internal hostname.
func (g *Guard) origin(req Request) string {
	base := req.BaseURL
	if base == "" {
		base = req.RequestOrigin
	}
	return strings.TrimSuffix(base, "/")
}
