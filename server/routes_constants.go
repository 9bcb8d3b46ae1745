package server

// Route path constants
// All gateway routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Sign-in & Sign-out
	RouteAPISignin       = "/api/auth/signin"
	RouteAPITenantSignin = "/api/auth/tenant/signin"
	RouteAPISignout      = "/api/auth/signout"
	RouteAPISession      = "/api/auth/session"

	// Observability
	RouteMetrics = "/metrics"
)
