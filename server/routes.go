package server

import "github.com/rentdesk/sessiongate/internal/metrics"

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("POST "+RouteAPISignin, ChainMiddleware(s.SignInHandler(""), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAPITenantSignin, ChainMiddleware(s.SignInHandler("tenant"), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAPISignout, ChainMiddleware(s.SignOutHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAPISession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteMetrics, metrics.Handler())

	// Every other navigation goes through the route guard.
	s.RegisterRouteFunc("/", ChainMiddleware(s.pageNext, s.PageMiddleware(s.GuardMiddleware())...))
}
