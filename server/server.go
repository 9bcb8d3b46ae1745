package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/rentdesk/sessiongate/guard"
	"github.com/rentdesk/sessiongate/identity"
	"github.com/rentdesk/sessiongate/internal/config"
	"github.com/rentdesk/sessiongate/outbound"
	"github.com/rentdesk/sessiongate/refresh"
	"github.com/rentdesk/sessiongate/session"
)

type Server struct {
	env        string // Environment (e.g., "DEV", "production")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	bridge     *identity.BridgeClient
	provider   identity.SignInProvider
	sessions   session.Repo
	policy     *refresh.Policy
	guard      *guard.Guard
	backend    *outbound.Authenticator
	pageNext   http.HandlerFunc

	// Live provider sessions keyed by gateway session ID. These are the
	// authenticated provider contexts the refresh policy draws fresh
	// assertions from; they are never written to the session store.
	providerSessions     map[string]identity.ProviderSession
	providerSessionsLock sync.RWMutex
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

// WithPageHandler sets the handler gated navigations are forwarded to
// once the guard allows them.
func WithPageHandler(next http.HandlerFunc) ServerOption {
	return func(s *Server) {
		s.pageNext = next
	}
}

// WithGuard overrides the route guard (primarily for testing with a fixed
// clock).
func WithGuard(g *guard.Guard) ServerOption {
	return func(s *Server) {
		s.guard = g
	}
}

// WithRefreshPolicy overrides the refresh policy (primarily for testing).
func WithRefreshPolicy(p *refresh.Policy) ServerOption {
	return func(s *Server) {
		s.policy = p
	}
}

func New(cfg config.Config, provider identity.SignInProvider, sessionRepo session.Repo, options ...ServerOption) (*Server, error) {
	if provider == nil {
		return nil, fmt.Errorf("[Server New] identity provider is required")
	}
	if sessionRepo == nil {
		return nil, fmt.Errorf("[Server New] session repo is required")
	}

	bridge := identity.NewBridgeClient(cfg.GetAPIBaseURL())

	s := &Server{
		mux:              http.NewServeMux(),
		config:           cfg,
		bridge:           bridge,
		provider:         provider,
		sessions:         sessionRepo,
		policy:           refresh.NewPolicy(bridge),
		guard:            guard.New(),
		backend:          outbound.NewAuthenticator(nil, nil),
		providerSessions: make(map[string]identity.ProviderSession),
	}
	s.env = cfg.GetEnv()
	s.pageNext = s.DashboardPlaceholderHandler()

	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Backend returns the outbound authenticator fronting backend API calls.
func (s *Server) Backend() *outbound.Authenticator {
	return s.backend
}

func (s *Server) storeProviderSession(sessionID string, providerSession identity.ProviderSession) {
	s.providerSessionsLock.Lock()
	defer s.providerSessionsLock.Unlock()
	s.providerSessions[sessionID] = providerSession
}

func (s *Server) providerSessionFor(sessionID string) identity.ProviderSession {
	s.providerSessionsLock.RLock()
	defer s.providerSessionsLock.RUnlock()
	return s.providerSessions[sessionID]
}

func (s *Server) dropProviderSession(sessionID string) {
	s.providerSessionsLock.Lock()
	defer s.providerSessionsLock.Unlock()
	delete(s.providerSessions, sessionID)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Printf("[%-7s] %s\n", method, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}

func requestOrigin(r *http.Request) string {
	return fmt.Sprintf("%s://%s", getScheme(r), r.Host)
}
