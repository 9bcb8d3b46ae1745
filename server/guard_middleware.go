package server

import (
	"net/http"
	"strings"

	"github.com/rentdesk/sessiongate/guard"
	"github.com/rentdesk/sessiongate/internal/metrics"
)

// GuardMiddleware gates every navigation: it loads the session, runs the
// lazy refresh policy on it, and enforces the route guard's decision
// before the page handler runs.
func (s *Server) GuardMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			req := guard.Request{
				Path:          r.URL.Path,
				BaseURL:       s.config.GetBaseURL(),
				RequestOrigin: requestOrigin(r),
			}

			sessionID, hasCookie := readSessionCookie(r)
			req.HasCookie = hasCookie

			if hasCookie {
				if sess, err := s.sessions.Get(sessionID); err == nil {
					refreshed, _ := s.policy.RefreshIfNeeded(r.Context(), sess, s.providerSessionFor(sessionID))

					// Persist only when the refresh replaced or cleared the token
					if refreshed.AccessToken != sess.AccessToken {
						_ = s.sessions.Upsert(sessionID, refreshed)
					}

					s.backend.SetSession(refreshed)
					req.Session = &refreshed
				}
			}

			decision := s.guard.Evaluate(req)
			if !decision.Allow {
				metrics.GuardDecisions.WithLabelValues(redirectKind(decision.RedirectURL)).Inc()
				http.Redirect(w, r, decision.RedirectURL, http.StatusSeeOther)
				return
			}

			metrics.GuardDecisions.WithLabelValues("allow").Inc()
			for key, value := range decision.Headers {
				w.Header().Set(key, value)
			}
			next(w, r)
		}
	}
}

func redirectKind(target string) string {
	if strings.Contains(target, "signin") {
		return "redirect_signin"
	}
	return "redirect_role"
}
