package server

import "net/http"

// Session cookie candidates. Which name is in use depends on the
// deployment's TLS configuration, so presence is checked across all three.
const (
	hostSessionCookie     = "__Host-sessiongate.session"
	secureSessionCookie   = "__Secure-sessiongate.session"
	fallbackSessionCookie = "sessiongate.session"
)

var sessionCookieCandidates = []string{
	hostSessionCookie,
	secureSessionCookie,
	fallbackSessionCookie,
}

// readSessionCookie returns the session ID from the first candidate cookie
// present on the request.
func readSessionCookie(r *http.Request) (string, bool) {
	for _, name := range sessionCookieCandidates {
		if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
			return cookie.Value, true
		}
	}
	return "", false
}

// SetSessionCookie writes the session cookie under the name appropriate
// for the request's transport.
func (s *Server) SetSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string, maxAge int) {
	name := fallbackSessionCookie
	secure := false
	if getScheme(r) == "https" {
		name = secureSessionCookie
		secure = true
	}

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires every candidate cookie name.
func (s *Server) ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	secure := getScheme(r) == "https"
	for _, name := range sessionCookieCandidates {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
