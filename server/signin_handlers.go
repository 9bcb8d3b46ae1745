package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rentdesk/sessiongate/identity"
	errs "github.com/rentdesk/sessiongate/internal/errors"
	"github.com/rentdesk/sessiongate/internal/metrics"
	"github.com/rentdesk/sessiongate/internal/utils"
	"github.com/rentdesk/sessiongate/refresh"
	"github.com/rentdesk/sessiongate/session"
)

const contentTypeJSON = "application/json; charset=utf-8"

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type sessionView struct {
	UserID      string  `json:"user_id"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	Image       *string `json:"image"`
	Role        string  `json:"role"`
	AccessToken string  `json:"access_token"`
	TokenExpiry *int64  `json:"token_expiry"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSignInError(w http.ResponseWriter, err error) {
	// The form gets actionable text and can retry immediately; raw codes
	// and upstream detail stay in the logs.
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": identity.SignInMessage(err)})
}

// SignInHandler performs interactive sign-in: credentials go to the
// identity provider, the resulting assertion is exchanged with the
// backend, and a gateway session is minted. area selects the default role
// for the sign-in surface ("tenant" for the tenant portal).
func (s *Server) SignInHandler(area string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body signInRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.Password == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
			return
		}

		providerSession, assertion, err := s.provider.SignIn(r.Context(), body.Email, body.Password)
		if err != nil {
			log.Warn().Err(err).Str("email", body.Email).Msg("provider rejected sign-in")
			writeSignInError(w, err)
			return
		}

		record, err := s.bridge.Exchange(r.Context(), assertion)
		if err != nil {
			s.logExchangeFailure(err, body.Email)
			writeSignInError(w, errs.ErrUpstreamAuthFailure)
			return
		}

		expiryMillis, err := refresh.AssertionExpiryMillis(assertion)
		if err != nil {
			log.Warn().Err(err).Msg("assertion has no usable expiry, session will not refresh")
		}

		role := session.RoleLandlord
		if area == "tenant" {
			role = session.RoleTenant
		}
		if parsed, ok := session.ParseRole(body.Role); ok {
			role = parsed
		}

		sess := session.Session{
			UserID:    record.ID,
			Email:     record.Email,
			Name:      record.Name,
			Image:     utils.Value(record.Image),
			Role:      role,
			CreatedAt: time.Now(),
		}
		if err == nil {
			sess = sess.WithCredentials(record.AccessToken, record.ID, expiryMillis)
		} else {
			sess.AccessToken = record.AccessToken
		}

		sessionID := uuid.New().String()
		if err := s.sessions.Upsert(sessionID, sess); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
			return
		}
		s.storeProviderSession(sessionID, providerSession)
		s.backend.SetSession(sess)
		s.SetSessionCookie(w, r, sessionID, int((24 * time.Hour).Seconds()))

		writeJSON(w, http.StatusOK, sessionToView(sess))
	}
}

// SignOutHandler drops the gateway session, its live provider session and
// every session cookie.
func (s *Server) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionID, ok := readSessionCookie(r); ok {
			_ = s.sessions.Delete(sessionID)
			s.dropProviderSession(sessionID)
		}
		s.backend.SetSession(session.Session{})
		s.ClearSessionCookie(w, r)
		w.WriteHeader(http.StatusNoContent)
	}
}

// SessionHandler returns the current session after running the lazy
// refresh policy on it, mirroring what the guard does for navigations.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := readSessionCookie(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
			return
		}

		sess, err := s.sessions.Get(sessionID)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
			return
		}

		refreshed, _ := s.policy.RefreshIfNeeded(r.Context(), sess, s.providerSessionFor(sessionID))
		if refreshed.AccessToken != sess.AccessToken {
			_ = s.sessions.Upsert(sessionID, refreshed)
		}
		s.backend.SetSession(refreshed)

		writeJSON(w, http.StatusOK, sessionToView(refreshed))
	}
}

// DashboardPlaceholderHandler stands in for the dashboard rendering layer
// the gateway fronts. Deployments replace it via WithPageHandler, usually
// with a reverse proxy.
func (s *Server) DashboardPlaceholderHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func (s *Server) logExchangeFailure(err error, email string) {
	var upstream *identity.UpstreamAuthError
	switch {
	case errs.As(err, &upstream):
		metrics.ExchangeFailures.WithLabelValues("upstream").Inc()
		log.Error().Int("status", upstream.Status).Str("body", upstream.Body).Str("email", email).Msg("backend rejected credential exchange")
	case errs.Is(err, errs.ErrInvalidResponse):
		metrics.ExchangeFailures.WithLabelValues("invalid_response").Inc()
		log.Error().Err(err).Str("email", email).Msg("backend returned an invalid exchange payload")
	default:
		metrics.ExchangeFailures.WithLabelValues("transport").Inc()
		log.Error().Err(err).Str("email", email).Msg("credential exchange failed")
	}
}

func sessionToView(sess session.Session) sessionView {
	var image *string
	if sess.Image != "" {
		image = utils.Ptr(sess.Image)
	}
	return sessionView{
		UserID:      sess.UserID,
		Email:       sess.Email,
		Name:        sess.Name,
		Image:       image,
		Role:        string(sess.Role),
		AccessToken: sess.AccessToken,
		TokenExpiry: sess.TokenExpiry,
	}
}
