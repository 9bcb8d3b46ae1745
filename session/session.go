package session

import "time"

// Role identifies which part of the dashboard a user belongs to.
type Role string

const (
	RoleLandlord         Role = "landlord"
	RoleTenant           Role = "tenant"
	RoleAgent            Role = "agent"
	RolePropertyManager  Role = "property_manager"
	RoleMaintenanceStaff Role = "maintenance_staff"
)

// ParseRole validates a raw role string against the known roles.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleLandlord, RoleTenant, RoleAgent, RolePropertyManager, RoleMaintenanceStaff:
		return Role(raw), true
	}
	return "", false
}

// Session is the per-user state carried across navigations. It is a plain
// value: mutation happens by deriving a new value via WithCredentials or
// WithoutCredentials, never in place, so a token and its expiry can only
// ever change together.
type Session struct {
	// Core identity
	UserID string
	Email  string
	Name   string
	Image  string
	Role   Role

	// Credential material. AccessToken is the bearer sent to the backend;
	// TokenExpiry is the epoch-millisecond instant it stops being valid.
	// A nil TokenExpiry means expiry is not tracked and the token is
	// passed through as-is on refresh evaluation.
	AccessToken string
	TokenExpiry *int64

	// Session management
	CreatedAt time.Time
}

// WithCredentials returns a copy of the session with the token, user ID and
// expiry replaced in a single step. The old token is discarded, not retried.
func (s Session) WithCredentials(accessToken, userID string, expiryMillis int64) Session {
	s.AccessToken = accessToken
	s.UserID = userID
	s.TokenExpiry = &expiryMillis
	return s
}

// WithoutCredentials returns a copy of the session with both the token and
// its expiry cleared. This is the only way credentials are dropped, so an
// expired-but-present token can never be left behind.
func (s Session) WithoutCredentials() Session {
	s.AccessToken = ""
	s.TokenExpiry = nil
	return s
}

// HasCredentials reports whether the session currently carries a token.
func (s Session) HasCredentials() bool {
	return s.AccessToken != ""
}

// ExpiredAt reports whether the tracked expiry has passed. Sessions without
// a tracked expiry never report expired.
func (s Session) ExpiredAt(now time.Time) bool {
	if s.TokenExpiry == nil {
		return false
	}
	return *s.TokenExpiry < now.UnixMilli()
}
