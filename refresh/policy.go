package refresh

import (
	"context"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/rentdesk/sessiongate/identity"
	errs "github.com/rentdesk/sessiongate/internal/errors"
	"github.com/rentdesk/sessiongate/internal/metrics"
	"github.com/rentdesk/sessiongate/session"
)

// State is the refresh policy's verdict for one evaluation.
type State string

const (
	StateFresh           State = "FRESH"
	StateNearingExpiry   State = "NEARING_EXPIRY"
	StateNoExpiryTracked State = "NO_EXPIRY_TRACKED"
	StateRefreshFailed   State = "REFRESH_FAILED"
)

// DefaultThreshold is how long before expiry a token is refreshed.
// Refreshing proactively avoids issuing a request with a token that
// expires mid-flight and avoids a doubled round trip on a 401.
const DefaultThreshold = 5 * time.Minute

// Exchanger turns an identity assertion into a backend session.
type Exchanger interface {
	Exchange(ctx context.Context, assertion string) (identity.UserRecord, error)
}

// Policy decides per-access whether the session's token is fit for use and
// refreshes it when it is not. Evaluated lazily on each session read, not
// on a background timer.
//
// The stored access token is the identity assertion itself, so the
// assertion's own exp claim is the single expiry authority; the backend
// exchange response supplies identity attributes only.
type Policy struct {
	exchanger Exchanger
	threshold time.Duration
	nowTime   func() time.Time
	flights   flightGroup
}

// PolicyOption defines a function type to modify the Policy instance.
type PolicyOption func(*Policy)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) PolicyOption {
	return func(p *Policy) {
		p.nowTime = nowFunc
	}
}

// WithThreshold overrides the refresh window.
func WithThreshold(threshold time.Duration) PolicyOption {
	return func(p *Policy) {
		p.threshold = threshold
	}
}

func NewPolicy(exchanger Exchanger, options ...PolicyOption) *Policy {
	p := &Policy{
		exchanger: exchanger,
		threshold: DefaultThreshold,
		nowTime:   time.Now,
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// RefreshIfNeeded evaluates the session's token and returns the session to
// use for this access, never one known to be expired:
//
//   - no tracked expiry: the session passes through unchanged
//   - inside the freshness window: unchanged
//   - nearing expiry: a fresh assertion is drawn from the live provider
//     session and exchanged; token, user ID and expiry are replaced in one
//     step
//   - any refresh failure: credentials are cleared, token and expiry
//     together; the caller discovers this on the next gated navigation
//
// Concurrent evaluations nearing expiry share a single in-flight refresh,
// keyed by the token being replaced.
func (p *Policy) RefreshIfNeeded(ctx context.Context, sess session.Session, provider identity.ProviderSession) (session.Session, State) {
	if sess.TokenExpiry == nil {
		metrics.RefreshOutcomes.WithLabelValues("no_expiry").Inc()
		return sess, StateNoExpiryTracked
	}

	nowMillis := p.nowTime().UnixMilli()
	if nowMillis <= *sess.TokenExpiry-p.threshold.Milliseconds() {
		metrics.RefreshOutcomes.WithLabelValues("fresh").Inc()
		return sess, StateFresh
	}

	return p.flights.do(sess.AccessToken, func() (session.Session, State) {
		return p.refresh(ctx, sess, provider)
	})
}

func (p *Policy) refresh(ctx context.Context, sess session.Session, provider identity.ProviderSession) (session.Session, State) {
	if provider == nil {
		return p.fail(sess, errs.ErrNoLiveAssertion)
	}

	assertion, err := provider.CurrentAssertion(ctx)
	if err != nil {
		return p.fail(sess, err)
	}

	expiryMillis, err := AssertionExpiryMillis(assertion)
	if err != nil {
		return p.fail(sess, err)
	}

	record, err := p.exchanger.Exchange(ctx, assertion)
	if err != nil {
		return p.fail(sess, err)
	}

	metrics.RefreshOutcomes.WithLabelValues("refreshed").Inc()
	return sess.WithCredentials(record.AccessToken, record.ID, expiryMillis), StateFresh
}

func (p *Policy) fail(sess session.Session, err error) (session.Session, State) {
	metrics.RefreshOutcomes.WithLabelValues("failed").Inc()
	log.Warn().Err(err).Str("user_id", sess.UserID).Msg("token refresh failed, clearing credentials")
	return sess.WithoutCredentials(), StateRefreshFailed
}

// AssertionExpiryMillis decodes the assertion's exp claim (seconds since
// epoch) to epoch milliseconds without verifying the signature; the
// provider already vouched for the assertion when it handed it out.
func AssertionExpiryMillis(assertion string) (int64, error) {
	token, _, err := jwtlib.NewParser().ParseUnverified(assertion, jwtlib.MapClaims{})
	if err != nil {
		return 0, errs.Wrapf(errs.ErrRefreshFailure, "parse assertion: %v", err)
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return 0, errs.Wrapf(errs.ErrRefreshFailure, "error extracting claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return 0, errs.ErrAssertionNoExpiry
	}

	return int64(exp) * 1000, nil
}
