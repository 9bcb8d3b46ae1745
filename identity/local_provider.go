package identity

import (
	"context"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	errs "github.com/rentdesk/sessiongate/internal/errors"
)

const defaultAssertionTTL = time.Hour

// LocalProvider is a development stand-in for the external identity
// provider: a static credential table with bcrypt-hashed passwords,
// minting short-lived HS256 assertions. Used when no real provider is
// configured and throughout the tests.
type LocalProvider struct {
	mu      sync.RWMutex
	creds   map[string]string // email -> bcrypt hash
	secret  []byte
	ttl     time.Duration
	nowTime func() time.Time
}

// LocalProviderOption defines a function type to modify the LocalProvider instance.
type LocalProviderOption func(*LocalProvider)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) LocalProviderOption {
	return func(p *LocalProvider) {
		p.nowTime = nowFunc
	}
}

// WithAssertionTTL sets the lifetime of minted assertions.
func WithAssertionTTL(ttl time.Duration) LocalProviderOption {
	return func(p *LocalProvider) {
		p.ttl = ttl
	}
}

func NewLocalProvider(signingSecret []byte, options ...LocalProviderOption) *LocalProvider {
	p := &LocalProvider{
		creds:   make(map[string]string),
		secret:  signingSecret,
		ttl:     defaultAssertionTTL,
		nowTime: time.Now,
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// AddUser registers a credential pair, hashing the password with bcrypt.
func (p *LocalProvider) AddUser(email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "[LocalProvider.AddUser] bcrypt.GenerateFromPassword")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.creds[email] = string(hash)
	return nil
}

var _ SignInProvider = (*LocalProvider)(nil)

// SignIn checks the credential pair and returns a live provider session
// for the user plus the initial assertion. Rejections use the same
// taxonomy as the real provider.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (ProviderSession, string, error) {
	p.mu.RLock()
	hash, ok := p.creds[email]
	p.mu.RUnlock()

	if !ok {
		return nil, "", errs.ErrUnknownAccount
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, "", errs.ErrWrongPassword
	}

	localSession := &LocalSession{provider: p, email: email}
	assertion, err := localSession.CurrentAssertion(ctx)
	if err != nil {
		return nil, "", err
	}
	return localSession, assertion, nil
}

// LocalSession is a live LocalProvider sign-in. Each CurrentAssertion call
// mints a fresh token, mirroring a provider SDK that renews its own grant.
type LocalSession struct {
	provider *LocalProvider
	email    string
}

var _ ProviderSession = (*LocalSession)(nil)

func (s *LocalSession) CurrentAssertion(_ context.Context) (string, error) {
	now := s.provider.nowTime()
	claims := jwtlib.MapClaims{
		"sub":   s.email,
		"email": s.email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.provider.ttl).Unix(),
	}

	assertion, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.provider.secret)
	if err != nil {
		return "", errs.Wrapf(errs.ErrNoLiveAssertion, "[LocalSession.CurrentAssertion] sign: %v", err)
	}
	return assertion, nil
}
