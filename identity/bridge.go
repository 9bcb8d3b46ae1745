package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	errs "github.com/rentdesk/sessiongate/internal/errors"
)

const (
	exchangePath     = "/auth/firebase-login/"
	bearerPrefix     = "Bearer "
	exchangeTimeout  = 15 * time.Second
	contentTypeJSON  = "application/json"
	maxErrorBodySize = 4 << 10
)

// UserRecord is the canonical user constructed from a successful credential
// exchange. The backend response supplies identity attributes only; the
// AccessToken is the cleaned input assertion, not a backend-issued token.
type UserRecord struct {
	ID          string
	Email       string
	Name        string
	Image       *string
	AccessToken string
}

// BridgeClient exchanges an identity assertion for a backend session by
// calling the backend's credential-verification endpoint. It holds an
// isolated HTTP client with no ambient interceptors, so credentials are
// never double-wrapped by the outbound authenticator.
type BridgeClient struct {
	baseURL    string
	httpClient *http.Client
}

// BridgeClientOption defines a function type to modify the BridgeClient instance.
type BridgeClientOption func(*BridgeClient)

// WithHTTPClient overrides the isolated HTTP client (primarily for testing).
func WithHTTPClient(client *http.Client) BridgeClientOption {
	return func(c *BridgeClient) {
		c.httpClient = client
	}
}

// NewBridgeClient creates a BridgeClient bound to the backend base address.
func NewBridgeClient(baseURL string, options ...BridgeClientOption) *BridgeClient {
	c := &BridgeClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   exchangeTimeout,
			Transport: &http.Transport{},
		},
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

// CleanAssertion strips a transport scheme label from an assertion. A
// bare scheme label carries no token and normalizes to empty. A garbled
// token is not repaired; it simply fails upstream.
func CleanAssertion(assertion string) string {
	cleaned := strings.TrimSpace(assertion)
	if cleaned == strings.TrimSpace(bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(cleaned, bearerPrefix))
}

type exchangeRequest struct {
	IDToken string `json:"id_token"`
}

type exchangeResponse struct {
	User struct {
		ID           json.RawMessage `json:"id"`
		Email        string          `json:"email"`
		FirstName    string          `json:"first_name"`
		LastName     string          `json:"last_name"`
		ProfileImage *string         `json:"profile_image"`
	} `json:"user"`
}

// Exchange turns a proof of identity into a canonical user record. The
// assertion is sent to the backend verification endpoint; on success the
// record carries the backend's identity attributes and echoes the cleaned
// assertion back as the access token.
func (c *BridgeClient) Exchange(ctx context.Context, assertion string) (UserRecord, error) {
	cleaned := CleanAssertion(assertion)
	if cleaned == "" {
		return UserRecord{}, errs.ErrEmptyAssertion
	}

	body, err := json.Marshal(exchangeRequest{IDToken: cleaned})
	if err != nil {
		return UserRecord{}, errors.Wrap(err, "[BridgeClient.Exchange] marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+exchangePath, bytes.NewReader(body))
	if err != nil {
		return UserRecord{}, errors.Wrap(err, "[BridgeClient.Exchange] build request")
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network failures propagate uninterpreted
		return UserRecord{}, errors.Wrap(err, "[BridgeClient.Exchange] httpClient.Do")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return UserRecord{}, &UpstreamAuthError{Status: resp.StatusCode, Body: string(errBody)}
	}

	var payload exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return UserRecord{}, errs.Wrapf(errs.ErrInvalidResponse, "[BridgeClient.Exchange] decode body: %v", err)
	}

	id, ok := coerceID(payload.User.ID)
	if !ok {
		return UserRecord{}, errs.Wrapf(errs.ErrInvalidResponse, "[BridgeClient.Exchange] response missing user id")
	}

	return UserRecord{
		ID:          id,
		Email:       payload.User.Email,
		Name:        strings.TrimSpace(payload.User.FirstName + " " + payload.User.LastName),
		Image:       payload.User.ProfileImage,
		AccessToken: cleaned,
	}, nil
}

// coerceID accepts the backend user id as either a JSON number or string
// and normalizes it to a string.
func coerceID(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, asString != ""
	}

	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if i, err := asNumber.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		return asNumber.String(), true
	}

	return "", false
}
