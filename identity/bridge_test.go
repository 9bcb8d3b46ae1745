package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rentdesk/sessiongate/identity"
	errs "github.com/rentdesk/sessiongate/internal/errors"
)

type exchangeBackend struct {
	lastBody map[string]string
	status   int
	response string
}

func (b *exchangeBackend) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/firebase-login/", r.URL.Path)
		require.Contains(t, r.Header.Get("Content-Type"), "application/json")

		b.lastBody = map[string]string{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&b.lastBody))

		w.WriteHeader(b.status)
		_, _ = w.Write([]byte(b.response))
	}
}

func newBridgeFixture(t *testing.T, status int, response string) (*identity.BridgeClient, *exchangeBackend) {
	t.Helper()

	backend := &exchangeBackend{status: status, response: response}
	srv := httptest.NewServer(backend.handler(t))
	t.Cleanup(srv.Close)

	return identity.NewBridgeClient(srv.URL), backend
}

func TestExchangeStripsBearerPrefix(t *testing.T) {
	bridge, backend := newBridgeFixture(t, http.StatusOK,
		`{"user":{"id":1,"email":"a@b.com","first_name":"A","last_name":"B","profile_image":null}}`)

	record, err := bridge.Exchange(context.Background(), "Bearer abc.def.ghi")
	require.NoError(t, err)
	require.Equal(t, "abc.def.ghi", backend.lastBody["id_token"])
	require.Equal(t, "abc.def.ghi", record.AccessToken)
}

func TestExchangeBuildsCanonicalRecord(t *testing.T) {
	bridge, _ := newBridgeFixture(t, http.StatusOK,
		`{"user":{"id":42,"email":"a@b.com","first_name":"A","last_name":"B","profile_image":null}}`)

	record, err := bridge.Exchange(context.Background(), "abc.def.ghi")
	require.NoError(t, err)
	require.Equal(t, "42", record.ID)
	require.Equal(t, "a@b.com", record.Email)
	require.Equal(t, "A B", record.Name)
	require.Nil(t, record.Image)
	// The access token is the cleaned input, not a backend-issued token
	require.Equal(t, "abc.def.ghi", record.AccessToken)
}

func TestExchangeAcceptsStringUserID(t *testing.T) {
	bridge, _ := newBridgeFixture(t, http.StatusOK,
		`{"user":{"id":"u-77","email":"x@y.com","first_name":"X","last_name":"Y","profile_image":"http://img"}}`)

	record, err := bridge.Exchange(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, "u-77", record.ID)
	require.NotNil(t, record.Image)
	require.Equal(t, "http://img", *record.Image)
}

func TestExchangeMissingUserIDFails(t *testing.T) {
	bridge, _ := newBridgeFixture(t, http.StatusOK,
		`{"user":{"email":"a@b.com","first_name":"A","last_name":"B"}}`)

	_, err := bridge.Exchange(context.Background(), "abc.def.ghi")
	require.ErrorIs(t, err, errs.ErrInvalidResponse)
}

func TestExchangeUpstreamRejection(t *testing.T) {
	bridge, _ := newBridgeFixture(t, http.StatusForbidden, `{"detail":"token verification failed"}`)

	_, err := bridge.Exchange(context.Background(), "abc.def.ghi")
	require.ErrorIs(t, err, errs.ErrUpstreamAuthFailure)

	var upstream *identity.UpstreamAuthError
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, http.StatusForbidden, upstream.Status)
	require.Contains(t, upstream.Body, "token verification failed")
}

func TestExchangeEmptyAssertion(t *testing.T) {
	bridge, _ := newBridgeFixture(t, http.StatusOK, `{}`)

	_, err := bridge.Exchange(context.Background(), "   ")
	require.ErrorIs(t, err, errs.ErrEmptyAssertion)

	_, err = bridge.Exchange(context.Background(), "Bearer ")
	require.ErrorIs(t, err, errs.ErrEmptyAssertion)
}

func TestCleanAssertion(t *testing.T) {
	require.Equal(t, "abc.def.ghi", identity.CleanAssertion("Bearer abc.def.ghi"))
	require.Equal(t, "abc.def.ghi", identity.CleanAssertion("abc.def.ghi"))
	require.Equal(t, "abc.def.ghi", identity.CleanAssertion("  Bearer abc.def.ghi  "))

	// A scheme label with no token behind it is an empty assertion
	require.Empty(t, identity.CleanAssertion("Bearer"))
	require.Empty(t, identity.CleanAssertion("Bearer "))
	require.Empty(t, identity.CleanAssertion("  Bearer  "))
}
