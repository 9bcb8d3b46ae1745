package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rentdesk/sessiongate/session"
)

func TestWithCredentialsReplacesAtomically(t *testing.T) {
	oldExpiry := int64(1000)
	sess := session.Session{
		UserID:      "u1",
		AccessToken: "old-token",
		TokenExpiry: &oldExpiry,
	}

	updated := sess.WithCredentials("new-token", "u1", 2000)
	require.Equal(t, "new-token", updated.AccessToken)
	require.Equal(t, int64(2000), *updated.TokenExpiry)

	// The original value is untouched
	require.Equal(t, "old-token", sess.AccessToken)
	require.Equal(t, int64(1000), *sess.TokenExpiry)
}

func TestWithoutCredentialsClearsBothFields(t *testing.T) {
	expiry := int64(1000)
	sess := session.Session{AccessToken: "tok", TokenExpiry: &expiry, UserID: "u1"}

	cleared := sess.WithoutCredentials()
	require.Empty(t, cleared.AccessToken)
	require.Nil(t, cleared.TokenExpiry)
	// Identity attributes survive invalidation
	require.Equal(t, "u1", cleared.UserID)
}

func TestExpiredAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	past := now.Add(-time.Minute).UnixMilli()
	future := now.Add(time.Minute).UnixMilli()

	require.True(t, session.Session{TokenExpiry: &past}.ExpiredAt(now))
	require.False(t, session.Session{TokenExpiry: &future}.ExpiredAt(now))
	// No tracked expiry never reports expired
	require.False(t, session.Session{}.ExpiredAt(now))
}

func TestParseRole(t *testing.T) {
	role, ok := session.ParseRole("tenant")
	require.True(t, ok)
	require.Equal(t, session.RoleTenant, role)

	_, ok = session.ParseRole("admin")
	require.False(t, ok)

	_, ok = session.ParseRole("")
	require.False(t, ok)
}

func TestInMemoryRepo(t *testing.T) {
	repo := session.NewInMemorySessionRepo()

	_, err := repo.Get("missing")
	require.Error(t, err)

	sess := session.Session{UserID: "u1", AccessToken: "tok"}
	require.NoError(t, repo.Upsert("s1", sess))

	got, err := repo.Get("s1")
	require.NoError(t, err)
	require.Equal(t, sess, got)

	require.NoError(t, repo.Delete("s1"))
	_, err = repo.Get("s1")
	require.Error(t, err)

	require.Error(t, repo.Upsert("", sess))
}
