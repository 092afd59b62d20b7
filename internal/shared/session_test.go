package shared

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T, ttl time.Duration) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "meridian_session", ttl), mr
}

func TestSessionIssueAndResolve(t *testing.T) {
	sm, _ := newTestSessionManager(t, time.Hour)
	ctx := context.Background()

	token, err := sm.Issue(ctx, 42, "Pat Reviewer")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	actor, err := sm.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, int64(42), actor.UserID)
	require.Equal(t, "Pat Reviewer", actor.Name)
}

func TestSessionResolveUnknownToken(t *testing.T) {
	sm, _ := newTestSessionManager(t, time.Hour)

	_, err := sm.Resolve(context.Background(), "no-such-token")
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = sm.Resolve(context.Background(), "")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionExpires(t *testing.T) {
	sm, mr := newTestSessionManager(t, time.Minute)
	ctx := context.Background()

	token, err := sm.Issue(ctx, 7, "user")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = sm.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionResolveRefreshesTTL(t *testing.T) {
	sm, mr := newTestSessionManager(t, time.Minute)
	ctx := context.Background()

	token, err := sm.Issue(ctx, 7, "user")
	require.NoError(t, err)

	mr.FastForward(45 * time.Second)
	_, err = sm.Resolve(ctx, token)
	require.NoError(t, err)

	// a resolve within the window pushes expiry out again
	mr.FastForward(45 * time.Second)
	_, err = sm.Resolve(ctx, token)
	require.NoError(t, err)
}

func TestSessionRevoke(t *testing.T) {
	sm, _ := newTestSessionManager(t, time.Hour)
	ctx := context.Background()

	token, err := sm.Issue(ctx, 9, "user")
	require.NoError(t, err)
	require.NoError(t, sm.Revoke(ctx, token))

	_, err = sm.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrSessionNotFound)

	// revoking twice is a no-op
	require.NoError(t, sm.Revoke(ctx, token))
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	require.Empty(t, TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer abc123")
	require.Equal(t, "abc123", TokenFromRequest(r))

	r.Header.Set("Authorization", "Basic abc123")
	require.Empty(t, TokenFromRequest(r))
}
