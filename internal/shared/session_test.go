package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "clinicore_session", time.Hour, false)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	resp := rec.Result()
	defer resp.Body.Close()
	for _, c := range resp.Cookies() {
		if c.Name == "clinicore_session" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestLoadWithoutCookieCreatesFreshSession(t *testing.T) {
	sm := newTestManager(t)

	req := httptest.NewRequest("GET", "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, sess.User())
	assert.Empty(t, sess.ID)
}

func TestCommitThenLoadRestoresUser(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	sess.SetUser("u1")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	require.NotEmpty(t, sess.ID)

	cookie := sessionCookie(t, rec)
	assert.Equal(t, sess.ID, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookie)
	reloaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "u1", reloaded.User())
}

func TestLoadWithStaleCookieStartsOver(t *testing.T) {
	sm := newTestManager(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "clinicore_session", Value: "expired-id"})
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, sess.User())
}

func TestDestroyDeletesSessionAndExpiresCookie(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	sess.SetUser("u1")
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	cookie := sessionCookie(t, rec)

	sm.Destroy(sess)
	rec = httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookie)
	reloaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, reloaded.User())
}
