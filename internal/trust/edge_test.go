package trust

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/httpx"
	"github.com/dmitrijs2005/gatekeeper/internal/token"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "X-User-ID"

type upstream struct {
	calls    int
	identity []string
	auth     string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.calls++
	u.identity = r.Header.Values(header)
	u.auth = r.Header.Get("Authorization")
	w.WriteHeader(http.StatusNoContent)
}

type edgeFixture struct {
	codec *token.Codec
	clock *testclock.Clock
	up    *upstream
	h     http.Handler
}

func newEdgeFixture(t *testing.T) *edgeFixture {
	t.Helper()
	clk := testclock.NewClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	codec := token.NewCodec(token.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, clk)
	up := &upstream{}
	return &edgeFixture{
		codec: codec,
		clock: clk,
		up:    up,
		h:     NewEdgeFilter(defaultPolicy(), codec, header, nil).Middleware(up),
	}
}

func (f *edgeFixture) pair(t *testing.T) *token.Pair {
	t.Helper()
	p, err := f.codec.IssuePair(token.Principal{ID: "user-42", Username: "alice"})
	require.NoError(t, err)
	return p
}

func (f *edgeFixture) do(method, path string, headers map[string]string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, r)
	return rec
}

func assertUnauthorized(t *testing.T, rec *httptest.ResponseRecorder, msg string) {
	t.Helper()
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var env httpx.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, 401, env.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, msg, env.Message)
}

func TestEdgeFilter_PublicPathsSkipVerification(t *testing.T) {
	f := newEdgeFixture(t)

	rec := f.do(http.MethodPost, "/api/auth/login", map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, f.up.calls)
	assert.Equal(t, "Bearer garbage", f.up.auth)
}

func TestEdgeFilter_PublicPathsDropClientIdentity(t *testing.T) {
	f := newEdgeFixture(t)

	f.do(http.MethodPost, "/api/auth/refresh-token", map[string]string{header: "admin"})
	assert.Equal(t, 1, f.up.calls)
	assert.Empty(t, f.up.identity)
}

func TestEdgeFilter_MissingOrMalformedHeader(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"absent", ""},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
		{"lowercase scheme", "bearer abc"},
		{"empty token", "Bearer "},
		{"blank token", "Bearer    "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEdgeFixture(t)
			headers := map[string]string{header: "admin"}
			if tt.value != "" {
				headers["Authorization"] = tt.value
			}

			rec := f.do(http.MethodGet, "/api/auth/me", headers)
			assertUnauthorized(t, rec, "Missing or invalid Authorization header")
			assert.Zero(t, f.up.calls)
		})
	}
}

func TestEdgeFilter_RejectsBadTokens(t *testing.T) {
	f := newEdgeFixture(t)
	p := f.pair(t)

	tampered := p.AccessToken[:len(p.AccessToken)-2] + "xx"
	if tampered == p.AccessToken {
		tampered = p.AccessToken[:len(p.AccessToken)-2] + "yy"
	}

	for name, tok := range map[string]string{
		"garbage":       "not-a-token",
		"refresh token": p.RefreshToken,
		"tampered":      tampered,
	} {
		t.Run(name, func(t *testing.T) {
			rec := f.do(http.MethodGet, "/api/files/url", map[string]string{"Authorization": "Bearer " + tok})
			assertUnauthorized(t, rec, "Invalid or expired token")
		})
	}
	assert.Zero(t, f.up.calls)
}

func TestEdgeFilter_RejectsExpiredToken(t *testing.T) {
	f := newEdgeFixture(t)
	p := f.pair(t)

	f.clock.Advance(time.Minute)
	rec := f.do(http.MethodGet, "/api/auth/me", map[string]string{"Authorization": "Bearer " + p.AccessToken})
	assertUnauthorized(t, rec, "Invalid or expired token")
	assert.Zero(t, f.up.calls)
}

func TestEdgeFilter_InjectsSubjectOverSpoofedHeader(t *testing.T) {
	f := newEdgeFixture(t)
	p := f.pair(t)

	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.Header.Set("Authorization", "Bearer "+p.AccessToken)
	r.Header.Add(header, "admin")
	r.Header.Add(header, "root")

	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, f.up.calls)
	assert.Equal(t, []string{"user-42"}, f.up.identity)

	// the caller's request is left alone
	assert.Equal(t, []string{"admin", "root"}, r.Header.Values(header))
}

func TestEdgeFilter_IsStateless(t *testing.T) {
	f := newEdgeFixture(t)
	p := f.pair(t)

	for i := 0; i < 3; i++ {
		rec := f.do(http.MethodGet, "/api/auth/me", map[string]string{"Authorization": "Bearer " + p.AccessToken})
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
	rec := f.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 3, f.up.calls)
	assert.False(t, strings.Contains(rec.Body.String(), p.AccessToken))
}

func TestEdgeFilter_RejectsNonCanonicalPaths(t *testing.T) {
	paths := []string{
		"/api/files/upload/../../auth/login",
		"/api/auth/login/../../files/url",
		"/api/files/../auth/register",
		"/api/%2e%2e/auth/login",
		"//api/auth/login",
		"/api/./auth/me",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			f := newEdgeFixture(t)

			rec := f.do(http.MethodPost, p, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			var env httpx.Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, "Invalid request path", env.Message)
			assert.False(t, env.Success)
			assert.Zero(t, f.up.calls)
		})
	}
}

func TestEdgeFilter_TrailingSlashStillPublic(t *testing.T) {
	f := newEdgeFixture(t)

	rec := f.do(http.MethodPost, "/api/auth/login/", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, f.up.calls)
}
