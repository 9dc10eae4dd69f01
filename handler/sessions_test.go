// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hashicorp/oidcsession/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessions(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	codec, err := session.NewCodec(testSecret, time.Hour)
	require.NoError(t, err)
	m, err := session.NewManager(env.provider)
	require.NoError(t, err)

	tests := []struct {
		name      string
		codec     *session.Codec
		manager   *session.Manager
		opt       []Option
		wantErr   bool
		wantIsErr error
	}{
		{name: "valid", codec: codec, manager: m},
		{name: "valid-with-opts", codec: codec, manager: m, opt: []Option{WithCookieName("sid"), WithSecureCookies(true)}},
		{name: "nil-codec", manager: m, wantErr: true, wantIsErr: ErrNilParameter},
		{name: "nil-manager", codec: codec, wantErr: true, wantIsErr: ErrNilParameter},
		{name: "empty-cookie-name", codec: codec, manager: m, opt: []Option{WithCookieName("")}, wantErr: true, wantIsErr: ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewSessions(tt.codec, tt.manager, tt.opt...)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				assert.Nil(got)
				return
			}
			require.NoError(err)
			assert.NotNil(got)
		})
	}
}

func TestSessions_Establish(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	ev := env.validSignIn()
	got, err := env.sessions.Establish(rec, ev)
	require.NoError(err)
	assert.Equal(ev.ExpiresAt*1000, got.ExpiresAt)

	c := findCookie(rec.Result().Cookies(), DefaultSessionCookieName)
	require.NotNil(c)
	assert.True(c.HttpOnly)
	assert.Equal(http.SameSiteLaxMode, c.SameSite)
	assert.Equal("/", c.Path)
	assert.Equal(3600, c.MaxAge)
	assert.NotContains(c.Value, "test-refresh-token")
}

func TestSessions_Middleware(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	type seen struct {
		called  bool
		ok      bool
		session session.Session
	}
	capture := func(s *seen) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.called = true
			s.session, s.ok = FromContext(r.Context())
		})
	}

	t.Run("no-cookie", func(t *testing.T) {
		assert := assert.New(t)
		var got seen
		rec := httptest.NewRecorder()
		env.sessions.Middleware(capture(&got)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.True(got.called)
		assert.False(got.ok)
		assert.Empty(rec.Result().Cookies())
	})
	t.Run("invalid-cookie", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		var got seen
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: DefaultSessionCookieName, Value: "garbage"})
		env.sessions.Middleware(capture(&got)).ServeHTTP(rec, req)
		assert.True(got.called)
		assert.False(got.ok)
		c := findCookie(rec.Result().Cookies(), DefaultSessionCookieName)
		require.NotNil(c)
		assert.Equal(-1, c.MaxAge)
	})
	t.Run("unexpired", func(t *testing.T) {
		assert := assert.New(t)
		before := env.tp.TokenRequests()
		var got seen
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(env.establish(t, env.validSignIn()))
		env.sessions.Middleware(capture(&got)).ServeHTTP(rec, req)
		assert.True(got.ok)
		assert.True(got.session.Authenticated())
		assert.Equal("test-access-token", got.session.AccessToken)
		assert.Equal(before, env.tp.TokenRequests())
		assert.Nil(findCookie(rec.Result().Cookies(), DefaultSessionCookieName))
	})
	t.Run("expired-refreshed", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		env.tp.SetReplyAccessToken("refreshed-access-token")
		ev := env.validSignIn()
		ev.AccessToken = "stale"
		ev.ExpiresAt = time.Now().Add(-time.Minute).Unix()

		var got seen
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(env.establish(t, ev))
		env.sessions.Middleware(capture(&got)).ServeHTTP(rec, req)
		assert.True(got.ok)
		assert.True(got.session.Authenticated())
		assert.Equal("refreshed-access-token", got.session.AccessToken)
		require.NotNil(findCookie(rec.Result().Cookies(), DefaultSessionCookieName))
	})
	t.Run("expired-no-refresh-token", func(t *testing.T) {
		assert := assert.New(t)
		ev := env.validSignIn()
		ev.RefreshToken = ""
		ev.ExpiresAt = time.Now().Add(-time.Minute).Unix()

		var got seen
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(env.establish(t, ev))
		env.sessions.Middleware(capture(&got)).ServeHTTP(rec, req)
		assert.True(got.ok)
		assert.False(got.session.Authenticated())
		assert.Equal(session.RefreshAccessTokenError, got.session.Error)
		assert.Truef(errors.Is(got.session.Err(), session.ErrSessionExpired), "wanted \"%s\" but got \"%s\"", session.ErrSessionExpired, got.session.Err())
	})
}

func TestSessions_Clear(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.sessions.Clear(rec)
	c := findCookie(rec.Result().Cookies(), DefaultSessionCookieName)
	require.NotNil(c)
	assert.Empty(c.Value)
	assert.Equal(-1, c.MaxAge)
}
