// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hashicorp/oidcsession/logout"
	"github.com/hashicorp/oidcsession/oidc"
	"github.com/hashicorp/oidcsession/session"
	"github.com/stretchr/testify/require"
)

const testCallbackURL = "https://app.example.com/logout/callback"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// testEnv wires Sessions and a Coordinator to a TestProvider.
type testEnv struct {
	tp       *oidc.TestProvider
	provider *oidc.Provider
	sessions *Sessions
	coord    *logout.Coordinator
	policy   logout.CookiePolicy
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	require := require.New(t)
	tp := oidc.StartTestProvider(t)
	tp.SetAllowedLogoutRedirects(testCallbackURL)
	clientID, clientSecret := tp.ClientCreds()
	cfg, err := oidc.NewConfig(tp.Addr(), clientID, oidc.ClientSecret(clientSecret), testCallbackURL, oidc.WithProviderCA(tp.CACert()))
	require.NoError(err)
	p, err := oidc.NewProvider(cfg)
	require.NoError(err)
	t.Cleanup(p.Done)

	m, err := session.NewManager(p)
	require.NoError(err)
	codec, err := session.NewCodec(testSecret, time.Hour)
	require.NoError(err)
	s, err := NewSessions(codec, m, WithSecureCookies(false))
	require.NoError(err)
	coord, err := logout.NewCoordinator(p, testCallbackURL)
	require.NoError(err)

	return &testEnv{
		tp:       tp,
		provider: p,
		sessions: s,
		coord:    coord,
		policy:   logout.NewCookiePolicy("/logout/callback", false),
	}
}

// establish returns the session cookie for a new session.
func (e *testEnv) establish(t *testing.T, ev session.SignInEvent) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	_, err := e.sessions.Establish(rec, ev)
	require.NoError(t, err)
	c := findCookie(rec.Result().Cookies(), DefaultSessionCookieName)
	require.NotNil(t, c)
	return c
}

func (e *testEnv) validSignIn() session.SignInEvent {
	return session.SignInEvent{
		IDToken:      e.tp.IDToken(),
		AccessToken:  "test-access-token",
		RefreshToken: "test-refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
