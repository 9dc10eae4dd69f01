// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestProvider_EndSession(t *testing.T) {
	t.Parallel()
	tp := StartTestProvider(t)
	tp.SetAllowedLogoutRedirects("https://app.example.com/logout/callback")

	client, err := newHTTPClient(tp.CACert())
	require.NoError(t, err)
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	tests := []struct {
		name           string
		query          url.Values
		wantStatusCode int
		wantLocation   string
	}{
		{
			name: "valid",
			query: url.Values{
				"id_token_hint":            {tp.IDToken()},
				"post_logout_redirect_uri": {"https://app.example.com/logout/callback"},
				"state":                    {"state-123"},
			},
			wantStatusCode: http.StatusFound,
			wantLocation:   "https://app.example.com/logout/callback?state=state-123",
		},
		{
			name: "missing-id-token-hint",
			query: url.Values{
				"post_logout_redirect_uri": {"https://app.example.com/logout/callback"},
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "redirect-not-allowed",
			query: url.Values{
				"id_token_hint":            {"idtok-123"},
				"post_logout_redirect_uri": {"https://evil.example.com"},
			},
			wantStatusCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			resp, err := client.Get(tp.Addr() + "/end_session?" + tt.query.Encode())
			require.NoError(err)
			defer resp.Body.Close()
			assert.Equal(tt.wantStatusCode, resp.StatusCode)
			if tt.wantLocation != "" {
				assert.Equal(tt.wantLocation, resp.Header.Get("Location"))
			}
		})
	}

	t.Run("disabled", func(t *testing.T) {
		tp := StartTestProvider(t)
		tp.DisableEndSession()
		client, err := newHTTPClient(tp.CACert())
		require.NoError(t, err)
		resp, err := client.Get(tp.Addr() + "/end_session?id_token_hint=x&post_logout_redirect_uri=https%3A%2F%2Fexample.com")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestTestProvider_TokenRequests(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	tp := StartTestProvider(t)
	client, err := newHTTPClient(tp.CACert())
	require.NoError(err)

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {"test-refresh-token"},
		"client_id":     {"test-client-id"},
		"client_secret": {"test-client-secret"},
	}
	resp, err := client.PostForm(tp.Addr()+"/token", form)
	require.NoError(err)
	resp.Body.Close()
	assert.Equal(http.StatusOK, resp.StatusCode)

	form.Set("client_secret", "wrong")
	resp, err = client.PostForm(tp.Addr()+"/token", form)
	require.NoError(err)
	resp.Body.Close()
	assert.Equal(http.StatusUnauthorized, resp.StatusCode)

	assert.Equal(2, tp.TokenRequests())
}
