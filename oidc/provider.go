// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/oidcsession/oidc/internal/strutils"
	"golang.org/x/oauth2"
)

// Metadata is the provider metadata resolved via OIDC discovery.
//
// See: https://openid.net/specs/openid-connect-discovery-1_0.html#ProviderMetadata
type Metadata struct {
	Issuer          string   `json:"issuer"`
	AuthURL         string   `json:"authorization_endpoint"`
	TokenURL        string   `json:"token_endpoint"`
	UserInfoURL     string   `json:"userinfo_endpoint"`
	JWKSURL         string   `json:"jwks_uri"`
	EndSessionURL   string   `json:"end_session_endpoint"`
	ScopesSupported []string `json:"scopes_supported"`

	// provider is nil when the Metadata wasn't created by discovery.
	provider *oidc.Provider
}

// Grant is the result of a successful refresh token grant.  A zero ExpiresIn
// means the provider didn't include a lifetime and an empty RefreshToken means
// the provider didn't rotate the refresh token.
type Grant struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	ExpiresIn    time.Duration
}

// EndSessionParams are the parameters of an RP-initiated logout request.
//
// See: https://openid.net/specs/openid-connect-rpinitiated-1_0.html#RPLogout
type EndSessionParams struct {
	IDTokenHint           string
	PostLogoutRedirectURL string
	State                 string
}

// Provider is the relying party's client for its single OIDC provider.  It
// supports discovery, refresh token grants, building end-session URLs and
// userinfo requests.  Provider is concurrently safe.
type Provider struct {
	config *Config
	client *http.Client
	logger hclog.Logger

	mu         sync.Mutex
	cached     *Metadata
	cachedAt   time.Time
	nowFunc    func() time.Time
	httpClosed bool
}

// NewProvider creates a Provider for the config.  No requests are made to the
// provider until its metadata is needed.
//
// Supported options:
//   - WithLogger
//   - WithNow
//
// See Provider.Done() which should be called to release provider resources.
func NewProvider(c *Config, opt ...Option) (*Provider, error) {
	const op = "NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}
	opts := getProviderOpts(opt...)
	client, err := newHTTPClient(c.ProviderCA)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	return &Provider{
		config:  c,
		client:  client,
		logger:  opts.withLogger,
		nowFunc: opts.withNowFunc,
	}, nil
}

// Done with the provider's background resources and must be called for every
// Provider created
func (p *Provider) Done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && !p.httpClosed {
		p.client.CloseIdleConnections()
		p.httpClosed = true
	}
	p.cached = nil
}

// HTTPClient returns the http client used by the provider.
func (p *Provider) HTTPClient() (*http.Client, error) {
	const op = "Provider.HTTPClient"
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("%s: provider http client is nil: %w", op, ErrNilParameter)
	}
	return p.client, nil
}

// Config returns the provider's config.
func (p *Provider) Config() Config {
	return *p.config
}

// Discover resolves the provider's metadata via the issuer's discovery
// document.  Metadata is reused for Config.DiscoveryCacheTTL, otherwise every
// call makes an http request to the issuer.
func (p *Provider) Discover(ctx context.Context) (*Metadata, error) {
	const op = "Provider.Discover"
	if ttl := p.config.DiscoveryCacheTTL; ttl > 0 {
		p.mu.Lock()
		if p.cached != nil && p.now().Before(p.cachedAt.Add(ttl)) {
			m := p.cached
			p.mu.Unlock()
			return m, nil
		}
		p.mu.Unlock()
	}

	provider, err := oidc.NewProvider(HTTPClientContext(ctx, p.client), p.config.Issuer) // makes http req to issuer for discovery
	if err != nil {
		return nil, fmt.Errorf("%s: unable to discover provider %s (%s): %w", op, p.config.Issuer, err, ErrDiscoveryFailed)
	}
	var m Metadata
	if err := provider.Claims(&m); err != nil {
		return nil, fmt.Errorf("%s: unable to read provider metadata (%s): %w", op, err, ErrDiscoveryFailed)
	}
	m.provider = provider

	if p.config.DiscoveryCacheTTL > 0 {
		p.mu.Lock()
		p.cached, p.cachedAt = &m, p.now()
		p.mu.Unlock()
	}
	return &m, nil
}

// RefreshTokenGrant exchanges the refreshToken for new tokens at the
// provider's token endpoint.
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#RefreshTokens
func (p *Provider) RefreshTokenGrant(ctx context.Context, m *Metadata, refreshToken string) (*Grant, error) {
	const op = "Provider.RefreshTokenGrant"
	switch {
	case m == nil:
		return nil, fmt.Errorf("%s: provider metadata is nil: %w", op, ErrNilParameter)
	case m.TokenURL == "":
		return nil, fmt.Errorf("%s: provider metadata token endpoint is empty: %w", op, ErrInvalidParameter)
	case refreshToken == "":
		return nil, fmt.Errorf("%s: refresh token is empty: %w", op, ErrInvalidParameter)
	}

	scopes := strutils.RemoveDuplicatesStable(append([]string{oidc.ScopeOpenID}, p.config.Scopes...), false)
	oauth2Config := oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: string(p.config.ClientSecret),
		Endpoint: oauth2.Endpoint{
			AuthURL:  m.AuthURL,
			TokenURL: m.TokenURL,
		},
		Scopes: scopes,
	}
	oidcCtx := HTTPClientContext(ctx, p.client)
	oauth2Token, err := oauth2Config.TokenSource(oidcCtx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to refresh token with provider (%s): %w", op, err, ErrRefreshFailed)
	}
	if oauth2Token.AccessToken == "" {
		return nil, fmt.Errorf("%s: refresh response is missing an access_token: %w", op, ErrMissingAccessToken)
	}

	g := &Grant{
		AccessToken: oauth2Token.AccessToken,
		ExpiresIn:   expiresIn(oauth2Token),
	}
	// the oauth2 pkg carries the prior refresh token forward when the
	// provider doesn't return one.
	if oauth2Token.RefreshToken != refreshToken {
		g.RefreshToken = oauth2Token.RefreshToken
	}
	if idToken, ok := oauth2Token.Extra("id_token").(string); ok {
		g.IDToken = idToken
	}
	p.logger.Debug("refreshed access token", "op", op, "expires_in", g.ExpiresIn, "rotated", g.RefreshToken != "")
	return g, nil
}

// EndSessionURL builds the provider's end-session (RP-initiated logout) URL.
// Any query parameters already present on the provider's end-session endpoint
// are preserved.
func (p *Provider) EndSessionURL(m *Metadata, params EndSessionParams) (string, error) {
	const op = "Provider.EndSessionURL"
	if m == nil {
		return "", fmt.Errorf("%s: provider metadata is nil: %w", op, ErrNilParameter)
	}
	if m.EndSessionURL == "" {
		return "", fmt.Errorf("%s: provider %s doesn't support RP-initiated logout: %w", op, m.Issuer, ErrMissingEndSession)
	}
	u, err := url.Parse(m.EndSessionURL)
	if err != nil {
		return "", fmt.Errorf("%s: end_session_endpoint %q is invalid (%s): %w", op, m.EndSessionURL, err, ErrInvalidParameter)
	}
	q := u.Query()
	q.Set("client_id", p.config.ClientID)
	if params.IDTokenHint != "" {
		q.Set("id_token_hint", params.IDTokenHint)
	}
	redirect := params.PostLogoutRedirectURL
	if redirect == "" {
		redirect = p.config.PostLogoutRedirectURL
	}
	if redirect != "" {
		q.Set("post_logout_redirect_uri", redirect)
	}
	if params.State != "" {
		q.Set("state", params.State)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// UserInfo gets the UserInfo claims from the provider using the accessToken.
func (p *Provider) UserInfo(ctx context.Context, m *Metadata, accessToken string, claims interface{}) error {
	const op = "Provider.UserInfo"
	switch {
	case m == nil:
		return fmt.Errorf("%s: provider metadata is nil: %w", op, ErrNilParameter)
	case m.provider == nil:
		return fmt.Errorf("%s: provider metadata was not discovered: %w", op, ErrInvalidParameter)
	case accessToken == "":
		return fmt.Errorf("%s: access token is empty: %w", op, ErrInvalidParameter)
	case claims == nil:
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	if m.UserInfoURL == "" {
		return fmt.Errorf("%s: provider %s has no userinfo endpoint: %w", op, m.Issuer, ErrUnsupportedOperation)
	}
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	userinfo, err := m.provider.UserInfo(HTTPClientContext(ctx, p.client), tokenSource)
	if err != nil {
		return fmt.Errorf("%s: provider UserInfo request failed (%s): %w", op, err, ErrUserInfoFailed)
	}
	if err := userinfo.Claims(claims); err != nil {
		return fmt.Errorf("%s: failed to get UserInfo claims (%s): %w", op, err, ErrUserInfoFailed)
	}
	return nil
}

func (p *Provider) now() time.Time {
	if p.nowFunc != nil {
		return p.nowFunc()
	}
	return time.Now() // fallback to this default
}

// expiresIn reads the token's lifetime from the raw "expires_in" of the token
// response, falling back to the oauth2 pkg's computed expiry.
func expiresIn(t *oauth2.Token) time.Duration {
	switch v := t.Extra("expires_in").(type) {
	case float64:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return time.Duration(i) * time.Second
		}
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	if t.Expiry.IsZero() {
		return 0
	}
	return time.Until(t.Expiry).Round(time.Second)
}

// providerOptions is the set of available options for Provider functions
type providerOptions struct {
	withLogger  hclog.Logger
	withNowFunc func() time.Time
}

// providerDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func providerDefaults() providerOptions {
	return providerOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

// getProviderOpts gets the provider defaults and applies the opt overrides
// passed in.
func getProviderOpts(opt ...Option) providerOptions {
	opts := providerDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
