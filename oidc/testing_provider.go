// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/oidcsession/oidc/internal/strutils"
	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

// TestProvider is a local TLS server that plays the role of the relying
// party's OIDC provider, which makes writing tests much easier.  It supports
// discovery, JWKS, the refresh_token grant, RP-initiated logout and userinfo.
//
// Every setter is concurrently safe.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	jwks *jose.JSONWebKeySet

	mu                    sync.Mutex
	clientID              string
	clientSecret          string
	subject               string
	expectedRefreshToken  string
	replyAccessToken      string
	replyRefreshToken     string
	replyExpiresIn        int64
	omitExpiresIn         bool
	failRefresh           bool
	disableEndSession     bool
	disableUserInfo       bool
	replyUserinfo         map[string]interface{}
	allowedLogoutRedirect []string
	tokenRequests         int
	discoveryRequests     int

	ecdsaPublicKey  string
	ecdsaPrivateKey string

	t *testing.T
}

// StartTestProvider creates and starts a disposable TestProvider, which will
// be stopped by the test's cleanup.  Defaults: client "test-client-id" with
// secret "test-client-secret", expected refresh token "test-refresh-token",
// an access token lifetime of one hour and no refresh token rotation.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		t:                    t,
		clientID:             "test-client-id",
		clientSecret:         "test-client-secret",
		subject:              "alice@example.com",
		expectedRefreshToken: "test-refresh-token",
		replyAccessToken:     "test-access-token",
		replyExpiresIn:       3600,
		replyUserinfo: map[string]interface{}{
			"sub":   "alice@example.com",
			"email": "alice@example.com",
			"name":  "Alice",
		},
	}
	p.ecdsaPublicKey, p.ecdsaPrivateKey = TestGenerateKeys(t)
	p.jwks = testJWKS(t, p.ecdsaPublicKey)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(ioutil.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.Stop)

	cert := p.httpServer.Certificate()

	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running webserver,
// which is also the provider's issuer.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// SigningKeys returns the test provider's pem-encoded keys used to sign JWTs.
func (p *TestProvider) SigningKeys() (pub, priv string) {
	return p.ecdsaPublicKey, p.ecdsaPrivateKey
}

// SetClientCreds configures the client credentials required by the token
// endpoint.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// ClientCreds returns the client credentials required by the token endpoint.
func (p *TestProvider) ClientCreds() (clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clientID, p.clientSecret
}

// SetExpectedRefreshToken configures the only refresh token the token endpoint
// will accept.
func (p *TestProvider) SetExpectedRefreshToken(rt string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedRefreshToken = rt
}

// SetReplyAccessToken configures the access token returned by a refresh grant.
func (p *TestProvider) SetReplyAccessToken(at string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyAccessToken = at
}

// SetRotateRefreshToken configures a new refresh token returned by a refresh
// grant.  An empty rt disables rotation, so the refresh token is omitted from
// the reply.
func (p *TestProvider) SetRotateRefreshToken(rt string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyRefreshToken = rt
}

// SetReplyExpiresIn configures the expires_in (seconds) returned by a refresh
// grant.
func (p *TestProvider) SetReplyExpiresIn(seconds int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyExpiresIn = seconds
	p.omitExpiresIn = false
}

// OmitExpiresIn forces the token endpoint to leave expires_in out of its reply.
func (p *TestProvider) OmitExpiresIn() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitExpiresIn = true
}

// SetFailRefresh forces the token endpoint to reject every refresh grant with
// an invalid_grant error.
func (p *TestProvider) SetFailRefresh(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failRefresh = fail
}

// DisableEndSession omits the end_session_endpoint from the discovery document
// and makes the endpoint return 404.
func (p *TestProvider) DisableEndSession() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableEndSession = true
}

// DisableUserInfo makes the userinfo endpoint return 404 and omits it from the
// discovery document.
func (p *TestProvider) DisableUserInfo() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableUserInfo = true
}

// SetUserInfoReply configures the claims returned by the userinfo endpoint.
func (p *TestProvider) SetUserInfoReply(claims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyUserinfo = claims
}

// SetAllowedLogoutRedirects configures the post_logout_redirect_uri values the
// end-session endpoint accepts.  When none are configured, any value is
// accepted.
func (p *TestProvider) SetAllowedLogoutRedirects(uris ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedLogoutRedirect = uris
}

// TokenRequests returns the number of requests the token endpoint received.
func (p *TestProvider) TokenRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenRequests
}

// DiscoveryRequests returns the number of requests for the discovery document.
func (p *TestProvider) DiscoveryRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.discoveryRequests
}

// IDToken returns a signed id_token for the provider's subject, suitable as an
// id_token_hint.
func (p *TestProvider) IDToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signedIDToken()
}

func (p *TestProvider) signedIDToken() string {
	now := time.Now()
	claims := jwt.Claims{
		Subject:   p.subject,
		Issuer:    p.Addr(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		Expiry:    jwt.NewNumericDate(now.Add(5 * time.Minute)),
		Audience:  jwt.Audience{p.clientID},
	}
	return TestSignJWT(p.t, p.ecdsaPrivateKey, claims, nil)
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) error {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}

	w.WriteHeader(statusCode)
	return p.writeJSON(w, &body)
}

// validClientCreds checks the client credentials sent using either the
// client_secret_basic or client_secret_post authentication methods.
func (p *TestProvider) validClientCreds(req *http.Request) bool {
	id, secret, ok := req.BasicAuth()
	if ok {
		// oauth2 pkg url encodes basic auth creds
		if v, err := url.QueryUnescape(id); err == nil {
			id = v
		}
		if v, err := url.QueryUnescape(secret); err == nil {
			secret = v
		}
	} else {
		id, secret = req.FormValue("client_id"), req.FormValue("client_secret")
	}
	return id == p.clientID && secret == p.clientSecret
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p.discoveryRequests++

		reply := struct {
			Issuer             string   `json:"issuer"`
			AuthEndpoint       string   `json:"authorization_endpoint"`
			TokenEndpoint      string   `json:"token_endpoint"`
			JWKSURI            string   `json:"jwks_uri"`
			UserinfoEndpoint   string   `json:"userinfo_endpoint,omitempty"`
			EndSessionEndpoint string   `json:"end_session_endpoint,omitempty"`
			ScopesSupported    []string `json:"scopes_supported"`
			SigningAlgs        []string `json:"id_token_signing_alg_values_supported"`
		}{
			Issuer:             p.Addr(),
			AuthEndpoint:       p.Addr() + "/authorize",
			TokenEndpoint:      p.Addr() + "/token",
			JWKSURI:            p.Addr() + "/certs",
			UserinfoEndpoint:   p.Addr() + "/userinfo",
			EndSessionEndpoint: p.Addr() + "/end_session",
			ScopesSupported:    []string{"openid", "profile", "email", "offline_access"},
			SigningAlgs:        []string{string(jose.ES256)},
		}
		if p.disableUserInfo {
			reply.UserinfoEndpoint = ""
		}
		if p.disableEndSession {
			reply.EndSessionEndpoint = ""
		}
		_ = p.writeJSON(w, &reply)

	case "/certs":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = p.writeJSON(w, p.jwks)

	case "/token":
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p.tokenRequests++

		switch {
		case !p.validClientCreds(req):
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "unknown client")
			return
		case req.FormValue("grant_type") != "refresh_token":
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "unsupported_grant_type", "only refresh_token is supported")
			return
		case p.failRefresh:
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "refresh token is revoked")
			return
		case req.FormValue("refresh_token") != p.expectedRefreshToken:
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unexpected refresh token")
			return
		}

		reply := map[string]interface{}{
			"access_token": p.replyAccessToken,
			"token_type":   "Bearer",
			"id_token":     p.signedIDToken(),
		}
		if !p.omitExpiresIn {
			reply["expires_in"] = p.replyExpiresIn
		}
		if p.replyRefreshToken != "" {
			reply["refresh_token"] = p.replyRefreshToken
		}
		_ = p.writeJSON(w, reply)

	case "/end_session":
		if p.disableEndSession {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		qv := req.URL.Query()
		redirect := qv.Get("post_logout_redirect_uri")
		switch {
		case qv.Get("id_token_hint") == "":
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "missing id_token_hint")
			return
		case redirect == "":
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "missing post_logout_redirect_uri")
			return
		case len(p.allowedLogoutRedirect) > 0 && !strutils.StrListContains(p.allowedLogoutRedirect, redirect):
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "post_logout_redirect_uri is not allowed")
			return
		}
		u, err := url.Parse(redirect)
		if err != nil {
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid post_logout_redirect_uri")
			return
		}
		if state := qv.Get("state"); state != "" {
			rq := u.Query()
			rq.Set("state", state)
			u.RawQuery = rq.Encode()
		}
		http.Redirect(w, req, u.String(), http.StatusFound)

	case "/userinfo":
		if p.disableUserInfo {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !strings.HasPrefix(req.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = p.writeJSON(w, p.replyUserinfo)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// testJWKS converts a pem-encoded public key into JWKS data suitable for a
// verification endpoint response
func testJWKS(t *testing.T, pubKey string) *jose.JSONWebKeySet {
	t.Helper()
	require := require.New(t)

	block, _ := pem.Decode([]byte(pubKey))
	require.NotNil(block)

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(err)

	return &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       pub,
				Algorithm: string(jose.ES256),
				Use:       "sig",
			},
		},
	}
}
