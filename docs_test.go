// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidcsession_test

import (
	"net/http"
	"time"

	"github.com/hashicorp/oidcsession/handler"
	"github.com/hashicorp/oidcsession/logout"
	"github.com/hashicorp/oidcsession/oidc"
	"github.com/hashicorp/oidcsession/session"
	"golang.org/x/oauth2"
)

func Example_sessions() {
	// Create a new Config
	pc, err := oidc.NewConfig(
		"https://your-issuer.com/",
		"your_client_id",
		"your_client_secret",
		"https://your_app.com/logout/callback",
		oidc.WithDiscoveryCacheTTL(5*time.Minute),
	)
	if err != nil {
		// handle error
	}

	// Create a provider
	p, err := oidc.NewProvider(pc)
	if err != nil {
		// handle error
	}
	defer p.Done()

	// Create the token lifecycle manager and the encrypted session cookies
	m, err := session.NewManager(p)
	if err != nil {
		// handle error
	}
	codec, err := session.NewCodec([]byte("a-secret-of-at-least-32-bytes..."), pc.MaxAge())
	if err != nil {
		// handle error
	}
	sessions, err := handler.NewSessions(codec, m)
	if err != nil {
		// handle error
	}

	// Seed the session once your authorization code callback has exchanged
	// the code for tokens.
	signedIn := func(w http.ResponseWriter, t *oauth2.Token) {
		ev, err := session.NewSignInEvent(t)
		if err != nil {
			// handle error
		}
		if _, err := sessions.Establish(w, ev); err != nil {
			// handle error
		}
	}
	_ = signedIn

	// Every request wrapped by the middleware has a reconciled session
	api := sessions.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := handler.FromContext(r.Context())
		if !ok || !s.Authenticated() {
			http.Error(w, "please sign in again", http.StatusUnauthorized)
			return
		}
		// use s.AccessToken with downstream APIs
	}))
	http.Handle("/api/", api)

	// RP-initiated logout
	coord, err := logout.NewCoordinator(p, pc.PostLogoutRedirectURL)
	if err != nil {
		// handle error
	}
	policy := logout.NewCookiePolicy("/logout/callback", true)
	logoutFn, err := handler.Logout(sessions, coord, policy)
	if err != nil {
		// handle error
	}
	callbackFn, err := handler.LogoutCallback(coord, policy, sessions)
	if err != nil {
		// handle error
	}
	http.Handle("/logout", sessions.Middleware(logoutFn))
	http.Handle("/logout/callback", callbackFn)
	http.Handle(handler.DefaultSuccessPath, handler.LogoutSuccess())
	http.Handle(handler.DefaultErrorPath, handler.LogoutError())
}
