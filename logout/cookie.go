// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package logout

import (
	"net/http"
	"time"
)

const (
	// DefaultStateCookieName is the default name of the logout state cookie.
	DefaultStateCookieName = "logout_state"

	// DefaultStateCookieMaxAge bounds how long a user has to complete a logout
	// at the provider.
	DefaultStateCookieMaxAge = 10 * time.Minute
)

// CookiePolicy describes the cookie which carries the logout state between
// Initiate and the post-logout callback.
type CookiePolicy struct {
	// Name defaults to DefaultStateCookieName.
	Name string

	// Path scopes the cookie to the callback's path.
	Path string

	// MaxAge defaults to DefaultStateCookieMaxAge.
	MaxAge time.Duration

	Secure bool
}

// NewCookiePolicy creates a CookiePolicy scoped to the callbackPath.
func NewCookiePolicy(callbackPath string, secure bool) CookiePolicy {
	return CookiePolicy{
		Name:   DefaultStateCookieName,
		Path:   callbackPath,
		MaxAge: DefaultStateCookieMaxAge,
		Secure: secure,
	}
}

func (p CookiePolicy) name() string {
	if p.Name == "" {
		return DefaultStateCookieName
	}
	return p.Name
}

func (p CookiePolicy) path() string {
	if p.Path == "" {
		return "/"
	}
	return p.Path
}

// StateCookie returns the cookie which stores state.
func (p CookiePolicy) StateCookie(state string) *http.Cookie {
	maxAge := p.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultStateCookieMaxAge
	}
	return &http.Cookie{
		Name:     p.name(),
		Value:    state,
		Path:     p.path(),
		MaxAge:   int(maxAge.Seconds()),
		Secure:   p.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearStateCookie returns a cookie which removes the state cookie.
func (p CookiePolicy) ClearStateCookie() *http.Cookie {
	return &http.Cookie{
		Name:     p.name(),
		Value:    "",
		Path:     p.path(),
		MaxAge:   -1,
		Secure:   p.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// StoredState returns the state stored in the request's state cookie, or an
// empty string when there isn't one.
func (p CookiePolicy) StoredState(r *http.Request) string {
	c, err := r.Cookie(p.name())
	if err != nil {
		return ""
	}
	return c.Value
}
