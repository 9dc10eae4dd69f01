// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// WithLogger provides an optional logger.  Valid for: Sessions, Logout,
// LogoutCallback and UserInfo
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if l == nil {
			return
		}
		switch v := o.(type) {
		case *sessionsOptions:
			v.withLogger = l
		case *handlerOptions:
			v.withLogger = l
		}
	}
}

// WithCookieName provides an optional name for the session cookie.  Valid for:
// Sessions
func WithCookieName(name string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *sessionsOptions:
			v.withCookieName = name
		}
	}
}

// WithSecureCookies sets the Secure attribute of the session cookie.  Valid
// for: Sessions
func WithSecureCookies(secure bool) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *sessionsOptions:
			v.withSecure = secure
		}
	}
}

// WithSuccessPath provides an optional path the user is redirected to after a
// completed logout.  Valid for: LogoutCallback
func WithSuccessPath(p string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *handlerOptions:
			v.withSuccessPath = p
		}
	}
}

// WithErrorPath provides an optional path the user is redirected to after a
// rejected logout callback.  Valid for: LogoutCallback
func WithErrorPath(p string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *handlerOptions:
			v.withErrorPath = p
		}
	}
}

const (
	// DefaultSessionCookieName is the default name of the session cookie.
	DefaultSessionCookieName = "session"

	// DefaultSuccessPath is the default redirect after a completed logout.
	DefaultSuccessPath = "/logout/success"

	// DefaultErrorPath is the default redirect after a rejected logout
	// callback.
	DefaultErrorPath = "/logout/error"
)

// handlerOptions is the set of available options for the handler funcs
type handlerOptions struct {
	withLogger      hclog.Logger
	withSuccessPath string
	withErrorPath   string
}

// handlerDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func handlerDefaults() handlerOptions {
	return handlerOptions{
		withLogger:      hclog.NewNullLogger(),
		withSuccessPath: DefaultSuccessPath,
		withErrorPath:   DefaultErrorPath,
	}
}

// getHandlerOpts gets the handler defaults and applies the opt overrides passed
// in.
func getHandlerOpts(opt ...Option) handlerOptions {
	opts := handlerDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
