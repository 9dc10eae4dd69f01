// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"time"

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

// WithNow provides an optional func for determining what the current time it
// is.  Valid for: Manager and Codec
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if now == nil {
			return
		}
		switch v := o.(type) {
		case *managerOptions:
			v.withNowFunc = now
		case *codecOptions:
			v.withNowFunc = now
		}
	}
}

// WithLogger provides an optional logger.  Valid for: Manager
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if l == nil {
			return
		}
		switch v := o.(type) {
		case *managerOptions:
			v.withLogger = l
		}
	}
}

// WithProviderTimeout provides an optional deadline for each refresh's
// provider requests.  Zero disables the deadline.  Valid for: Manager
func WithProviderTimeout(d time.Duration) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *managerOptions:
			v.withProviderTimeout = d
		}
	}
}

// WithSingleFlight enables or disables collapsing concurrent refreshes of the
// same refresh token into a single provider request.  Valid for: Manager
func WithSingleFlight(enabled bool) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *managerOptions:
			v.withSingleFlight = enabled
		}
	}
}

// WithIssuer provides an optional issuer ("iss") for encoded sessions.  Valid
// for: Codec
func WithIssuer(iss string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *codecOptions:
			v.withIssuer = iss
		}
	}
}
