// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/oidcsession/oidc/internal/strutils"
)

// DefaultSessionMaxAge is the session lifetime used when a Config doesn't
// specify one.
const DefaultSessionMaxAge = 3600 * time.Second

// ClientSecret is an oauth client Secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret.
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret.
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret.
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Config represents the configuration of the relying party's single OIDC
// provider.  It's resolved once and passed by value to the components that
// need it.
type Config struct {
	// ClientID is the relying party ID.
	ClientID string

	// ClientSecret is the relying party secret.
	ClientSecret ClientSecret

	// Issuer is a case-sensitive URL string using the https scheme that
	// contains scheme, host, and optionally, port number and path components
	// and no query or fragment components.
	Issuer string

	// PostLogoutRedirectURL is where the provider sends the user after its
	// end-session endpoint has terminated the provider session.
	PostLogoutRedirectURL string

	// Scopes is a list of additional oidc scopes to request of the provider
	// when refreshing tokens.  The required "openid" scope is requested by
	// default.
	Scopes []string

	// ProviderCA is an optional CA certs (PEM encoded) to use when sending
	// requests to the provider.
	ProviderCA string

	// SessionMaxAge is the lifetime of an encoded session.  Zero means
	// DefaultSessionMaxAge.
	SessionMaxAge time.Duration

	// DiscoveryCacheTTL is how long discovered provider metadata is reused.
	// Zero means discovery is performed on every request for it.
	DiscoveryCacheTTL time.Duration
}

// NewConfig composes a new config for a provider.
//
// Supported options:
//   - WithProviderCA
//   - WithScopes
//   - WithSessionMaxAge
//   - WithDiscoveryCacheTTL
func NewConfig(issuer string, clientID string, clientSecret ClientSecret, postLogoutRedirectURL string, opt ...Option) (*Config, error) {
	const op = "NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		Issuer:                issuer,
		ClientID:              clientID,
		ClientSecret:          clientSecret,
		PostLogoutRedirectURL: postLogoutRedirectURL,
		Scopes:                opts.withScopes,
		ProviderCA:            opts.withProviderCA,
		SessionMaxAge:         opts.withSessionMaxAge,
		DiscoveryCacheTTL:     opts.withDiscoveryCacheTTL,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid provider config: %w", op, err)
	}
	return c, nil
}

// Validate the provider configuration.  Among other validations, it verifies
// the issuer is not empty, but it doesn't verify the Issuer is discoverable via
// an http request.  Every violation found is reported in the returned error.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	var retErr *multierror.Error
	if c.ClientID == "" {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: client ID is empty: %w", op, ErrInvalidParameter))
	}
	if c.ClientSecret == "" {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: client secret is empty: %w", op, ErrInvalidParameter))
	}
	switch {
	case c.Issuer == "":
		retErr = multierror.Append(retErr, fmt.Errorf("%s: discovery URL is empty: %w", op, ErrInvalidParameter))
	default:
		u, err := url.Parse(c.Issuer)
		switch {
		case err != nil:
			retErr = multierror.Append(retErr, fmt.Errorf("%s: issuer %s is invalid (%s): %w", op, c.Issuer, err, ErrInvalidIssuer))
		case !strutils.StrListContains([]string{"https", "http"}, u.Scheme):
			retErr = multierror.Append(retErr, fmt.Errorf("%s: issuer %s schema is not http or https: %w", op, c.Issuer, ErrInvalidIssuer))
		}
	}
	switch {
	case c.PostLogoutRedirectURL == "":
		retErr = multierror.Append(retErr, fmt.Errorf("%s: post logout redirect URL is empty: %w", op, ErrInvalidParameter))
	default:
		u, err := url.Parse(c.PostLogoutRedirectURL)
		if err != nil || !u.IsAbs() {
			retErr = multierror.Append(retErr, fmt.Errorf("%s: post logout redirect URL %s is not an absolute URL: %w", op, c.PostLogoutRedirectURL, ErrInvalidParameter))
		}
	}
	if c.SessionMaxAge < 0 {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: session max age is negative: %w", op, ErrInvalidParameter))
	}
	if c.DiscoveryCacheTTL < 0 {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: discovery cache TTL is negative: %w", op, ErrInvalidParameter))
	}
	return retErr.ErrorOrNil()
}

// MaxAge returns the configured session max age or DefaultSessionMaxAge.
func (c *Config) MaxAge() time.Duration {
	if c == nil || c.SessionMaxAge == 0 {
		return DefaultSessionMaxAge
	}
	return c.SessionMaxAge
}

// configOptions is the set of available options
type configOptions struct {
	withScopes            []string
	withProviderCA        string
	withSessionMaxAge     time.Duration
	withDiscoveryCacheTTL time.Duration
}

// configDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func configDefaults() configOptions {
	return configOptions{}
}

// getConfigOpts gets the defaults and applies the opt overrides passed
// in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScopes provides an optional list of scopes for the provider's config.
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithProviderCA provides an optional CA certs (PEM encoded) for the
// provider's config.  These certs will be used when making http requests to
// the provider.
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithSessionMaxAge provides an optional session max age.
func WithSessionMaxAge(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withSessionMaxAge = d
		}
	}
}

// WithDiscoveryCacheTTL provides an optional duration for reusing discovered
// provider metadata.
func WithDiscoveryCacheTTL(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withDiscoveryCacheTTL = d
		}
	}
}
