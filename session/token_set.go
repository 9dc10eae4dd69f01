// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// ErrorKind is the sticky error flag of a TokenSet.
type ErrorKind string

// RefreshAccessTokenError flags a TokenSet whose refresh failed or wasn't
// possible when one was required.
const RefreshAccessTokenError ErrorKind = "RefreshAccessTokenError"

// DefaultTokenLifetime is the access token lifetime assumed when the provider
// doesn't specify one.
const DefaultTokenLifetime = time.Hour

const redacted = "[REDACTED]"

// TokenSet is the set of tokens carried by an encoded session.  A TokenSet with
// an Error must not be treated as authenticated, even though its tokens may
// still contain stale values.
type TokenSet struct {
	// IDToken is only used as a hint for the provider on logout and is never
	// parsed.
	IDToken string `json:"id_token,omitempty"`

	// AccessToken is the bearer credential for downstream API requests.
	AccessToken string `json:"access_token,omitempty"`

	// RefreshToken is used to mint new access tokens.  An empty RefreshToken
	// means the session can't be silently renewed.
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is the absolute expiry of the AccessToken in milliseconds
	// since the unix epoch.
	ExpiresAt int64 `json:"expires_at"`

	// Error is set when the most recent refresh failed, or when no refresh was
	// possible when one was required.
	Error ErrorKind `json:"error,omitempty"`
}

// Expired returns true when the access token is no longer usable at now.
func (t TokenSet) Expired(now time.Time) bool {
	return now.UnixMilli() >= t.ExpiresAt
}

// Expiry returns ExpiresAt as a time.Time.
func (t TokenSet) Expiry() time.Time {
	return time.UnixMilli(t.ExpiresAt)
}

// Authenticated returns true when the TokenSet can be treated as an
// authenticated session.  It doesn't consider the access token's expiry, that's
// the Manager's concern.
func (t TokenSet) Authenticated() bool {
	return t.Error == "" && t.AccessToken != ""
}

// Session returns the shaped view of the TokenSet which is handed to the rest
// of the application.  The refresh token is never exposed.
func (t TokenSet) Session() Session {
	return Session{
		IDToken:     t.IDToken,
		AccessToken: t.AccessToken,
		Error:       t.Error,
	}
}

// String will redact the tokens.
func (t TokenSet) String() string {
	return fmt.Sprintf("TokenSet{IDToken: %s, AccessToken: %s, RefreshToken: %s, ExpiresAt: %s, Error: %q}",
		redactNonEmpty(t.IDToken),
		redactNonEmpty(t.AccessToken),
		redactNonEmpty(t.RefreshToken),
		t.Expiry().UTC().Format(time.RFC3339),
		t.Error,
	)
}

// GoString will redact the tokens.
func (t TokenSet) GoString() string {
	return t.String()
}

func redactNonEmpty(s string) string {
	if s == "" {
		return `""`
	}
	return redacted
}

// SignInEvent carries the provider's token exchange result at sign in.
type SignInEvent struct {
	IDToken      string
	AccessToken  string
	RefreshToken string

	// ExpiresAt is the access token's expiry in seconds since the unix epoch.
	// Zero means the provider didn't specify one.
	ExpiresAt int64
}

// NewSignInEvent creates a SignInEvent from the result of an authorization
// code exchange.  The id_token is read from the token response's extra fields.
func NewSignInEvent(t *oauth2.Token) (SignInEvent, error) {
	const op = "session.NewSignInEvent"
	if t == nil {
		return SignInEvent{}, fmt.Errorf("%s: token is nil: %w", op, ErrNilParameter)
	}
	if t.AccessToken == "" {
		return SignInEvent{}, fmt.Errorf("%s: access token is empty: %w", op, ErrInvalidParameter)
	}
	ev := SignInEvent{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}
	if idToken, ok := t.Extra("id_token").(string); ok {
		ev.IDToken = idToken
	}
	if !t.Expiry.IsZero() {
		ev.ExpiresAt = t.Expiry.Unix()
	}
	return ev, nil
}

// Session is the shaped view of a TokenSet.
type Session struct {
	IDToken     string    `json:"id_token,omitempty"`
	AccessToken string    `json:"access_token,omitempty"`
	Error       ErrorKind `json:"error,omitempty"`
}

// Authenticated returns true when the session is usable.
func (s Session) Authenticated() bool {
	return s.Error == "" && s.AccessToken != ""
}

// Err returns ErrSessionExpired for a session flagged with an Error, which
// should be surfaced to the user as "please sign in again".
func (s Session) Err() error {
	if s.Error != "" {
		return fmt.Errorf("%w (%s)", ErrSessionExpired, s.Error)
	}
	return nil
}
