// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/oidcsession/session"
)

type ctxKey struct{}

// FromContext returns the session stored in the ctx by Sessions.Middleware.
func FromContext(ctx context.Context) (session.Session, bool) {
	t, ok := ctx.Value(ctxKey{}).(session.TokenSet)
	if !ok {
		return session.Session{}, false
	}
	return t.Session(), true
}

// Sessions stores each user's TokenSet in an encrypted cookie and reconciles
// it on every request.
type Sessions struct {
	codec      *session.Codec
	manager    *session.Manager
	cookieName string
	secure     bool
	logger     hclog.Logger
}

// NewSessions creates a new Sessions.
//
// Supported options:
//   - WithLogger
//   - WithCookieName
//   - WithSecureCookies
func NewSessions(codec *session.Codec, manager *session.Manager, opt ...Option) (*Sessions, error) {
	const op = "handler.NewSessions"
	switch {
	case codec == nil:
		return nil, fmt.Errorf("%s: codec is nil: %w", op, ErrNilParameter)
	case manager == nil:
		return nil, fmt.Errorf("%s: manager is nil: %w", op, ErrNilParameter)
	}
	opts := getSessionsOpts(opt...)
	if opts.withCookieName == "" {
		return nil, fmt.Errorf("%s: cookie name is empty: %w", op, ErrInvalidParameter)
	}
	return &Sessions{
		codec:      codec,
		manager:    manager,
		cookieName: opts.withCookieName,
		secure:     opts.withSecure,
		logger:     opts.withLogger,
	}, nil
}

// Middleware decodes the request's session cookie, reconciles its TokenSet and
// stores the result in the request's context (see FromContext).  The cookie is
// re-encoded whenever the TokenSet changed.  Requests without a usable session
// cookie are passed to next without a session.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "Sessions.Middleware"
		c, err := r.Cookie(s.cookieName)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		current, err := s.codec.Decode(c.Value)
		if err != nil {
			s.logger.Debug("discarding session cookie", "op", op, "error", err)
			s.Clear(w)
			next.ServeHTTP(w, r)
			return
		}
		reconciled := s.manager.Reconcile(r.Context(), current)
		if reconciled != current {
			if err := s.write(w, reconciled); err != nil {
				s.logger.Error("unable to update session cookie", "op", op, "error", err)
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, reconciled)))
	})
}

// Establish seeds a new session from a sign in and writes its cookie.
func (s *Sessions) Establish(w http.ResponseWriter, ev session.SignInEvent) (session.TokenSet, error) {
	const op = "Sessions.Establish"
	t := s.manager.SignIn(ev)
	if err := s.write(w, t); err != nil {
		return session.TokenSet{}, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// Clear removes the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Sessions) write(w http.ResponseWriter, t session.TokenSet) error {
	const op = "Sessions.write"
	v, err := s.codec.Encode(t)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    v,
		Path:     "/",
		MaxAge:   int(s.codec.MaxAge().Seconds()),
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// sessionsOptions is the set of available options for Sessions functions
type sessionsOptions struct {
	withLogger     hclog.Logger
	withCookieName string
	withSecure     bool
}

// sessionsDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func sessionsDefaults() sessionsOptions {
	return sessionsOptions{
		withLogger:     hclog.NewNullLogger(),
		withCookieName: DefaultSessionCookieName,
		withSecure:     true,
	}
}

// getSessionsOpts gets the sessions defaults and applies the opt overrides
// passed in.
func getSessionsOpts(opt ...Option) sessionsOptions {
	opts := sessionsDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
