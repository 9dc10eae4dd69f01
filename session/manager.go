// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/oidcsession/oidc"
	"golang.org/x/sync/singleflight"
)

// DefaultProviderTimeout is the default deadline for a refresh's provider
// requests.
const DefaultProviderTimeout = 10 * time.Second

// Refresher defines the provider capabilities the Manager depends on.
// *oidc.Provider satisfies it.
type Refresher interface {
	Discover(ctx context.Context) (*oidc.Metadata, error)
	RefreshTokenGrant(ctx context.Context, m *oidc.Metadata, refreshToken string) (*oidc.Grant, error)
}

// Manager decides whether a session's TokenSet is still usable and refreshes
// it when it isn't.  It holds no per-session state, so a single Manager is
// shared by every request.
type Manager struct {
	client          Refresher
	logger          hclog.Logger
	nowFunc         func() time.Time
	providerTimeout time.Duration
	singleFlight    bool
	group           singleflight.Group
}

// NewManager creates a new Manager.
//
// Supported options:
//   - WithLogger
//   - WithNow
//   - WithProviderTimeout
//   - WithSingleFlight
func NewManager(client Refresher, opt ...Option) (*Manager, error) {
	const op = "session.NewManager"
	if client == nil {
		return nil, fmt.Errorf("%s: refresher is nil: %w", op, ErrNilParameter)
	}
	opts := getManagerOpts(opt...)
	if opts.withProviderTimeout < 0 {
		return nil, fmt.Errorf("%s: provider timeout is negative: %w", op, ErrInvalidParameter)
	}
	return &Manager{
		client:          client,
		logger:          opts.withLogger,
		nowFunc:         opts.withNowFunc,
		providerTimeout: opts.withProviderTimeout,
		singleFlight:    opts.withSingleFlight,
	}, nil
}

// SignIn seeds a fresh TokenSet from the provider's token exchange result.
func (m *Manager) SignIn(ev SignInEvent) TokenSet {
	t := TokenSet{
		IDToken:      ev.IDToken,
		AccessToken:  ev.AccessToken,
		RefreshToken: ev.RefreshToken,
	}
	switch {
	case ev.ExpiresAt != 0:
		t.ExpiresAt = ev.ExpiresAt * 1000
	default:
		t.ExpiresAt = m.now().Add(DefaultTokenLifetime).UnixMilli()
	}
	return t
}

// Reconcile returns an up-to-date TokenSet for the current request.  An
// unexpired TokenSet is returned unchanged without any provider requests,
// otherwise a refresh is attempted.  A failed refresh is never retried; the
// returned TokenSet carries RefreshAccessTokenError instead.  When ctx is done
// while waiting on a refresh shared with other requests, current is returned
// unchanged.
func (m *Manager) Reconcile(ctx context.Context, current TokenSet) TokenSet {
	if !current.Expired(m.now()) {
		return current
	}
	return m.refresh(ctx, current)
}

type refreshResult struct {
	grant *oidc.Grant
	at    time.Time
}

func (m *Manager) refresh(ctx context.Context, current TokenSet) TokenSet {
	const op = "Manager.refresh"
	if current.RefreshToken == "" {
		m.logger.Error("no refresh token available for refresh", "op", op)
		current.Error = RefreshAccessTokenError
		return current
	}

	var (
		res refreshResult
		err error
	)
	switch {
	case m.singleFlight:
		// the shared grant can't depend on any one caller's cancellation
		shared := detachedContext{parent: ctx}
		ch := m.group.DoChan(flightKey(current.RefreshToken), func() (interface{}, error) {
			return m.grant(shared, current.RefreshToken)
		})
		select {
		case <-ctx.Done():
			m.logger.Debug("abandoned waiting for token refresh", "op", op, "error", ctx.Err())
			return current
		case r := <-ch:
			err = r.Err
			if err == nil {
				res = r.Val.(refreshResult)
			}
		}
	default:
		res, err = m.grant(ctx, current.RefreshToken)
	}
	if err != nil {
		m.logger.Error("token refresh failed", "op", op, "error", err)
		current.Error = RefreshAccessTokenError
		return current
	}

	lifetime := res.grant.ExpiresIn
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	refreshed := current
	refreshed.AccessToken = res.grant.AccessToken
	refreshed.ExpiresAt = res.at.Add(lifetime).UnixMilli()
	if res.grant.RefreshToken != "" {
		refreshed.RefreshToken = res.grant.RefreshToken
	}
	refreshed.Error = ""
	return refreshed
}

// grant makes the provider requests for a single refresh.
func (m *Manager) grant(ctx context.Context, refreshToken string) (refreshResult, error) {
	const op = "Manager.grant"
	if m.providerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.providerTimeout)
		defer cancel()
	}
	md, err := m.client.Discover(ctx)
	if err != nil {
		return refreshResult{}, fmt.Errorf("%s: unable to discover provider: %w", op, err)
	}
	g, err := m.client.RefreshTokenGrant(ctx, md, refreshToken)
	if err != nil {
		return refreshResult{}, fmt.Errorf("%s: unable to refresh access token: %w", op, err)
	}
	if g == nil || g.AccessToken == "" {
		return refreshResult{}, fmt.Errorf("%s: refresh grant is missing an access token: %w", op, ErrInvalidParameter)
	}
	return refreshResult{grant: g, at: m.now()}, nil
}

func (m *Manager) now() time.Time {
	if m.nowFunc != nil {
		return m.nowFunc()
	}
	return time.Now() // fallback to this default
}

// detachedContext carries its parent's values but never its deadline or
// cancellation.
type detachedContext struct {
	parent context.Context
}

func (detachedContext) Deadline() (time.Time, bool) { return time.Time{}, false }
func (detachedContext) Done() <-chan struct{} { return nil }
func (detachedContext) Err() error { return nil }
func (c detachedContext) Value(key interface{}) interface{} { return c.parent.Value(key) }

// flightKey keeps refresh tokens out of the singleflight group's map.
func flightKey(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}

// managerOptions is the set of available options for Manager functions
type managerOptions struct {
	withLogger          hclog.Logger
	withNowFunc         func() time.Time
	withProviderTimeout time.Duration
	withSingleFlight    bool
}

// managerDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func managerDefaults() managerOptions {
	return managerOptions{
		withLogger:          hclog.NewNullLogger(),
		withProviderTimeout: DefaultProviderTimeout,
		withSingleFlight:    true,
	}
}

// getManagerOpts gets the manager defaults and applies the opt overrides
// passed in.
func getManagerOpts(opt ...Option) managerOptions {
	opts := managerDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
