// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package logout

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/url"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-uuid"
	"github.com/hashicorp/oidcsession/oidc"
)

// EndSessioner defines the provider capabilities the Coordinator depends on.
// *oidc.Provider satisfies it.
type EndSessioner interface {
	Discover(ctx context.Context) (*oidc.Metadata, error)
	EndSessionURL(m *oidc.Metadata, params oidc.EndSessionParams) (string, error)
}

// Initiation is the result of initiating a logout.  The user agent is
// redirected to RedirectURL, and State must be stored by the relying party
// until the provider redirects back.
type Initiation struct {
	RedirectURL string
	State       string
}

// Coordinator performs RP-initiated logout: it builds the provider's
// end-session redirect and validates the state returned on the post-logout
// callback.
type Coordinator struct {
	client                EndSessioner
	postLogoutRedirectURL string
	logger                hclog.Logger
	stateGen              func() (string, error)
}

// NewCoordinator creates a new Coordinator.  The postLogoutRedirectURL must be
// an absolute URL which is registered with the provider.
//
// Supported options:
//   - WithLogger
//   - WithStateGenerator
func NewCoordinator(client EndSessioner, postLogoutRedirectURL string, opt ...Option) (*Coordinator, error) {
	const op = "logout.NewCoordinator"
	if client == nil {
		return nil, fmt.Errorf("%s: end sessioner is nil: %w", op, ErrNilParameter)
	}
	if postLogoutRedirectURL == "" {
		return nil, fmt.Errorf("%s: post logout redirect URL is empty: %w", op, ErrInvalidParameter)
	}
	if u, err := url.Parse(postLogoutRedirectURL); err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("%s: post logout redirect URL %q is not an absolute URL: %w", op, postLogoutRedirectURL, ErrInvalidParameter)
	}
	opts := getCoordinatorOpts(opt...)
	return &Coordinator{
		client:                client,
		postLogoutRedirectURL: postLogoutRedirectURL,
		logger:                opts.withLogger,
		stateGen:              opts.withStateGenerator,
	}, nil
}

// Initiate starts a logout for the session identified by idToken.  It returns
// ErrNoValidSession, without making any provider requests, when idToken is
// empty.
func (c *Coordinator) Initiate(ctx context.Context, idToken string) (*Initiation, error) {
	const op = "Coordinator.Initiate"
	if idToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoValidSession)
	}
	state, err := c.stateGen()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate logout state: %w", op, err)
	}
	if state == "" {
		return nil, fmt.Errorf("%s: generated logout state is empty: %w", op, ErrInvalidParameter)
	}
	md, err := c.client.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to discover provider: %w", op, err)
	}
	redirect, err := c.client.EndSessionURL(md, oidc.EndSessionParams{
		IDTokenHint:           idToken,
		PostLogoutRedirectURL: c.postLogoutRedirectURL,
		State:                 state,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: unable to build end session URL: %w", op, err)
	}
	c.logger.Debug("logout initiated", "op", op, "end_session_endpoint", md.EndSessionURL)
	return &Initiation{RedirectURL: redirect, State: state}, nil
}

// ValidateCallback compares the state returned by the provider with the state
// stored at Initiate.  It returns a *StateError unless both are non-empty and
// equal.
func (c *Coordinator) ValidateCallback(returned, stored string) error {
	const op = "Coordinator.ValidateCallback"
	if returned == "" || stored == "" || subtle.ConstantTimeCompare([]byte(returned), []byte(stored)) != 1 {
		c.logger.Warn("logout callback rejected", "op", op, "has_returned_state", returned != "", "has_stored_state", stored != "")
		return &StateError{Reason: "missing or mismatched state"}
	}
	return nil
}

// NewState returns a new logout state with 128 bits of randomness.
func NewState() (string, error) {
	const op = "logout.NewState"
	s, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// coordinatorOptions is the set of available options for Coordinator functions
type coordinatorOptions struct {
	withLogger         hclog.Logger
	withStateGenerator func() (string, error)
}

// coordinatorDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func coordinatorDefaults() coordinatorOptions {
	return coordinatorOptions{
		withLogger:         hclog.NewNullLogger(),
		withStateGenerator: NewState,
	}
}

// getCoordinatorOpts gets the coordinator defaults and applies the opt
// overrides passed in.
func getCoordinatorOpts(opt ...Option) coordinatorOptions {
	opts := coordinatorDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
