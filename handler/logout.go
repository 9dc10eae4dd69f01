// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp/oidcsession/logout"
)

// Logout creates a handler which initiates an RP-initiated logout for the
// request's session and redirects the user agent to the provider.  It must be
// wrapped by Sessions.Middleware.  Only POST requests are accepted.
//
// Supported options:
//   - WithLogger
func Logout(sessions *Sessions, coord *logout.Coordinator, policy logout.CookiePolicy, opt ...Option) (http.HandlerFunc, error) {
	const op = "handler.Logout"
	switch {
	case sessions == nil:
		return nil, fmt.Errorf("%s: sessions is nil: %w", op, ErrNilParameter)
	case coord == nil:
		return nil, fmt.Errorf("%s: coordinator is nil: %w", op, ErrNilParameter)
	}
	opts := getHandlerOpts(opt...)
	logger := opts.withLogger

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		idToken := ""
		if s, ok := FromContext(r.Context()); ok && s.Authenticated() {
			idToken = s.IDToken
		}
		started, err := coord.Initiate(r.Context(), idToken)
		switch {
		case errors.Is(err, logout.ErrNoValidSession):
			writeJSONError(w, http.StatusBadRequest, "NoValidSession")
			return
		case err != nil:
			logger.Error("unable to initiate logout", "op", op, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "Failed to initiate logout")
			return
		}
		http.SetCookie(w, policy.StateCookie(started.State))
		http.Redirect(w, r, started.RedirectURL, http.StatusFound)
	}, nil
}

// LogoutCallback creates the handler for the provider's post-logout redirect.
// When the returned state matches the stored state the session is cleared and
// the user agent is redirected to the success path, otherwise it's redirected
// to the error path with a reason and the session is left as is.
//
// Supported options:
//   - WithLogger
//   - WithSuccessPath
//   - WithErrorPath
func LogoutCallback(coord *logout.Coordinator, policy logout.CookiePolicy, sessions *Sessions, opt ...Option) (http.HandlerFunc, error) {
	const op = "handler.LogoutCallback"
	switch {
	case coord == nil:
		return nil, fmt.Errorf("%s: coordinator is nil: %w", op, ErrNilParameter)
	case sessions == nil:
		return nil, fmt.Errorf("%s: sessions is nil: %w", op, ErrNilParameter)
	}
	opts := getHandlerOpts(opt...)
	logger := opts.withLogger

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		// the state is single use, whatever the outcome
		http.SetCookie(w, policy.ClearStateCookie())

		err := coord.ValidateCallback(r.URL.Query().Get("state"), policy.StoredState(r))
		if err != nil {
			reason := err.Error()
			var stateErr *logout.StateError
			if errors.As(err, &stateErr) {
				reason = stateErr.Reason
			}
			logger.Warn("logout callback failed", "op", op, "reason", reason)
			http.Redirect(w, r, opts.withErrorPath+"?"+url.Values{"reason": {reason}}.Encode(), http.StatusFound)
			return
		}
		w.Header().Set("Clear-Site-Data", `"cookies"`)
		sessions.Clear(w)
		http.Redirect(w, r, opts.withSuccessPath, http.StatusFound)
	}, nil
}
