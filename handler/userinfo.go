// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/oidcsession/oidc"
)

// UserInfoer defines the provider capabilities the UserInfo handler depends
// on.  *oidc.Provider satisfies it.
type UserInfoer interface {
	Discover(ctx context.Context) (*oidc.Metadata, error)
	UserInfo(ctx context.Context, m *oidc.Metadata, accessToken string, claims interface{}) error
}

// UserInfo creates a handler which replies with the provider's userinfo claims
// for the request's session.  It must be wrapped by Sessions.Middleware.
//
// Supported options:
//   - WithLogger
func UserInfo(p UserInfoer, opt ...Option) (http.HandlerFunc, error) {
	const op = "handler.UserInfo"
	if p == nil {
		return nil, fmt.Errorf("%s: provider is nil: %w", op, ErrNilParameter)
	}
	opts := getHandlerOpts(opt...)
	logger := opts.withLogger

	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := FromContext(r.Context())
		if !ok || !s.Authenticated() {
			writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		md, err := p.Discover(r.Context())
		if err != nil {
			logger.Error("unable to discover provider", "op", op, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "Failed to fetch user info")
			return
		}
		var claims map[string]interface{}
		if err := p.UserInfo(r.Context(), md, s.AccessToken, &claims); err != nil {
			logger.Error("unable to fetch user info", "op", op, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "Failed to fetch user info")
			return
		}
		writeJSON(w, http.StatusOK, claims)
	}, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, statusCode int, msg string) {
	writeJSON(w, statusCode, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_, _ = w.Write(b)
}
