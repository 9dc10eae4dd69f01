// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
)

var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrNilParameter         = errors.New("nil parameter")
	ErrInvalidCACert        = errors.New("invalid CA certificate")
	ErrInvalidIssuer        = errors.New("invalid issuer")
	ErrDiscoveryFailed      = errors.New("provider discovery failed")
	ErrRefreshFailed        = errors.New("refresh token grant failed")
	ErrMissingAccessToken   = errors.New("access_token is missing")
	ErrMissingEndSession    = errors.New("end_session_endpoint is missing")
	ErrUserInfoFailed       = errors.New("user info failed")
	ErrUnsupportedOperation = errors.New("unsupported operation")
)
