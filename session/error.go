// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")

	// ErrSessionExpired is returned for a session that can no longer be used
	// and requires the user to sign in again.
	ErrSessionExpired = errors.New("session expired, please sign in again")

	// ErrInvalidSession is returned when an encoded session can't be decoded.
	ErrInvalidSession = errors.New("invalid session")
)
