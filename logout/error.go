// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package logout

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")

	// ErrNoValidSession is returned when a logout is requested without an
	// authenticated session having an id token.
	ErrNoValidSession = errors.New("no valid session")

	// ErrInvalidLogoutState is matched by every *StateError.
	ErrInvalidLogoutState = errors.New("invalid logout state")
)

// StateError is returned when a logout callback's state doesn't match the
// state stored when the logout was initiated.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return "invalid logout state: " + e.Reason
}

// Is returns true when target is ErrInvalidLogoutState.
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidLogoutState
}
