// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
session keeps a relying party's OIDC tokens usable for the life of a user's
session.

A Manager seeds a TokenSet at sign in and reconciles it on every request:
an unexpired TokenSet is returned as is, otherwise its refresh token is
exchanged for a new access token.  When the refresh can't be done the
TokenSet is flagged with RefreshAccessTokenError and the user must sign in
again.

A Codec encrypts a TokenSet into an opaque session value for a cookie.
*/
package session
