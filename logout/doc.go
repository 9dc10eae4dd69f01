// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
logout performs OIDC RP-initiated logout.

A Coordinator builds the redirect to the provider's end_session_endpoint with
an id_token_hint, the post-logout redirect URL and a fresh state, and later
validates the state the provider returns on the post-logout callback.  The
CookiePolicy describes the cookie which stores the state in between.

See: https://openid.net/specs/openid-connect-rpinitiated-1_0.html
*/
package logout
