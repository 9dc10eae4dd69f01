// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// oidcsession provides a collection of related packages which keep an OIDC
// relying party's user sessions usable: silent access token refresh and
// RP-initiated logout.
//
//   - oidc: the client for the relying party's provider
//   - session: the token lifecycle manager and the session codec
//   - logout: the logout coordinator
//   - handler: the net/http boundary
//
// See README.md
package oidcsession
