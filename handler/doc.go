// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
handler provides the net/http boundary of a relying party's sessions.

Sessions.Middleware keeps each request's session reconciled; Logout and
LogoutCallback implement RP-initiated logout; LogoutSuccess and LogoutError
are the pages shown once it completes; UserInfo replies with the session's
userinfo claims.

Handlers which read the session must be wrapped by Sessions.Middleware.
*/
package handler
