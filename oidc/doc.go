// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
oidc is the relying party's client for its single OIDC provider.

Primary types provided by the package:

* Config: the configuration of the provider (issuer, client id/secret,
post-logout redirect URL, session max age, etc).  It's resolved once at
process start and validated.

* Provider: the client capabilities the session and logout packages depend on:
discovering the provider's metadata, exchanging refresh tokens for new tokens,
building the provider's end-session URL and requesting userinfo claims.

* Metadata: the provider metadata resolved via discovery.

* TestProvider: an in-process provider which makes writing tests much easier.
*/
package oidc
