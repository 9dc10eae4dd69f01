// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

// MinSecretLength is the minimum length of a Codec secret.
const MinSecretLength = 32

const (
	hkdfInfo      = "oidcsession encryption key"
	encryptionKey = 32
)

// Codec encodes a TokenSet into an opaque, encrypted session value and decodes
// it again.  Encoded sessions are compact JWEs using direct encryption with
// A256GCM, so the tokens are never readable by the user agent.
type Codec struct {
	key       []byte
	maxAge    time.Duration
	issuer    string
	encrypter jose.Encrypter
	nowFunc   func() time.Time
}

// sessionClaims are the private claims of an encoded session.
type sessionClaims struct {
	Tokens TokenSet `json:"tokens"`
}

// NewCodec creates a new Codec.  The encryption key is derived from secret
// with HKDF-SHA256, and every encoded session expires maxAge after it was
// encoded.
//
// Supported options:
//   - WithNow
//   - WithIssuer
func NewCodec(secret []byte, maxAge time.Duration, opt ...Option) (*Codec, error) {
	const op = "session.NewCodec"
	switch {
	case len(secret) < MinSecretLength:
		return nil, fmt.Errorf("%s: secret must be at least %d bytes: %w", op, MinSecretLength, ErrInvalidParameter)
	case maxAge <= 0:
		return nil, fmt.Errorf("%s: max age must be greater than zero: %w", op, ErrInvalidParameter)
	}
	opts := getCodecOpts(opt...)

	key := make([]byte, encryptionKey)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("%s: unable to derive encryption key: %w", op, err)
	}
	enc, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: key},
		(&jose.EncrypterOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create encrypter: %w", op, err)
	}
	return &Codec{
		key:       key,
		maxAge:    maxAge,
		issuer:    opts.withIssuer,
		encrypter: enc,
		nowFunc:   opts.withNowFunc,
	}, nil
}

// MaxAge returns the lifetime of encoded sessions.
func (c *Codec) MaxAge() time.Duration {
	return c.maxAge
}

// Encode returns the encrypted session value for t.
func (c *Codec) Encode(t TokenSet) (string, error) {
	const op = "Codec.Encode"
	now := c.now()
	claims := jwt.Claims{
		Issuer:   c.issuer,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(c.maxAge)),
	}
	raw, err := jwt.Encrypted(c.encrypter).Claims(claims).Claims(sessionClaims{Tokens: t}).CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("%s: unable to encrypt session: %w", op, err)
	}
	return raw, nil
}

// Decode returns the TokenSet of an encoded session.  It returns
// ErrSessionExpired when the session is older than the Codec's max age and
// ErrInvalidSession when the value wasn't produced by this Codec.
func (c *Codec) Decode(raw string) (TokenSet, error) {
	const op = "Codec.Decode"
	if raw == "" {
		return TokenSet{}, fmt.Errorf("%s: session is empty: %w", op, ErrInvalidSession)
	}
	tok, err := jwt.ParseEncrypted(raw)
	if err != nil {
		return TokenSet{}, fmt.Errorf("%s: unable to parse session (%s): %w", op, err, ErrInvalidSession)
	}
	var (
		claims  jwt.Claims
		private sessionClaims
	)
	if err := tok.Claims(c.key, &claims, &private); err != nil {
		return TokenSet{}, fmt.Errorf("%s: unable to decrypt session (%s): %w", op, err, ErrInvalidSession)
	}
	err = claims.ValidateWithLeeway(jwt.Expected{Issuer: c.issuer, Time: c.now()}, 0)
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return TokenSet{}, fmt.Errorf("%s: %w", op, ErrSessionExpired)
	case err != nil:
		return TokenSet{}, fmt.Errorf("%s: invalid session claims (%s): %w", op, err, ErrInvalidSession)
	}
	return private.Tokens, nil
}

func (c *Codec) now() time.Time {
	if c.nowFunc != nil {
		return c.nowFunc()
	}
	return time.Now() // fallback to this default
}

// codecOptions is the set of available options for Codec functions
type codecOptions struct {
	withNowFunc func() time.Time
	withIssuer  string
}

// codecDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func codecDefaults() codecOptions {
	return codecOptions{}
}

// getCodecOpts gets the codec defaults and applies the opt overrides passed in.
func getCodecOpts(opt ...Option) codecOptions {
	opts := codecDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
