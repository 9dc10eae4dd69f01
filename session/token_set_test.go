// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestTokenSet_Expired(t *testing.T) {
	t.Parallel()
	ts := TokenSet{ExpiresAt: 1_000_000}
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "before", now: time.UnixMilli(999_999), want: false},
		{name: "at", now: time.UnixMilli(1_000_000), want: true},
		{name: "after", now: time.UnixMilli(1_000_001), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ts.Expired(tt.now))
		})
	}
	assert.True(t, TokenSet{}.Expired(time.Now()))
}

func TestTokenSet_Session(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	ts := TokenSet{IDToken: "idtok", AccessToken: "at", RefreshToken: "rt", ExpiresAt: 1}
	s := ts.Session()
	assert.Equal(Session{IDToken: "idtok", AccessToken: "at"}, s)
	assert.True(s.Authenticated())
	assert.True(ts.Authenticated())
	assert.NoError(s.Err())

	ts.Error = RefreshAccessTokenError
	s = ts.Session()
	assert.False(s.Authenticated())
	assert.False(ts.Authenticated())
	assert.Truef(errors.Is(s.Err(), ErrSessionExpired), "wanted \"%s\" but got \"%s\"", ErrSessionExpired, s.Err())

	assert.False(Session{}.Authenticated())
}

func TestTokenSet_String(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	ts := TokenSet{IDToken: "idtok", AccessToken: "secret-at", RefreshToken: "secret-rt", ExpiresAt: 1_700_000_000_000}
	for _, s := range []string{ts.String(), fmt.Sprintf("%v", ts), fmt.Sprintf("%#v", ts)} {
		assert.NotContains(s, "idtok")
		assert.NotContains(s, "secret-at")
		assert.NotContains(s, "secret-rt")
		assert.Contains(s, redacted)
		assert.Contains(s, "2023-11-14T22:13:20Z")
	}
	assert.Contains(TokenSet{}.String(), `RefreshToken: ""`)
}

func TestNewSignInEvent(t *testing.T) {
	t.Parallel()
	expiry := time.Unix(1_700_000_000, 0)
	tests := []struct {
		name      string
		token     *oauth2.Token
		want      SignInEvent
		wantErr   bool
		wantIsErr error
	}{
		{
			name: "valid",
			token: (&oauth2.Token{
				AccessToken:  "at",
				RefreshToken: "rt",
				Expiry:       expiry,
			}).WithExtra(map[string]interface{}{"id_token": "idtok"}),
			want: SignInEvent{IDToken: "idtok", AccessToken: "at", RefreshToken: "rt", ExpiresAt: 1_700_000_000},
		},
		{
			name:  "no-expiry-no-id-token",
			token: &oauth2.Token{AccessToken: "at"},
			want:  SignInEvent{AccessToken: "at"},
		},
		{
			name:      "nil-token",
			wantErr:   true,
			wantIsErr: ErrNilParameter,
		},
		{
			name:      "missing-access-token",
			token:     &oauth2.Token{RefreshToken: "rt"},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewSignInEvent(tt.token)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
}
