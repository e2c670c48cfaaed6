package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hostrate/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTSigner_RequiresSecret(t *testing.T) {
	s, err := NewJWTSigner("   ", time.Hour, "hostrate")
	require.ErrorIs(t, err, ErrMissingSecret)
	assert.Nil(t, s)
}

func TestJWTSigner_SignAndVerify(t *testing.T) {
	s, err := NewJWTSigner("k", time.Hour, "hostrate")
	require.NoError(t, err)

	token, err := s.Sign(types.Host{ID: 42, Email: "a@x.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	who, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 42, who.HostID)
}

func TestJWTSigner_SignRejectsUnsavedHost(t *testing.T) {
	s, err := NewJWTSigner("k", time.Hour, "")
	require.NoError(t, err)

	_, err = s.Sign(types.Host{})
	require.Error(t, err)
}

func TestJWTSigner_VerifyFailures(t *testing.T) {
	signer, err := NewJWTSigner("k", time.Minute, "hostrate")
	require.NoError(t, err)
	valid, err := signer.Sign(types.Host{ID: 1})
	require.NoError(t, err)

	other, err := NewJWTSigner("other", time.Minute, "hostrate")
	require.NoError(t, err)
	foreign, err := other.Sign(types.Host{ID: 1})
	require.NoError(t, err)

	expiredSigner, err := NewJWTSigner("k", time.Minute, "hostrate")
	require.NoError(t, err)
	expiredSigner.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredSigner.Sign(types.Host{ID: 1})
	require.NoError(t, err)

	wrongIssuer, err := NewJWTSigner("k", time.Minute, "someone-else")
	require.NoError(t, err)
	misissued, err := wrongIssuer.Sign(types.Host{ID: 1})
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "1", Issuer: "hostrate"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "abc",
		Issuer:    "hostrate",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "tampered", token: valid + "x"},
		{name: "wrong secret", token: foreign},
		{name: "expired", token: expired},
		{name: "wrong issuer", token: misissued},
		{name: "alg none", token: unsigned},
		{name: "non numeric subject", token: badSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := signer.Verify(tt.token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
