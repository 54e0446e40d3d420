package auth

import (
	"testing"
	"time"

	"github.com/dkeye/farmrelay/internal/domain"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOpts = Options{Secret: []byte("test-secret")}

func TestVerify_Host(t *testing.T) {
	v, err := NewVerifier(testOpts)
	require.NoError(t, err)

	tok, err := Sign(testOpts, HostClaims("H1"), time.Hour)
	require.NoError(t, err)

	ident, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleHost, ident.Role)
	assert.Equal(t, "H1", ident.HostID)
}

func TestVerify_User(t *testing.T) {
	v, err := NewVerifier(testOpts)
	require.NoError(t, err)

	tok, err := Sign(testOpts, UserClaims("42", "ops@example.com"), 0)
	require.NoError(t, err)

	ident, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, ident.Role)
	assert.Equal(t, "42", ident.UserID)
	assert.Equal(t, "ops@example.com", ident.Email)
}

func TestVerify_NumericUserID(t *testing.T) {
	v, err := NewVerifier(testOpts)
	require.NoError(t, err)

	tok, err := Sign(testOpts, jwtlib.MapClaims{"id": 7, "email": "a@b.c"}, 0)
	require.NoError(t, err)

	ident, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "7", ident.UserID)
}

func TestVerify_Rejects(t *testing.T) {
	v, err := NewVerifier(testOpts)
	require.NoError(t, err)

	_, err = v.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := Sign(Options{Secret: []byte("other")}, HostClaims("H1"), time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	expired, err := Sign(testOpts, jwtlib.MapClaims{"hostId": "H1", "exp": time.Now().Add(-time.Hour).Unix()}, 0)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	wrongAlg, err := Sign(Options{Secret: testOpts.Secret, Alg: "HS512"}, HostClaims("H1"), time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(wrongAlg)
	assert.ErrorIs(t, err, ErrInvalidToken, "unexpected alg")

	emptyHost, err := Sign(testOpts, HostClaims(""), time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(emptyHost)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewVerifier_Validates(t *testing.T) {
	_, err := NewVerifier(Options{})
	assert.Error(t, err)
	_, err = NewVerifier(Options{Secret: []byte("x"), Alg: "RS256"})
	assert.Error(t, err)
}
