package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskshare/taskshare/internal/storage"
)

func newAuthFixture(t *testing.T) AuthService {
	t.Helper()
	return NewAuthService(
		zerolog.Nop(),
		storage.NewMemory(),
		"taskshare-test",
		[]byte("test-signing-key"),
		time.Minute,
	)
}

func TestRegisterAndLogin(t *testing.T) {
	auth := newAuthFixture(t)

	registered, err := auth.Register(context.Background(), RegisterParams{
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "correct horse battery staple",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, registered.Principal.ID)
	assert.NotEmpty(t, registered.AccessToken)

	loggedIn, err := auth.Login(context.Background(), LoginParams{
		Email:    "alice@example.com",
		Password: "correct horse battery staple",
	})
	require.NoError(t, err)
	assert.Equal(t, registered.Principal.ID, loggedIn.Principal.ID)

	claims, err := auth.ParseAccessToken(loggedIn.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.Principal.ID, claims.Subject)
	assert.Equal(t, "taskshare-test", claims.Issuer)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	auth := newAuthFixture(t)

	_, err := auth.Register(context.Background(), RegisterParams{
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "password-one",
	})
	require.NoError(t, err)

	_, err = auth.Register(context.Background(), RegisterParams{
		Email:    "alice@example.com",
		Name:     "Other Alice",
		Password: "password-two",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin_BadCredentials(t *testing.T) {
	auth := newAuthFixture(t)

	_, err := auth.Login(context.Background(), LoginParams{
		Email:    "ghost@example.com",
		Password: "whatever",
	})
	assert.ErrorIs(t, err, ErrPrincipalNotFound)

	_, err = auth.Register(context.Background(), RegisterParams{
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "right-password",
	})
	require.NoError(t, err)

	_, err = auth.Login(context.Background(), LoginParams{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestParseAccessToken_Invalid(t *testing.T) {
	auth := newAuthFixture(t)

	_, err := auth.ParseAccessToken("not-a-token")
	assert.Error(t, err)

	other := NewAuthService(
		zerolog.Nop(),
		storage.NewMemory(),
		"taskshare-test",
		[]byte("different-signing-key"),
		time.Minute,
	)
	result, err := other.Register(context.Background(), RegisterParams{
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "some-password",
	})
	require.NoError(t, err)

	// Signed with a different key: verification must fail.
	_, err = auth.ParseAccessToken(result.AccessToken)
	assert.Error(t, err)
}

func TestParseAccessToken_Strictness(t *testing.T) {
	auth := newAuthFixture(t)
	key := []byte("test-signing-key")

	// Correct key and issuer but no expiration claim: the token would
	// otherwise be valid forever.
	eternal := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:   "taskshare-test",
		Subject:  "u1",
		IssuedAt: jwt.NewNumericDate(time.Now()),
	})
	signed, err := eternal.SignedString(key)
	require.NoError(t, err)
	_, err = auth.ParseAccessToken(signed)
	assert.ErrorIs(t, err, jwt.ErrTokenRequiredClaimMissing)

	// Correct key, wrong issuer.
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "u1",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	signed, err = foreign.SignedString(key)
	require.NoError(t, err)
	_, err = auth.ParseAccessToken(signed)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	// alg=none is never acceptable.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    "taskshare-test",
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	signed, err = unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.ParseAccessToken(signed)
	assert.Error(t, err)
}
