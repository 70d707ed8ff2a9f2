package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-sim/internal/config"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	user := &User{ID: 42, Username: "validuser", IsAdmin: true}

	token, err := GenerateJWT(user, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))

	userID, ok, isAdmin := ValidateJWT(token)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), userID)
	assert.True(t, isAdmin)

	claims, err := ParseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "validuser", claims.Username)
}

func TestValidateInvalidJWT(t *testing.T) {
	for _, tok := range []string{
		"invalid.token.here",
		"",
		"not.a.jwt",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
	} {
		userID, ok, isAdmin := ValidateJWT(tok)
		assert.False(t, ok, tok)
		assert.Zero(t, userID)
		assert.False(t, isAdmin)

		_, err := ParseJWT(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestExpiredJWT(t *testing.T) {
	claims := &Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			Issuer:    issuer,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret())
	require.NoError(t, err)

	_, err = ParseJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSecretRotationInvalidatesTokens(t *testing.T) {
	token, err := GenerateJWT(&User{ID: 7}, 0)
	require.NoError(t, err)

	s, err := GenerateSecureSecret()
	require.NoError(t, err)
	require.NoError(t, Configure(config.AuthConfig{JWTSecret: s}))

	_, ok, _ := ValidateJWT(token)
	assert.False(t, ok, "Токен подписан старым ключом")
}

func TestSetJWTSecret(t *testing.T) {
	s1, err := GenerateSecureSecret()
	require.NoError(t, err)
	s2, err := GenerateSecureSecret()
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)
	assert.NoError(t, SetJWTSecret(s1))

	assert.ErrorIs(t, SetJWTSecret("dG9vLXNob3J0"), ErrWeakSecret)
	assert.Error(t, SetJWTSecret("invalid-base64-@#$%"))
	assert.Error(t, SetJWTSecret(""))

	assert.NoError(t, Configure(config.AuthConfig{}), "Пустой секрет допустим")
}
