package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_GenerateAndValidate(t *testing.T) {
	svc := New("test-secret", time.Hour)

	token, err := svc.GenerateToken("ops@growly.io", RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "ops@growly.io", claims.Subject)
}

func TestService_ValidateToken_WrongSecret(t *testing.T) {
	token, err := New("secret-a", time.Hour).GenerateToken("ops", RoleAdmin)
	require.NoError(t, err)

	_, err = New("secret-b", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ValidateToken_Expired(t *testing.T) {
	svc := New("secret", time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := svc.GenerateToken("ops", RoleAdmin)
	require.NoError(t, err)

	_, err = New("secret", time.Minute).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{Role: RoleAdmin}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = New("secret", time.Hour).ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
