package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/survey-studio/backend/internal/models"
)

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Username: "alice", Role: models.RoleUser}
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 1)
	user := testUser()

	token, issued, err := svc.Generate(user)
	require.NoError(t, err)
	require.NotEmpty(t, issued.SessionID())

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, string(models.RoleUser), claims.Role)
	assert.Equal(t, issued.SessionID(), claims.SessionID())
}

func TestJWTService_SessionIDsDiffer(t *testing.T) {
	svc := NewJWTService("secret", 1)
	_, a, err := svc.Generate(testUser())
	require.NoError(t, err)
	_, b, err := svc.Generate(testUser())
	require.NoError(t, err)
	assert.NotEqual(t, a.SessionID(), b.SessionID())
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService("secret", 1)
	token, _, err := svc.Generate(testUser())
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewJWTService("other", 1).Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewJWTService("secret", 1)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Validate("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: uuid.New()})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Validate(s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
