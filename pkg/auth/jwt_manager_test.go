package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	req := require.New(t)
	mgr := NewJWTManager("secret", time.Hour)

	userID := uuid.NewString()
	token, err := mgr.Generate(userID)
	req.NoError(err)

	claims, err := mgr.Verify(token)
	req.NoError(err)
	req.Equal(userID, claims.Subject)
	req.NotEmpty(claims.ID)

	// Каждый токен — отдельная сессия
	second, err := mgr.Generate(userID)
	req.NoError(err)
	secondClaims, err := mgr.Verify(second)
	req.NoError(err)
	req.NotEqual(claims.ID, secondClaims.ID)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	req := require.New(t)
	mgr := NewJWTManager("secret", time.Hour)

	token, err := mgr.Generate(uuid.NewString())
	req.NoError(err)

	_, err = NewJWTManager("other", time.Hour).Verify(token)
	req.Error(err)
}

func TestJWTManager_Expired(t *testing.T) {
	req := require.New(t)
	mgr := NewJWTManager("secret", -time.Minute)

	token, err := mgr.Generate(uuid.NewString())
	req.NoError(err)

	_, err = mgr.Verify(token)
	req.Error(err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	req := require.New(t)

	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc")
	token, err := ExtractTokenFromHeader(r)
	req.NoError(err)
	req.Equal("abc", token)

	r.Header.Set("Authorization", "bearer abc")
	token, err = ExtractTokenFromHeader(r)
	req.NoError(err)
	req.Equal("abc", token)

	r.Header.Set("Authorization", "abc")
	_, err = ExtractTokenFromHeader(r)
	req.Error(err)

	r.Header.Del("Authorization")
	_, err = ExtractTokenFromHeader(r)
	req.Error(err)
}
