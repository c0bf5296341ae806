package service_test

import (
	"testing"
	"time"

	"github.com/keilmann/allowance-tracker-go/internal/domain"
	"github.com/keilmann/allowance-tracker-go/internal/infra/cache"
	"github.com/keilmann/allowance-tracker-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) *service.AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("family-secret"), bcrypt.MinCost)
	require.NoError(t, err)
	sessions := cache.New[string](time.Hour)
	return service.NewAuthService("signing-key", 15*time.Minute, "parents", string(hash), sessions, zap.NewNop())
}

func TestAuthService_LoginAndVerify(t *testing.T) {
	svc := newAuthService(t)

	pair, err := svc.Login("parents", "family-secret")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	subject, err := svc.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "parents", subject)
}

func TestAuthService_LoginRejectsBadCredentials(t *testing.T) {
	svc := newAuthService(t)

	var unauthorized *domain.ErrUnauthorized

	_, err := svc.Login("parents", "wrong")
	require.ErrorAs(t, err, &unauthorized)

	_, err = svc.Login("stranger", "family-secret")
	require.ErrorAs(t, err, &unauthorized)
}

func TestAuthService_RefreshRotatesToken(t *testing.T) {
	svc := newAuthService(t)

	pair, err := svc.Login("parents", "family-secret")
	require.NoError(t, err)

	next, err := svc.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The old refresh token is revoked on use.
	var unauthorized *domain.ErrUnauthorized
	_, err = svc.Refresh(pair.RefreshToken)
	require.ErrorAs(t, err, &unauthorized)
}

func TestAuthService_LogoutRevokesSession(t *testing.T) {
	svc := newAuthService(t)

	pair, err := svc.Login("parents", "family-secret")
	require.NoError(t, err)

	svc.Logout(pair.RefreshToken)

	var unauthorized *domain.ErrUnauthorized
	_, err = svc.Refresh(pair.RefreshToken)
	require.ErrorAs(t, err, &unauthorized)
}

func TestAuthService_VerifyRejectsGarbage(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.VerifyAccessToken("not-a-token")
	var unauthorized *domain.ErrUnauthorized
	require.ErrorAs(t, err, &unauthorized)
}
