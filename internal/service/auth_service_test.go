package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pe-portal-api/internal/models"
	appErrors "github.com/noah-isme/pe-portal-api/pkg/errors"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	svc, err := NewAuthService(AuthConfig{
		TeacherPassword:   "whistle",
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "pe-portal-api",
	}, nil, nil)
	require.NoError(t, err)
	return svc
}

func TestAuthLoginIssuesTeacherToken(t *testing.T) {
	svc := newTestAuthService(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Password: "whistle"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, resp.Role)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "teacher", claims.Subject)
}

func TestAuthLoginRejectsWrongPassword(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Password: "whistle "})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.Login(context.Background(), models.LoginRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthValidateTokenRejectsForeignIssuer(t *testing.T) {
	issuer := newTestAuthService(t)
	resp, err := issuer.Login(context.Background(), models.LoginRequest{Password: "whistle"})
	require.NoError(t, err)

	other, err := NewAuthService(AuthConfig{TeacherPassword: "x", AccessTokenSecret: "test-secret", Issuer: "someone-else"}, nil, nil)
	require.NoError(t, err)

	_, err = other.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = issuer.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthValidateTokenRejectsExpired(t *testing.T) {
	svc := newTestAuthService(t)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	resp, err := svc.Login(context.Background(), models.LoginRequest{Password: "whistle"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestNewAuthServiceRequiresPassword(t *testing.T) {
	_, err := NewAuthService(AuthConfig{AccessTokenSecret: "s"}, nil, nil)
	assert.Error(t, err)
}
