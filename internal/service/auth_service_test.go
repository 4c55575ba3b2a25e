package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/chulseok-go-api/internal/dto"
	"github.com/noah-isme/chulseok-go-api/internal/models"
)

func newTestAuthService(t *testing.T, env *testEnv) *authService {
	t.Helper()

	svc, ok := NewAuthService(env.users, "test-secret", 30*time.Minute, env.logger).(*authService)
	require.True(t, ok)

	return svc
}

func TestAuthServiceLogin(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestAuthService(t, env)
	env.seedStudent(t, "10101", "김철수", "1", "1", 1)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{UserID: "10101", Password: "10101"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, "bearer", resp.TokenType)
	require.Equal(t, "student", resp.Role)
	require.Equal(t, "김철수", resp.Name)
}

func TestAuthServiceLoginInvalidCredentials(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestAuthService(t, env)
	env.seedStudent(t, "10101", "김철수", "1", "1", 1)

	_, err := svc.Login(context.Background(), dto.LoginRequest{UserID: "10101", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{UserID: "nobody", Password: "10101"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthServiceResolveToken(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestAuthService(t, env)
	user, _ := env.seedStudent(t, "10101", "김철수", "1", "1", 1)

	token, err := svc.IssueToken(user)
	require.NoError(t, err)

	resolved, err := svc.ResolveToken(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, user.ID, resolved.ID)
	require.Equal(t, models.RoleStudent, resolved.Role)
}

func TestAuthServiceResolveTokenRejectsGarbage(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestAuthService(t, env)

	_, err := svc.ResolveToken(context.Background(), "not-a-token")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthServiceResolveTokenRejectsWrongSecret(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestAuthService(t, env)
	user, _ := env.seedStudent(t, "10101", "김철수", "1", "1", 1)

	other, ok := NewAuthService(env.users, "other-secret", 30*time.Minute, env.logger).(*authService)
	require.True(t, ok)
	token, err := other.IssueToken(user)
	require.NoError(t, err)

	_, err = svc.ResolveToken(context.Background(), token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthServiceResolveTokenRejectsExpired(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestAuthService(t, env)
	user, _ := env.seedStudent(t, "10101", "김철수", "1", "1", 1)

	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := svc.IssueToken(user)
	require.NoError(t, err)

	_, err = svc.ResolveToken(context.Background(), token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthServiceResolveTokenRejectsDeletedUser(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestAuthService(t, env)
	user, _ := env.seedStudent(t, "10101", "김철수", "1", "1", 1)

	token, err := svc.IssueToken(user)
	require.NoError(t, err)

	require.NoError(t, env.db.Delete(&models.User{}, user.ID).Error)

	_, err = svc.ResolveToken(context.Background(), token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthServiceEnsureAdmin(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestAuthService(t, env)

	require.NoError(t, svc.EnsureAdmin(context.Background()))

	admin, err := svc.Authenticate(context.Background(), "A0001", "admin1234")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, admin.Role)
	require.Equal(t, "관리자", admin.Name)

	// A second boot must not reset the stored credentials.
	require.NoError(t, env.db.Model(&models.User{}).
		Where("external_id = ?", "A0001").
		Update("password_hash", hashPassword(t, "rotated")).Error)
	require.NoError(t, svc.EnsureAdmin(context.Background()))

	_, err = svc.Authenticate(context.Background(), "A0001", "rotated")
	require.NoError(t, err)
}
