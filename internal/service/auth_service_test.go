package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/talentsift/recruitex-backend/internal/config"
	"github.com/talentsift/recruitex-backend/internal/service"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	auth := newAuthService(t)

	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, auth.CheckPassword(hash, "s3cret"))
	require.ErrorIs(t, auth.CheckPassword(hash, "wrong"), service.ErrInvalidCredentials)
}

func TestStudentTokenCarriesClaims(t *testing.T) {
	auth := newAuthService(t)
	studentID := uuid.New()

	token, err := auth.GenerateStudentToken(context.Background(), studentID)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, service.TokenTypeStudent, claims.TokenType)
	require.Equal(t, studentID, claims.StudentID)
	require.NotEmpty(t, claims.ID)

	require.NoError(t, auth.ValidateStudentSession(context.Background(), studentID, claims.ID))
}

func TestSecondLoginRejectedWhileSessionActive(t *testing.T) {
	auth := newAuthService(t)
	studentID := uuid.New()

	_, err := auth.GenerateStudentToken(context.Background(), studentID)
	require.NoError(t, err)

	_, err = auth.GenerateStudentToken(context.Background(), studentID)
	require.ErrorIs(t, err, service.ErrSessionAlreadyActive)
}

func TestResetAllowsNewLoginAndInvalidatesOldToken(t *testing.T) {
	auth := newAuthService(t)
	studentID := uuid.New()

	first, err := auth.GenerateStudentToken(context.Background(), studentID)
	require.NoError(t, err)
	firstClaims, err := auth.ValidateToken(first)
	require.NoError(t, err)

	require.NoError(t, auth.ResetStudentSession(context.Background(), studentID))

	second, err := auth.GenerateStudentToken(context.Background(), studentID)
	require.NoError(t, err)
	secondClaims, err := auth.ValidateToken(second)
	require.NoError(t, err)

	// The old token still parses but its session is gone.
	require.Error(t, auth.ValidateStudentSession(context.Background(), studentID, firstClaims.ID))
	require.NoError(t, auth.ValidateStudentSession(context.Background(), studentID, secondClaims.ID))
}

func TestAdminTokenValidates(t *testing.T) {
	auth := newAuthService(t)

	token, err := auth.GenerateAdminToken(7)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, service.TokenTypeAdmin, claims.TokenType)
	require.Equal(t, 7, claims.AdminID)
}

func TestValidateTokenRejectsForgedSignature(t *testing.T) {
	auth := newAuthService(t)
	other := service.NewAuthService(&config.Config{
		JWTSecret:  "a-different-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, nil)

	token, err := other.GenerateAdminToken(1)
	require.NoError(t, err)

	_, err = auth.ValidateToken(token)
	require.Error(t, err)
}

// ─── Helpers ───

func newAuthService(t *testing.T) *service.AuthService {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
	return service.NewAuthService(cfg, rdb)
}
