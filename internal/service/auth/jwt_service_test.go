package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soluna-labs/mirage-api/internal/config"
)

const testSecret = "test-secret-key-thats-long-enough-for-hmac"

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:                   testSecret,
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 10080,
	}
}

func TestNewJWTService_RejectsShortSecret(t *testing.T) {
	t.Parallel()

	cfg := testAuthConfig()
	cfg.JWTSecret = "too-short"

	_, err := NewJWTService(cfg)
	assert.Error(t, err)
}

func TestJWTService_AccessTokenRoundTrip(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()

	token, err := svc.GenerateToken(ctx, userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestJWTService_RefreshTokenRoundTrip(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()

	token, err := svc.GenerateRefreshToken(ctx, userID)
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "refresh", claims.TokenType)
}

func TestJWTService_RejectsWrongTokenType(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()

	access, err := svc.GenerateToken(ctx, userID)
	require.NoError(t, err)
	refresh, err := svc.GenerateRefreshToken(ctx, userID)
	require.NoError(t, err)

	// An access token is not accepted where a refresh token is expected,
	// and vice versa.
	_, err = svc.ValidateRefreshToken(ctx, access)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = svc.ValidateToken(ctx, refresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	issuedAt := time.Now().Add(-24 * time.Hour)

	issuer := &hmacJWTService{
		signingKey:           []byte(testSecret),
		tokenLifetime:        time.Hour,
		refreshTokenLifetime: time.Hour,
		timeFunc:             func() time.Time { return issuedAt },
		clockSkew:            2 * time.Minute,
	}

	token, err := issuer.GenerateToken(ctx, userID)
	require.NoError(t, err)

	validator := &hmacJWTService{
		signingKey:    []byte(testSecret),
		tokenLifetime: time.Hour,
		timeFunc:      time.Now,
		clockSkew:     2 * time.Minute,
	}

	_, err = validator.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_ClockSkewLeeway(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()

	issuer := &hmacJWTService{
		signingKey:    []byte(testSecret),
		tokenLifetime: time.Hour,
		timeFunc:      func() time.Time { return now },
		clockSkew:     2 * time.Minute,
	}

	token, err := issuer.GenerateToken(ctx, userID)
	require.NoError(t, err)

	// A validator running one minute past expiry still accepts the token
	// because it is within the configured skew.
	validator := &hmacJWTService{
		signingKey:    []byte(testSecret),
		tokenLifetime: time.Hour,
		timeFunc:      func() time.Time { return now.Add(time.Hour + time.Minute) },
		clockSkew:     2 * time.Minute,
	}

	_, err = validator.ValidateToken(ctx, token)
	assert.NoError(t, err)
}

func TestJWTService_RejectsTamperedToken(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	ctx := context.Background()
	token, err := svc.GenerateToken(ctx, uuid.New())
	require.NoError(t, err)

	// Sign-swap: a token signed with a different key must not validate.
	otherCfg := testAuthConfig()
	otherCfg.JWTSecret = "another-secret-key-thats-also-long-enough"
	other, err := NewJWTService(otherCfg)
	require.NoError(t, err)

	_, err = other.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken(ctx, token+"x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBcryptVerifier_Compare(t *testing.T) {
	t.Parallel()

	verifier := NewBcryptVerifier()

	// Precomputed bcrypt hash of "password".
	hashed := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	assert.NoError(t, verifier.Compare(hashed, "password"))
	assert.Error(t, verifier.Compare(hashed, "not-the-password"))
	assert.Error(t, verifier.Compare("not-a-hash", "password"))
}
