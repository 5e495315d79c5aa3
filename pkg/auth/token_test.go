package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/paprflow/paprflow-backend/pkg/config"
	"github.com/paprflow/paprflow-backend/pkg/enums"
)

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "paprflow-test", ExpirationMinutes: 15}
	userID := uuid.New()

	signed, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: userID,
		Role:   enums.UserRoleSupervisor,
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, signed)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, enums.UserRoleSupervisor, claims.Role)
	require.NotEmpty(t, claims.ID)
}

func TestMintRejectsInvalidRole(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "paprflow-test", ExpirationMinutes: 15}

	_, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRole("janitor"),
	})
	require.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	mintCfg := config.JWTConfig{Secret: "secret", Issuer: "other-service", ExpirationMinutes: 15}
	parseCfg := config.JWTConfig{Secret: "secret", Issuer: "paprflow-test", ExpirationMinutes: 15}

	signed, err := MintAccessToken(mintCfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleStaff,
	})
	require.NoError(t, err)

	_, err = ParseAccessToken(parseCfg, signed)
	require.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "paprflow-test", ExpirationMinutes: 1}

	signed, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleAdmin,
	})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, signed)
	require.Error(t, err)
}
