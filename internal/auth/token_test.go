package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusshare/campusshare/internal/model"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testUser() *model.User {
	return &model.User{ID: "01HZY3J1V0USER000000000000", Username: "alice"}
}

func TestTokenManager_MintParse(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("campusshare", "campusshare-api", testSecret, time.Hour)

	issued, err := m.Mint(testUser())
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.NotEmpty(t, issued.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 5*time.Second)

	claims, err := m.Parse(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "01HZY3J1V0USER000000000000", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, issued.TokenID, claims.ID)

	p := claims.Principal()
	assert.Equal(t, claims.UserID, p.UserID)
	assert.Equal(t, issued.TokenID, p.TokenID)
	assert.Equal(t, issued.ExpiresAt.Unix(), p.ExpiresAt.Unix())
}

func TestTokenManager_UniqueTokenIDs(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("campusshare", "campusshare-api", testSecret, time.Hour)
	a, err := m.Mint(testUser())
	require.NoError(t, err)
	b, err := m.Mint(testUser())
	require.NoError(t, err)

	assert.NotEqual(t, a.TokenID, b.TokenID)
}

func TestTokenManager_Expired(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("campusshare", "campusshare-api", testSecret, time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	issued, err := m.Mint(testUser())
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(issued.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenManager_Rejects(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("campusshare", "campusshare-api", testSecret, time.Hour)

	otherSecret := NewTokenManager("campusshare", "campusshare-api", "another-secret-another-secret-xx", time.Hour)
	otherIssuer := NewTokenManager("someone-else", "campusshare-api", testSecret, time.Hour)
	otherAudience := NewTokenManager("campusshare", "other-api", testSecret, time.Hour)

	tokenFrom := func(tm *TokenManager) string {
		issued, err := tm.Mint(testUser())
		require.NoError(t, err)
		return issued.Token
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"uid": "x", "jti": "y", "iss": "campusshare", "aud": "campusshare-api",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":        "not.a.token",
		"empty":          "",
		"wrong secret":   tokenFrom(otherSecret),
		"wrong issuer":   tokenFrom(otherIssuer),
		"wrong audience": tokenFrom(otherAudience),
		"alg none":       noneToken,
	}

	for name, token := range tests {
		token := token
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := m.Parse(token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Nil(t, PrincipalFromContext(ctx))
	assert.Empty(t, UserIDFromContext(ctx))

	ctx = ContextWithPrincipal(ctx, &model.Principal{UserID: "u1", Username: "alice"})
	require.NotNil(t, PrincipalFromContext(ctx))
	assert.Equal(t, "u1", UserIDFromContext(ctx))
}
