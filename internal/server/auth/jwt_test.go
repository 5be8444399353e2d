package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRing(t *testing.T, current string, previous ...string) *KeyRing {
	t.Helper()
	prev := make([][]byte, 0, len(previous))
	for _, p := range previous {
		prev = append(prev, []byte(p))
	}
	r, err := NewKeyRing([]byte(current), prev...)
	require.NoError(t, err)
	return r
}

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	r := mustRing(t, "super-secret-key-1")

	tok, err := r.GenerateToken("user-123", time.Hour)
	require.NoError(t, err)

	got, err := r.GetUserIDFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", got)
}

func TestGetUserIDFromToken_Expired(t *testing.T) {
	t.Parallel()

	r := mustRing(t, "secret-secret-secret")

	tok, err := r.GenerateToken("u1", -1*time.Second)
	require.NoError(t, err)

	_, err = r.GetUserIDFromToken(tok)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestGetUserIDFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := mustRing(t, "right-secret-key").GenerateToken("u2", time.Hour)
	require.NoError(t, err)

	_, err = mustRing(t, "wrong-secret-key").GetUserIDFromToken(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestGetUserIDFromToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := mustRing(t, "k").GetUserIDFromToken("not.a.jwt")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestKeyRotation(t *testing.T) {
	t.Parallel()

	oldRing := mustRing(t, "old-signing-key")
	oldTok, err := oldRing.GenerateToken("u3", time.Hour)
	require.NoError(t, err)

	rotated := mustRing(t, "new-signing-key", "old-signing-key")

	got, err := rotated.GetUserIDFromToken(oldTok)
	require.NoError(t, err, "tokens signed with a previous key stay valid")
	assert.Equal(t, "u3", got)

	newTok, err := rotated.GenerateToken("u3", time.Hour)
	require.NoError(t, err)

	_, err = oldRing.GetUserIDFromToken(newTok)
	assert.ErrorIs(t, err, common.ErrInvalidToken, "old ring does not know the new key")

	dropped := mustRing(t, "new-signing-key")
	_, err = dropped.GetUserIDFromToken(oldTok)
	assert.ErrorIs(t, err, common.ErrInvalidToken, "retired key removed from ring")
}

func TestGeneratedTokenCarriesKid(t *testing.T) {
	t.Parallel()

	r := mustRing(t, "kid-key")
	tok, err := r.GenerateToken("u4", time.Hour)
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(tok, &Claims{})
	require.NoError(t, err)
	assert.Equal(t, KeyID([]byte("kid-key")), parsed.Header["kid"])
}

func TestRejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u5"})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = mustRing(t, "k").GetUserIDFromToken(s)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestNewKeyRing_EmptyKey(t *testing.T) {
	t.Parallel()

	_, err := NewKeyRing(nil)
	assert.Error(t, err)
}
