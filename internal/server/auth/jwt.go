// Package auth issues and verifies access tokens (HS256 JWT). Tokens carry
// a kid header naming the key that signed them so keys can be rotated:
// new tokens are signed with the current key while tokens signed with a
// previous key stay valid until they expire.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the registered claims plus the authenticated user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string
}

// KeyRing signs with one key and verifies with that key or any previous one.
type KeyRing struct {
	currentID string
	keys      map[string][]byte
}

// NewKeyRing builds a ring from the current signing key and retired keys.
func NewKeyRing(current []byte, previous ...[]byte) (*KeyRing, error) {
	if len(current) == 0 {
		return nil, errors.New("empty signing key")
	}

	r := &KeyRing{currentID: KeyID(current), keys: make(map[string][]byte, len(previous)+1)}
	r.keys[r.currentID] = current
	for _, k := range previous {
		if len(k) == 0 {
			continue
		}
		r.keys[KeyID(k)] = k
	}
	return r, nil
}

// KeyID is a short fingerprint of key, safe to expose in token headers.
func KeyID(key []byte) string {
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:8])
}

// GenerateToken returns a token for userID expiring after validityDuration.
func (r *KeyRing) GenerateToken(userID string, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: userID,
	})
	token.Header["kid"] = r.currentID

	return token.SignedString(r.keys[r.currentID])
}

// GetUserIDFromToken verifies tokenString and returns its user id.
// Expired tokens yield common.ErrTokenExpired, anything else that fails
// verification yields common.ErrInvalidToken.
func (r *KeyRing) GetUserIDFromToken(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, r.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.UserID, nil
}

func (r *KeyRing) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		// Tokens without kid are only checked against the current key.
		return r.keys[r.currentID], nil
	}
	key, ok := r.keys[kid]
	if !ok {
		return nil, common.ErrInvalidToken
	}
	return key, nil
}
