package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveKey(password, salt)
	key2 := DeriveKey(password, salt)

	assert.Equal(t, key1, key2)
	assert.Len(t, key1, 32)
}

func TestDeriveKey_DifferentInputs(t *testing.T) {
	password := []byte("secret-password")

	key1 := DeriveKey(password, []byte("salt-1"))
	key2 := DeriveKey(password, []byte("salt-2"))

	if bytes.Equal(key1, key2) {
		t.Errorf("expected different results for different salts, got same")
	}
}

func TestVerify(t *testing.T) {
	salt := []byte("0123456789abcdef0123456789abcdef")
	verifier := MakeVerifier(DeriveKey([]byte("hunter22"), salt))

	assert.True(t, Verify([]byte("hunter22"), salt, verifier))
	assert.False(t, Verify([]byte("hunter23"), salt, verifier))
	assert.False(t, Verify([]byte("hunter22"), []byte("other-salt"), verifier))
	assert.False(t, Verify([]byte("hunter22"), nil, verifier))
	assert.False(t, Verify([]byte("hunter22"), salt, nil))
}
