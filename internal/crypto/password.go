package crypto

import (
	"crypto/hmac"
	"crypto/rand"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 2
	argonMemory  = 32 * 1024 // 32 MB
	argonThreads = 2
	digestLen    = 32
	saltLen      = 16
)

// HashPassword derives an argon2id digest from password under a fresh random
// salt and returns salt||digest as a single blob suitable for storage.
func HashPassword(password string) []byte {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	digest := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, digestLen)
	out := make([]byte, saltLen+digestLen)
	copy(out[:saltLen], salt)
	copy(out[saltLen:], digest)
	return out
}

// VerifyPassword reports whether password matches a stored salt||digest blob.
// Comparison is constant-time.
func VerifyPassword(password string, stored []byte) bool {
	if len(stored) != saltLen+digestLen {
		return false
	}
	salt := stored[:saltLen]
	digest := stored[saltLen:]
	computed := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, digestLen)
	return hmac.Equal(digest, computed)
}
