package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// deriveKey stretches an arbitrary secret into a 32 byte key
func deriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// Encrypt seals plaintext with XChaCha20-Poly1305 and returns base64(nonce || ciphertext).
// An empty plaintext stays empty.
func Encrypt(plaintext, secret string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	if secret == "" {
		return "", errors.New("encryption key is not configured")
	}

	aead, err := chacha20poly1305.NewX(deriveKey(secret))
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt
func Decrypt(encoded, secret string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	if secret == "" {
		return "", errors.New("encryption key is not configured")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	aead, err := chacha20poly1305.NewX(deriveKey(secret))
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plaintext), nil
}
