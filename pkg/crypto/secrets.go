// Package crypto encrypts the secrets ekaya-query reads from its environment,
// so a datasource password or JWT secret can be stored as an "enc:" value.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// EncryptedPrefix marks a value produced by SecretBox.Seal.
const EncryptedPrefix = "enc:"

var (
	// ErrInvalidKey is returned when the encryption key is empty.
	ErrInvalidKey = errors.New("invalid encryption key: must not be empty")
	// ErrDecryptionFailed is returned for malformed ciphertext or a wrong key.
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or wrong key")
	// ErrMissingKey is returned when an encrypted value is found but no key is configured.
	ErrMissingKey = errors.New("encrypted secret requires a credentials key")
)

// SecretBox seals secrets with AES-256-GCM.
type SecretBox struct {
	gcm cipher.AEAD
}

// NewSecretBox creates a box from a key string. A base64 value that decodes
// to exactly 32 bytes is used as the key; anything else is treated as a
// passphrase and hashed with SHA-256.
func NewSecretBox(keyInput string) (*SecretBox, error) {
	if keyInput == "" {
		return nil, ErrInvalidKey
	}

	var key []byte
	if decoded, err := base64.StdEncoding.DecodeString(keyInput); err == nil && len(decoded) == 32 {
		key = decoded
	} else {
		hash := sha256.Sum256([]byte(keyInput))
		key = hash[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &SecretBox{gcm: gcm}, nil
}

// Seal encrypts plaintext and returns "enc:" + base64(nonce || ciphertext || tag).
// The empty string stays empty.
func (b *SecretBox) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, b.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := b.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal. Values without the "enc:" prefix
// are returned unchanged.
func (b *SecretBox) Open(value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, EncryptedPrefix)
	if !ok {
		return value, nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrDecryptionFailed)
	}
	nonceSize := b.gcm.NonceSize()
	if len(data) < nonceSize+b.gcm.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := b.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryptionFailed)
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether value carries the "enc:" prefix.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EncryptedPrefix)
}

// Reveal decrypts value with key when it is encrypted and returns it
// unchanged otherwise.
func Reveal(value, key string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	if key == "" {
		return "", ErrMissingKey
	}
	box, err := NewSecretBox(key)
	if err != nil {
		return "", err
	}
	return box.Open(value)
}
