package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// NonceSize - размер nonce для AES-GCM (12 bytes стандартный размер)
const NonceSize = 12

// Sealer encrypts and authenticates values with AES-256-GCM.
// Sealed format: nonce (12 bytes) + ciphertext + auth_tag (16 bytes).
// A Sealer is safe for concurrent use.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer creates a Sealer for a 32-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// Seal шифрует значение. additional (например, ключ bbolt) привязывается
// к шифротексту, поэтому значение нельзя переставить под другой ключ.
func (s *Sealer) Seal(plaintext, additional []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return s.aead.Seal(nonce, nonce, plaintext, additional), nil
}

// Open проверяет и расшифровывает значение, созданное Seal.
func (s *Sealer) Open(sealed, additional []byte) ([]byte, error) {
	if len(sealed) < NonceSize+s.aead.Overhead() {
		return nil, fmt.Errorf("encrypted data too short")
	}

	nonce, ciphertext := sealed[:NonceSize], sealed[NonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, additional)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: authentication failed or corrupted data: %w", err)
	}

	return plaintext, nil
}
