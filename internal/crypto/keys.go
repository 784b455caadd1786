package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id для ключа локального хранилища
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
	// KeySize - длина ключа AES-256 в байтах
	KeySize = 32
	// SaltSize - размер соли в байтах
	SaltSize = 32
)

// storageKeyContext separates the storage key from any other key that could be
// derived from the same passphrase.
var storageKeyContext = []byte("datasync/storage")

// GenerateSalt генерирует криптографически случайную соль
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveStorageKey derives the AES-256 key used to seal values of the local
// store from a passphrase and the per-file salt.
func DeriveStorageKey(passphrase string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
	}

	input := make([]byte, 0, len(passphrase)+len(storageKeyContext))
	input = append(input, passphrase...)
	input = append(input, storageKeyContext...)

	return argon2.IDKey(input, salt, Argon2Time, Argon2Memory, Argon2Threads, KeySize), nil
}
