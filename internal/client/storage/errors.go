package storage

import "errors"

// Common client storage errors
var (
	// ErrRecordNotFound indicates that record was not found
	ErrRecordNotFound = errors.New("record not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrPassphraseRequired indicates that the storage file is encrypted
	// and was opened without a passphrase
	ErrPassphraseRequired = errors.New("storage is encrypted: passphrase required")

	// ErrWrongPassphrase indicates that the passphrase does not open the storage
	ErrWrongPassphrase = errors.New("wrong storage passphrase")
)
