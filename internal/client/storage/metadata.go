package storage

import (
	"context"
	"time"
)

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage defines interface for storing per-dataset sync metadata
type MetadataStorage interface {
	// SaveLastSync saves the time of the last completed sync cycle
	SaveLastSync(ctx context.Context, dataset string, at time.Time) error

	// GetLastSync retrieves the time of the last completed sync cycle
	// Returns zero time if no sync has been performed yet
	GetLastSync(ctx context.Context, dataset string) (time.Time, error)
}
