package storage

import (
	"context"

	"github.com/iudanet/datasync/internal/models"
)

//go:generate moq -out recordstorage_mock.go . RecordStorage

// RecordStorage defines interface for persisting dataset records on client
type RecordStorage interface {
	// SaveRecord stores or overwrites a record under rec.Key()
	SaveRecord(ctx context.Context, dataset string, rec *models.Record) error

	// ReplaceRecord removes oldKey and stores rec under rec.Key() atomically.
	// Used when the remote side confirms a locally created record.
	ReplaceRecord(ctx context.Context, dataset, oldKey string, rec *models.Record) error

	// GetRecord retrieves a record by key
	// Returns ErrRecordNotFound if record doesn't exist
	GetRecord(ctx context.Context, dataset, key string) (*models.Record, error)

	// ListRecords returns all records of the dataset
	ListRecords(ctx context.Context, dataset string) ([]*models.Record, error)

	// DeleteRecord removes a record. Deleting a missing record is not an error.
	DeleteRecord(ctx context.Context, dataset, key string) error
}
