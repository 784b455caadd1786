package storage

import (
	"context"

	"github.com/iudanet/datasync/internal/models"
)

// DatasetStorage defines interface for dataset registration
type DatasetStorage interface {
	// RegisterDataset creates a dataset or updates its options
	RegisterDataset(ctx context.Context, ds *models.RemoteDataset) error

	// GetDataset retrieves a dataset by name
	// Returns ErrDatasetNotFound if dataset is not registered
	GetDataset(ctx context.Context, name string) (*models.RemoteDataset, error)

	// RemoveDataset deletes a dataset together with its records
	// Returns ErrDatasetNotFound if dataset is not registered
	RemoveDataset(ctx context.Context, name string) error
}

// RecordStorage defines interface for records persistence
type RecordStorage interface {
	// ListRecords returns all records of a dataset
	// Returns empty slice for unknown datasets
	ListRecords(ctx context.Context, dataset string) ([]*models.StoredRecord, error)

	// CreateRecord stores data under a new UID. The dataset is registered
	// implicitly if needed.
	CreateRecord(ctx context.Context, dataset string, data map[string]any) (*models.StoredRecord, error)

	// UpdateRecord overwrites data of an existing record
	// Returns ErrRecordNotFound if record doesn't exist
	UpdateRecord(ctx context.Context, dataset, uid string, data map[string]any) (*models.StoredRecord, error)

	// DeleteRecord removes a record
	// Returns ErrRecordNotFound if record doesn't exist
	DeleteRecord(ctx context.Context, dataset, uid string) error
}

// Storage combines all server storages
type Storage interface {
	DatasetStorage
	RecordStorage
	Close() error
}
