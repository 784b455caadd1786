package storage

import "context"

// Strategy names accepted by the storage_strategy option
const (
	StrategyMemory = "memory"
	StrategyBolt   = "bolt"
)

// Backend is the local persistence collaborator of the engine
type Backend interface {
	RecordStorage
	PendingStorage
	MetadataStorage

	// ClearDataset removes records, pending changes and metadata of a dataset
	ClearDataset(ctx context.Context, dataset string) error

	// Close releases the underlying resources
	Close() error
}
