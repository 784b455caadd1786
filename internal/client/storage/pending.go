package storage

import (
	"context"

	"github.com/iudanet/datasync/internal/models"
)

//go:generate moq -out pendingstorage_mock.go . PendingStorage

// PendingStorage defines interface for persisting the pending change log
type PendingStorage interface {
	// SavePending stores or overwrites a change under its Seq
	SavePending(ctx context.Context, dataset string, change *models.PendingChange) error

	// DeletePending removes a change by Seq. Deleting a missing change is not an error.
	DeletePending(ctx context.Context, dataset string, seq uint64) error

	// ListPending returns all changes of the dataset ordered by Seq
	ListPending(ctx context.Context, dataset string) ([]*models.PendingChange, error)
}
