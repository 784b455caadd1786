package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/datasync/internal/models"
)

//go:generate moq -out bridge_mock.go . RemoteBridge

var (
	// ErrRecordNotFound indicates that the remote side doesn't know the record
	ErrRecordNotFound = errors.New("remote record not found")

	// ErrRemoteUnreachable indicates a transport failure
	ErrRemoteUnreachable = errors.New("remote_unreachable")
)

// RemoteError is a non-success response of the remote side
type RemoteError struct {
	Op         string
	Message    string
	StatusCode int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: server error (%d): %s", e.Op, e.StatusCode, e.Message)
}

// DatasetOptions are sent when a dataset is registered remotely
type DatasetOptions struct {
	SyncFrequency float64
}

// RemoteResult is the remote identity of a created or updated record
type RemoteResult struct {
	UID  string
	Hash string
}

// RemoteBridge is the remote authoritative store as seen by the reconciler
type RemoteBridge interface {
	// RegisterDataset declares a dataset; registering twice is not an error
	RegisterDataset(ctx context.Context, name string, opts DatasetOptions) error

	// RemoveDataset drops a dataset and all its records
	RemoveDataset(ctx context.Context, name string) error

	// ListDataset returns the full current remote state keyed by UID
	ListDataset(ctx context.Context, name string) (map[string]models.RemoteRecord, error)

	// CreateRecord stores data and returns the UID assigned by the remote side
	CreateRecord(ctx context.Context, name string, data map[string]any) (*RemoteResult, error)

	// UpdateRecord overwrites a record. Returns ErrRecordNotFound for unknown UIDs.
	UpdateRecord(ctx context.Context, name, uid string, data map[string]any) (*RemoteResult, error)

	// DeleteRecord removes a record. Returns ErrRecordNotFound for unknown UIDs.
	DeleteRecord(ctx context.Context, name, uid string) error
}
