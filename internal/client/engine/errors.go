package engine

import (
	"errors"

	"github.com/iudanet/datasync/internal/client/store"
)

var (
	// ErrUnknownDataset is returned by CRUD calls on datasets that are not managed
	ErrUnknownDataset = errors.New("unknown_dataset")

	// ErrUnknownUID is returned for records that are not in the local store
	ErrUnknownUID = store.ErrUnknownUID

	// ErrEngineClosed is returned after Close
	ErrEngineClosed = errors.New("engine is closed")

	// ErrDatasetCrashed is returned by ForceSync and Sync on a crashed
	// dataset; call Manage to resume it
	ErrDatasetCrashed = errors.New("dataset crashed")

	// ErrInvalidDatasetName is returned by Manage for names the server and
	// the local store cannot hold
	ErrInvalidDatasetName = errors.New("invalid dataset name")

	errStopped = errors.New("dataset sync stopped")
)
