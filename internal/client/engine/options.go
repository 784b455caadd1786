package engine

import "time"

type datasetOptions struct {
	frequency time.Duration
	manual    bool
}

// DatasetOption configures a managed dataset
type DatasetOption func(*datasetOptions)

// WithSyncFrequency overrides the configured interval between cycles
func WithSyncFrequency(d time.Duration) DatasetOption {
	return func(o *datasetOptions) {
		if d > 0 {
			o.frequency = d
		}
	}
}

// WithManualSync manages the dataset without a timer: cycles, including
// the first one, only run on ForceSync or Sync.
func WithManualSync() DatasetOption {
	return func(o *datasetOptions) {
		o.manual = true
	}
}
