package storage

import "errors"

// Common storage errors
var (
	// ErrRecordNotFound indicates that record was not found in the dataset
	ErrRecordNotFound = errors.New("record not found")

	// ErrDatasetNotFound indicates that dataset is not registered
	ErrDatasetNotFound = errors.New("dataset not found")
)
