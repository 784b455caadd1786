package models

import "time"

// RemoteDataset is a dataset registered on the server
type RemoteDataset struct {
	CreatedAt time.Time
	Name      string
	// SyncFrequency is the client sync interval in seconds, as declared
	// by the client that registered the dataset
	SyncFrequency float64
}

// StoredRecord is a record held by the server
type StoredRecord struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Data      map[string]any
	Dataset   string
	UID       string
	Hash      string
}
