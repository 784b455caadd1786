// Package store holds the local copy of one dataset: records keyed by UID,
// written through to the persistence backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/datasync/internal/client/storage"
	"github.com/iudanet/datasync/internal/crypto"
	"github.com/iudanet/datasync/internal/models"
)

// ErrUnknownUID is returned for keys that are not in the local store
var ErrUnknownUID = errors.New("unknown_uid")

// Store is the local record store of one dataset.
// Store is not safe for concurrent use; dataset.Dataset serializes access.
type Store struct {
	backend storage.RecordStorage
	index   *UIDIndex
	records map[string]*models.Record
	// aliases maps the local ref of a confirmed record to its remote UID
	aliases map[string]string
	dataset string
}

// New creates a store for dataset
func New(dataset string, backend storage.RecordStorage, index *UIDIndex) *Store {
	return &Store{
		backend: backend,
		index:   index,
		records: make(map[string]*models.Record),
		aliases: make(map[string]string),
		dataset: dataset,
	}
}

// Load replaces the in-memory state with the persisted records and returns
// how many were loaded.
func (s *Store) Load(ctx context.Context) (int, error) {
	records, err := s.backend.ListRecords(ctx, s.dataset)
	if err != nil {
		return 0, fmt.Errorf("failed to load records: %w", err)
	}

	s.records = make(map[string]*models.Record, len(records))
	for _, rec := range records {
		if rec.Hash == "" {
			if rec.Hash, err = crypto.HashData(rec.Data); err != nil {
				return 0, fmt.Errorf("record %s: %w", rec.Key(), err)
			}
		}
		s.records[rec.Key()] = rec
		s.index.Track(rec.Hash, rec.Key())
	}

	return len(records), nil
}

// Resolve maps a local ref of a confirmed record to its remote UID.
// Any other key is returned unchanged.
func (s *Store) Resolve(key string) string {
	if uid, ok := s.aliases[key]; ok {
		return uid
	}
	return key
}

// NewLocalRef returns the key for a record created with content hash.
// The hash itself is used unless another record already holds that key.
func (s *Store) NewLocalRef(hash string, taken func(string) bool) string {
	ref := hash
	for s.Has(ref) || (taken != nil && taken(ref)) {
		ref = hash + "-" + uuid.NewString()[:8]
	}
	return ref
}

// Put inserts or overwrites rec under rec.Key(). The hash is computed when
// absent. Memory is only changed after the backend accepted the write.
func (s *Store) Put(ctx context.Context, rec *models.Record) error {
	if rec.UID.IsZero() {
		return fmt.Errorf("record without uid")
	}

	stored := rec.Clone()
	if stored.Hash == "" {
		hash, err := crypto.HashData(stored.Data)
		if err != nil {
			return fmt.Errorf("failed to hash record: %w", err)
		}
		stored.Hash = hash
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now()
	}

	if err := s.backend.SaveRecord(ctx, s.dataset, stored); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	s.records[stored.Key()] = stored
	s.index.Track(stored.Hash, stored.Key())
	return nil
}

// Get returns a copy of the record stored under key
func (s *Store) Get(key string) (*models.Record, error) {
	rec, ok := s.records[s.Resolve(key)]
	if !ok {
		return nil, ErrUnknownUID
	}
	return rec.Clone(), nil
}

// ListAll returns a deep copy of all records keyed by UID
func (s *Store) ListAll() map[string]*models.Record {
	out := make(map[string]*models.Record, len(s.records))
	for key, rec := range s.records {
		out[key] = rec.Clone()
	}
	return out
}

// Remove deletes the record stored under key
func (s *Store) Remove(ctx context.Context, key string) error {
	key = s.Resolve(key)
	if _, ok := s.records[key]; !ok {
		return ErrUnknownUID
	}

	if err := s.backend.DeleteRecord(ctx, s.dataset, key); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	delete(s.records, key)
	for alias, target := range s.aliases {
		if target == key {
			delete(s.aliases, alias)
		}
	}
	return nil
}

// Rekey moves the record stored under a local ref to the remote UID
// assigned on confirmation. The local ref stays usable as an alias.
func (s *Store) Rekey(ctx context.Context, localRef, remoteUID string) (*models.Record, error) {
	rec, ok := s.records[localRef]
	if !ok {
		return nil, ErrUnknownUID
	}

	confirmed := rec.Clone()
	confirmed.UID = models.ConfirmedUID(remoteUID)

	if err := s.backend.ReplaceRecord(ctx, s.dataset, localRef, confirmed); err != nil {
		return nil, fmt.Errorf("failed to rekey record: %w", err)
	}

	delete(s.records, localRef)
	s.records[remoteUID] = confirmed
	if localRef != remoteUID {
		s.aliases[localRef] = remoteUID
	}
	s.index.Track(confirmed.Hash, remoteUID)
	s.index.Track(localRef, remoteUID)
	return confirmed.Clone(), nil
}

// Aliases returns the local refs that resolve to key
func (s *Store) Aliases(key string) []string {
	var out []string
	for alias, target := range s.aliases {
		if target == key {
			out = append(out, alias)
		}
	}
	return out
}

// Restore puts back a removed record together with its aliases
func (s *Store) Restore(ctx context.Context, rec *models.Record, aliases []string) error {
	if err := s.Put(ctx, rec); err != nil {
		return err
	}
	for _, alias := range aliases {
		s.aliases[alias] = rec.Key()
	}
	return nil
}

// Has reports whether key (or an alias of it) is stored
func (s *Store) Has(key string) bool {
	_, ok := s.records[s.Resolve(key)]
	return ok
}

// Len returns the number of records
func (s *Store) Len() int {
	return len(s.records)
}
