// Package memory implements the client storage interfaces in process memory.
// Nothing survives a restart; used by the memory storage strategy and in tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/iudanet/datasync/internal/client/storage"
	"github.com/iudanet/datasync/internal/models"
)

type dataset struct {
	records  map[string]*models.Record
	pending  map[uint64]*models.PendingChange
	lastSync time.Time
}

// Storage is an in-memory storage.Backend
type Storage struct {
	datasets map[string]*dataset
	mu       sync.RWMutex
	closed   bool
}

// New creates an empty in-memory storage
func New() *Storage {
	return &Storage{datasets: make(map[string]*dataset)}
}

var _ storage.Backend = (*Storage)(nil)

// get возвращает датасет; вызывается под мьютексом
func (s *Storage) get(name string, create bool) *dataset {
	ds, ok := s.datasets[name]
	if !ok && create {
		ds = &dataset{
			records: make(map[string]*models.Record),
			pending: make(map[uint64]*models.PendingChange),
		}
		s.datasets[name] = ds
	}
	return ds
}

func (s *Storage) SaveRecord(ctx context.Context, name string, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	s.get(name, true).records[rec.Key()] = rec.Clone()
	return nil
}

func (s *Storage) ReplaceRecord(ctx context.Context, name, oldKey string, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	ds := s.get(name, true)
	delete(ds.records, oldKey)
	ds.records[rec.Key()] = rec.Clone()
	return nil
}

func (s *Storage) GetRecord(ctx context.Context, name, key string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	ds := s.get(name, false)
	if ds == nil {
		return nil, storage.ErrRecordNotFound
	}
	rec, ok := ds.records[key]
	if !ok {
		return nil, storage.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (s *Storage) ListRecords(ctx context.Context, name string) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	ds := s.get(name, false)
	if ds == nil {
		return nil, nil
	}
	out := make([]*models.Record, 0, len(ds.records))
	for _, rec := range ds.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (s *Storage) DeleteRecord(ctx context.Context, name, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	if ds := s.get(name, false); ds != nil {
		delete(ds.records, key)
	}
	return nil
}

func (s *Storage) SavePending(ctx context.Context, name string, change *models.PendingChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	stored := change.Clone()
	// Как и в bbolt, флаг отправки не сохраняется
	stored.InFlight = false
	s.get(name, true).pending[change.Seq] = stored
	return nil
}

func (s *Storage) DeletePending(ctx context.Context, name string, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	if ds := s.get(name, false); ds != nil {
		delete(ds.pending, seq)
	}
	return nil
}

func (s *Storage) ListPending(ctx context.Context, name string) ([]*models.PendingChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	ds := s.get(name, false)
	if ds == nil {
		return nil, nil
	}
	out := make([]*models.PendingChange, 0, len(ds.pending))
	for _, change := range ds.pending {
		out = append(out, change.Clone())
	}
	slices.SortFunc(out, func(a, b *models.PendingChange) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *Storage) SaveLastSync(ctx context.Context, name string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	s.get(name, true).lastSync = at
	return nil
}

func (s *Storage) GetLastSync(ctx context.Context, name string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return time.Time{}, storage.ErrStorageClosed
	}
	if ds := s.get(name, false); ds != nil {
		return ds.lastSync, nil
	}
	return time.Time{}, nil
}

func (s *Storage) ClearDataset(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	delete(s.datasets, name)
	return nil
}

// Close drops all data
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.datasets = nil
	return nil
}
