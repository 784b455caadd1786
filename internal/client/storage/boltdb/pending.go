package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/datasync/internal/client/storage"
	"github.com/iudanet/datasync/internal/models"
)

// seqKey кодирует порядковый номер в big-endian, чтобы курсор bbolt
// обходил изменения в порядке постановки в очередь
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// SavePending stores or overwrites a pending change
func (s *Storage) SavePending(ctx context.Context, dataset string, change *models.PendingChange) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	key := seqKey(change.Seq)
	data, err := s.encode(change, valueAD(dataset, bucketPending, key))
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := writeBucket(tx, dataset, bucketPending)
		if err != nil {
			return err
		}
		return bucket.Put(key, data)
	})
	if err != nil {
		return fmt.Errorf("failed to save pending change: %w", err)
	}

	return nil
}

// DeletePending removes a pending change by sequence number
func (s *Storage) DeletePending(ctx context.Context, dataset string, seq uint64) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := readBucket(tx, dataset, bucketPending)
		if bucket == nil {
			return nil
		}
		return bucket.Delete(seqKey(seq))
	})
	if err != nil {
		return fmt.Errorf("failed to delete pending change: %w", err)
	}

	return nil
}

// ListPending returns pending changes ordered by sequence number
func (s *Storage) ListPending(ctx context.Context, dataset string) ([]*models.PendingChange, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	var changes []*models.PendingChange

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := readBucket(tx, dataset, bucketPending)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var change models.PendingChange
			if err := s.decode(v, valueAD(dataset, bucketPending, k), &change); err != nil {
				return fmt.Errorf("pending change %d: %w", binary.BigEndian.Uint64(k), err)
			}
			changes = append(changes, &change)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending changes: %w", err)
	}

	return changes, nil
}
