package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/datasync/internal/client/storage"
)

var keyLastSync = []byte("last_sync")

// SaveLastSync saves the time of the last completed sync cycle
func (s *Storage) SaveLastSync(ctx context.Context, dataset string, at time.Time) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := writeBucket(tx, dataset, bucketMeta)
		if err != nil {
			return err
		}

		// Конвертируем время в bytes
		tsBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(tsBytes, uint64(at.UnixNano()))

		if err := bucket.Put(keyLastSync, tsBytes); err != nil {
			return fmt.Errorf("failed to save last sync time: %w", err)
		}

		return nil
	})
}

// GetLastSync retrieves the time of the last completed sync cycle
// Returns zero time if no sync has been performed yet
func (s *Storage) GetLastSync(ctx context.Context, dataset string) (time.Time, error) {
	if s.closed.Load() {
		return time.Time{}, storage.ErrStorageClosed
	}

	var at time.Time

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := readBucket(tx, dataset, bucketMeta)
		if bucket == nil {
			return nil
		}

		tsBytes := bucket.Get(keyLastSync)
		if tsBytes == nil {
			// Синхронизации еще не было
			return nil
		}

		at = time.Unix(0, int64(binary.BigEndian.Uint64(tsBytes)))
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sync time: %w", err)
	}

	return at, nil
}
