package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/datasync/internal/client/storage"
	"github.com/iudanet/datasync/internal/models"
)

// SaveRecord stores or updates a record in BoltDB
func (s *Storage) SaveRecord(ctx context.Context, dataset string, rec *models.Record) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	key := []byte(rec.Key())
	data, err := s.encode(rec, valueAD(dataset, bucketRecords, key))
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := writeBucket(tx, dataset, bucketRecords)
		if err != nil {
			return err
		}
		if err := bucket.Put(key, data); err != nil {
			return fmt.Errorf("failed to save record: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// ReplaceRecord removes oldKey and stores rec in one transaction
func (s *Storage) ReplaceRecord(ctx context.Context, dataset, oldKey string, rec *models.Record) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	key := []byte(rec.Key())
	data, err := s.encode(rec, valueAD(dataset, bucketRecords, key))
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := writeBucket(tx, dataset, bucketRecords)
		if err != nil {
			return err
		}
		if err := bucket.Delete([]byte(oldKey)); err != nil {
			return fmt.Errorf("failed to delete old record: %w", err)
		}
		if err := bucket.Put(key, data); err != nil {
			return fmt.Errorf("failed to save record: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetRecord retrieves a record by key
func (s *Storage) GetRecord(ctx context.Context, dataset, key string) (*models.Record, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	var rec *models.Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := readBucket(tx, dataset, bucketRecords)
		if bucket == nil {
			return storage.ErrRecordNotFound
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return storage.ErrRecordNotFound
		}

		rec = &models.Record{}
		return s.decode(data, valueAD(dataset, bucketRecords, []byte(key)), rec)
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// ListRecords returns all records of the dataset
func (s *Storage) ListRecords(ctx context.Context, dataset string) ([]*models.Record, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	var records []*models.Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := readBucket(tx, dataset, bucketRecords)
		if bucket == nil {
			// Нет bucket - датасет еще не сохранялся
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var rec models.Record
			if err := s.decode(v, valueAD(dataset, bucketRecords, k), &rec); err != nil {
				return fmt.Errorf("record %q: %w", k, err)
			}
			records = append(records, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	return records, nil
}

// DeleteRecord removes a record
func (s *Storage) DeleteRecord(ctx context.Context, dataset, key string) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := readBucket(tx, dataset, bucketRecords)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return nil
}
