package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/datasync/internal/crypto"
	"github.com/iudanet/datasync/internal/models"
	"github.com/iudanet/datasync/internal/server/storage"
)

// RegisterDataset creates a dataset or updates its options
func (s *Storage) RegisterDataset(ctx context.Context, ds *models.RemoteDataset) error {
	createdAt := ds.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO datasets (name, sync_frequency, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET sync_frequency = excluded.sync_frequency
	`

	if _, err := s.db.ExecContext(ctx, query, ds.Name, ds.SyncFrequency, createdAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to register dataset: %w", err)
	}

	return nil
}

// GetDataset retrieves a dataset by name
// Returns ErrDatasetNotFound if dataset is not registered
func (s *Storage) GetDataset(ctx context.Context, name string) (*models.RemoteDataset, error) {
	query := `SELECT name, sync_frequency, created_at FROM datasets WHERE name = ?`

	ds := &models.RemoteDataset{}
	var createdAt int64
	err := s.db.QueryRowContext(ctx, query, name).Scan(&ds.Name, &ds.SyncFrequency, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrDatasetNotFound
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	ds.CreatedAt = time.UnixMilli(createdAt)

	return ds, nil
}

// RemoveDataset deletes a dataset; its records go with it (ON DELETE CASCADE)
func (s *Storage) RemoveDataset(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to remove dataset: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return storage.ErrDatasetNotFound
	}

	return nil
}

// ListRecords returns all records of a dataset ordered by creation time
func (s *Storage) ListRecords(ctx context.Context, dataset string) (records []*models.StoredRecord, err error) {
	query := `
		SELECT dataset, uid, data, hash, created_at, updated_at
		FROM records
		WHERE dataset = ?
		ORDER BY created_at ASC, uid ASC
	`

	rows, err := s.db.QueryContext(ctx, query, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	records = make([]*models.StoredRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// CreateRecord stores data under a new random UID
func (s *Storage) CreateRecord(ctx context.Context, dataset string, data map[string]any) (*models.StoredRecord, error) {
	raw, hash, err := encodeData(data)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &models.StoredRecord{
		CreatedAt: now,
		UpdatedAt: now,
		Data:      data,
		Dataset:   dataset,
		UID:       uuid.New().String(),
		Hash:      hash,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Запись в незарегистрированный датасет регистрирует его
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO datasets (name, sync_frequency, created_at) VALUES (?, 0, ?)`,
		dataset, now.UnixMilli()); err != nil {
		return nil, fmt.Errorf("failed to register dataset: %w", err)
	}

	query := `
		INSERT INTO records (dataset, uid, data, hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query, rec.Dataset, rec.UID, raw, rec.Hash, now.UnixMilli(), now.UnixMilli()); err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return rec, nil
}

// UpdateRecord overwrites data of an existing record
// Returns ErrRecordNotFound if record doesn't exist
func (s *Storage) UpdateRecord(ctx context.Context, dataset, uid string, data map[string]any) (*models.StoredRecord, error) {
	raw, hash, err := encodeData(data)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	query := `
		UPDATE records
		SET data = ?, hash = ?, updated_at = ?
		WHERE dataset = ? AND uid = ?
	`

	result, err := s.db.ExecContext(ctx, query, raw, hash, now.UnixMilli(), dataset, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return nil, storage.ErrRecordNotFound
	}

	return &models.StoredRecord{
		UpdatedAt: now,
		Data:      data,
		Dataset:   dataset,
		UID:       uid,
		Hash:      hash,
	}, nil
}

// DeleteRecord removes a record
// Returns ErrRecordNotFound if record doesn't exist
func (s *Storage) DeleteRecord(ctx context.Context, dataset, uid string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE dataset = ? AND uid = ?`, dataset, uid)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return storage.ErrRecordNotFound
	}

	return nil
}

// encodeData сериализует данные записи и вычисляет их хеш
func encodeData(data map[string]any) (string, string, error) {
	if data == nil {
		data = map[string]any{}
	}

	hash, err := crypto.HashData(data)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash record data: %w", err)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal record data: %w", err)
	}

	return string(raw), hash, nil
}

func scanRecord(rows *sql.Rows) (*models.StoredRecord, error) {
	rec := &models.StoredRecord{}
	var raw string
	var createdAt, updatedAt int64

	if err := rows.Scan(&rec.Dataset, &rec.UID, &raw, &rec.Hash, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &rec.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", rec.UID, err)
	}

	rec.CreatedAt = time.UnixMilli(createdAt)
	rec.UpdatedAt = time.UnixMilli(updatedAt)

	return rec, nil
}
