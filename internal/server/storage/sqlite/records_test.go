package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/datasync/internal/crypto"
	"github.com/iudanet/datasync/internal/models"
	"github.com/iudanet/datasync/internal/server/storage"
)

func TestStorage_RegisterDataset(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.RegisterDataset(ctx, &models.RemoteDataset{Name: "notes", SyncFrequency: 10}))

	ds, err := s.GetDataset(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, "notes", ds.Name)
	assert.InDelta(t, 10.0, ds.SyncFrequency, 1e-9)
	assert.False(t, ds.CreatedAt.IsZero())

	// Повторная регистрация обновляет параметры
	require.NoError(t, s.RegisterDataset(ctx, &models.RemoteDataset{Name: "notes", SyncFrequency: 0.5}))
	ds, err = s.GetDataset(ctx, "notes")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ds.SyncFrequency, 1e-9)

	_, err = s.GetDataset(ctx, "unknown")
	assert.ErrorIs(t, err, storage.ErrDatasetNotFound)
}

func TestStorage_CreateRecord(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	tests := []struct {
		data map[string]any
		name string
	}{
		{name: "flat", data: map[string]any{"test": "text"}},
		{name: "nested", data: map[string]any{"user": map[string]any{"name": "ann", "tags": []any{"a", "b"}}}},
		{name: "numbers", data: map[string]any{"n": 1, "f": 2.5}},
		{name: "empty", data: map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := s.CreateRecord(ctx, "notes", tt.data)
			require.NoError(t, err)
			assert.NotEmpty(t, rec.UID)
			assert.Equal(t, crypto.MustHashData(tt.data), rec.Hash)

			records, err := s.ListRecords(ctx, "notes")
			require.NoError(t, err)

			var found *models.StoredRecord
			for _, r := range records {
				if r.UID == rec.UID {
					found = r
				}
			}
			require.NotNil(t, found)
			// Хеш совпадает после чтения из JSON
			assert.Equal(t, rec.Hash, crypto.MustHashData(found.Data))
			assert.Equal(t, rec.Hash, found.Hash)
		})
	}

	// Датасет зарегистрирован неявно
	_, err := s.GetDataset(ctx, "notes")
	require.NoError(t, err)
}

func TestStorage_UpdateRecord(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	rec, err := s.CreateRecord(ctx, "notes", map[string]any{"v": 1})
	require.NoError(t, err)

	tests := []struct {
		wantErr error
		name    string
		dataset string
		uid     string
	}{
		{name: "existing record", dataset: "notes", uid: rec.UID},
		{name: "unknown uid", dataset: "notes", uid: "missing", wantErr: storage.ErrRecordNotFound},
		{name: "other dataset", dataset: "other", uid: rec.UID, wantErr: storage.ErrRecordNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := map[string]any{"v": 2}
			updated, err := s.UpdateRecord(ctx, tt.dataset, tt.uid, data)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, crypto.MustHashData(data), updated.Hash)
			assert.Equal(t, tt.uid, updated.UID)
		})
	}

	records, err := s.ListRecords(ctx, "notes")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 2.0, records[0].Data["v"], 1e-9)
}

func TestStorage_DeleteRecord(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	rec, err := s.CreateRecord(ctx, "notes", map[string]any{"v": 1})
	require.NoError(t, err)

	require.NoError(t, s.DeleteRecord(ctx, "notes", rec.UID))
	assert.ErrorIs(t, s.DeleteRecord(ctx, "notes", rec.UID), storage.ErrRecordNotFound)

	records, err := s.ListRecords(ctx, "notes")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStorage_RemoveDataset(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.CreateRecord(ctx, "notes", map[string]any{"v": 1})
	require.NoError(t, err)
	_, err = s.CreateRecord(ctx, "other", map[string]any{"v": 1})
	require.NoError(t, err)

	require.NoError(t, s.RemoveDataset(ctx, "notes"))
	assert.ErrorIs(t, s.RemoveDataset(ctx, "notes"), storage.ErrDatasetNotFound)

	// Записи удаляются каскадно, другие датасеты не затронуты
	records, err := s.ListRecords(ctx, "notes")
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = s.ListRecords(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestStorage_ListRecords_UnknownDataset(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	records, err := s.ListRecords(ctx, "unknown")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
