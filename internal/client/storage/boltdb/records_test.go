package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/datasync/internal/client/storage"
	"github.com/iudanet/datasync/internal/models"
)

func createTestRecord(ref string, confirmed bool, data map[string]any) *models.Record {
	uid := models.PendingUID(ref)
	if confirmed {
		uid = models.ConfirmedUID(ref)
	}
	return &models.Record{
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Data:      data,
		UID:       uid,
		Hash:      "hash-" + ref,
	}
}

func TestStorage_SaveAndGetRecord(t *testing.T) {
	tests := []struct {
		record *models.Record
		name   string
	}{
		{
			name:   "pending record",
			record: createTestRecord("local-1", false, map[string]any{"test": "text"}),
		},
		{
			name: "confirmed record with nested data",
			record: createTestRecord("remote-1", true, map[string]any{
				"title": "note",
				"tags":  []any{"a", "b"},
				"meta":  map[string]any{"pinned": true},
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := createTestStorage(t)

			require.NoError(t, store.SaveRecord(ctx, "ds", tt.record))

			got, err := store.GetRecord(ctx, "ds", tt.record.Key())
			require.NoError(t, err)
			assert.Equal(t, tt.record.UID, got.UID)
			assert.Equal(t, tt.record.Hash, got.Hash)
			assert.Equal(t, tt.record.Data, got.Data)
			assert.True(t, tt.record.UpdatedAt.Equal(got.UpdatedAt))
		})
	}
}

func TestStorage_GetRecord_NotFound(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	_, err := store.GetRecord(ctx, "ds", "missing")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	require.NoError(t, store.SaveRecord(ctx, "ds", createTestRecord("k", false, nil)))
	_, err = store.GetRecord(ctx, "ds", "missing")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	// Другой датасет не видит запись
	_, err = store.GetRecord(ctx, "other", "k")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}

func TestStorage_ListRecords(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	records, err := store.ListRecords(ctx, "ds")
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, store.SaveRecord(ctx, "ds", createTestRecord("a", true, nil)))
	require.NoError(t, store.SaveRecord(ctx, "ds", createTestRecord("b", false, nil)))
	require.NoError(t, store.SaveRecord(ctx, "other", createTestRecord("c", true, nil)))

	records, err = store.ListRecords(ctx, "ds")
	require.NoError(t, err)
	require.Len(t, records, 2)

	keys := []string{records[0].Key(), records[1].Key()}
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestStorage_ReplaceRecord(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	local := createTestRecord("local", false, map[string]any{"v": "x"})
	require.NoError(t, store.SaveRecord(ctx, "ds", local))

	confirmed := local.Clone()
	confirmed.UID = models.ConfirmedUID("remote")
	require.NoError(t, store.ReplaceRecord(ctx, "ds", "local", confirmed))

	_, err := store.GetRecord(ctx, "ds", "local")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	got, err := store.GetRecord(ctx, "ds", "remote")
	require.NoError(t, err)
	assert.True(t, got.UID.Confirmed)
	assert.Equal(t, "x", got.Data["v"])
}

func TestStorage_DeleteRecord(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	require.NoError(t, store.SaveRecord(ctx, "ds", createTestRecord("k", true, nil)))
	require.NoError(t, store.DeleteRecord(ctx, "ds", "k"))

	_, err := store.GetRecord(ctx, "ds", "k")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	// Удаление отсутствующей записи и отсутствующего датасета не ошибка
	require.NoError(t, store.DeleteRecord(ctx, "ds", "k"))
	require.NoError(t, store.DeleteRecord(ctx, "missing", "k"))
}
