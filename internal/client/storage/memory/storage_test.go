package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/datasync/internal/client/storage"
	"github.com/iudanet/datasync/internal/models"
)

func TestStorage_Records(t *testing.T) {
	ctx := context.Background()
	s := New()

	rec := &models.Record{UID: models.PendingUID("local"), Data: map[string]any{"v": "x"}, Hash: "h"}
	require.NoError(t, s.SaveRecord(ctx, "ds", rec))

	// Хранилище держит копию
	rec.Data["v"] = "changed"

	got, err := s.GetRecord(ctx, "ds", "local")
	require.NoError(t, err)
	assert.Equal(t, "x", got.Data["v"])

	got.Data["v"] = "mutated"
	again, err := s.GetRecord(ctx, "ds", "local")
	require.NoError(t, err)
	assert.Equal(t, "x", again.Data["v"])

	confirmed := again.Clone()
	confirmed.UID = models.ConfirmedUID("remote")
	require.NoError(t, s.ReplaceRecord(ctx, "ds", "local", confirmed))

	_, err = s.GetRecord(ctx, "ds", "local")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	list, err := s.ListRecords(ctx, "ds")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "remote", list[0].Key())

	list, err = s.ListRecords(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.DeleteRecord(ctx, "ds", "remote"))
	require.NoError(t, s.DeleteRecord(ctx, "missing", "remote"))
	_, err = s.GetRecord(ctx, "ds", "remote")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}

func TestStorage_Pending(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, seq := range []uint64{3, 1, 2} {
		require.NoError(t, s.SavePending(ctx, "ds", &models.PendingChange{Seq: seq, InFlight: true}))
	}
	require.NoError(t, s.DeletePending(ctx, "ds", 2))

	changes, err := s.ListPending(ctx, "ds")
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, uint64(1), changes[0].Seq)
	assert.Equal(t, uint64(3), changes[1].Seq)
	assert.False(t, changes[0].InFlight)
}

func TestStorage_Metadata(t *testing.T) {
	ctx := context.Background()
	s := New()

	at, err := s.GetLastSync(ctx, "ds")
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	now := time.Now()
	require.NoError(t, s.SaveLastSync(ctx, "ds", now))
	at, err = s.GetLastSync(ctx, "ds")
	require.NoError(t, err)
	assert.True(t, now.Equal(at))
}

func TestStorage_ClearAndClose(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.SaveRecord(ctx, "ds", &models.Record{UID: models.PendingUID("k"), Hash: "h"}))
	require.NoError(t, s.ClearDataset(ctx, "ds"))

	list, err := s.ListRecords(ctx, "ds")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.Close())
	_, err = s.ListRecords(ctx, "ds")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.ErrorIs(t, s.SaveLastSync(ctx, "ds", time.Now()), storage.ErrStorageClosed)
}
