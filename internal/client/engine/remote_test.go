package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/datasync/internal/client/api"
	"github.com/iudanet/datasync/internal/client/events"
	"github.com/iudanet/datasync/internal/config"
	"github.com/iudanet/datasync/internal/server/handlers"
	"github.com/iudanet/datasync/internal/server/storage/sqlite"
)

// newRemoteServer starts the HTTP server over an in-memory SQLite database
func newRemoteServer(t *testing.T) string {
	t.Helper()
	s, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	mux := http.NewServeMux()
	handlers.Routes(mux,
		handlers.NewDatasetHandler(setupTestLogger(), s),
		handlers.NewHealthHandler(setupTestLogger(), s, "test"))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func newHTTPEngine(t *testing.T, cfg config.Client, serverURL string) (*Engine, *recorder) {
	t.Helper()
	cfg.ServerURL = serverURL
	e, err := New(context.Background(), cfg, api.NewClient(serverURL, cfg.RequestTimeout), setupTestLogger())
	require.NoError(t, err)
	rec := &recorder{}
	e.Notify(rec.observe)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e, rec
}

func countDeltas(rec *recorder, dataset, uid, action string) int {
	n := 0
	for _, ev := range rec.find(dataset, events.RecordDeltaReceived) {
		if ev.UID == uid && ev.Message == action {
			n++
		}
	}
	return n
}

// waitCycles ждет еще n завершенных циклов датасета
func waitCycles(t *testing.T, rec *recorder, dataset string, n int) {
	t.Helper()
	start := len(rec.find(dataset, events.SyncComplete))
	require.Eventually(t, func() bool {
		return len(rec.find(dataset, events.SyncComplete)) >= start+n
	}, waitFor, 10*time.Millisecond)
}

func TestEngine_TwoClients(t *testing.T) {
	serverURL := newRemoteServer(t)
	ctx := context.Background()

	writer, _ := newHTTPEngine(t, testConfig(), serverURL)
	reader, seen := newHTTPEngine(t, testConfig(), serverURL)

	require.NoError(t, writer.Manage(ctx, "shared", WithManualSync()))
	require.NoError(t, reader.Manage(ctx, "shared"))

	created, err := writer.Create(ctx, "shared", map[string]any{"title": "first"})
	require.NoError(t, err)
	require.NoError(t, writer.Sync(ctx, "shared"))

	uid := writer.GetUID(created.Hash)
	require.NotEqual(t, created.Hash, uid)

	require.Eventually(t, func() bool {
		return countDeltas(seen, "shared", uid, "create") == 1
	}, waitFor, 10*time.Millisecond)

	// повторные циклы не дают повторных дельт
	waitCycles(t, seen, "shared", 2)
	assert.Equal(t, 1, countDeltas(seen, "shared", uid, "create"))

	rec, err := reader.Read("shared", uid)
	require.NoError(t, err)
	assert.Equal(t, "first", rec.Data["title"])
	assert.True(t, rec.UID.Confirmed)

	_, err = writer.Update(ctx, "shared", uid, map[string]any{"title": "second"})
	require.NoError(t, err)
	require.NoError(t, writer.Sync(ctx, "shared"))

	require.Eventually(t, func() bool {
		return countDeltas(seen, "shared", uid, "update") == 1
	}, waitFor, 10*time.Millisecond)
	waitCycles(t, seen, "shared", 2)
	assert.Equal(t, 1, countDeltas(seen, "shared", uid, "update"))

	rec, err = reader.Read("shared", uid)
	require.NoError(t, err)
	assert.Equal(t, "second", rec.Data["title"])

	require.NoError(t, writer.Delete(ctx, "shared", uid))
	require.NoError(t, writer.Sync(ctx, "shared"))

	require.Eventually(t, func() bool {
		return countDeltas(seen, "shared", uid, "delete") == 1
	}, waitFor, 10*time.Millisecond)

	_, err = reader.Read("shared", uid)
	assert.ErrorIs(t, err, ErrUnknownUID)
	_, err = writer.Read("shared", uid)
	assert.ErrorIs(t, err, ErrUnknownUID)
}

func TestEngine_SyncCadence(t *testing.T) {
	serverURL := newRemoteServer(t)

	cfg := testConfig()
	cfg.SyncFrequency = 0.5
	e, rec := newHTTPEngine(t, cfg, serverURL)

	start := time.Now()
	require.NoError(t, e.Manage(context.Background(), "cadence"))

	require.Eventually(t, func() bool {
		return len(rec.find("cadence", events.SyncComplete)) > 0
	}, time.Second, 10*time.Millisecond)
	assert.Less(t, time.Since(start), time.Second)

	codes := rec.codes("cadence")
	require.GreaterOrEqual(t, len(codes), 2)
	assert.Equal(t, events.SyncStarted, codes[0])
}

func TestEngine_RemoteDatasets(t *testing.T) {
	serverURL := newRemoteServer(t)
	ctx := context.Background()

	e, _ := newHTTPEngine(t, testConfig(), serverURL)
	other, _ := newHTTPEngine(t, testConfig(), serverURL)

	for _, id := range []string{"alpha", "beta"} {
		require.NoError(t, e.Manage(ctx, id, WithManualSync()))
		require.NoError(t, other.Manage(ctx, id, WithManualSync()))
	}

	_, err := e.Create(ctx, "alpha", map[string]any{"n": 1})
	require.NoError(t, err)
	_, err = e.Create(ctx, "beta", map[string]any{"n": 2})
	require.NoError(t, err)
	_, err = e.Create(ctx, "beta", map[string]any{"n": 3})
	require.NoError(t, err)

	require.NoError(t, e.Sync(ctx, "alpha"))
	require.NoError(t, e.Sync(ctx, "beta"))
	require.NoError(t, other.Sync(ctx, "alpha"))
	require.NoError(t, other.Sync(ctx, "beta"))

	alpha, err := other.List("alpha")
	require.NoError(t, err)
	beta, err := other.List("beta")
	require.NoError(t, err)
	assert.Len(t, alpha, 1)
	assert.Len(t, beta, 2)

	require.NoError(t, e.Drop(ctx, "beta"))
	require.NoError(t, other.Sync(ctx, "beta"))

	beta, err = other.List("beta")
	require.NoError(t, err)
	assert.Empty(t, beta)
}
