package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/datasync/internal/client/engine"
	"github.com/iudanet/datasync/internal/client/iocli"
	"github.com/iudanet/datasync/internal/client/storage"
	"github.com/iudanet/datasync/internal/config"
	"github.com/iudanet/datasync/internal/models"
	"github.com/iudanet/datasync/internal/server/handlers"
	"github.com/iudanet/datasync/internal/server/storage/sqlite"
)

type testEnv struct {
	serverURL string
	dbPath    string
	server    *sqlite.Storage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv(config.PassphraseEnv, "")

	s, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := http.NewServeMux()
	handlers.Routes(mux, handlers.NewDatasetHandler(logger, s), handlers.NewHealthHandler(logger, s, "test"))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &testEnv{
		serverURL: srv.URL,
		dbPath:    filepath.Join(t.TempDir(), "client.db"),
		server:    s,
	}
}

// terminal is an IOMock that records output and answers prompts from input
type terminal struct {
	*iocli.IOMock
	out bytes.Buffer
	mu  sync.Mutex
}

func newTerminal(input ...string) *terminal {
	term := &terminal{}
	next := func() (string, error) {
		if len(input) == 0 {
			return "", io.EOF
		}
		line := input[0]
		input = input[1:]
		return line, nil
	}
	term.IOMock = &iocli.IOMock{
		IsTerminalFunc: func() bool { return false },
		PrintfFunc: func(format string, a ...any) {
			term.mu.Lock()
			defer term.mu.Unlock()
			fmt.Fprintf(&term.out, format, a...)
		},
		PrintlnFunc: func(a ...any) {
			term.mu.Lock()
			defer term.mu.Unlock()
			fmt.Fprintln(&term.out, a...)
		},
		ReadInputFunc:    func(string) (string, error) { return next() },
		ReadPasswordFunc: func(string) (string, error) { return next() },
		WriteFunc: func(p []byte) (int, error) {
			term.mu.Lock()
			defer term.mu.Unlock()
			return term.out.Write(p)
		},
	}
	return term
}

func (term *terminal) String() string {
	term.mu.Lock()
	defer term.mu.Unlock()
	return term.out.String()
}

func (env *testEnv) run(t *testing.T, term *terminal, args ...string) (string, error) {
	t.Helper()
	if term == nil {
		term = newTerminal()
	}
	app := New(term, DefaultOpener, io.Discard, BuildInfo{Version: "test"})
	full := append([]string{"--server", env.serverURL, "--db", env.dbPath}, args...)
	err := app.Execute(context.Background(), full)
	return term.String(), err
}

func decodeOutput[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestCli_RecordLifecycle(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, nil, "create", "notes", `{"title":"groceries"}`)
	require.NoError(t, err)
	created := decodeOutput[engine.CreateResult](t, out)
	assert.Equal(t, string(models.ActionCreate), created.Action)
	assert.Equal(t, created.Hash, created.UID)

	out, err = env.run(t, nil, "status", "notes")
	require.NoError(t, err)
	status := decodeOutput[engine.Status](t, out)
	assert.Equal(t, 1, status.PendingChanges)
	assert.Equal(t, 1, status.Records)

	out, err = env.run(t, nil, "sync", "notes")
	require.NoError(t, err)
	status = decodeOutput[engine.Status](t, out)
	assert.Equal(t, 0, status.PendingChanges)
	assert.Equal(t, 1, status.Records)
	assert.False(t, status.LastSync.IsZero())

	remote, err := env.server.ListRecords(context.Background(), "notes")
	require.NoError(t, err)
	require.Len(t, remote, 1)

	// после перезапуска запись доступна по uid сервера
	out, err = env.run(t, nil, "uid", "notes", created.Hash)
	require.NoError(t, err)
	uid := strings.TrimSpace(out)
	assert.Equal(t, remote[0].UID, uid)

	out, err = env.run(t, nil, "read", "notes", uid)
	require.NoError(t, err)
	rec := decodeOutput[models.Record](t, out)
	assert.Equal(t, "groceries", rec.Data["title"])
	assert.True(t, rec.UID.Confirmed)

	_, err = env.run(t, nil, "update", "notes", uid, `{"title":"hardware"}`)
	require.NoError(t, err)

	out, err = env.run(t, nil, "list", "notes")
	require.NoError(t, err)
	list := decodeOutput[[]models.Record](t, out)
	require.Len(t, list, 1)
	assert.Equal(t, "hardware", list[0].Data["title"])

	out, err = env.run(t, nil, "delete", "notes", uid)
	require.NoError(t, err)
	assert.Equal(t, "Deleted "+uid+"\n", out)

	_, err = env.run(t, nil, "sync", "notes")
	require.NoError(t, err)

	remote, err = env.server.ListRecords(context.Background(), "notes")
	require.NoError(t, err)
	assert.Empty(t, remote)

	_, err = env.run(t, nil, "read", "notes", uid)
	assert.ErrorIs(t, err, engine.ErrUnknownUID)
}

func TestCli_CreateFromStdin(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, newTerminal(`{"n": 1}`), "create", "numbers", "-")
	require.NoError(t, err)
	created := decodeOutput[engine.CreateResult](t, out)
	assert.Equal(t, 1.0, created.Post["n"])
}

func TestCli_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		args    []string
		wantErr error
		errText string
	}{
		{
			name:    "data is not an object",
			args:    []string{"create", "notes", `[1,2]`},
			wantErr: errInvalidJSON,
		},
		{
			name:    "malformed data",
			args:    []string{"create", "notes", `{"a":`},
			wantErr: errInvalidJSON,
		},
		{
			name:    "unknown uid",
			args:    []string{"read", "notes", "missing"},
			wantErr: engine.ErrUnknownUID,
		},
		{
			name:    "invalid dataset name",
			args:    []string{"list", "my notes"},
			wantErr: engine.ErrInvalidDatasetName,
		},
		{
			name:    "missing arguments",
			args:    []string{"read", "notes"},
			errText: "accepts 2 arg(s)",
		},
		{
			name:    "invalid storage strategy",
			args:    []string{"--storage", "paper", "list", "notes"},
			errText: "storage_strategy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, nil, tt.args...)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.errText != "" {
				assert.Contains(t, err.Error(), tt.errText)
			}
		})
	}
}

func TestCli_Drop(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, nil, "create", "notes", `{"title":"x"}`)
	require.NoError(t, err)
	_, err = env.run(t, nil, "sync", "notes")
	require.NoError(t, err)

	t.Run("wrong confirmation", func(t *testing.T) {
		_, err := env.run(t, newTerminal("other"), "drop", "notes")
		assert.ErrorIs(t, err, errNotConfirmed)

		_, err = env.server.GetDataset(context.Background(), "notes")
		assert.NoError(t, err)
	})

	t.Run("confirmed", func(t *testing.T) {
		out, err := env.run(t, newTerminal("notes"), "drop", "notes")
		require.NoError(t, err)
		assert.Equal(t, "Dropped notes\n", out)

		out, err = env.run(t, nil, "list", "notes")
		require.NoError(t, err)
		assert.Empty(t, decodeOutput[[]models.Record](t, out))
	})

	t.Run("skip confirmation", func(t *testing.T) {
		_, err := env.run(t, nil, "drop", "--yes", "notes")
		require.NoError(t, err)
	})
}

func TestCli_Passphrase(t *testing.T) {
	env := newTestEnv(t)

	t.Setenv(config.PassphraseEnv, "secret")
	_, err := env.run(t, nil, "create", "vault", `{"pin":"1234"}`)
	require.NoError(t, err)

	t.Setenv(config.PassphraseEnv, "")

	t.Run("prompted passphrase", func(t *testing.T) {
		term := newTerminal("secret")
		out, err := env.run(t, term, "list", "vault")
		require.NoError(t, err)
		assert.Len(t, decodeOutput[[]models.Record](t, out), 1)
		assert.Len(t, term.ReadPasswordCalls(), 1)
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		_, err := env.run(t, newTerminal("guess"), "list", "vault")
		assert.ErrorIs(t, err, storage.ErrWrongPassphrase)
	})

	t.Run("no passphrase", func(t *testing.T) {
		_, err := env.run(t, newTerminal(""), "list", "vault")
		assert.ErrorIs(t, err, storage.ErrPassphraseRequired)
	})
}

func TestCli_RunPrintsEvents(t *testing.T) {
	env := newTestEnv(t)
	term := newTerminal()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		app := New(term, DefaultOpener, io.Discard, BuildInfo{})
		done <- app.Execute(ctx, []string{
			"--server", env.serverURL, "--db", env.dbPath,
			"run", "--sync-frequency", "50ms", "notes",
		})
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(term.String(), `"code":"sync_complete"`)
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	first, _, _ := strings.Cut(term.String(), "\n")
	ev := decodeOutput[map[string]any](t, first)
	assert.Equal(t, "sync_started", ev["code"])
	assert.Equal(t, "notes", ev["dataset_id"])
}

func TestCli_Version(t *testing.T) {
	term := newTerminal()
	app := New(term, DefaultOpener, io.Discard, BuildInfo{Version: "1.2.3", BuildDate: "today", GitCommit: "abc"})

	require.NoError(t, app.Execute(context.Background(), []string{"version"}))
	assert.Contains(t, term.String(), "Version: 1.2.3")
	assert.Contains(t, term.String(), "Git commit: abc")
}

func TestCli_PrintJSONIndentsOnTerminal(t *testing.T) {
	term := newTerminal()
	term.IsTerminalFunc = func() bool { return true }
	app := New(term, DefaultOpener, io.Discard, BuildInfo{})

	require.NoError(t, app.printJSON(map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", term.String())
}
