package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/datasync/pkg/api"
)

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/", 2*time.Minute)

	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.Equal(t, 2*time.Minute, client.httpClient.Timeout)
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(api.ListRecordsResponse{})
	}))
	defer server.Close()

	t.Run("client timeout", func(t *testing.T) {
		_, err := NewClient(server.URL, 20*time.Millisecond).ListDataset(context.Background(), "ds")
		assert.Error(t, err)
	})

	t.Run("context deadline only", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := NewClient(server.URL, 0).ListDataset(ctx, "ds")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("slow response within limits", func(t *testing.T) {
		_, err := NewClient(server.URL, 0).ListDataset(context.Background(), "ds")
		assert.NoError(t, err)
	})
}

func TestClient_RegisterDataset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/datasets/my ds", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req api.RegisterDatasetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0.5, req.Options.SyncFrequency)

		_ = json.NewEncoder(w).Encode(api.DatasetResponse{Name: "my ds", Options: req.Options})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	err := client.RegisterDataset(context.Background(), "my ds", DatasetOptions{SyncFrequency: 0.5})
	require.NoError(t, err)
}

func TestClient_ListDataset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/datasets/ds/records", r.URL.Path)

		_ = json.NewEncoder(w).Encode(api.ListRecordsResponse{Records: map[string]api.RecordState{
			"uid-1": {Data: map[string]any{"test": "text"}, Hash: "h1"},
		}})
	}))
	defer server.Close()

	records, err := NewClient(server.URL, time.Second).ListDataset(context.Background(), "ds")
	require.NoError(t, err)
	require.Contains(t, records, "uid-1")
	assert.Equal(t, "h1", records["uid-1"].Hash)
	assert.Equal(t, "text", records["uid-1"].Data["test"])
}

func TestClient_CreateUpdateDelete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/datasets/ds/records":
			var req api.RecordRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "text", req.Data["test"])
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(api.RecordResponse{UID: "uid-1", Hash: "h1"})
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/datasets/ds/records/uid-1":
			_ = json.NewEncoder(w).Encode(api.RecordResponse{UID: "uid-1", Hash: "h2"})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/datasets/ds/records/uid-1":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client := NewClient(server.URL, time.Second)

	created, err := client.CreateRecord(ctx, "ds", map[string]any{"test": "text"})
	require.NoError(t, err)
	assert.Equal(t, &RemoteResult{UID: "uid-1", Hash: "h1"}, created)

	updated, err := client.UpdateRecord(ctx, "ds", "uid-1", map[string]any{"test": "other"})
	require.NoError(t, err)
	assert.Equal(t, "h2", updated.Hash)

	require.NoError(t, client.DeleteRecord(ctx, "ds", "uid-1"))
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		check      func(t *testing.T, err error)
		name       string
		body       string
		statusCode int
	}{
		{
			name:       "not found",
			statusCode: http.StatusNotFound,
			body:       `{"error":"record not found"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrRecordNotFound)
			},
		},
		{
			name:       "json error body",
			statusCode: http.StatusBadRequest,
			body:       `{"error":"invalid request","message":"data must be an object"}`,
			check: func(t *testing.T, err error) {
				var remoteErr *RemoteError
				require.True(t, errors.As(err, &remoteErr))
				assert.Equal(t, http.StatusBadRequest, remoteErr.StatusCode)
				assert.Equal(t, "update record", remoteErr.Op)
				assert.Equal(t, "invalid request: data must be an object", remoteErr.Message)
			},
		},
		{
			name:       "plain text error body",
			statusCode: http.StatusInternalServerError,
			body:       "boom",
			check: func(t *testing.T, err error) {
				var remoteErr *RemoteError
				require.True(t, errors.As(err, &remoteErr))
				assert.Equal(t, "boom", remoteErr.Message)
				assert.Contains(t, err.Error(), "server error (500)")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, time.Second).UpdateRecord(context.Background(), "ds", "uid", map[string]any{})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, time.Second).ListDataset(context.Background(), "ds")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteUnreachable)
}

func TestClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.HealthResponse{Status: "ok", Version: "test"})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL, time.Second).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
}
