package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iudanet/datasync/internal/models"
	"github.com/iudanet/datasync/pkg/api"
)

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент. timeout ограничивает каждый запрос,
// ноль оставляет ограничение контексту вызова.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			// Ограничиваем количество редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		},
	}
}

var _ RemoteBridge = (*Client)(nil)

func datasetPath(name string) string {
	return "/api/v1/datasets/" + url.PathEscape(name)
}

func recordsPath(name string) string {
	return datasetPath(name) + "/records"
}

func recordPath(name, uid string) string {
	return recordsPath(name) + "/" + url.PathEscape(uid)
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, "health", http.MethodGet, "/api/v1/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegisterDataset регистрирует датасет на сервере
func (c *Client) RegisterDataset(ctx context.Context, name string, opts DatasetOptions) error {
	req := api.RegisterDatasetRequest{Options: api.DatasetOptions{SyncFrequency: opts.SyncFrequency}}
	return c.doRequest(ctx, "register dataset", http.MethodPut, datasetPath(name), req, nil)
}

// RemoveDataset удаляет датасет вместе с записями
func (c *Client) RemoveDataset(ctx context.Context, name string) error {
	return c.doRequest(ctx, "remove dataset", http.MethodDelete, datasetPath(name), nil, nil)
}

// ListDataset получает полное состояние датасета
func (c *Client) ListDataset(ctx context.Context, name string) (map[string]models.RemoteRecord, error) {
	var resp api.ListRecordsResponse
	if err := c.doRequest(ctx, "list dataset", http.MethodGet, recordsPath(name), nil, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]models.RemoteRecord, len(resp.Records))
	for uid, rec := range resp.Records {
		out[uid] = models.RemoteRecord{Data: rec.Data, Hash: rec.Hash}
	}
	return out, nil
}

// CreateRecord создает запись на сервере
func (c *Client) CreateRecord(ctx context.Context, name string, data map[string]any) (*RemoteResult, error) {
	var resp api.RecordResponse
	err := c.doRequest(ctx, "create record", http.MethodPost, recordsPath(name), api.RecordRequest{Data: data}, &resp)
	if err != nil {
		return nil, err
	}
	return &RemoteResult{UID: resp.UID, Hash: resp.Hash}, nil
}

// UpdateRecord обновляет запись на сервере
func (c *Client) UpdateRecord(ctx context.Context, name, uid string, data map[string]any) (*RemoteResult, error) {
	var resp api.RecordResponse
	err := c.doRequest(ctx, "update record", http.MethodPut, recordPath(name, uid), api.RecordRequest{Data: data}, &resp)
	if err != nil {
		return nil, err
	}
	return &RemoteResult{UID: resp.UID, Hash: resp.Hash}, nil
}

// DeleteRecord удаляет запись на сервере
func (c *Client) DeleteRecord(ctx context.Context, name, uid string) error {
	return c.doRequest(ctx, "delete record", http.MethodDelete, recordPath(name, uid), nil, nil)
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, op, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request body: %w", op, err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrRemoteUnreachable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: %w: failed to read response body: %w", op, ErrRemoteUnreachable, err)
	}

	// Проверяем статус код
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrRecordNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		remoteErr := &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: string(respBody)}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			remoteErr.Message = errResp.Error
			if errResp.Message != "" {
				remoteErr.Message += ": " + errResp.Message
			}
		}
		return remoteErr
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%s: failed to decode response: %w", op, err)
		}
	}

	return nil
}
