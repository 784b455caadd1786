package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"

	"github.com/iudanet/datasync/internal/crypto"
	"github.com/iudanet/datasync/internal/models"
	"github.com/iudanet/datasync/internal/server/storage"
	"github.com/iudanet/datasync/internal/validation"
	"github.com/iudanet/datasync/pkg/api"
)

// DatasetStorage определяет интерфейс хранилища, нужный обработчикам
type DatasetStorage interface {
	RegisterDataset(ctx context.Context, ds *models.RemoteDataset) error
	RemoveDataset(ctx context.Context, name string) error
	ListRecords(ctx context.Context, dataset string) ([]*models.StoredRecord, error)
	CreateRecord(ctx context.Context, dataset string, data map[string]any) (*models.StoredRecord, error)
	UpdateRecord(ctx context.Context, dataset, uid string, data map[string]any) (*models.StoredRecord, error)
	DeleteRecord(ctx context.Context, dataset, uid string) error
}

// DatasetHandler handles dataset and record requests
type DatasetHandler struct {
	logger  *slog.Logger
	storage DatasetStorage
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(logger *slog.Logger, storage DatasetStorage) *DatasetHandler {
	return &DatasetHandler{
		logger:  logger,
		storage: storage,
	}
}

// Register обрабатывает PUT /api/v1/datasets/{dataset}
// Повторная регистрация обновляет параметры датасета
func (h *DatasetHandler) Register(w http.ResponseWriter, r *http.Request) {
	name, ok := h.datasetName(w, r)
	if !ok {
		return
	}

	var req api.RegisterDatasetRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("Failed to decode register request", "dataset", name, "error", err)
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	freq := req.Options.SyncFrequency
	if freq < 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		sendError(w, h.logger, "syncFrequency must be a non-negative number of seconds", http.StatusBadRequest)
		return
	}

	if err := h.storage.RegisterDataset(r.Context(), &models.RemoteDataset{Name: name, SyncFrequency: freq}); err != nil {
		h.logger.Error("Failed to register dataset", "dataset", name, "error", err)
		sendError(w, h.logger, "failed to register dataset", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("Dataset registered", "dataset", name, "sync_frequency", freq)

	sendJSON(w, h.logger, api.DatasetResponse{Name: name, Options: req.Options}, http.StatusOK)
}

// Remove обрабатывает DELETE /api/v1/datasets/{dataset}
// Удаление незарегистрированного датасета не является ошибкой
func (h *DatasetHandler) Remove(w http.ResponseWriter, r *http.Request) {
	name, ok := h.datasetName(w, r)
	if !ok {
		return
	}

	if err := h.storage.RemoveDataset(r.Context(), name); err != nil && !errors.Is(err, storage.ErrDatasetNotFound) {
		h.logger.Error("Failed to remove dataset", "dataset", name, "error", err)
		sendError(w, h.logger, "failed to remove dataset", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Dataset removed", "dataset", name)
	w.WriteHeader(http.StatusNoContent)
}

// ListRecords обрабатывает GET /api/v1/datasets/{dataset}/records
// Возвращает полное текущее состояние датасета
func (h *DatasetHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	name, ok := h.datasetName(w, r)
	if !ok {
		return
	}

	records, err := h.storage.ListRecords(r.Context(), name)
	if err != nil {
		h.logger.Error("Failed to list records", "dataset", name, "error", err)
		sendError(w, h.logger, "failed to list records", http.StatusInternalServerError)
		return
	}

	resp := api.ListRecordsResponse{Records: make(map[string]api.RecordState, len(records))}
	for _, rec := range records {
		resp.Records[rec.UID] = api.RecordState{Data: rec.Data, Hash: rec.Hash}
	}

	sendJSON(w, h.logger, resp, http.StatusOK)
}

// CreateRecord обрабатывает POST /api/v1/datasets/{dataset}/records
func (h *DatasetHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	name, ok := h.datasetName(w, r)
	if !ok {
		return
	}

	data, ok := h.readRecord(w, r)
	if !ok {
		return
	}

	rec, err := h.storage.CreateRecord(r.Context(), name, data)
	if err != nil {
		h.logger.Error("Failed to create record", "dataset", name, "error", err)
		sendError(w, h.logger, "failed to create record", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("Record created", "dataset", name, "uid", rec.UID)
	sendJSON(w, h.logger, api.RecordResponse{UID: rec.UID, Hash: rec.Hash}, http.StatusCreated)
}

// UpdateRecord обрабатывает PUT /api/v1/datasets/{dataset}/records/{uid}
func (h *DatasetHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	name, ok := h.datasetName(w, r)
	if !ok {
		return
	}
	uid := r.PathValue("uid")

	data, ok := h.readRecord(w, r)
	if !ok {
		return
	}

	rec, err := h.storage.UpdateRecord(r.Context(), name, uid, data)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			sendError(w, h.logger, "record not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to update record", "dataset", name, "uid", uid, "error", err)
		sendError(w, h.logger, "failed to update record", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("Record updated", "dataset", name, "uid", uid)
	sendJSON(w, h.logger, api.RecordResponse{UID: rec.UID, Hash: rec.Hash}, http.StatusOK)
}

// DeleteRecord обрабатывает DELETE /api/v1/datasets/{dataset}/records/{uid}
func (h *DatasetHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	name, ok := h.datasetName(w, r)
	if !ok {
		return
	}
	uid := r.PathValue("uid")

	if err := h.storage.DeleteRecord(r.Context(), name, uid); err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			sendError(w, h.logger, "record not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to delete record", "dataset", name, "uid", uid, "error", err)
		sendError(w, h.logger, "failed to delete record", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("Record deleted", "dataset", name, "uid", uid)
	w.WriteHeader(http.StatusNoContent)
}

// datasetName извлекает имя датасета из пути и отвечает 400 на недопустимое
func (h *DatasetHandler) datasetName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := r.PathValue("dataset")
	if err := validation.ValidateDatasetName(name); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return name, true
}

// readRecord декодирует тело запроса записи и проверяет, что данные
// можно привести к канонической форме
func (h *DatasetHandler) readRecord(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var req api.RecordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("Failed to decode record request", "path", r.URL.Path, "error", err)
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return nil, false
	}

	if req.Data == nil {
		sendError(w, h.logger, "data is required", http.StatusBadRequest)
		return nil, false
	}

	if _, err := crypto.HashData(req.Data); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	return req.Data, true
}
