package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/datasync/pkg/api"
)

// maxBodySize ограничивает размер тела запроса с данными записи
const maxBodySize = 1 << 20

// sendJSON отправляет JSON ответ
func sendJSON(w http.ResponseWriter, logger *slog.Logger, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func sendError(w http.ResponseWriter, logger *slog.Logger, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	sendJSON(w, logger, resp, statusCode)
}

// decodeJSON читает тело запроса в v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}
