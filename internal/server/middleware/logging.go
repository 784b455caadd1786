package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"time"
)

// statusRecorder запоминает код ответа и число записанных байт
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += int64(n)
	return n, err
}

// Unwrap gives http.ResponseController access to the underlying writer
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// levelFor: 5xx - error, 4xx - warn, остальное - info
func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// AccessLog logs one line per request with the matched route and dataset.
// Requests to the skip paths (health probes) are not logged. Record
// payloads are never logged.
func AccessLog(logger *slog.Logger, skip ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(skip, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("client", clientKey(r)),
				slog.Int("status", rec.status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.Int64("bytes_written", rec.bytes),
			}
			// Pattern и PathValue заполняет ServeMux внутри цепочки
			if r.Pattern != "" {
				attrs = append(attrs, slog.String("route", r.Pattern))
			}
			if ds := r.PathValue("dataset"); ds != "" {
				attrs = append(attrs, slog.String("dataset", ds))
			}

			logger.LogAttrs(r.Context(), levelFor(rec.status), "HTTP request", attrs...)
		})
	}
}
