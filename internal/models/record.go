package models

import "time"

// UID идентификатор записи внутри датасета.
// До подтверждения удаленной стороной Ref содержит локальную ссылку
// (хеш содержимого на момент создания), после подтверждения - UID,
// выданный удаленным хранилищем.
type UID struct {
	Ref       string `json:"ref"`
	Confirmed bool   `json:"confirmed"`
}

// PendingUID возвращает неподтвержденный идентификатор для локальной ссылки.
func PendingUID(localRef string) UID {
	return UID{Ref: localRef}
}

// ConfirmedUID возвращает идентификатор, выданный удаленной стороной.
func ConfirmedUID(remoteUID string) UID {
	return UID{Ref: remoteUID, Confirmed: true}
}

// String returns the reference the caller addresses the record by.
func (u UID) String() string {
	return u.Ref
}

// IsZero reports whether the identifier is unset.
func (u UID) IsZero() bool {
	return u.Ref == ""
}

// Record представляет запись датасета в локальном хранилище.
type Record struct {
	UpdatedAt time.Time      `json:"updated_at"` // UpdatedAt время последнего локального изменения
	Data      map[string]any `json:"data"`       // Data произвольный JSON объект
	UID       UID            `json:"uid"`        // UID текущий идентификатор записи
	Hash      string         `json:"hash"`       // Hash хеш содержимого Data
}

// Key returns the store key of the record.
func (r *Record) Key() string {
	return r.UID.Ref
}

// Clone создает глубокую копию записи
func (r *Record) Clone() *Record {
	return &Record{
		UpdatedAt: r.UpdatedAt,
		Data:      CloneData(r.Data),
		UID:       r.UID,
		Hash:      r.Hash,
	}
}

// RemoteRecord is one entry of the remote snapshot of a dataset.
type RemoteRecord struct {
	Data map[string]any `json:"data"`
	Hash string         `json:"hash"`
}

// CloneData deep-copies a JSON object so callers never share nested
// maps or slices with the store.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneData(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
