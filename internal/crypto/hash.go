package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"golang.org/x/text/unicode/norm"
)

// DomainRecord is mixed into every record digest so that record hashes never
// collide with other SHA-256 values produced by the system.
const DomainRecord = "datasync/record/v1"

// HashData вычисляет детерминированный content hash для данных записи.
// Используется и на клиенте, и на сервере, поэтому оба конца получают
// одинаковый hash для одинакового содержимого.
//
// Format: hex(SHA256(domain + 0x00 + canonicalJSON(data)))
func HashData(data map[string]any) (string, error) {
	canonical, err := MarshalCanonical(data)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize record data: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DomainRecord))
	h.Write([]byte{0x00})
	h.Write(canonical)

	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustHashData is like HashData but panics on error.
// Use only in tests or when data is known to be JSON-compatible.
func MustHashData(data map[string]any) string {
	hash, err := HashData(data)
	if err != nil {
		panic(err)
	}
	return hash
}

// SameContent reports whether two payloads hash to the same digest.
func SameContent(a, b map[string]any) (bool, error) {
	ha, err := HashData(a)
	if err != nil {
		return false, err
	}
	hb, err := HashData(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}

// MarshalCanonical produces the byte form used for hashing:
// object keys sorted, no HTML escaping, strings NFC normalized.
// A nil map encodes as an empty object.
func MarshalCanonical(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}

	normalized, err := canonicalValue(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, fmt.Errorf("failed to encode canonical json: %w", err)
	}

	// Encoder всегда добавляет '\n' в конце
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// canonicalValue приводит значение к одному из JSON-типов:
// nil, bool, string, float64, json.Number, map[string]any, []any.
func canonicalValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool:
		return val, nil
	case string:
		return norm.NFC.String(val), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("non-finite number %v is not valid JSON", val)
		}
		return val, nil
	case float32:
		return canonicalValue(float64(val))
	case int:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid json number %q: %w", val, err)
		}
		return f, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			key := norm.NFC.String(k)
			if _, dup := out[key]; dup {
				return nil, fmt.Errorf("object keys collide after normalization: %q", key)
			}
			c, err := canonicalValue(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			out[key] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			c, err := canonicalValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	default:
		// Остальные типы (структуры, []string, map[string]string...) проводим
		// через JSON round-trip, чтобы получить то же представление,
		// что придёт обратно с сервера.
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("unsupported value of type %T: %w", v, err)
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return nil, fmt.Errorf("failed to decode %T: %w", v, err)
		}
		return canonicalValue(generic)
	}
}
