package models

import "time"

// Action тип локального изменения
type Action string

// Действия над записями
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// PendingChange представляет локальное изменение, еще не подтвержденное
// удаленной стороной.
type PendingChange struct {
	Timestamp time.Time      `json:"timestamp"` // Timestamp время постановки в очередь
	Payload   map[string]any `json:"payload"`   // Payload данные записи (nil для delete)
	ID        string         `json:"id"`        // ID уникальный идентификатор изменения (UUID)
	Key       string         `json:"key"`       // Key ключ записи в локальном хранилище
	Action    Action         `json:"action"`    // Action create, update или delete
	Hash      string         `json:"hash"`      // Hash хеш Payload на момент постановки
	Seq       uint64         `json:"seq"`       // Seq порядковый номер внутри датасета
	// InFlight изменение отправлено удаленной стороне и ждет ответа.
	// Не сохраняется: после перезапуска все изменения снова доступны для отправки.
	InFlight bool `json:"-"`
}

// Clone создает глубокую копию изменения
func (c *PendingChange) Clone() *PendingChange {
	clone := *c
	clone.Payload = CloneData(c.Payload)
	return &clone
}
