// Package events delivers typed engine events to registered observers.
package events

import "time"

// Code identifies the kind of an event
type Code string

// Event codes
const (
	SyncStarted         Code = "sync_started"
	SyncComplete        Code = "sync_complete"
	SyncFailed          Code = "sync_failed"
	LocalUpdateApplied  Code = "local_update_applied"
	RemoteUpdateApplied Code = "remote_update_applied"
	RecordDeltaReceived Code = "record_delta_received"
	RemoteUpdateFailed  Code = "remote_update_failed"
	ClientStorageFailed Code = "client_storage_failed"
	DatasetCrashed      Code = "dataset_crashed"
)

// Messages carried by events
const (
	MessageOnline = "online"
	MessageLoad   = "load"
)

// Kinds of remote_update_applied and remote_update_failed messages
const (
	UpdateDelta   = "delta"
	UpdateApplied = "applied"
	UpdateFailed  = "failed"
)

// Event is one notification of the engine
type Event struct {
	Time time.Time `json:"time"`
	// Message is nil, a string or an UpdateMessage depending on Code
	Message   any    `json:"message"`
	Code      Code   `json:"code"`
	DatasetID string `json:"dataset_id"`
	UID       string `json:"uid,omitempty"`
}

// UpdateMessage is the message of remote_update_applied and
// remote_update_failed events
type UpdateMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	UID    string `json:"uid,omitempty"`
	Hash   string `json:"hash,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Observer receives events. Observers are called from a delivery goroutine
// owned by their subscription, one event at a time.
type Observer func(Event)
