// Package dataset binds the local store and the pending queue of one dataset
// behind a single lock.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iudanet/datasync/internal/client/pending"
	"github.com/iudanet/datasync/internal/client/storage"
	"github.com/iudanet/datasync/internal/client/store"
	"github.com/iudanet/datasync/internal/crypto"
	"github.com/iudanet/datasync/internal/models"
)

// ErrInvalidData is returned for payloads that cannot be hashed
var ErrInvalidData = errors.New("invalid record data")

// Dataset is the single-writer unit of one dataset. CRUD calls and the
// apply phase of a sync cycle take the same lock, so a cycle never sees a
// torn write.
type Dataset struct {
	store *store.Store
	queue *pending.Queue
	id    string
	mu    sync.RWMutex
}

// New creates an empty dataset; call Load to restore persisted state
func New(id string, backend storage.Backend, index *store.UIDIndex) *Dataset {
	return &Dataset{
		store: store.New(id, backend, index),
		queue: pending.New(id, backend),
		id:    id,
	}
}

// ID returns the dataset name
func (d *Dataset) ID() string {
	return d.id
}

// Load restores records and pending changes from persistence and returns
// the loaded records.
func (d *Dataset) Load(ctx context.Context) (map[string]*models.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.store.Load(ctx); err != nil {
		return nil, err
	}
	if _, err := d.queue.Load(ctx); err != nil {
		return nil, err
	}
	return d.store.ListAll(), nil
}

// Create stages a new record under a local ref and queues its creation
func (d *Dataset) Create(ctx context.Context, data map[string]any) (*models.Record, error) {
	hash, err := crypto.HashData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ref := d.store.NewLocalRef(hash, d.queue.Has)
	rec := &models.Record{
		UpdatedAt: time.Now(),
		Data:      models.CloneData(data),
		UID:       models.PendingUID(ref),
		Hash:      hash,
	}
	if rec.Data == nil {
		rec.Data = map[string]any{}
	}

	if err := d.store.Put(ctx, rec); err != nil {
		return nil, err
	}

	_, err = d.queue.Enqueue(ctx, models.PendingChange{
		Key:     ref,
		Action:  models.ActionCreate,
		Payload: rec.Data,
		Hash:    hash,
	})
	if err != nil {
		// Откатываем запись, чтобы не остаться с записью без изменения в очереди
		err = errors.Join(err, d.store.Remove(ctx, ref))
		return nil, err
	}

	return rec.Clone(), nil
}

// Read returns the record addressed by uid (a remote UID or a local ref)
func (d *Dataset) Read(uid string) (*models.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.store.Get(uid)
}

// List returns a snapshot of all records
func (d *Dataset) List() map[string]*models.Record {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.store.ListAll()
}

// Update overwrites the data of a record and queues the update. An update
// that does not change the content hash is not queued.
func (d *Dataset) Update(ctx context.Context, uid string, data map[string]any) (*models.Record, error) {
	hash, err := crypto.HashData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := d.store.Get(uid)
	if err != nil {
		return nil, err
	}
	if current.Hash == hash {
		return current, nil
	}

	rec := &models.Record{
		UpdatedAt: time.Now(),
		Data:      models.CloneData(data),
		UID:       current.UID,
		Hash:      hash,
	}
	if rec.Data == nil {
		rec.Data = map[string]any{}
	}
	if err := d.store.Put(ctx, rec); err != nil {
		return nil, err
	}

	_, err = d.queue.Enqueue(ctx, models.PendingChange{
		Key:     rec.Key(),
		Action:  models.ActionUpdate,
		Payload: rec.Data,
		Hash:    hash,
	})
	if err != nil {
		// Без изменения в очереди следующий цикл молча вернул бы данные сервера
		return nil, errors.Join(err, d.store.Put(ctx, current))
	}

	return rec.Clone(), nil
}

// Delete removes a record locally and queues the deletion. Deleting a
// record that was never confirmed cancels its pending create.
func (d *Dataset) Delete(ctx context.Context, uid string) (*models.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := d.store.Get(uid)
	if err != nil {
		return nil, err
	}
	aliases := d.store.Aliases(current.Key())
	if err := d.store.Remove(ctx, current.Key()); err != nil {
		return nil, err
	}

	_, err = d.queue.Enqueue(ctx, models.PendingChange{
		Key:    current.Key(),
		Action: models.ActionDelete,
	})
	if err != nil {
		return nil, errors.Join(err, d.store.Restore(ctx, current, aliases))
	}

	return current, nil
}

// Apply runs fn with exclusive access to the store and the queue
func (d *Dataset) Apply(fn func(st *store.Store, q *pending.Queue) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return fn(d.store, d.queue)
}

// View runs fn with shared access to the store and the queue. fn must not
// modify either of them.
func (d *Dataset) View(fn func(st *store.Store, q *pending.Queue)) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	fn(d.store, d.queue)
}

// PendingLen returns the number of unacknowledged changes
func (d *Dataset) PendingLen() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.queue.Len()
}
