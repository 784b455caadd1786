// Package engine exposes the offline-first caller API and drives one sync
// loop per managed dataset.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/iudanet/datasync/internal/client/api"
	"github.com/iudanet/datasync/internal/client/dataset"
	"github.com/iudanet/datasync/internal/client/events"
	"github.com/iudanet/datasync/internal/client/storage"
	"github.com/iudanet/datasync/internal/client/storage/boltdb"
	"github.com/iudanet/datasync/internal/client/storage/memory"
	"github.com/iudanet/datasync/internal/client/store"
	syncer "github.com/iudanet/datasync/internal/client/sync"
	"github.com/iudanet/datasync/internal/config"
	"github.com/iudanet/datasync/internal/models"
	"github.com/iudanet/datasync/internal/validation"
)

// CreateResult is returned by Create as soon as the record is staged locally
type CreateResult struct {
	Post   map[string]any `json:"post"`
	UID    string         `json:"uid"`
	Hash   string         `json:"hash"`
	Action string         `json:"action"`
}

// Status describes a dataset
type Status struct {
	LastSync       time.Time           `json:"last_sync"`
	DatasetID      string              `json:"dataset_id"`
	State          models.DatasetState `json:"state"`
	LastError      string              `json:"last_error,omitempty"`
	Failures       int                 `json:"failures"`
	PendingChanges int                 `json:"pending_changes"`
	Records        int                 `json:"records"`
}

// Engine is the client-side sync engine
type Engine struct {
	bridge     api.RemoteBridge
	backend    storage.Backend
	index      *store.UIDIndex
	bus        *events.Bus
	reconciler *syncer.Reconciler
	logger     *slog.Logger
	datasets   map[string]*managed
	cfg        config.Client
	mu         sync.Mutex
	closed     bool
}

// OpenBackend opens the persistence backend selected by cfg.StorageStrategy
func OpenBackend(ctx context.Context, cfg config.Client) (storage.Backend, error) {
	switch cfg.StorageStrategy {
	case storage.StrategyMemory:
		return memory.New(), nil
	case storage.StrategyBolt:
		var opts []boltdb.Option
		if cfg.Passphrase != "" {
			opts = append(opts, boltdb.WithPassphrase(cfg.Passphrase))
		}
		return boltdb.New(ctx, cfg.StoragePath, opts...)
	default:
		return nil, fmt.Errorf("unknown storage strategy %q", cfg.StorageStrategy)
	}
}

// New validates cfg, opens the storage backend and creates an engine
func New(ctx context.Context, cfg config.Client, bridge api.RemoteBridge, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	return NewWithBackend(cfg, bridge, backend, logger), nil
}

// NewWithBackend creates an engine over an already opened backend.
// The engine owns the backend and closes it in Close.
func NewWithBackend(cfg config.Client, bridge api.RemoteBridge, backend storage.Backend, logger *slog.Logger) *Engine {
	bus := events.NewBus()
	index := store.NewUIDIndex()

	return &Engine{
		bridge:     bridge,
		backend:    backend,
		index:      index,
		bus:        bus,
		reconciler: syncer.NewReconciler(bridge, backend, index, bus, logger),
		logger:     logger,
		datasets:   make(map[string]*managed),
		cfg:        cfg,
	}
}

// Manage starts syncing a dataset. Persisted records are loaded first and
// reported with local_update_applied (load). Managing a dataset that is
// already syncing is a no-op; managing a crashed dataset resumes it.
func (e *Engine) Manage(ctx context.Context, id string, opts ...DatasetOption) error {
	if err := validation.ValidateDatasetName(id); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDatasetName, err)
	}

	o := datasetOptions{frequency: e.cfg.SyncInterval()}
	for _, opt := range opts {
		opt(&o)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}

	if m, ok := e.datasets[id]; ok {
		e.mu.Unlock()
		if m.resume() {
			e.logger.Info("Resuming crashed dataset", "dataset", id)
			go e.run(m)
		}
		return nil
	}

	ds := dataset.New(id, e.backend, e.index)
	loaded, err := ds.Load(ctx)
	if err != nil {
		e.mu.Unlock()
		e.publish(events.Event{Code: events.ClientStorageFailed, DatasetID: id, Message: err.Error()})
		return fmt.Errorf("failed to load dataset %s: %w", id, err)
	}

	lastSync, err := e.backend.GetLastSync(ctx, id)
	if err != nil {
		e.logger.Warn("Failed to get last sync time", "dataset", id, "error", err)
	}

	m := newManaged(ds, o, lastSync)
	e.datasets[id] = m
	e.mu.Unlock()

	e.logger.Info("Managing dataset",
		"dataset", id,
		"records", len(loaded),
		"pending", ds.PendingLen(),
		"frequency", o.frequency,
		"manual", o.manual)

	for _, key := range slices.Sorted(maps.Keys(loaded)) {
		e.publish(events.Event{Code: events.LocalUpdateApplied, DatasetID: id, UID: key, Message: events.MessageLoad})
	}

	go e.run(m)
	return nil
}

// StopSync stops the loop of a dataset and purges its in-memory state.
// A cycle in flight finishes on its own; StopSync waits for it unless ctx
// ends first. Stopping a dataset that is not managed succeeds.
func (e *Engine) StopSync(ctx context.Context, id string) error {
	e.mu.Lock()
	m, ok := e.datasets[id]
	if ok {
		delete(e.datasets, id)
	}
	e.mu.Unlock()

	if !ok {
		return nil
	}

	done := m.stopLoop()
	e.logger.Info("Stopped dataset sync", "dataset", id)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drop stops a dataset, removes its persisted local state and the remote dataset
func (e *Engine) Drop(ctx context.Context, id string) error {
	if err := e.StopSync(ctx, id); err != nil {
		return err
	}
	if err := e.backend.ClearDataset(ctx, id); err != nil {
		return fmt.Errorf("failed to clear local dataset: %w", err)
	}
	if err := e.bridge.RemoveDataset(ctx, id); err != nil && !errors.Is(err, api.ErrRecordNotFound) {
		return fmt.Errorf("failed to remove remote dataset: %w", err)
	}
	return nil
}

func (e *Engine) get(id string) (*managed, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	m, ok := e.datasets[id]
	if !ok {
		return nil, ErrUnknownDataset
	}
	return m, nil
}

// Create stages a record locally and returns immediately; the record is
// pushed by a later cycle.
func (e *Engine) Create(ctx context.Context, id string, data map[string]any) (*CreateResult, error) {
	m, err := e.get(id)
	if err != nil {
		return nil, err
	}

	rec, err := m.ds.Create(ctx, data)
	if err != nil {
		e.crudFailed(id, "", err)
		return nil, err
	}

	e.publish(events.Event{Code: events.LocalUpdateApplied, DatasetID: id, UID: rec.Key(), Message: string(models.ActionCreate)})

	return &CreateResult{
		Post:   models.CloneData(rec.Data),
		UID:    rec.Key(),
		Hash:   rec.Hash,
		Action: string(models.ActionCreate),
	}, nil
}

// Read returns the record addressed by uid
func (e *Engine) Read(id, uid string) (*models.Record, error) {
	m, err := e.get(id)
	if err != nil {
		return nil, err
	}
	return m.ds.Read(uid)
}

// Update overwrites the data of a record locally
func (e *Engine) Update(ctx context.Context, id, uid string, data map[string]any) (*models.Record, error) {
	m, err := e.get(id)
	if err != nil {
		return nil, err
	}

	rec, err := m.ds.Update(ctx, uid, data)
	if err != nil {
		e.crudFailed(id, uid, err)
		return nil, err
	}

	e.publish(events.Event{Code: events.LocalUpdateApplied, DatasetID: id, UID: rec.Key(), Message: string(models.ActionUpdate)})
	return rec, nil
}

// Delete removes a record locally
func (e *Engine) Delete(ctx context.Context, id, uid string) error {
	m, err := e.get(id)
	if err != nil {
		return err
	}

	rec, err := m.ds.Delete(ctx, uid)
	if err != nil {
		e.crudFailed(id, uid, err)
		return err
	}

	e.publish(events.Event{Code: events.LocalUpdateApplied, DatasetID: id, UID: rec.Key(), Message: string(models.ActionDelete)})
	return nil
}

// List returns a snapshot of the records of a dataset keyed by UID
func (e *Engine) List(id string) (map[string]*models.Record, error) {
	m, err := e.get(id)
	if err != nil {
		return nil, err
	}
	return m.ds.List(), nil
}

// GetUID returns the identifier of the record whose content has hash
func (e *Engine) GetUID(hash string) string {
	return e.index.GetUID(hash)
}

// Notify subscribes observer to all engine events and returns a function
// removing the subscription.
func (e *Engine) Notify(observer events.Observer) func() {
	return e.bus.Subscribe(observer)
}

// ForceSync schedules a cycle as soon as the current one, if any, ends
func (e *Engine) ForceSync(id string) error {
	m, err := e.get(id)
	if err != nil {
		return err
	}
	if m.State() == models.StateCrashed {
		return ErrDatasetCrashed
	}
	m.kick()
	return nil
}

// Sync runs a cycle that starts after the call and waits for its result
func (e *Engine) Sync(ctx context.Context, id string) error {
	m, err := e.get(id)
	if err != nil {
		return err
	}

	wait, err := m.addWaiter()
	if err != nil {
		return err
	}
	m.kick()

	select {
	case err := <-wait:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the sync state of a dataset; unmanaged datasets are stopped
func (e *Engine) State(id string) models.DatasetState {
	m, err := e.get(id)
	if err != nil {
		return models.StateStopped
	}
	return m.State()
}

// Status describes a managed dataset
func (e *Engine) Status(id string) (*Status, error) {
	m, err := e.get(id)
	if err != nil {
		return nil, err
	}
	st := m.status()
	st.DatasetID = id
	st.PendingChanges = m.ds.PendingLen()
	st.Records = len(m.ds.List())
	return &st, nil
}

// Datasets returns the names of managed datasets
func (e *Engine) Datasets() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Sorted(maps.Keys(e.datasets))
}

// Close stops every dataset, delivers queued events and closes the backend
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	datasets := e.datasets
	e.datasets = make(map[string]*managed)
	e.mu.Unlock()

	var errs []error
	for _, m := range datasets {
		select {
		case <-m.stopLoop():
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}

	e.bus.Close()
	if err := e.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
	}
	return errors.Join(errs...)
}

// crudFailed reports persistence failures of CRUD calls as events.
// Caller mistakes are only returned.
func (e *Engine) crudFailed(id, uid string, err error) {
	if errors.Is(err, store.ErrUnknownUID) || errors.Is(err, dataset.ErrInvalidData) {
		return
	}
	e.logger.Error("Local storage failure", "dataset", id, "uid", uid, "error", err)
	e.publish(events.Event{Code: events.ClientStorageFailed, DatasetID: id, UID: uid, Message: err.Error()})
}

func (e *Engine) publish(ev events.Event) {
	e.bus.Publish(ev)
}
