package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/iudanet/datasync/internal/client/api"
	"github.com/iudanet/datasync/internal/client/dataset"
	"github.com/iudanet/datasync/internal/client/events"
	"github.com/iudanet/datasync/internal/client/pending"
	"github.com/iudanet/datasync/internal/client/storage"
	"github.com/iudanet/datasync/internal/client/store"
	"github.com/iudanet/datasync/internal/crypto"
	"github.com/iudanet/datasync/internal/models"
)

// ErrPushFailed is returned by RunCycle when some pending changes could not
// be pushed. They stay queued for the next cycle.
var ErrPushFailed = errors.New("push failed")

// Publisher receives the events of a cycle
type Publisher interface {
	Publish(e events.Event)
}

// CycleResult contains sync cycle results
type CycleResult struct {
	Status        string
	RemoteCreated int // записи, созданные другими клиентами
	RemoteUpdated int // записи, обновленные другими клиентами
	RemoteDeleted int // записи, удаленные другими клиентами
	Deferred      int // удаленные изменения, отложенные из-за локальных
	Pushed        int // успешно отправленные локальные изменения
	Failed        int // локальные изменения, отправка которых не удалась
}

// Reconciler runs sync cycles: it applies the remote state to the local
// copy of a dataset and pushes pending local changes.
type Reconciler struct {
	bridge   api.RemoteBridge
	metadata storage.MetadataStorage
	index    *store.UIDIndex
	events   Publisher
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(bridge api.RemoteBridge, metadata storage.MetadataStorage, index *store.UIDIndex, publisher Publisher, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		bridge:   bridge,
		metadata: metadata,
		index:    index,
		events:   publisher,
		logger:   logger,
	}
}

// RunCycle performs one sync cycle for ds
// 1. Fetches the remote snapshot
// 2. Applies remote creates, updates and deletes (pending local changes win)
// 3. Pushes pending local changes one by one
func (r *Reconciler) RunCycle(ctx context.Context, ds *dataset.Dataset) (*CycleResult, error) {
	id := ds.ID()
	r.logger.Debug("Starting sync cycle", "dataset", id)

	remote, err := r.bridge.ListDataset(ctx, id)
	if err != nil {
		r.logger.Warn("Failed to fetch remote state", "dataset", id, "error", err)
		r.publish(events.Event{Code: events.SyncFailed, DatasetID: id, Message: err.Error()})
		return nil, fmt.Errorf("list dataset: %w", err)
	}

	result := &CycleResult{}
	if err := r.applyRemote(ctx, ds, remote, result); err != nil {
		r.logger.Error("Failed to apply remote state", "dataset", id, "error", err)
		r.publish(events.Event{Code: events.ClientStorageFailed, DatasetID: id, Message: err.Error()})
		r.publish(events.Event{Code: events.SyncFailed, DatasetID: id, Message: err.Error()})
		return nil, fmt.Errorf("apply remote state: %w", err)
	}

	r.pushPending(ctx, ds, result)

	if err := r.metadata.SaveLastSync(ctx, id, time.Now()); err != nil {
		// Не прерываем цикл из-за ошибки сохранения времени
		r.logger.Warn("Failed to save last sync time", "dataset", id, "error", err)
	}

	result.Status = events.MessageOnline
	if result.Failed > 0 {
		result.Status = fmt.Sprintf("%d of %d pending changes failed to push", result.Failed, result.Failed+result.Pushed)
	}

	r.logger.Info("Sync cycle completed",
		"dataset", id,
		"remote_created", result.RemoteCreated,
		"remote_updated", result.RemoteUpdated,
		"remote_deleted", result.RemoteDeleted,
		"deferred", result.Deferred,
		"pushed", result.Pushed,
		"failed", result.Failed)

	r.publish(events.Event{Code: events.SyncComplete, DatasetID: id, Message: result.Status})

	if result.Failed > 0 {
		return result, fmt.Errorf("%w: %s", ErrPushFailed, result.Status)
	}
	return result, nil
}

// applyRemote сравнивает снимок сервера с локальным хранилищем под блокировкой
// датасета. События публикуются после снятия блокировки.
func (r *Reconciler) applyRemote(ctx context.Context, ds *dataset.Dataset, remote map[string]models.RemoteRecord, result *CycleResult) error {
	id := ds.ID()
	var emitted []events.Event

	err := ds.Apply(func(st *store.Store, q *pending.Queue) error {
		local := st.ListAll()

		for _, uid := range slices.Sorted(maps.Keys(remote)) {
			rr := remote[uid]

			// Локальное изменение всегда побеждает в этом цикле
			if q.Has(uid) {
				if cur, ok := local[uid]; !ok || cur.Hash != rr.Hash {
					result.Deferred++
				}
				continue
			}

			hash := rr.Hash
			if hash == "" {
				var err error
				if hash, err = crypto.HashData(rr.Data); err != nil {
					return fmt.Errorf("remote record %s: %w", uid, err)
				}
			}

			cur, exists := local[uid]
			if exists && cur.Hash == hash {
				continue
			}

			rec := &models.Record{
				Data: models.CloneData(rr.Data),
				UID:  models.ConfirmedUID(uid),
				Hash: hash,
			}
			if rec.Data == nil {
				rec.Data = map[string]any{}
			}
			if err := st.Put(ctx, rec); err != nil {
				return err
			}

			action := models.ActionCreate
			if exists {
				action = models.ActionUpdate
				result.RemoteUpdated++
			} else {
				result.RemoteCreated++
			}
			r.logger.Debug("Applied remote delta", "dataset", id, "uid", uid, "action", action)

			emitted = append(emitted,
				events.Event{Code: events.RecordDeltaReceived, DatasetID: id, UID: uid, Message: string(action)},
				events.Event{Code: events.RemoteUpdateApplied, DatasetID: id, UID: uid, Message: events.UpdateMessage{
					Type:   events.UpdateDelta,
					Action: string(action),
					UID:    uid,
					Hash:   hash,
				}},
			)
		}

		for _, key := range slices.Sorted(maps.Keys(local)) {
			// Неподтвержденные записи сервер еще не видел
			if !local[key].UID.Confirmed {
				continue
			}
			if _, ok := remote[key]; ok {
				continue
			}

			if err := st.Remove(ctx, key); err != nil {
				return err
			}
			if _, err := q.Discard(ctx, key); err != nil {
				return err
			}
			result.RemoteDeleted++
			r.logger.Debug("Applied remote delta", "dataset", id, "uid", key, "action", models.ActionDelete)

			emitted = append(emitted, events.Event{
				Code:      events.RecordDeltaReceived,
				DatasetID: id,
				UID:       key,
				Message:   string(models.ActionDelete),
			})
		}

		return nil
	})

	for _, e := range emitted {
		r.publish(e)
	}
	return err
}

// pushPending отправляет каждое изменение отдельно: ошибка одного
// не мешает отправке остальных
func (r *Reconciler) pushPending(ctx context.Context, ds *dataset.Dataset, result *CycleResult) {
	var drained []*models.PendingChange
	ds.View(func(_ *store.Store, q *pending.Queue) {
		drained = q.Drain()
	})

	for _, c := range drained {
		if ctx.Err() != nil {
			return
		}

		var change *models.PendingChange
		err := ds.Apply(func(_ *store.Store, q *pending.Queue) error {
			var err error
			change, err = q.Begin(c.ID)
			return err
		})
		if err != nil {
			// Изменение схлопнулось или удалено после Drain
			continue
		}

		if err := r.push(ctx, ds, change); err != nil {
			result.Failed++
			r.logger.Warn("Failed to push pending change",
				"dataset", ds.ID(),
				"key", change.Key,
				"action", change.Action,
				"error", err)

			if relErr := ds.Apply(func(_ *store.Store, q *pending.Queue) error {
				return q.Release(ctx, change.ID)
			}); relErr != nil {
				r.logger.Error("Failed to release pending change", "dataset", ds.ID(), "error", relErr)
			}

			r.publish(events.Event{Code: events.RemoteUpdateFailed, DatasetID: ds.ID(), UID: change.Key, Message: events.UpdateMessage{
				Type:   events.UpdateFailed,
				Action: string(change.Action),
				UID:    change.Key,
				Error:  err.Error(),
			}})
			continue
		}
		result.Pushed++
	}
}

// push sends one change and applies the confirmation locally
func (r *Reconciler) push(ctx context.Context, ds *dataset.Dataset, change *models.PendingChange) error {
	id := ds.ID()

	switch change.Action {
	case models.ActionCreate:
		res, err := r.bridge.CreateRecord(ctx, id, change.Payload)
		if err != nil {
			return err
		}
		r.confirm(ds, change, func(st *store.Store, q *pending.Queue) error {
			if err := q.Acknowledge(ctx, change.ID); err != nil {
				return err
			}
			if _, err := st.Rekey(ctx, change.Key, res.UID); err != nil && !errors.Is(err, store.ErrUnknownUID) {
				return err
			}
			// Последующие изменения той же записи идут на удаленный UID
			return q.Rekey(ctx, change.Key, res.UID)
		})
		r.index.Track(res.Hash, res.UID)
		r.index.Track(change.Hash, res.UID)

		r.publish(events.Event{Code: events.RemoteUpdateApplied, DatasetID: id, UID: res.UID, Message: events.UpdateMessage{
			Type:   events.UpdateApplied,
			Action: string(models.ActionCreate),
			UID:    res.UID,
			Hash:   res.Hash,
		}})
		r.publish(events.Event{Code: events.LocalUpdateApplied, DatasetID: id, UID: res.UID, Message: string(models.ActionCreate)})

	case models.ActionUpdate:
		res, err := r.bridge.UpdateRecord(ctx, id, change.Key, change.Payload)
		if err != nil {
			return err
		}
		r.confirm(ds, change, func(st *store.Store, q *pending.Queue) error {
			if err := q.Acknowledge(ctx, change.ID); err != nil {
				return err
			}
			rec, err := st.Get(change.Key)
			if err != nil {
				return nil
			}
			// Содержимое не менялось во время отправки: берем хеш сервера
			if rec.Hash == change.Hash && res.Hash != "" && res.Hash != rec.Hash {
				rec.Hash = res.Hash
				return st.Put(ctx, rec)
			}
			return nil
		})
		r.index.Track(res.Hash, change.Key)

		r.publish(events.Event{Code: events.RemoteUpdateApplied, DatasetID: id, UID: change.Key, Message: events.UpdateMessage{
			Type:   events.UpdateApplied,
			Action: string(models.ActionUpdate),
			UID:    change.Key,
			Hash:   res.Hash,
		}})
		r.publish(events.Event{Code: events.LocalUpdateApplied, DatasetID: id, UID: change.Key, Message: string(models.ActionUpdate)})

	case models.ActionDelete:
		err := r.bridge.DeleteRecord(ctx, id, change.Key)
		if err != nil && !errors.Is(err, api.ErrRecordNotFound) {
			return err
		}
		r.confirm(ds, change, func(_ *store.Store, q *pending.Queue) error {
			return q.Acknowledge(ctx, change.ID)
		})

		r.publish(events.Event{Code: events.RemoteUpdateApplied, DatasetID: id, UID: change.Key, Message: events.UpdateMessage{
			Type:   events.UpdateApplied,
			Action: string(models.ActionDelete),
			UID:    change.Key,
		}})

	default:
		return fmt.Errorf("unknown action %q", change.Action)
	}

	return nil
}

// confirm applies a remote confirmation locally. The remote side already
// holds the change, so a local failure is reported but does not fail the push.
func (r *Reconciler) confirm(ds *dataset.Dataset, change *models.PendingChange, fn func(st *store.Store, q *pending.Queue) error) {
	if err := ds.Apply(fn); err != nil {
		r.logger.Error("Failed to apply remote confirmation",
			"dataset", ds.ID(),
			"key", change.Key,
			"action", change.Action,
			"error", err)
		r.publish(events.Event{Code: events.ClientStorageFailed, DatasetID: ds.ID(), UID: change.Key, Message: err.Error()})
	}
}

func (r *Reconciler) publish(e events.Event) {
	if r.events != nil {
		r.events.Publish(e)
	}
}
