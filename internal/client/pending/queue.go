// Package pending keeps the ordered log of local changes that the remote
// side has not acknowledged yet.
package pending

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/datasync/internal/client/storage"
	"github.com/iudanet/datasync/internal/models"
)

var (
	// ErrChangeNotFound is returned for ids that are not in the queue
	ErrChangeNotFound = errors.New("pending change not found")

	// ErrInFlight is returned by Begin for a change that is already being pushed
	ErrInFlight = errors.New("pending change already in flight")
)

// Queue is the pending change log of one dataset.
// Queue is not safe for concurrent use; dataset.Dataset serializes access.
type Queue struct {
	backend storage.PendingStorage
	dataset string
	changes []*models.PendingChange
	nextSeq uint64
}

// New creates an empty queue for dataset
func New(dataset string, backend storage.PendingStorage) *Queue {
	return &Queue{backend: backend, dataset: dataset, nextSeq: 1}
}

// Load replaces the in-memory log with the persisted one
func (q *Queue) Load(ctx context.Context) (int, error) {
	changes, err := q.backend.ListPending(ctx, q.dataset)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending changes: %w", err)
	}

	q.changes = changes
	q.nextSeq = 1
	if n := len(changes); n > 0 {
		q.nextSeq = changes[n-1].Seq + 1
	}
	return len(changes), nil
}

// merge folds next into existing, an outstanding change for the same key.
// It returns the resulting change, or nil when the pair cancels out.
func merge(existing, next *models.PendingChange) *models.PendingChange {
	out := existing.Clone()
	out.Timestamp = next.Timestamp

	switch {
	case existing.Action == models.ActionCreate && next.Action == models.ActionDelete:
		// Запись не покидала клиент
		return nil
	case existing.Action == models.ActionCreate:
		out.Payload = models.CloneData(next.Payload)
		out.Hash = next.Hash
	case next.Action == models.ActionDelete:
		out.Action = models.ActionDelete
		out.Payload = nil
		out.Hash = ""
	default:
		out.Action = next.Action
		out.Payload = models.CloneData(next.Payload)
		out.Hash = next.Hash
	}
	return out
}

// Enqueue appends change, collapsing it into an outstanding change for the
// same key. A change that is in flight is never rewritten: the new change
// waits behind it. Returns the resulting entry or nil if the key no longer
// has anything to send.
func (q *Queue) Enqueue(ctx context.Context, change models.PendingChange) (*models.PendingChange, error) {
	if !change.Action.Valid() {
		return nil, fmt.Errorf("invalid action %q", change.Action)
	}
	if change.Key == "" {
		return nil, fmt.Errorf("pending change without key")
	}
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now()
	}
	change.InFlight = false

	if i := q.outstanding(change.Key); i >= 0 {
		return q.fold(ctx, i, &change)
	}

	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	change.Seq = q.nextSeq
	change.Payload = models.CloneData(change.Payload)

	if err := q.backend.SavePending(ctx, q.dataset, &change); err != nil {
		return nil, fmt.Errorf("failed to save pending change: %w", err)
	}

	q.nextSeq++
	q.changes = append(q.changes, &change)
	return change.Clone(), nil
}

// fold merges next into the outstanding change at index i and persists the result
func (q *Queue) fold(ctx context.Context, i int, next *models.PendingChange) (*models.PendingChange, error) {
	existing := q.changes[i]
	merged := merge(existing, next)

	if merged == nil {
		if err := q.backend.DeletePending(ctx, q.dataset, existing.Seq); err != nil {
			return nil, fmt.Errorf("failed to delete pending change: %w", err)
		}
		q.changes = slices.Delete(q.changes, i, i+1)
		return nil, nil
	}

	if err := q.backend.SavePending(ctx, q.dataset, merged); err != nil {
		return nil, fmt.Errorf("failed to save pending change: %w", err)
	}
	q.changes[i] = merged
	return merged.Clone(), nil
}

// outstanding returns the index of the change for key that is not in flight
func (q *Queue) outstanding(key string) int {
	return slices.IndexFunc(q.changes, func(c *models.PendingChange) bool {
		return c.Key == key && !c.InFlight
	})
}

func (q *Queue) indexOf(id string) int {
	return slices.IndexFunc(q.changes, func(c *models.PendingChange) bool {
		return c.ID == id
	})
}

// Drain returns, in queue order, copies of the changes that can be pushed
// now: not in flight and not waiting behind an earlier change for the same
// key. The queue is not modified.
func (q *Queue) Drain() []*models.PendingChange {
	seen := make(map[string]struct{}, len(q.changes))
	var out []*models.PendingChange

	for _, c := range q.changes {
		if _, blocked := seen[c.Key]; blocked {
			continue
		}
		seen[c.Key] = struct{}{}
		if c.InFlight {
			continue
		}
		out = append(out, c.Clone())
	}
	return out
}

// Begin marks a change as in flight and returns its current contents.
func (q *Queue) Begin(id string) (*models.PendingChange, error) {
	i := q.indexOf(id)
	if i < 0 {
		return nil, ErrChangeNotFound
	}
	c := q.changes[i]
	if c.InFlight {
		return nil, ErrInFlight
	}
	c.InFlight = true
	return c.Clone(), nil
}

// Acknowledge removes a change confirmed by the remote side
func (q *Queue) Acknowledge(ctx context.Context, id string) error {
	i := q.indexOf(id)
	if i < 0 {
		return ErrChangeNotFound
	}

	if err := q.backend.DeletePending(ctx, q.dataset, q.changes[i].Seq); err != nil {
		return fmt.Errorf("failed to delete pending change: %w", err)
	}
	q.changes = slices.Delete(q.changes, i, i+1)
	return nil
}

// Release returns a change whose push failed to the queue. A change for the
// same key enqueued while it was in flight is folded into it.
func (q *Queue) Release(ctx context.Context, id string) error {
	i := q.indexOf(id)
	if i < 0 {
		return ErrChangeNotFound
	}
	c := q.changes[i]
	c.InFlight = false

	j := slices.IndexFunc(q.changes[i+1:], func(f *models.PendingChange) bool {
		return f.Key == c.Key
	})
	if j < 0 {
		return nil
	}
	j += i + 1
	follow := q.changes[j]

	merged := merge(c, follow)
	if err := q.backend.DeletePending(ctx, q.dataset, follow.Seq); err != nil {
		return fmt.Errorf("failed to delete pending change: %w", err)
	}
	q.changes = slices.Delete(q.changes, j, j+1)

	if merged == nil {
		if err := q.backend.DeletePending(ctx, q.dataset, c.Seq); err != nil {
			return fmt.Errorf("failed to delete pending change: %w", err)
		}
		q.changes = slices.Delete(q.changes, i, i+1)
		return nil
	}

	if err := q.backend.SavePending(ctx, q.dataset, merged); err != nil {
		return fmt.Errorf("failed to save pending change: %w", err)
	}
	q.changes[i] = merged
	return nil
}

// Rekey moves the changes of oldKey to newKey after the remote side
// confirmed a create.
func (q *Queue) Rekey(ctx context.Context, oldKey, newKey string) error {
	for i, c := range q.changes {
		if c.Key != oldKey {
			continue
		}
		moved := c.Clone()
		moved.Key = newKey
		if err := q.backend.SavePending(ctx, q.dataset, moved); err != nil {
			return fmt.Errorf("failed to save pending change: %w", err)
		}
		q.changes[i] = moved
	}
	return nil
}

// Discard drops every change for key, e.g. after the record was deleted remotely
func (q *Queue) Discard(ctx context.Context, key string) (int, error) {
	var dropped int
	for i := 0; i < len(q.changes); {
		c := q.changes[i]
		if c.Key != key {
			i++
			continue
		}
		if err := q.backend.DeletePending(ctx, q.dataset, c.Seq); err != nil {
			return dropped, fmt.Errorf("failed to delete pending change: %w", err)
		}
		q.changes = slices.Delete(q.changes, i, i+1)
		dropped++
	}
	return dropped, nil
}

// Has reports whether any change, in flight or not, exists for key
func (q *Queue) Has(key string) bool {
	return slices.ContainsFunc(q.changes, func(c *models.PendingChange) bool {
		return c.Key == key
	})
}

// Len returns the number of changes in the log
func (q *Queue) Len() int {
	return len(q.changes)
}

// List returns copies of all changes in queue order
func (q *Queue) List() []*models.PendingChange {
	out := make([]*models.PendingChange, len(q.changes))
	for i, c := range q.changes {
		out[i] = c.Clone()
	}
	return out
}
