package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/datasync/internal/client/api"
	"github.com/iudanet/datasync/internal/client/events"
	syncer "github.com/iudanet/datasync/internal/client/sync"
)

// run is the sync loop of one dataset. The first cycle starts right away,
// the next ones on the timer or on request. The timer counts from the end of
// the previous cycle. In manual mode every cycle waits for a request.
func (e *Engine) run(m *managed) {
	done := m.doneChan()
	defer close(done)

	var (
		ticker *time.Ticker
		ticks  <-chan time.Time
	)
	if !m.opts.manual {
		ticker = time.NewTicker(m.opts.frequency)
		defer ticker.Stop()
		ticks = ticker.C
	}

	due := !m.opts.manual
	for {
		if due {
			if !e.cycle(m) {
				return
			}
			// Тики во время цикла отбрасываются, следующий через полный период
			if ticker != nil {
				ticker.Reset(m.opts.frequency)
			}
		}
		due = true

		select {
		case <-m.stop:
			return
		case <-ticks:
		case <-m.trigger:
		}
	}
}

// cycle runs one sync cycle and reports whether the loop should go on.
// A cycle that has started is not interrupted by StopSync.
func (e *Engine) cycle(m *managed) bool {
	id := m.ds.ID()

	waiters, ok := m.beginCycle()
	if !ok {
		return false
	}

	e.publish(events.Event{Code: events.SyncStarted, DatasetID: id})

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.RequestTimeout)
	defer cancel()

	err := e.register(ctx, m)
	synced := false
	if err == nil {
		_, err = e.reconciler.RunCycle(ctx, m.ds)
		synced = err == nil || errors.Is(err, syncer.ErrPushFailed)
	}

	crashed, next := m.endCycle(err, synced, e.cfg.CrashedCountWait)
	for _, w := range waiters {
		w <- err
	}

	if crashed {
		st := m.status()
		e.logger.Error("Dataset crashed", "dataset", id, "failures", st.Failures, "error", err)
		e.publish(events.Event{
			Code:      events.DatasetCrashed,
			DatasetID: id,
			Message:   fmt.Sprintf("%d consecutive sync cycles failed: %s", st.Failures, st.LastError),
		})
	}

	return next
}

// register declares the dataset on the remote side once per managed dataset
func (e *Engine) register(ctx context.Context, m *managed) error {
	if m.isRegistered() {
		return nil
	}

	id := m.ds.ID()
	opts := api.DatasetOptions{SyncFrequency: m.opts.frequency.Seconds()}
	if err := e.bridge.RegisterDataset(ctx, id, opts); err != nil {
		e.logger.Warn("Failed to register dataset", "dataset", id, "error", err)
		e.publish(events.Event{Code: events.SyncFailed, DatasetID: id, Message: err.Error()})
		return fmt.Errorf("register dataset: %w", err)
	}

	m.markRegistered()
	return nil
}
