package engine

import (
	"sync"
	"time"

	"github.com/iudanet/datasync/internal/client/dataset"
	"github.com/iudanet/datasync/internal/models"
)

// managed is a dataset together with the state of its sync loop
type managed struct {
	ds       *dataset.Dataset
	trigger  chan struct{}
	stop     chan struct{}
	done     chan struct{}
	lastSync time.Time
	lastErr  string
	waiters  []chan error
	opts     datasetOptions
	state    models.DatasetState
	failures int
	mu       sync.Mutex

	registered bool
	stopped    bool
}

func newManaged(ds *dataset.Dataset, opts datasetOptions, lastSync time.Time) *managed {
	return &managed{
		ds:       ds,
		trigger:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		lastSync: lastSync,
		opts:     opts,
		state:    models.StateInitializing,
	}
}

// State returns the current state of the loop
func (m *managed) State() models.DatasetState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *managed) status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		LastSync:  m.lastSync,
		State:     m.state,
		LastError: m.lastErr,
		Failures:  m.failures,
	}
}

// setState переводит датасет в новое состояние, если переход разрешен.
// Вызывается под m.mu.
func (m *managed) setState(next models.DatasetState) bool {
	if m.state == next {
		return true
	}
	if !m.state.CanTransition(next) {
		return false
	}
	m.state = next
	return true
}

// kick requests a cycle without blocking; requests made while one is
// already queued are merged.
func (m *managed) kick() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

func (m *managed) addWaiter() (<-chan error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.stopped:
		return nil, errStopped
	case m.state == models.StateCrashed:
		return nil, ErrDatasetCrashed
	}

	ch := make(chan error, 1)
	m.waiters = append(m.waiters, ch)
	return ch, nil
}

// beginCycle moves the dataset to syncing and takes the waiters that the
// cycle will answer. Returns false when the loop has to exit.
func (m *managed) beginCycle() ([]chan error, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil, false
	}
	// Первый цикл выполняется в состоянии initializing
	if m.state != models.StateInitializing && !m.setState(models.StateSyncing) {
		return nil, false
	}

	waiters := m.waiters
	m.waiters = nil
	return waiters, true
}

// endCycle records the outcome of a cycle. It reports whether the dataset
// crashed and whether the loop should go on.
func (m *managed) endCycle(err error, synced bool, crashAfter int) (crashed, next bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if synced {
		m.lastSync = time.Now()
	}

	if err == nil {
		m.failures = 0
		m.lastErr = ""
	} else {
		m.failures++
		m.lastErr = err.Error()
	}

	if m.stopped {
		return false, false
	}

	if err != nil && m.failures >= crashAfter {
		m.setState(models.StateCrashed)
		return true, false
	}

	m.setState(models.StateIdle)
	return false, true
}

// resume restarts a crashed dataset. Returns true when the caller must
// start a new loop.
func (m *managed) resume() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped || m.state != models.StateCrashed {
		return false
	}
	m.setState(models.StateSyncing)
	m.failures = 0
	m.done = make(chan struct{})
	// Без таймера новый цикл нужно запросить явно
	if m.opts.manual {
		m.kick()
	}
	return true
}

func (m *managed) doneChan() chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// stopLoop marks the dataset stopped and returns a channel closed once the
// loop has exited.
func (m *managed) stopLoop() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.stopped {
		m.stopped = true
		close(m.stop)
	}
	m.setState(models.StateStopped)

	for _, w := range m.waiters {
		w <- errStopped
	}
	m.waiters = nil

	return m.done
}

func (m *managed) markRegistered() {
	m.mu.Lock()
	m.registered = true
	m.mu.Unlock()
}

func (m *managed) isRegistered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registered
}
