package events

import (
	"sync"
	"time"
)

// subscriber owns an unbounded FIFO and the goroutine draining it
type subscriber struct {
	observer Observer
	signal   chan struct{}
	done     chan struct{}
	queue    []Event
	mu       sync.Mutex
	closed   bool
}

func newSubscriber(observer Observer) *subscriber {
	s := &subscriber{
		observer: observer,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *subscriber) push(e Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	// Буфер 1 объединяет несколько сигналов
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	defer close(s.done)
	for range s.signal {
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				closed := s.closed
				s.mu.Unlock()
				if closed {
					return
				}
				break
			}
			e := s.queue[0]
			s.queue[0] = Event{}
			s.queue = s.queue[1:]
			s.mu.Unlock()

			s.observer(e)
		}
	}
}

// stop stops accepting events; queued events are still delivered
func (s *subscriber) stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Bus is a process-wide publish/subscribe channel. Publish never blocks and
// every subscriber sees events in publish order.
type Bus struct {
	subs   map[uint64]*subscriber
	nextID uint64
	mu     sync.RWMutex
	closed bool
}

// NewBus creates a bus without subscribers
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*subscriber)}
}

// Subscribe registers observer and returns a function removing it.
// Events queued before removal are still delivered.
func (b *Bus) Subscribe(observer Observer) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = newSubscriber(observer)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			sub, ok := b.subs[id]
			delete(b.subs, id)
			b.mu.Unlock()
			if ok {
				sub.stop()
			}
		})
	}
}

// Publish delivers e to every current subscriber
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		sub.push(e)
	}
}

// Close removes all subscribers and waits until their queued events are
// delivered. Publish after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[uint64]*subscriber)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
		<-sub.done
	}
}
