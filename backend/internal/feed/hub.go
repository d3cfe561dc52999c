// Package feed carries committed poll and comment changes to registered handlers and live subscribers.
package feed

import (
	"sync"

	"github.com/google/uuid"
)

// Hub fans snapshots of keyed entities out to subscribers.
// Each subscriber owns a mailbox drained by a single goroutine, so publishing never blocks
// and one subscriber sees snapshots of an entity in publish order. A snapshot whose progress
// is lower than one already delivered to that subscriber is dropped.
type Hub[T any] struct {
	mu       sync.RWMutex
	subs     map[string]map[string]*mailbox[T] // key -> subscriber id -> mailbox
	progress func(T) int64
}

func NewHub[T any](progress func(T) int64) *Hub[T] {
	return &Hub[T]{
		subs:     make(map[string]map[string]*mailbox[T]),
		progress: progress,
	}
}

// Subscription is a registered snapshot consumer.
type Subscription[T any] struct {
	hub *Hub[T]
	key string
	id  string
	box *mailbox[T]
}

// Subscribe registers fn for snapshots of key.
func (h *Hub[T]) Subscribe(key string, fn func(T)) *Subscription[T] {
	box := newMailbox(fn, h.progress)
	id := uuid.NewString()

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[string]*mailbox[T])
	}
	h.subs[key][id] = box
	h.mu.Unlock()

	go box.run()
	return &Subscription[T]{hub: h, key: key, id: id, box: box}
}

// Publish queues snapshot for every subscriber of key.
func (h *Hub[T]) Publish(key string, snapshot T) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, box := range h.subs[key] {
		box.push(snapshot)
	}
}

// Subscribers returns the number of live subscriptions for key.
func (h *Hub[T]) Subscribers(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key])
}

// Deliver queues a snapshot for this subscriber only. Used to seed the initial state.
func (s *Subscription[T]) Deliver(snapshot T) {
	s.box.push(snapshot)
}

// Cancel stops further delivery. Safe to call more than once.
func (s *Subscription[T]) Cancel() {
	s.hub.mu.Lock()
	if subs, ok := s.hub.subs[s.key]; ok {
		delete(subs, s.id)
		if len(subs) == 0 {
			delete(s.hub.subs, s.key)
		}
	}
	s.hub.mu.Unlock()
	s.box.close()
}

type mailbox[T any] struct {
	mu        sync.Mutex
	queue     []T
	signal    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	fn        func(T)
	progress  func(T) int64
	delivered int64
}

func newMailbox[T any](fn func(T), progress func(T) int64) *mailbox[T] {
	return &mailbox[T]{
		signal:    make(chan struct{}, 1),
		done:      make(chan struct{}),
		fn:        fn,
		progress:  progress,
		delivered: -1,
	}
}

func (m *mailbox[T]) push(v T) {
	m.mu.Lock()
	m.queue = append(m.queue, v)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *mailbox[T]) close() {
	m.closeOnce.Do(func() { close(m.done) })
}

func (m *mailbox[T]) run() {
	for {
		select {
		case <-m.done:
			return
		case <-m.signal:
		}

		for {
			m.mu.Lock()
			batch := m.queue
			m.queue = nil
			m.mu.Unlock()
			if len(batch) == 0 {
				break
			}

			for _, v := range batch {
				select {
				case <-m.done:
					return
				default:
				}
				if p := m.progress(v); p >= m.delivered {
					m.delivered = p
					m.fn(v)
				}
			}
		}
	}
}
