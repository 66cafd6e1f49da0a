package state

import (
	"fmt"
	"sync"
	"time"
)

// Phase is the coarse lifecycle position of a settings object.
type Phase int

const (
	// PhaseClean means the draft matches the confirmed snapshot and nothing is queued.
	PhaseClean Phase = iota
	// PhaseDirty means a local edit is waiting to be persisted.
	PhaseDirty
	// PhaseSaving means the persist for the current revision is in flight.
	PhaseSaving
)

func (p Phase) String() string {
	switch p {
	case PhaseClean:
		return "clean"
	case PhaseDirty:
		return "dirty"
	case PhaseSaving:
		return "saving"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Notice explains why a single field was rolled back after a capability check.
type Notice struct {
	Field      string
	Capability string
	// Failed is set when the check itself errored rather than answering no.
	Failed bool
	Err    error
	At     time.Time
}

// Message returns a short user-facing explanation.
func (n Notice) Message() string {
	if n.Failed {
		return fmt.Sprintf("%s was turned back off: could not verify %s permission", n.Field, n.Capability)
	}
	return fmt.Sprintf("%s was turned back off: %s permission was not granted", n.Field, n.Capability)
}

// View is everything a UI needs to render one settings editor.
type View[V any] struct {
	Draft    V
	Snapshot V

	// Revision is the most recent mutation intent; Confirmed is the revision
	// whose persist produced Snapshot (zero for the initial load).
	Revision  uint64
	Confirmed uint64

	Phase       Phase
	Saving      bool
	InFlight    int
	Authorizing int

	LastError error
	Notice    *Notice

	UpdatedAt time.Time
	Closed    bool
}

// Store holds the latest View and fans changes out to subscribers.
type Store[V any] struct {
	mu     sync.RWMutex
	view   View[V]
	subs   map[int]chan View[V]
	nextID int
	closed bool
}

// Publish replaces the stored view and notifies subscribers. Subscribers only
// ever see the newest view; intermediate ones are coalesced if they lag.
func (s *Store[V]) Publish(v View[V]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	v.UpdatedAt = time.Now()
	s.view = cloneView(v)
	for _, ch := range s.subs {
		offer(ch, cloneView(v))
	}
}

// Snapshot returns a copy of the current view.
func (s *Store[V]) Snapshot() View[V] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneView(s.view)
}

// Subscribe returns a channel that receives the current view immediately and
// every later one. The returned func unsubscribes and closes the channel.
func (s *Store[V]) Subscribe() (<-chan View[V], func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan View[V], 1)
	if s.closed {
		ch <- cloneView(s.view)
		close(ch)
		return ch, func() {}
	}
	if s.subs == nil {
		s.subs = make(map[int]chan View[V])
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- cloneView(s.view)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
}

// Close marks the view closed, delivers it and closes every subscription.
func (s *Store[V]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.view.Closed = true
	s.view.UpdatedAt = time.Now()
	for id, ch := range s.subs {
		offer(ch, cloneView(s.view))
		close(ch)
		delete(s.subs, id)
	}
}

// offer delivers v, dropping a stale unread value if the buffer is full.
func offer[V any](ch chan View[V], v View[V]) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

func cloneView[V any](v View[V]) View[V] {
	dup := v
	if v.Notice != nil {
		n := *v.Notice
		dup.Notice = &n
	}
	return dup
}
