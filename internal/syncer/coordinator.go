package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/five82/nudge/internal/logging"
	"github.com/five82/nudge/internal/state"
)

// DefaultQuietPeriod is how long a debounced edit waits for the burst to settle.
const DefaultQuietPeriod = 350 * time.Millisecond

// Options configure a Coordinator.
type Options[V comparable] struct {
	Load LoadFunc[V]
	Save SaveFunc[V]
	// Gate authorizes enabling gated toggles. Nil treats every toggle as ungated.
	Gate Gate

	QuietPeriod time.Duration
	// AbortSuperseded cancels the context of in-flight saves once a newer one
	// starts. Stale results are discarded either way.
	AbortSuperseded bool

	Logger       *logrus.Entry
	Observer     Observer
	NewAttemptID func() string
}

// Coordinator owns one settings object for the lifetime of one editor.
//
// Every mutation of draft, snapshot and revision runs on a single goroutine
// (the loop). Public methods hand work to the loop and wait for it; saves and
// gate checks run on their own goroutines and post their results back.
type Coordinator[V comparable] struct {
	save         SaveFunc[V]
	gate         Gate
	quiet        time.Duration
	abort        bool
	log          *logrus.Entry
	obs          Observer
	newAttemptID func() string

	store *state.Store[V]

	ctx    context.Context
	cancel context.CancelFunc

	events    chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// Loop-owned.
	snapshot  V
	confirmed Revision
	draft     V
	revision  Revision
	pending   *pendingSave
	inflight  map[Revision]*attempt
	gates     map[string]*gateCheck[V]
	gateSeq   uint64
	deferred  bool
	lastErr   error
	failed    *V
	notice    *state.Notice
	closed    bool
}

// New loads the initial value and starts the coordinator. Draft and snapshot
// both begin as the loaded value.
func New[V comparable](ctx context.Context, opts Options[V]) (*Coordinator[V], error) {
	if opts.Load == nil || opts.Save == nil {
		return nil, fmt.Errorf("syncer: load and save are required")
	}

	initial, err := opts.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	quiet := opts.QuietPeriod
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	obs := opts.Observer
	if obs == nil {
		obs = NopObserver{}
	}
	newID := opts.NewAttemptID
	if newID == nil {
		newID = newULID
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Coordinator[V]{
		save:         opts.Save,
		gate:         opts.Gate,
		quiet:        quiet,
		abort:        opts.AbortSuperseded,
		log:          log.WithField("component", "syncer"),
		obs:          obs,
		newAttemptID: newID,
		store:        &state.Store[V]{},
		ctx:          runCtx,
		cancel:       cancel,
		events:       make(chan func()),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		snapshot:     initial,
		draft:        initial,
		inflight:     make(map[Revision]*attempt),
		gates:        make(map[string]*gateCheck[V]),
	}
	c.publish()
	go c.run()
	return c, nil
}

func (c *Coordinator[V]) run() {
	defer close(c.done)
	for {
		select {
		case fn := <-c.events:
			fn()
		case <-c.quit:
			return
		}
	}
}

// do runs fn on the loop and waits for it. It reports false once closed.
func (c *Coordinator[V]) do(fn func()) bool {
	ran := make(chan struct{})
	select {
	case c.events <- func() { fn(); close(ran) }:
	case <-c.quit:
		return false
	}
	<-ran
	return true
}

// post queues fn on the loop without waiting. Dropped once closed.
func (c *Coordinator[V]) post(fn func()) {
	select {
	case c.events <- fn:
	case <-c.quit:
	}
}

// Edit applies fn to the draft and schedules a persist. Edits that leave the
// draft unchanged are ignored.
func (c *Coordinator[V]) Edit(fn func(V) V, mode Mode) {
	c.do(func() {
		if c.closed {
			return
		}
		next := fn(c.draft)
		if next == c.draft {
			return
		}
		c.draft = next
		c.clearFailure()
		c.commit(mode)
		c.publish()
	})
}

// Retry re-applies the value whose save last failed. It reports false when
// there is nothing to retry.
func (c *Coordinator[V]) Retry() bool {
	retried := false
	c.do(func() {
		if c.closed || c.failed == nil {
			return
		}
		c.draft = *c.failed
		c.failed = nil
		c.lastErr = nil
		c.commit(Immediate)
		c.publish()
		retried = true
	})
	return retried
}

// DismissError clears the surfaced persist error.
func (c *Coordinator[V]) DismissError() {
	c.do(func() {
		if c.closed {
			return
		}
		c.lastErr = nil
		c.failed = nil
		c.publish()
	})
}

// DismissNotice clears the surfaced permission notice.
func (c *Coordinator[V]) DismissNotice() {
	c.do(func() {
		if c.closed {
			return
		}
		c.notice = nil
		c.publish()
	})
}

// View returns the latest published view.
func (c *Coordinator[V]) View() state.View[V] {
	return c.store.Snapshot()
}

// Subscribe streams views; see state.Store.Subscribe.
func (c *Coordinator[V]) Subscribe() (<-chan state.View[V], func()) {
	return c.store.Subscribe()
}

// Close tears the coordinator down. The armed timer is stopped, in-flight
// saves and gate checks are cancelled, and no save starts after Close returns.
// Teardown cannot fail, so Close always returns nil; the error result makes
// the coordinator an io.Closer.
func (c *Coordinator[V]) Close() error {
	c.closeOnce.Do(func() {
		c.do(c.teardown)
		close(c.quit)
		<-c.done
		c.cancel()
		c.store.Close()
	})
	return nil
}

func (c *Coordinator[V]) teardown() {
	c.closed = true
	if c.pending != nil {
		c.pending.timer.Stop()
		c.log.WithField("revision", c.pending.revision).Debug("dropped pending save on close")
		c.pending = nil
	}
	for rev, a := range c.inflight {
		a.cancel()
		delete(c.inflight, rev)
	}
	for name := range c.gates {
		delete(c.gates, name)
	}
}

// clearFailure drops the failed value and its banner. A new user edit
// supersedes it, so Retry must not bring it back over the edit.
func (c *Coordinator[V]) clearFailure() {
	c.failed = nil
	c.lastErr = nil
}

// commit mints a new revision for the current draft and schedules its persist.
func (c *Coordinator[V]) commit(mode Mode) {
	c.revision++
	c.schedule(c.revision, mode)
}

func (c *Coordinator[V]) phase() state.Phase {
	if _, ok := c.inflight[c.revision]; ok {
		return state.PhaseSaving
	}
	if c.pending != nil || len(c.gates) > 0 || c.deferred || c.draft != c.snapshot {
		return state.PhaseDirty
	}
	return state.PhaseClean
}

func (c *Coordinator[V]) publish() {
	phase := c.phase()
	c.store.Publish(state.View[V]{
		Draft:       c.draft,
		Snapshot:    c.snapshot,
		Revision:    uint64(c.revision),
		Confirmed:   uint64(c.confirmed),
		Phase:       phase,
		Saving:      phase == state.PhaseSaving,
		InFlight:    len(c.inflight),
		Authorizing: len(c.gates),
		LastError:   c.lastErr,
		Notice:      c.notice,
	})
}
