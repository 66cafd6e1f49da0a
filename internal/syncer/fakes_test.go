package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// form is a small comparable settings value used throughout the tests.
type form struct {
	Daily  bool
	Weekly bool
	Hour   int
	Minute int
	Zone   string
}

var (
	dailyToggle = Toggle[form]{
		Name:       "Daily jobs",
		Capability: "notifications",
		Get:        func(f form) bool { return f.Daily },
		Set:        func(f form, on bool) form { f.Daily = on; return f },
	}
	weeklyToggle = Toggle[form]{
		Name:       "Weekly digest",
		Capability: "notifications",
		Get:        func(f form) bool { return f.Weekly },
		Set:        func(f form, on bool) form { f.Weekly = on; return f },
	}
)

func setTime(h, m int) func(form) form {
	return func(f form) form {
		f.Hour, f.Minute = h, m
		return f
	}
}

type saveReply struct {
	value form
	err   error
}

type saveCall struct {
	ctx   context.Context
	value form
	reply chan saveReply
}

// heldStore blocks every save until the test replies to it.
type heldStore struct {
	calls chan saveCall
}

func newHeldStore() *heldStore {
	return &heldStore{calls: make(chan saveCall, 16)}
}

func (s *heldStore) Save(ctx context.Context, v form) (form, error) {
	call := saveCall{ctx: ctx, value: v, reply: make(chan saveReply, 1)}
	s.calls <- call
	select {
	case r := <-call.reply:
		return r.value, r.err
	case <-ctx.Done():
		return form{}, ctx.Err()
	}
}

func (s *heldStore) next(t *testing.T) saveCall {
	t.Helper()
	select {
	case call := <-s.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for save")
		return saveCall{}
	}
}

func (s *heldStore) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case call := <-s.calls:
		t.Fatalf("unexpected save of %+v", call.value)
	case <-time.After(wait):
	}
}

// echoStore accepts everything, optionally normalizing, and records calls.
type echoStore struct {
	mu        sync.Mutex
	saved     []form
	normalize func(form) form
	err       error
}

func (s *echoStore) Save(_ context.Context, v form) (form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, v)
	if s.err != nil {
		return form{}, s.err
	}
	if s.normalize != nil {
		v = s.normalize(v)
	}
	return v, nil
}

func (s *echoStore) calls() []form {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]form, len(s.saved))
	copy(out, s.saved)
	return out
}

func (s *echoStore) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// heldGate blocks each check until the test answers it.
type heldGate struct {
	asks chan gateAsk
}

type gateAsk struct {
	capability Capability
	reply      chan gateReply
}

type gateReply struct {
	ok  bool
	err error
}

func newHeldGate() *heldGate {
	return &heldGate{asks: make(chan gateAsk, 8)}
}

func (g *heldGate) Check(ctx context.Context, capability Capability) (bool, error) {
	ask := gateAsk{capability: capability, reply: make(chan gateReply, 1)}
	g.asks <- ask
	select {
	case r := <-ask.reply:
		return r.ok, r.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (g *heldGate) next(t *testing.T) gateAsk {
	t.Helper()
	select {
	case ask := <-g.asks:
		return ask
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for gate check")
		return gateAsk{}
	}
}

func loadOf(v form) LoadFunc[form] {
	return func(context.Context) (form, error) { return v, nil }
}

func newTestCoordinator(t *testing.T, opts Options[form]) *Coordinator[form] {
	t.Helper()
	if opts.Load == nil {
		opts.Load = loadOf(form{Hour: 8, Zone: "UTC"})
	}
	c, err := New(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}
