package syncer

import (
	"context"
	"errors"
	"fmt"
)

// Revision identifies a mutation intent. It only ever grows.
type Revision uint64

// Mode selects how soon an edit is persisted.
type Mode int

const (
	// Debounced waits for the quiet period and is re-armed by every later edit.
	// Used for continuous controls such as time pickers.
	Debounced Mode = iota
	// Immediate persists on the next scheduler tick. Used for discrete actions
	// such as flipping a switch.
	Immediate
)

func (m Mode) String() string {
	if m == Immediate {
		return "immediate"
	}
	return "debounced"
}

// Capability names something a Gate can authorize, e.g. "notifications".
type Capability string

// Toggle describes one boolean field of a settings value. When Capability is
// set, turning the field on must be authorized by the Gate first.
type Toggle[V any] struct {
	Name       string
	Capability Capability
	Get        func(V) bool
	Set        func(V, bool) V
}

// Gated reports whether enabling the toggle needs authorization.
func (t Toggle[V]) Gated() bool {
	return t.Capability != ""
}

// LoadFunc fetches the authoritative value when the editor starts.
type LoadFunc[V any] func(ctx context.Context) (V, error)

// SaveFunc writes value and returns what the remote store actually accepted.
type SaveFunc[V any] func(ctx context.Context, value V) (V, error)

// Gate decides whether a capability may be enabled. Implementations may have
// side effects, but asking again for an already granted capability must
// answer true without repeating them.
type Gate interface {
	Check(ctx context.Context, capability Capability) (bool, error)
}

// GateFunc adapts a function to Gate.
type GateFunc func(ctx context.Context, capability Capability) (bool, error)

// Check calls f.
func (f GateFunc) Check(ctx context.Context, capability Capability) (bool, error) {
	return f(ctx, capability)
}

// Verdict is the tagged outcome of a gate check.
type Verdict int

const (
	Granted Verdict = iota
	Denied
	Failed
)

func (v Verdict) String() string {
	switch v {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// ErrClosed is returned by operations on a coordinator that has been closed.
var ErrClosed = errors.New("syncer: coordinator closed")

// PersistError is surfaced when the remote store rejects or cannot be reached
// for the current revision.
type PersistError struct {
	Revision Revision
	Err      error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("save revision %d: %v", e.Revision, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
