package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/five82/nudge/internal/state"
)

// gateCheck tracks the outstanding authorization for one toggle. Only the
// check whose seq matches the map entry may change the draft.
type gateCheck[V any] struct {
	seq    uint64
	toggle Toggle[V]
	prior  bool
}

// SetToggle flips a boolean field as an immediate edit. Enabling a gated
// toggle updates the draft optimistically, then asks the gate; the save is
// held until the gate answers. Disabling supersedes any check still pending
// for the same toggle.
func (c *Coordinator[V]) SetToggle(t Toggle[V], on bool) {
	c.do(func() {
		if c.closed {
			return
		}
		prior := t.Get(c.draft)
		if prior == on {
			return
		}
		c.clearFailure()

		if !on || !t.Gated() || c.gate == nil {
			if _, ok := c.gates[t.Name]; ok {
				delete(c.gates, t.Name)
				c.log.WithField("field", t.Name).Debug("superseded pending authorization")
			}
			c.draft = t.Set(c.draft, on)
			c.commit(Immediate)
			c.publish()
			return
		}

		c.draft = t.Set(c.draft, true)
		c.revision++
		if c.disarm() {
			c.deferred = true
		}
		c.gateSeq++
		check := &gateCheck[V]{seq: c.gateSeq, toggle: t, prior: prior}
		c.gates[t.Name] = check
		c.log.WithFields(logrus.Fields{
			"field":      t.Name,
			"capability": string(t.Capability),
			"revision":   c.revision,
		}).Debug("authorizing toggle")

		go func(ctx context.Context, seq uint64) {
			verdict, err := c.check(ctx, t.Capability)
			c.post(func() { c.resolveGate(t.Name, t.Capability, seq, verdict, err) })
		}(c.ctx, check.seq)

		c.publish()
	})
}

// check runs the gate and folds errors and panics into a Verdict.
func (c *Coordinator[V]) check(ctx context.Context, capability Capability) (verdict Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			verdict = Failed
			err = fmt.Errorf("gate panicked: %v", r)
		}
	}()
	ok, err := c.gate.Check(ctx, capability)
	switch {
	case err != nil:
		return Failed, err
	case ok:
		return Granted, nil
	default:
		return Denied, nil
	}
}

// resolveGate applies a gate verdict if it is still the live check for the
// toggle. A denial or failure reverts only that toggle; other dirty fields in
// the draft stay and are saved together with the revert.
func (c *Coordinator[V]) resolveGate(name string, capability Capability, seq uint64, verdict Verdict, err error) {
	if c.closed {
		return
	}
	check, ok := c.gates[name]
	if !ok || check.seq != seq {
		c.obs.GateResolved(capability, verdict, true)
		c.log.WithFields(logrus.Fields{"field": name, "verdict": verdict.String()}).Debug("discarded stale authorization")
		return
	}
	delete(c.gates, name)
	c.obs.GateResolved(capability, verdict, false)

	fields := logrus.Fields{
		"field":      name,
		"capability": string(capability),
		"verdict":    verdict.String(),
	}
	if verdict != Granted {
		c.draft = check.toggle.Set(c.draft, check.prior)
		c.notice = &state.Notice{
			Field:      name,
			Capability: string(capability),
			Failed:     verdict == Failed,
			Err:        err,
			At:         time.Now(),
		}
		entry := c.log.WithFields(fields)
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Warn("toggle reverted after authorization")
	} else {
		c.log.WithFields(fields).Debug("toggle authorized")
	}

	c.deferred = true
	if len(c.gates) == 0 {
		c.deferred = false
		c.commit(Immediate)
	}
	c.publish()
}
