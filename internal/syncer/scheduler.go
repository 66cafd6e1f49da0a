package syncer

import (
	"time"

	"github.com/sirupsen/logrus"
)

// pendingSave is the single armed debounce timer.
type pendingSave struct {
	revision    Revision
	scheduledAt time.Time
	timer       *time.Timer
}

// schedule arms the timer for rev, replacing any older one. It never touches
// draft or snapshot.
func (c *Coordinator[V]) schedule(rev Revision, mode Mode) {
	c.disarm()

	delay := c.quiet
	if mode == Immediate {
		delay = 0
	}
	p := &pendingSave{revision: rev, scheduledAt: time.Now()}
	p.timer = time.AfterFunc(delay, func() {
		c.post(func() { c.fire(p) })
	})
	c.pending = p
	c.obs.Scheduled(rev, mode)
	c.log.WithFields(logrus.Fields{
		"revision": rev,
		"mode":     mode.String(),
		"delay":    delay,
	}).Debug("save scheduled")
}

// disarm stops the armed timer, if any. It reports whether one was armed.
func (c *Coordinator[V]) disarm() bool {
	if c.pending == nil {
		return false
	}
	c.pending.timer.Stop()
	c.pending = nil
	return true
}

// fire runs on the loop when a timer expires. A timer that was replaced after
// it had already queued its callback is recognised by identity and ignored.
func (c *Coordinator[V]) fire(p *pendingSave) {
	if c.closed || c.pending != p {
		return
	}
	c.pending = nil

	if len(c.gates) > 0 {
		// Unauthorized values must never reach the remote store; the last gate
		// resolution schedules the save instead.
		c.deferred = true
		c.log.WithField("revision", p.revision).Debug("save deferred while authorizing")
		c.publish()
		return
	}
	c.deferred = false
	c.persist(p.revision)
	c.publish()
}
