package syncer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// attempt is one in-flight save.
type attempt struct {
	id      string
	started time.Time
	cancel  context.CancelFunc
}

// persist starts a save of the current draft tagged with rev. Overlapping
// saves are allowed; the reconciler sorts them out by revision.
func (c *Coordinator[V]) persist(rev Revision) {
	value := c.draft

	if c.abort {
		for old, a := range c.inflight {
			if old < rev {
				a.cancel()
			}
		}
	}

	id := c.newAttemptID()
	ctx, cancel := context.WithCancel(withAttemptID(c.ctx, id))
	a := &attempt{id: id, started: time.Now(), cancel: cancel}
	c.inflight[rev] = a
	c.obs.PersistStarted(rev)
	c.log.WithFields(logrus.Fields{"revision": rev, "attempt": id}).Debug("save started")

	go func() {
		saved, err := c.save(ctx, value)
		c.post(func() { c.reconcile(rev, a, saved, err) })
	}()
}

// reconcile applies a save result only if rev is still the current revision.
// Highest revision wins, not last to complete.
func (c *Coordinator[V]) reconcile(rev Revision, a *attempt, saved V, err error) {
	if cur, ok := c.inflight[rev]; ok && cur == a {
		delete(c.inflight, rev)
	}
	a.cancel()
	if c.closed {
		return
	}

	fields := logrus.Fields{"revision": rev, "attempt": a.id, "current": c.revision}
	elapsed := time.Since(a.started)

	if rev != c.revision {
		c.obs.StaleDiscarded(rev)
		c.log.WithFields(fields).Debug("discarded stale save result")
		c.publish()
		return
	}

	if err != nil {
		if isCancellation(err) {
			c.obs.PersistFinished(rev, OutcomeCancelled, elapsed)
			c.log.WithFields(fields).Debug("save cancelled")
			c.publish()
			return
		}
		attempted := c.draft
		c.failed = &attempted
		c.draft = c.snapshot
		c.lastErr = &PersistError{Revision: rev, Err: err}
		c.obs.PersistFinished(rev, OutcomeFailed, elapsed)
		c.log.WithFields(fields).WithError(err).Warn("save failed; draft reverted to snapshot")
		c.publish()
		return
	}

	c.snapshot = saved
	c.draft = saved
	c.confirmed = rev
	c.lastErr = nil
	c.failed = nil
	c.obs.PersistFinished(rev, OutcomeSaved, elapsed)
	c.log.WithFields(fields).WithField("elapsed", elapsed).Info("settings saved")
	c.publish()
}
