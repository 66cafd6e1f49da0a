package syncer

import "time"

// Outcome classifies a persist result that was applied to state.
type Outcome int

const (
	OutcomeSaved Outcome = iota
	OutcomeFailed
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSaved:
		return "saved"
	case OutcomeFailed:
		return "failed"
	default:
		return "cancelled"
	}
}

// Observer receives coordinator events for metrics. Calls happen on the
// coordinator's loop and must not block.
type Observer interface {
	Scheduled(rev Revision, mode Mode)
	PersistStarted(rev Revision)
	PersistFinished(rev Revision, outcome Outcome, elapsed time.Duration)
	StaleDiscarded(rev Revision)
	GateResolved(capability Capability, verdict Verdict, stale bool)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) Scheduled(Revision, Mode)                         {}
func (NopObserver) PersistStarted(Revision)                          {}
func (NopObserver) PersistFinished(Revision, Outcome, time.Duration) {}
func (NopObserver) StaleDiscarded(Revision)                          {}
func (NopObserver) GateResolved(Capability, Verdict, bool)           {}
