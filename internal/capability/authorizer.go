package capability

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/five82/nudge/internal/logging"
	"github.com/five82/nudge/internal/syncer"
)

// Prompter asks the user whether to grant a capability.
type Prompter interface {
	Prompt(ctx context.Context, kind string) (bool, error)
}

// Static answers every prompt the same way. Useful for --grant-all and tests.
type Static bool

// Prompt returns the static answer.
func (s Static) Prompt(context.Context, string) (bool, error) {
	return bool(s), nil
}

// Authorizer is the permission gate backed by a Ledger. A recorded answer is
// returned without prompting; an unknown capability is prompted for once and
// the answer recorded. Concurrent checks of the same kind share one prompt.
type Authorizer struct {
	ledger   *Ledger
	prompter Prompter
	log      *logrus.Entry
	group    singleflight.Group
}

// Ensure Authorizer implements syncer.Gate at compile time.
var _ syncer.Gate = (*Authorizer)(nil)

// NewAuthorizer builds an Authorizer. A nil logger discards output.
func NewAuthorizer(ledger *Ledger, prompter Prompter, log *logrus.Entry) *Authorizer {
	if ledger == nil {
		ledger = LoadLedger("")
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Authorizer{
		ledger:   ledger,
		prompter: prompter,
		log:      log.WithField("component", "capability"),
	}
}

// Check implements syncer.Gate.
func (a *Authorizer) Check(ctx context.Context, capability syncer.Capability) (bool, error) {
	kind := string(capability)
	switch a.ledger.Status(kind) {
	case StatusGranted:
		return true, nil
	case StatusDenied:
		return false, nil
	}
	if a.prompter == nil {
		return false, fmt.Errorf("no prompter for capability %q", kind)
	}

	ch := a.group.DoChan(kind, func() (any, error) {
		// Another caller may have recorded an answer while we waited.
		switch a.ledger.Status(kind) {
		case StatusGranted:
			return true, nil
		case StatusDenied:
			return false, nil
		}
		ok, err := a.prompter.Prompt(context.WithoutCancel(ctx), kind)
		if err != nil {
			return false, fmt.Errorf("prompt %s: %w", kind, err)
		}
		status := StatusDenied
		if ok {
			status = StatusGranted
		}
		if err := a.ledger.Record(kind, status); err != nil {
			a.log.WithError(err).Warn("could not persist capability answer")
		}
		a.log.WithFields(logrus.Fields{"capability": kind, "status": string(status)}).Info("capability answered")
		return ok, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
