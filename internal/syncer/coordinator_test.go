package syncer

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/nudge/internal/state"
)

func TestNew_DraftAndSnapshotStartAsLoadedValue(t *testing.T) {
	initial := form{Daily: true, Hour: 7, Minute: 30, Zone: "Europe/Oslo"}
	store := &echoStore{}
	c := newTestCoordinator(t, Options[form]{Load: loadOf(initial), Save: store.Save})

	v := c.View()
	require.Equal(t, initial, v.Draft)
	require.Equal(t, initial, v.Snapshot)
	require.Equal(t, state.PhaseClean, v.Phase)
	require.Zero(t, v.Revision)
	require.Nil(t, v.LastError)
}

func TestNew_RequiresLoadAndSave(t *testing.T) {
	_, err := New(context.Background(), Options[form]{Load: loadOf(form{})})
	require.Error(t, err)
}

func TestNew_WrapsLoadError(t *testing.T) {
	boom := errors.New("offline")
	_, err := New(context.Background(), Options[form]{
		Load: func(context.Context) (form, error) { return form{}, boom },
		Save: (&echoStore{}).Save,
	})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "load settings")
}

func TestEdit_AppliesDraftSynchronously(t *testing.T) {
	store := newHeldStore()
	c := newTestCoordinator(t, Options[form]{Save: store.Save})

	c.Edit(setTime(9, 15), Debounced)

	v := c.View()
	require.Equal(t, 9, v.Draft.Hour)
	require.Equal(t, 15, v.Draft.Minute)
	require.Equal(t, 8, v.Snapshot.Hour, "snapshot must not hold optimistic values")
	require.Equal(t, uint64(1), v.Revision)
	require.Equal(t, state.PhaseDirty, v.Phase)
}

func TestEdit_NoopDoesNotMintRevision(t *testing.T) {
	store := newHeldStore()
	c := newTestCoordinator(t, Options[form]{Save: store.Save})

	c.Edit(setTime(8, 0), Immediate)

	require.Zero(t, c.View().Revision)
	store.none(t, 50*time.Millisecond)
}

func TestEdit_BurstWithinQuietPeriodSavesLastValueOnce(t *testing.T) {
	store := &echoStore{}
	c := newTestCoordinator(t, Options[form]{Save: store.Save, QuietPeriod: 350 * time.Millisecond})

	c.Edit(setTime(8, 0), Debounced) // no-op against the loaded 08:00
	c.Edit(setTime(8, 5), Debounced)
	time.Sleep(20 * time.Millisecond)
	c.Edit(setTime(8, 10), Debounced)

	eventually(t, func() bool { return len(store.calls()) == 1 }, "expected one save")
	time.Sleep(400 * time.Millisecond)

	calls := store.calls()
	require.Len(t, calls, 1)
	require.Equal(t, 8, calls[0].Hour)
	require.Equal(t, 10, calls[0].Minute)
	eventually(t, func() bool { return c.View().Phase == state.PhaseClean }, "expected clean after save")
}

func TestEdit_RearmsOnEveryEdit(t *testing.T) {
	store := &echoStore{}
	c := newTestCoordinator(t, Options[form]{Save: store.Save, QuietPeriod: 150 * time.Millisecond})

	// Each edit lands before the previous quiet period ends.
	for m := 1; m <= 5; m++ {
		c.Edit(setTime(8, m), Debounced)
		time.Sleep(30 * time.Millisecond)
	}
	require.Empty(t, store.calls(), "save fired before the burst settled")

	eventually(t, func() bool { return len(store.calls()) == 1 }, "expected one save")
	require.Equal(t, 5, store.calls()[0].Minute)
}

func TestReconcile_SuccessAdoptsServerValue(t *testing.T) {
	store := &echoStore{normalize: func(f form) form {
		f.Minute -= f.Minute % 5
		return f
	}}
	c := newTestCoordinator(t, Options[form]{Save: store.Save})

	c.Edit(setTime(10, 7), Immediate)

	eventually(t, func() bool { return c.View().Confirmed == 1 }, "expected confirmed revision 1")
	v := c.View()
	require.Equal(t, 5, v.Draft.Minute, "draft should defer to the server value")
	require.Equal(t, v.Draft, v.Snapshot)
	require.Equal(t, state.PhaseClean, v.Phase)
}

func TestReconcile_FailureRevertsDraftToSnapshot(t *testing.T) {
	store := &echoStore{}
	store.setErr(errors.New("network unreachable"))
	c := newTestCoordinator(t, Options[form]{Save: store.Save})
	before := c.View().Snapshot

	c.Edit(setTime(21, 0), Immediate)

	eventually(t, func() bool { return c.View().LastError != nil }, "expected error surfaced")
	v := c.View()
	require.Equal(t, before, v.Draft)
	require.Equal(t, before, v.Snapshot)
	require.Equal(t, state.PhaseClean, v.Phase)

	var perr *PersistError
	require.ErrorAs(t, v.LastError, &perr)
	require.Equal(t, Revision(1), perr.Revision)
	require.Contains(t, perr.Error(), "network unreachable")

	// No automatic retry.
	time.Sleep(50 * time.Millisecond)
	require.Len(t, store.calls(), 1)
}

func TestReconcile_FailureKeepsEarlierConfirmedValue(t *testing.T) {
	store := &echoStore{}
	c := newTestCoordinator(t, Options[form]{Save: store.Save})

	c.Edit(setTime(6, 0), Immediate)
	eventually(t, func() bool { return c.View().Confirmed == 1 }, "first save")

	store.setErr(errors.New("503"))
	c.Edit(setTime(7, 0), Immediate)
	eventually(t, func() bool { return c.View().LastError != nil }, "second save fails")

	require.Equal(t, 6, c.View().Draft.Hour)
}

func TestReconcile_StaleSuccessDoesNotOverwriteNewer(t *testing.T) {
	store := newHeldStore()
	c := newTestCoordinator(t, Options[form]{Save: store.Save})

	c.Edit(setTime(9, 0), Immediate)
	first := store.next(t)
	c.Edit(setTime(10, 0), Immediate)
	second := store.next(t)

	second.reply <- saveReply{value: second.value}
	eventually(t, func() bool { return c.View().Confirmed == 2 }, "second applied")

	first.reply <- saveReply{value: first.value}
	time.Sleep(50 * time.Millisecond)

	v := c.View()
	require.Equal(t, 10, v.Draft.Hour)
	require.Equal(t, 10, v.Snapshot.Hour)
	require.Equal(t, uint64(2), v.Confirmed)
}

func TestReconcile_StaleResultArrivingFirstIsDropped(t *testing.T) {
	store := newHeldStore()
	c := newTestCoordinator(t, Options[form]{Save: store.Save})

	c.Edit(setTime(9, 0), Immediate)
	first := store.next(t)
	c.Edit(setTime(10, 0), Immediate)
	second := store.next(t)

	first.reply <- saveReply{value: first.value}
	time.Sleep(50 * time.Millisecond)
	v := c.View()
	require.Equal(t, 10, v.Draft.Hour, "older success must not regress the draft")
	require.Equal(t, 8, v.Snapshot.Hour)
	require.Equal(t, state.PhaseSaving, v.Phase)

	second.reply <- saveReply{value: second.value}
	eventually(t, func() bool { return c.View().Phase == state.PhaseClean }, "second applied")
	require.Equal(t, 10, c.View().Snapshot.Hour)
}

func TestReconcile_StaleFailureIsIgnored(t *testing.T) {
	store := newHeldStore()
	c := newTestCoordinator(t, Options[form]{Save: store.Save})

	c.Edit(setTime(9, 0), Immediate)
	first := store.next(t)
	c.Edit(setTime(10, 0), Immediate)
	second := store.next(t)

	second.reply <- saveReply{value: second.value}
	eventually(t, func() bool { return c.View().Confirmed == 2 }, "second applied")

	first.reply <- saveReply{err: errors.New("timeout")}
	time.Sleep(50 * time.Millisecond)

	v := c.View()
	require.Nil(t, v.LastError)
	require.Equal(t, 10, v.Draft.Hour)
}

func TestReconcile_SupersededWhileSavingGoesBackToDirty(t *testing.T) {
	store := newHeldStore()
	c := newTestCoordinator(t, Options[form]{Save: store.Save, QuietPeriod: time.Hour})

	c.Edit(setTime(9, 0), Immediate)
	first := store.next(t)
	eventually(t, func() bool { return c.View().Saving }, "saving")

	c.Edit(setTime(9, 30), Debounced)
	v := c.View()
	require.Equal(t, state.PhaseDirty, v.Phase)
	require.False(t, v.Saving)
	require.Equal(t, 1, v.InFlight)

	first.reply <- saveReply{value: first.value}
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 30, c.View().Draft.Minute)
}

func TestReconcile_CancellationIsNotSurfaced(t *testing.T) {
	store := &echoStore{}
	store.setErr(context.Canceled)
	c := newTestCoordinator(t, Options[form]{Save: store.Save})

	c.Edit(setTime(11, 0), Immediate)
	eventually(t, func() bool { return len(store.calls()) == 1 && c.View().InFlight == 0 }, "save finished")

	v := c.View()
	require.Nil(t, v.LastError)
	require.Equal(t, 11, v.Draft.Hour)
}

func TestAbortSuperseded_CancelsOlderSave(t *testing.T) {
	store := newHeldStore()
	c := newTestCoordinator(t, Options[form]{Save: store.Save, AbortSuperseded: true})

	c.Edit(setTime(9, 0), Immediate)
	first := store.next(t)
	c.Edit(setTime(10, 0), Immediate)
	second := store.next(t)

	select {
	case <-first.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("older save context was not cancelled")
	}
	require.NoError(t, second.ctx.Err())

	second.reply <- saveReply{value: second.value}
	eventually(t, func() bool { return c.View().Phase == state.PhaseClean }, "second applied")
	require.Nil(t, c.View().LastError)
}

func TestPersist_TagsAttemptID(t *testing.T) {
	store := newHeldStore()
	c := newTestCoordinator(t, Options[form]{
		Save:         store.Save,
		NewAttemptID: func() string { return "attempt-1" },
	})

	c.Edit(setTime(9, 0), Immediate)
	call := store.next(t)
	require.Equal(t, "attempt-1", AttemptID(call.ctx))
	require.Empty(t, AttemptID(context.Background()))
	call.reply <- saveReply{value: call.value}
}

func TestRetry_ReappliesFailedValue(t *testing.T) {
	store := &echoStore{}
	store.setErr(errors.New("offline"))
	c := newTestCoordinator(t, Options[form]{Save: store.Save})

	require.False(t, c.Retry(), "nothing to retry yet")

	c.Edit(setTime(12, 45), Immediate)
	eventually(t, func() bool { return c.View().LastError != nil }, "failure surfaced")

	store.setErr(nil)
	require.True(t, c.Retry())
	require.Nil(t, c.View().LastError)

	eventually(t, func() bool { return c.View().Snapshot.Hour == 12 }, "retry saved")
	calls := store.calls()
	require.Len(t, calls, 2)
	require.Equal(t, calls[0], calls[1])
	require.False(t, c.Retry())
}

func TestRetry_NewEditSupersedesFailedValue(t *testing.T) {
	store := &echoStore{}
	store.setErr(errors.New("offline"))
	c := newTestCoordinator(t, Options[form]{Save: store.Save, QuietPeriod: 20 * time.Millisecond})

	c.Edit(setTime(12, 45), Immediate)
	eventually(t, func() bool { return c.View().LastError != nil }, "failure surfaced")

	store.setErr(nil)
	c.Edit(func(f form) form { f.Zone = "Europe/Paris"; return f }, Debounced)
	require.Nil(t, c.View().LastError, "a new edit clears the banner")
	require.False(t, c.Retry(), "the failed value must not replace the newer edit")

	eventually(t, func() bool { return c.View().Snapshot.Zone == "Europe/Paris" }, "newer edit saved")
	v := c.View()
	require.Equal(t, form{Hour: 8, Zone: "Europe/Paris"}, v.Draft)
	require.Equal(t, v.Draft, v.Snapshot)
}

func TestRetry_ToggleSupersedesFailedValue(t *testing.T) {
	store := &echoStore{}
	store.setErr(errors.New("offline"))
	c := newTestCoordinator(t, Options[form]{Save: store.Save})

	c.Edit(setTime(12, 45), Immediate)
	eventually(t, func() bool { return c.View().LastError != nil }, "failure surfaced")

	store.setErr(nil)
	c.SetToggle(dailyToggle, true)
	require.Nil(t, c.View().LastError)
	require.False(t, c.Retry())
	require.Equal(t, 8, c.View().Draft.Hour)
}

func TestDismissError_ClearsErrorAndRetryValue(t *testing.T) {
	store := &echoStore{}
	store.setErr(errors.New("offline"))
	c := newTestCoordinator(t, Options[form]{Save: store.Save})

	c.Edit(setTime(12, 0), Immediate)
	eventually(t, func() bool { return c.View().LastError != nil }, "failure surfaced")

	c.DismissError()
	require.Nil(t, c.View().LastError)
	require.False(t, c.Retry())
}

func TestSubscribe_StreamsViews(t *testing.T) {
	store := &echoStore{}
	c := newTestCoordinator(t, Options[form]{Save: store.Save})

	views, cancel := c.Subscribe()
	defer cancel()
	<-views

	c.Edit(setTime(9, 0), Immediate)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-views:
			if v.Confirmed == 1 {
				assert.Equal(t, 9, v.Snapshot.Hour)
				return
			}
		case <-deadline:
			t.Fatal("never observed the confirmed view")
		}
	}
}

func TestClose_TeardownInsideQuietPeriodPreventsSave(t *testing.T) {
	store := newHeldStore()
	c, err := New(context.Background(), Options[form]{
		Load:        loadOf(form{Hour: 8}),
		Save:        store.Save,
		QuietPeriod: 350 * time.Millisecond,
	})
	require.NoError(t, err)

	c.Edit(setTime(8, 5), Debounced)
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.Close())

	store.none(t, 500*time.Millisecond)
	require.True(t, c.View().Closed)
}

func TestClose_CancelsInFlightAndIgnoresLateResults(t *testing.T) {
	store := newHeldStore()
	c, err := New(context.Background(), Options[form]{Load: loadOf(form{Hour: 8}), Save: store.Save})
	require.NoError(t, err)

	c.Edit(setTime(9, 0), Immediate)
	call := store.next(t)

	require.NoError(t, c.Close())
	select {
	case <-call.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("in-flight save was not cancelled")
	}

	v := c.View()
	require.True(t, v.Closed)
	require.Equal(t, 8, v.Snapshot.Hour)
}

var _ io.Closer = (*Coordinator[form])(nil)

func TestClose_IsIdempotentAndStopsEdits(t *testing.T) {
	store := newHeldStore()
	c, err := New(context.Background(), Options[form]{Load: loadOf(form{Hour: 8}), Save: store.Save})
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	c.Edit(setTime(9, 0), Immediate)
	c.SetToggle(dailyToggle, true)
	c.DismissError()
	c.DismissNotice()
	require.False(t, c.Retry())

	store.none(t, 50*time.Millisecond)
	require.Equal(t, 8, c.View().Draft.Hour)
}

func TestModeAndOutcomeStrings(t *testing.T) {
	require.Equal(t, "immediate", Immediate.String())
	require.Equal(t, "debounced", Debounced.String())
	require.Equal(t, "saved", OutcomeSaved.String())
	require.Equal(t, "failed", OutcomeFailed.String())
	require.Equal(t, "cancelled", OutcomeCancelled.String())
	require.Equal(t, "granted", Granted.String())
	require.Equal(t, "denied", Denied.String())
	require.Equal(t, "failed", Failed.String())
}
