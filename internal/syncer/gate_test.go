package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/five82/nudge/internal/state"
)

func TestSetToggle_DisableIsPlainImmediateEdit(t *testing.T) {
	store := &echoStore{}
	gate := newHeldGate()
	c := newTestCoordinator(t, Options[form]{
		Load: loadOf(form{Daily: true, Hour: 8}),
		Save: store.Save,
		Gate: gate,
	})

	c.SetToggle(dailyToggle, false)

	eventually(t, func() bool { return c.View().Confirmed == 1 }, "disable saved")
	require.False(t, c.View().Snapshot.Daily)
	select {
	case <-gate.asks:
		t.Fatal("disabling must not consult the gate")
	default:
	}
}

func TestSetToggle_GrantedEnableIsSaved(t *testing.T) {
	store := &echoStore{}
	gate := newHeldGate()
	c := newTestCoordinator(t, Options[form]{Save: store.Save, Gate: gate})

	c.SetToggle(dailyToggle, true)

	v := c.View()
	require.True(t, v.Draft.Daily, "draft should update before the gate answers")
	require.Equal(t, 1, v.Authorizing)
	require.Equal(t, state.PhaseDirty, v.Phase)

	ask := gate.next(t)
	require.Equal(t, Capability("notifications"), ask.capability)
	time.Sleep(30 * time.Millisecond)
	require.Empty(t, store.calls(), "nothing may be saved while authorizing")

	ask.reply <- gateReply{ok: true}

	eventually(t, func() bool { return c.View().Snapshot.Daily }, "enable saved")
	v = c.View()
	require.Nil(t, v.Notice)
	require.Zero(t, v.Authorizing)
	require.Len(t, store.calls(), 1)
}

func TestSetToggle_DenialRevertsOnlyThatToggle(t *testing.T) {
	store := &echoStore{}
	gate := newHeldGate()
	c := newTestCoordinator(t, Options[form]{
		Save:        store.Save,
		Gate:        gate,
		QuietPeriod: 50 * time.Millisecond,
	})

	c.Edit(setTime(7, 45), Debounced)
	c.SetToggle(dailyToggle, true)
	ask := gate.next(t)

	// The debounced edit's timer was replaced; wait past it to be sure.
	time.Sleep(100 * time.Millisecond)
	require.Empty(t, store.calls())

	ask.reply <- gateReply{ok: false}

	eventually(t, func() bool { return c.View().Phase == state.PhaseClean }, "revert saved")
	v := c.View()
	require.False(t, v.Draft.Daily)
	require.Equal(t, 7, v.Draft.Hour, "unrelated dirty field must survive the denial")
	require.Equal(t, 45, v.Draft.Minute)
	require.Equal(t, v.Draft, v.Snapshot)
	require.NotNil(t, v.Notice)
	require.Equal(t, "Daily jobs", v.Notice.Field)
	require.False(t, v.Notice.Failed)
	require.Nil(t, v.LastError, "a denial is not a persist failure")

	calls := store.calls()
	require.Len(t, calls, 1)
	require.False(t, calls[0].Daily)
	require.Equal(t, 7, calls[0].Hour)
}

func TestSetToggle_GateErrorIsDenial(t *testing.T) {
	store := &echoStore{}
	c := newTestCoordinator(t, Options[form]{
		Save: store.Save,
		Gate: GateFunc(func(context.Context, Capability) (bool, error) {
			return false, errors.New("authorization service down")
		}),
	})

	c.SetToggle(weeklyToggle, true)

	eventually(t, func() bool { return c.View().Notice != nil }, "notice raised")
	v := c.View()
	require.False(t, v.Draft.Weekly)
	require.True(t, v.Notice.Failed)
	require.EqualError(t, v.Notice.Err, "authorization service down")
	eventually(t, func() bool { return len(store.calls()) == 1 }, "revert saved")
	require.False(t, store.calls()[0].Weekly)
}

func TestSetToggle_GatePanicIsDenial(t *testing.T) {
	store := &echoStore{}
	c := newTestCoordinator(t, Options[form]{
		Save: store.Save,
		Gate: GateFunc(func(context.Context, Capability) (bool, error) {
			panic("prompt crashed")
		}),
	})

	c.SetToggle(dailyToggle, true)

	eventually(t, func() bool { return c.View().Notice != nil }, "notice raised")
	require.False(t, c.View().Draft.Daily)
	require.True(t, c.View().Notice.Failed)
}

func TestSetToggle_DisableBeforeGrantNeverSendsEnabled(t *testing.T) {
	store := &echoStore{}
	gate := newHeldGate()
	c := newTestCoordinator(t, Options[form]{Save: store.Save, Gate: gate})

	c.SetToggle(dailyToggle, true)
	ask := gate.next(t)
	c.SetToggle(dailyToggle, false)

	eventually(t, func() bool { return len(store.calls()) == 1 }, "disable saved")

	ask.reply <- gateReply{ok: true}
	time.Sleep(100 * time.Millisecond)

	v := c.View()
	require.False(t, v.Draft.Daily)
	require.False(t, v.Snapshot.Daily)
	require.Nil(t, v.Notice)
	for _, saved := range store.calls() {
		require.False(t, saved.Daily, "an enabled value reached the store")
	}
}

func TestSetToggle_StaleDenialDoesNotRevertNewerEnable(t *testing.T) {
	store := &echoStore{}
	gate := newHeldGate()
	c := newTestCoordinator(t, Options[form]{Save: store.Save, Gate: gate})

	c.SetToggle(dailyToggle, true)
	first := gate.next(t)
	c.SetToggle(dailyToggle, false)
	c.SetToggle(dailyToggle, true)
	second := gate.next(t)

	first.reply <- gateReply{ok: false}
	time.Sleep(50 * time.Millisecond)
	require.True(t, c.View().Draft.Daily, "superseded denial must be dropped")
	require.Nil(t, c.View().Notice)

	second.reply <- gateReply{ok: true}
	eventually(t, func() bool { return c.View().Snapshot.Daily }, "enable saved")
}

func TestSetToggle_DenialStillAppliesAfterOtherFieldEdits(t *testing.T) {
	store := &echoStore{}
	gate := newHeldGate()
	c := newTestCoordinator(t, Options[form]{Save: store.Save, Gate: gate, QuietPeriod: 30 * time.Millisecond})

	c.SetToggle(dailyToggle, true)
	ask := gate.next(t)
	c.Edit(setTime(9, 0), Debounced)
	time.Sleep(80 * time.Millisecond)
	require.Empty(t, store.calls(), "save must wait for the gate")
	require.Equal(t, state.PhaseDirty, c.View().Phase)

	ask.reply <- gateReply{ok: false}

	eventually(t, func() bool { return c.View().Phase == state.PhaseClean }, "saved after denial")
	v := c.View()
	require.False(t, v.Snapshot.Daily)
	require.Equal(t, 9, v.Snapshot.Hour)
	require.Len(t, store.calls(), 1)
}

func TestSetToggle_TwoGatesSaveOnceBothResolve(t *testing.T) {
	store := &echoStore{}
	gate := newHeldGate()
	c := newTestCoordinator(t, Options[form]{Save: store.Save, Gate: gate})

	c.SetToggle(dailyToggle, true)
	daily := gate.next(t)
	c.SetToggle(weeklyToggle, true)
	weekly := gate.next(t)
	require.Equal(t, 2, c.View().Authorizing)

	daily.reply <- gateReply{ok: true}
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, store.calls(), "weekly is still authorizing")

	weekly.reply <- gateReply{ok: false}
	eventually(t, func() bool { return len(store.calls()) == 1 }, "single save")

	saved := store.calls()[0]
	require.True(t, saved.Daily)
	require.False(t, saved.Weekly)
	require.Equal(t, "Weekly digest", c.View().Notice.Field)
}

func TestSetToggle_NilGateTreatsTogglesAsUngated(t *testing.T) {
	store := &echoStore{}
	c := newTestCoordinator(t, Options[form]{Save: store.Save})

	c.SetToggle(dailyToggle, true)

	eventually(t, func() bool { return c.View().Snapshot.Daily }, "saved")
	require.Zero(t, c.View().Authorizing)
}

func TestDismissNotice(t *testing.T) {
	store := &echoStore{}
	c := newTestCoordinator(t, Options[form]{
		Save: store.Save,
		Gate: GateFunc(func(context.Context, Capability) (bool, error) { return false, nil }),
	})

	c.SetToggle(dailyToggle, true)
	eventually(t, func() bool { return c.View().Notice != nil }, "notice raised")

	c.DismissNotice()
	require.Nil(t, c.View().Notice)
}

func TestClose_CancelsPendingGate(t *testing.T) {
	store := &echoStore{}
	gate := newHeldGate()
	c, err := New(context.Background(), Options[form]{Load: loadOf(form{}), Save: store.Save, Gate: gate})
	require.NoError(t, err)

	c.SetToggle(dailyToggle, true)
	gate.next(t)

	require.NoError(t, c.Close())
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, store.calls())
}
