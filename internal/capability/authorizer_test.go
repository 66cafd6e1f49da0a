package capability

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/five82/nudge/internal/syncer"
)

const notifications syncer.Capability = "notifications"

type countingPrompter struct {
	calls   atomic.Int32
	answer  bool
	err     error
	release chan struct{}
}

func (p *countingPrompter) Prompt(ctx context.Context, kind string) (bool, error) {
	p.calls.Add(1)
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return p.answer, p.err
}

func TestAuthorizer_RecordedAnswersSkipPrompt(t *testing.T) {
	l := LoadLedger("")
	require.NoError(t, l.Record("notifications", StatusGranted))
	require.NoError(t, l.Record("camera", StatusDenied))
	p := &countingPrompter{answer: true}
	a := NewAuthorizer(l, p, nil)

	ok, err := a.Check(context.Background(), notifications)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = a.Check(context.Background(), "camera")
	require.NoError(t, err)
	require.False(t, ok)

	require.Zero(t, p.calls.Load())
}

func TestAuthorizer_UnknownPromptsOnceAndRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grants.toml")
	p := &countingPrompter{answer: true}
	a := NewAuthorizer(LoadLedger(path), p, nil)

	for range 3 {
		ok, err := a.Check(context.Background(), notifications)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.EqualValues(t, 1, p.calls.Load())
	require.Equal(t, StatusGranted, LoadLedger(path).Status("notifications"))
}

func TestAuthorizer_DenialIsRemembered(t *testing.T) {
	p := &countingPrompter{answer: false}
	a := NewAuthorizer(LoadLedger(""), p, nil)

	ok, err := a.Check(context.Background(), notifications)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = a.Check(context.Background(), notifications)
	require.NoError(t, err)
	require.False(t, ok)
	require.EqualValues(t, 1, p.calls.Load())
}

func TestAuthorizer_ConcurrentChecksSharePrompt(t *testing.T) {
	p := &countingPrompter{answer: true, release: make(chan struct{})}
	a := NewAuthorizer(LoadLedger(""), p, nil)

	var wg sync.WaitGroup
	results := make([]bool, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := a.Check(context.Background(), notifications)
			if err == nil {
				results[i] = ok
			}
		}()
	}

	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(p.release)
	wg.Wait()

	require.EqualValues(t, 1, p.calls.Load())
	require.Equal(t, []bool{true, true, true, true}, results)
}

func TestAuthorizer_PromptErrorIsNotRecorded(t *testing.T) {
	boom := errors.New("tty gone")
	p := &countingPrompter{err: boom}
	l := LoadLedger("")
	a := NewAuthorizer(l, p, nil)

	_, err := a.Check(context.Background(), notifications)
	require.ErrorIs(t, err, boom)
	require.Equal(t, StatusUnknown, l.Status("notifications"))
}

func TestAuthorizer_CallerCancellation(t *testing.T) {
	p := &countingPrompter{answer: true, release: make(chan struct{})}
	defer close(p.release)
	a := NewAuthorizer(LoadLedger(""), p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := a.Check(ctx, notifications)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAuthorizer_NoPrompter(t *testing.T) {
	a := NewAuthorizer(nil, nil, nil)
	_, err := a.Check(context.Background(), notifications)
	require.Error(t, err)
}

func TestAuthorizer_ForgottenAnswerPromptsAgain(t *testing.T) {
	ledger := LoadLedger("")
	a := NewAuthorizer(ledger, Static(false), nil)
	ok, err := a.Check(context.Background(), notifications)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, ledger.Record(string(notifications), StatusUnknown))

	a.prompter = Static(true)
	ok, err = a.Check(context.Background(), notifications)
	require.NoError(t, err)
	require.True(t, ok)
}
