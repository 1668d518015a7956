package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) RunCycle(ctx context.Context) (int, error) {
	close(r.started)
	<-r.release
	return 0, nil
}

// Stop must cover manually triggered cycles: closing the pipeline while
// one is still feeding it would crash the shutdown.
func TestScheduler_StopWaitsForManualCycle(t *testing.T) {
	t.Parallel()

	runner := newBlockingRunner()
	// A schedule that will not fire during the test.
	s := New(Config{Schedule: "0 0 1 1 *", Timeout: time.Minute, Enabled: true}, runner, nil)
	require.NoError(t, s.Start())

	s.RunNow()
	select {
	case <-runner.started:
	case <-time.After(5 * time.Second):
		t.Fatal("manual cycle did not start")
	}

	stopCtx := s.Stop()
	select {
	case <-stopCtx.Done():
		t.Fatal("stop finished while a manual cycle was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(runner.release)
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not finish after the manual cycle returned")
	}
}

func TestScheduler_DisabledDoesNotStart(t *testing.T) {
	t.Parallel()

	s := New(Config{Schedule: "* * * * *", Enabled: false}, newBlockingRunner(), nil)
	require.NoError(t, s.Start())
	assert.False(t, s.IsRunning())
}
