package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igfetch/internal/server"
	"igfetch/pkg/logger"
	"igfetch/pkg/metrics"
	"igfetch/pkg/strategy"
)

// mockRunner answers every URL after an optional delay
type mockRunner struct {
	delay   time.Duration
	err     error
	panicV  interface{}
	calls   int32
	running int32
	peak    int32
	release chan struct{}
}

func (m *mockRunner) Run(ctx context.Context, rawURL string) (*strategy.Result, error) {
	atomic.AddInt32(&m.calls, 1)
	n := atomic.AddInt32(&m.running, 1)
	defer atomic.AddInt32(&m.running, -1)
	for {
		peak := atomic.LoadInt32(&m.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&m.peak, peak, n) {
			break
		}
	}

	if m.panicV != nil {
		panic(m.panicV)
	}
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	return &strategy.Result{Success: true, FileName: rawURL + ".mp4", Strategy: strategy.NameAPI}, nil
}

func TestPoolBasicFunctionality(t *testing.T) {
	runner := &mockRunner{}
	pool := NewPool(3, 10, runner, nil, logger.NewTestLogger())
	pool.Start()
	defer pool.Stop()

	const numJobs = 10
	var wg sync.WaitGroup
	results := make([]*strategy.Result, numJobs)
	errs := make([]error, numJobs)
	for i := 0; i < numJobs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = pool.Submit(context.Background(), fmt.Sprintf("job-%d", i), fmt.Sprintf("post%d", i))
		}(i)
	}
	wg.Wait()

	for i := 0; i < numJobs; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("post%d.mp4", i), results[i].FileName, "each caller gets its own result")
	}
	assert.Equal(t, int32(numJobs), atomic.LoadInt32(&runner.calls))
}

func TestPoolWithErrors(t *testing.T) {
	runner := &mockRunner{err: errors.New("all strategies failed")}
	pool := NewPool(2, 0, runner, nil, nil)
	pool.Start()
	defer pool.Stop()

	res, err := pool.Submit(context.Background(), "j", "post")
	assert.Nil(t, res)
	assert.EqualError(t, err, "all strategies failed")
}

func TestPoolConcurrencyIsBounded(t *testing.T) {
	runner := &mockRunner{delay: 20 * time.Millisecond}
	pool := NewPool(2, 20, runner, nil, nil)
	pool.Start()
	defer pool.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = pool.Submit(context.Background(), "", fmt.Sprintf("p%d", i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(8), atomic.LoadInt32(&runner.calls))
	assert.LessOrEqual(t, atomic.LoadInt32(&runner.peak), int32(2))
}

func TestPoolRecoversRunnerPanic(t *testing.T) {
	runner := &mockRunner{panicV: "boom"}
	log := logger.NewTestLogger()
	pool := NewPool(1, 1, runner, nil, log)
	pool.Start()
	defer pool.Stop()

	_, err := pool.Submit(context.Background(), "j", "post")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker panic: boom")
	assert.True(t, log.HasMessage("Worker recovered from panic"))

	// the worker is still alive
	runner.panicV = nil
	res, err := pool.Submit(context.Background(), "k", "again")
	require.NoError(t, err)
	assert.Equal(t, "again.mp4", res.FileName)
}

func TestSubmitReturnsWhenCallerGivesUp(t *testing.T) {
	runner := &mockRunner{release: make(chan struct{})}
	pool := NewPool(1, 1, runner, nil, nil)
	pool.Start()
	defer pool.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := pool.Submit(ctx, "j", "post")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmitAfterStop(t *testing.T) {
	pool := NewPool(1, 1, &mockRunner{}, nil, nil)
	pool.Start()
	pool.Stop()

	_, err := pool.Submit(context.Background(), "j", "post")
	assert.ErrorIs(t, err, ErrPoolClosed)

	// stopping twice is harmless
	pool.Stop()
}

func TestStopWaitsForRunningJob(t *testing.T) {
	runner := &mockRunner{release: make(chan struct{})}
	pool := NewPool(1, 1, runner, nil, nil)
	pool.Start()

	done := make(chan error, 1)
	go func() {
		_, err := pool.Submit(context.Background(), "j", "post")
		done <- err
	}()

	require.Eventually(t, func() bool { return pool.ActiveWorkers() == 1 }, time.Second, 5*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a job was running")
	case <-time.After(30 * time.Millisecond):
	}

	close(runner.release)
	<-stopped
	assert.NoError(t, <-done)
}

var _ server.QueueStats = (*Pool)(nil)

func TestPoolQueueSize(t *testing.T) {
	runner := &mockRunner{release: make(chan struct{})}
	pool := NewPool(1, 2, runner, nil, nil)
	pool.Start()
	defer pool.Stop()

	done := make(chan struct{}, 2)
	for _, id := range []string{"first", "second"} {
		id := id
		go func() {
			_, _ = pool.Submit(context.Background(), id, "post")
			done <- struct{}{}
		}()
	}

	// one job runs, the other waits for the single worker
	require.Eventually(t, func() bool {
		return pool.ActiveWorkers() == 1 && pool.QueueSize() == 1
	}, time.Second, 5*time.Millisecond)

	close(runner.release)
	<-done
	<-done
	assert.Equal(t, 0, pool.QueueSize())
}

func TestPoolActiveWorkersGauge(t *testing.T) {
	m := metrics.New()
	runner := &mockRunner{release: make(chan struct{})}
	pool := NewPool(2, 2, runner, m, nil)
	pool.Start()
	defer pool.Stop()

	done := make(chan struct{})
	go func() {
		_, _ = pool.Submit(context.Background(), "j", "post")
		close(done)
	}()

	require.Eventually(t, func() bool { return pool.ActiveWorkers() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, pool.Size())

	n, err := testutil.GatherAndCount(m.Registry(), "igfetch_active_workers")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	close(runner.release)
	<-done
	assert.Eventually(t, func() bool { return pool.ActiveWorkers() == 0 }, time.Second, 5*time.Millisecond)
}
