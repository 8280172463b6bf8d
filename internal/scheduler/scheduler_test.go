package scheduler

import (
	"context"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type manualTicks struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (m *manualTicks) C() <-chan time.Time { return m.ch }
func (m *manualTicks) Stop()               { m.once.Do(func() { close(m.stopped) }) }

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}

func TestSchedulerRunsImmediatelyThenOnTicks(t *testing.T) {
	ticks := &manualTicks{ch: make(chan time.Time), stopped: make(chan struct{})}
	start := time.Date(2025, 3, 16, 19, 0, 0, 0, time.UTC)

	runs := make(chan time.Time, 4)
	job := Job{Name: "test_job", Interval: time.Minute, Run: func(_ context.Context, now time.Time) {
		runs <- now
	}}
	before := testutil.ToFloat64(runsCounter.WithLabelValues("test_job"))

	ctx, cancel := context.WithCancel(context.Background())
	s := New([]Job{job},
		WithLogger(log.New(testWriter{t}, "", 0)),
		WithTickSource(func(interval time.Duration) TickSource {
			require.Equal(t, time.Minute, interval)
			return ticks
		}),
		WithClock(func() time.Time { return start }),
	)
	s.Start(ctx)

	require.Equal(t, start, <-runs)
	ticks.ch <- start.Add(time.Minute)
	require.Equal(t, start.Add(time.Minute), <-runs)
	ticks.ch <- start.Add(2 * time.Minute)
	require.Equal(t, start.Add(2*time.Minute), <-runs)

	cancel()
	s.Wait()
	<-ticks.stopped
	require.Equal(t, before+3, testutil.ToFloat64(runsCounter.WithLabelValues("test_job")))
}

func TestSchedulerSurvivesPanickingJob(t *testing.T) {
	ticks := &manualTicks{ch: make(chan time.Time), stopped: make(chan struct{})}
	calls := make(chan struct{}, 2)
	job := Job{Name: "panicky", Interval: time.Hour, Run: func(context.Context, time.Time) {
		calls <- struct{}{}
		panic("boom")
	}}

	ctx, cancel := context.WithCancel(context.Background())
	s := New([]Job{job},
		WithLogger(log.New(testWriter{t}, "", 0)),
		WithTickSource(func(time.Duration) TickSource { return ticks }),
	)
	s.Start(ctx)
	<-calls
	ticks.ch <- time.Now()
	<-calls

	cancel()
	s.Wait()
}
