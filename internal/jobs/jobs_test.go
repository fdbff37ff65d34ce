package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/incident-demo/internal/demo"
	"github.com/signalsfoundry/incident-demo/internal/logging"
	"github.com/signalsfoundry/incident-demo/internal/observability"
	"github.com/signalsfoundry/incident-demo/model"
)

type countingResetter struct {
	calls atomic.Int32
}

func (r *countingResetter) ResetDemo(context.Context) { r.calls.Add(1) }

func newCollector(t *testing.T) *observability.JobCollector {
	t.Helper()
	c, err := observability.NewJobCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewJobCollector() error = %v", err)
	}
	return c
}

func TestAddAutoResetEmptySpecIsNoop(t *testing.T) {
	s := NewScheduler(logging.Noop())
	if err := s.AddAutoReset("", &countingResetter{}); err != nil {
		t.Fatalf("AddAutoReset(\"\") error = %v, want nil", err)
	}
	if n := len(s.cron.Entries()); n != 0 {
		t.Fatalf("entries = %d, want 0", n)
	}
}

func TestAddAutoResetRejectsBadSpec(t *testing.T) {
	s := NewScheduler(nil)
	if err := s.AddAutoReset("not a cron spec", &countingResetter{}); err == nil {
		t.Fatalf("AddAutoReset(bad) error = nil, want error")
	}
}

func TestGuardRecordsRuns(t *testing.T) {
	collector := newCollector(t)
	s := NewScheduler(logging.Noop(), WithMetrics(collector))
	fixed := time.Date(2025, time.March, 14, 3, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.guard("ok_job", func(context.Context) error { return nil })()
	s.guard("bad_job", func(context.Context) error { return errors.New("boom") })()

	if got := testutil.ToFloat64(collector.Runs.WithLabelValues("ok_job", "ok")); got != 1 {
		t.Fatalf("ok runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Runs.WithLabelValues("bad_job", "error")); got != 1 {
		t.Fatalf("error runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.LastSuccess); got != float64(fixed.Unix()) {
		t.Fatalf("last success = %v, want %v", got, float64(fixed.Unix()))
	}
}

func TestGuardSkipsOverlappingRun(t *testing.T) {
	collector := newCollector(t)
	s := NewScheduler(logging.Noop(), WithMetrics(collector))

	release := make(chan struct{})
	entered := make(chan struct{})
	run := s.guard("slow", func(context.Context) error {
		close(entered)
		<-release
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		run()
	}()
	<-entered

	run()
	close(release)
	wg.Wait()

	if got := testutil.ToFloat64(collector.Skipped); got != 1 {
		t.Fatalf("skipped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Runs.WithLabelValues("slow", "ok")); got != 1 {
		t.Fatalf("runs = %v, want 1", got)
	}
}

func TestScheduledAutoResetClearsScenario(t *testing.T) {
	engine, _ := demo.NewManualEngine()
	t.Cleanup(engine.Close)
	ctx := context.Background()
	engine.ToggleDemoMode(ctx)
	if err := engine.StartScenario(ctx, model.ScenarioArmedRobbery); err != nil {
		t.Fatalf("StartScenario() error = %v", err)
	}

	s := NewScheduler(logging.Noop())
	if err := s.AddAutoReset("@every 20ms", engine); err != nil {
		t.Fatalf("AddAutoReset() error = %v", err)
	}
	s.Start()
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(stopCtx)
	})

	deadline := time.Now().Add(3 * time.Second)
	for engine.Snapshot().HasScenario() {
		if time.Now().After(deadline) {
			t.Fatalf("scenario still active after auto reset deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if engine.Snapshot().Enabled {
		t.Fatalf("Enabled = true after reset, want false")
	}
}

func TestStopWithoutStart(t *testing.T) {
	s := NewScheduler(logging.Noop())
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v, want nil", err)
	}
}
