package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/elibrary-backend/pkg/logger"
	"github.com/angelmondragon/elibrary-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	err      error
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	jobMetrics := metrics.NewCronJobMetrics(reg)
	ok := &testJob{name: "catalog_sync"}
	bad := &testJob{name: "overdue_borrows", err: errors.New("boom")}
	lock := &fakeLock{}

	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(bad, ok),
		Lock:     lock,
		Metrics:  jobMetrics,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if ok.runs != 1 || bad.runs != 1 {
		t.Fatalf("expected each job once, got ok=%d bad=%d", ok.runs, bad.runs)
	}
	if lock.releases != 1 || lock.held {
		t.Fatalf("expected lock released once, got %d (held=%v)", lock.releases, lock.held)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	outcomes := map[string]string{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			for _, label := range m.GetLabel() {
				if label.GetName() == "job" {
					outcomes[label.GetValue()] = mf.GetName()
				}
			}
		}
	}
	if outcomes["catalog_sync"] != "elibrary_job_success_total" || outcomes["overdue_borrows"] != "elibrary_job_failure_total" {
		t.Fatalf("unexpected job outcomes %v", outcomes)
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "catalog_sync"}
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{held: true},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran while another instance held the lock")
	}
}

func TestRunOnceReportsLockErrors(t *testing.T) {
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{err: errors.New("redis down")}})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := svc.RunOnce(context.Background()); err == nil {
		t.Fatal("expected lock error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "catalog_sync"}
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{},
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected the initial cycle to run once, got %d", job.runs)
	}
}

func TestNewServiceRequiresLockAndLogger(t *testing.T) {
	if _, err := NewService(ServiceParams{Lock: &fakeLock{}}); err == nil {
		t.Fatal("expected logger error")
	}
	if _, err := NewService(ServiceParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected lock error")
	}
}

type panicJob struct{}

func (panicJob) Name() string { return "broken" }

func (panicJob) Run(context.Context) error { panic("nil map") }

type slowJob struct{ deadline bool }

func (s *slowJob) Name() string { return "slow" }

func (s *slowJob) Run(ctx context.Context) error {
	_, s.deadline = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

func TestRunOnceSurvivesPanicsAndTimesOutJobs(t *testing.T) {
	after := &testJob{name: "notification_cleanup"}
	slow := &slowJob{}
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{
		Logger:     logger.Nop(),
		Registry:   NewRegistry(panicJob{}, slow, after),
		Lock:       lock,
		JobTimeout: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if !slow.deadline {
		t.Fatal("expected job context to carry a deadline")
	}
	if after.runs != 1 {
		t.Fatalf("expected jobs after a panic to run, got %d", after.runs)
	}
	if lock.held {
		t.Fatal("lock still held after cycle")
	}
}

func TestSafeRunConvertsPanic(t *testing.T) {
	err := safeRun(context.Background(), panicJob{})
	if err == nil || err.Error() != "job panicked: nil map" {
		t.Fatalf("unexpected error %v", err)
	}
}
