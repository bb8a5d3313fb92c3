package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/gatic-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/gatic-backend/pkg/redis"
)

type fakeLocker struct {
	held     map[string]bool
	err      error
	attempts []string
	released []string
}

func (f *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (pkgredis.Unlock, bool, error) {
	f.attempts = append(f.attempts, key)
	if f.err != nil {
		return nil, false, f.err
	}
	if f.held[key] {
		return nil, false, nil
	}
	return func(context.Context) error {
		f.released = append(f.released, key)
		return nil
	}, true, nil
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

func newTestService(t *testing.T, locker JobLocker, jobs ...Job) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: NewRegistry(jobs...),
		Locker:   locker,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	locker := &fakeLocker{}
	service := newTestService(t, locker, success, failure)

	service.runCycle(context.Background())

	if success.runs != 1 {
		t.Fatalf("expected success job to run once, ran %d", success.runs)
	}
	if failure.runs != 1 {
		t.Fatalf("expected failure job to run once, ran %d", failure.runs)
	}
	if len(locker.released) != 2 {
		t.Fatalf("expected both locks released, got %v", locker.released)
	}
}

func TestServiceSkipsJobHeldByAnotherReplica(t *testing.T) {
	busy := &testJob{name: "loans-overdue"}
	free := &testJob{name: "outbox-retention"}
	locker := &fakeLocker{held: map[string]bool{pkgredis.JobLockKey("loans-overdue"): true}}
	service := newTestService(t, locker, busy, free)

	service.runCycle(context.Background())

	if busy.runs != 0 {
		t.Fatalf("expected locked job to be skipped, ran %d", busy.runs)
	}
	if free.runs != 1 {
		t.Fatalf("expected free job to run once, ran %d", free.runs)
	}
	if len(locker.attempts) != 2 {
		t.Fatalf("expected a lock attempt per job, got %v", locker.attempts)
	}
}

func TestServiceSkipsJobsWhenLockerFails(t *testing.T) {
	job := &testJob{name: "loans-overdue"}
	service := newTestService(t, &fakeLocker{err: errors.New("redis down")}, job)

	service.runCycle(context.Background())

	if job.runs != 0 {
		t.Fatalf("expected job not to run, ran %d", job.runs)
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "once"}
	service := newTestService(t, LocalLocker(), job)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewServiceRequiresLocker(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.New(logger.Options{ServiceName: "cron-test"})})
	if err == nil {
		t.Fatal("expected error")
	}
}
