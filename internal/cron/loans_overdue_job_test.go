package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/gatic-backend/pkg/logger"
)

type fakeOverdueMarker struct {
	asOf    time.Time
	flagged int
	err     error
	calls   int
}

func (f *fakeOverdueMarker) MarkOverdue(_ context.Context, now time.Time) (int, error) {
	f.calls++
	f.asOf = now
	return f.flagged, f.err
}

func newLoansOverdueJob(t *testing.T, marker *fakeOverdueMarker) *loansOverdueJob {
	t.Helper()
	jobIface, err := NewLoansOverdueJob(LoansOverdueJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Loans:  marker,
	})
	if err != nil {
		t.Fatalf("NewLoansOverdueJob: %v", err)
	}
	return jobIface.(*loansOverdueJob)
}

func TestLoansOverdueJobPassesCurrentTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 30, 0, 0, time.FixedZone("CST", -6*3600))
	marker := &fakeOverdueMarker{flagged: 3}
	job := newLoansOverdueJob(t, marker)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if marker.calls != 1 {
		t.Fatalf("expected one call, got %d", marker.calls)
	}
	if !marker.asOf.Equal(now) || marker.asOf.Location() != time.UTC {
		t.Fatalf("expected %s in UTC, got %s", now.UTC(), marker.asOf)
	}
}

func TestLoansOverdueJobPropagatesError(t *testing.T) {
	job := newLoansOverdueJob(t, &fakeOverdueMarker{err: errors.New("db down")})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewLoansOverdueJobRequiresService(t *testing.T) {
	if _, err := NewLoansOverdueJob(LoansOverdueJobParams{Logger: logger.New(logger.Options{ServiceName: "test"})}); err == nil {
		t.Fatal("expected error")
	}
}
