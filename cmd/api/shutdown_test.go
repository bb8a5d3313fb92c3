package main

import (
	"errors"
	"testing"

	"go.uber.org/multierr"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCloseAllReportsEveryFailure(t *testing.T) {
	redisErr := errors.New("redis close")
	dbErr := errors.New("db close")
	closed := 0

	err := closeAll(
		closerFunc(func() error { closed++; return redisErr }),
		closerFunc(func() error { closed++; return nil }),
		closerFunc(func() error { closed++; return dbErr }),
	)
	if closed != 3 {
		t.Fatalf("expected every closer to run, ran %d", closed)
	}
	if !errors.Is(err, redisErr) || !errors.Is(err, dbErr) {
		t.Fatalf("expected both failures, got %v", err)
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected 2 errors, got %d", got)
	}
}

func TestCloseAllNoErrors(t *testing.T) {
	if err := closeAll(closerFunc(func() error { return nil })); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}
