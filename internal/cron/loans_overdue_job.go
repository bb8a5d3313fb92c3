package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/gatic-backend/pkg/logger"
)

// overdueMarker flags every open loan whose due date passed before now.
type overdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
}

type LoansOverdueJobParams struct {
	Logger *logger.Logger
	Loans  overdueMarker
}

func NewLoansOverdueJob(params LoansOverdueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Loans == nil {
		return nil, fmt.Errorf("loans service required")
	}
	return &loansOverdueJob{
		logg:  params.Logger,
		loans: params.Loans,
		now:   time.Now,
	}, nil
}

type loansOverdueJob struct {
	logg  *logger.Logger
	loans overdueMarker
	now   func() time.Time
}

func (j *loansOverdueJob) Name() string { return "loans-overdue" }

func (j *loansOverdueJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	flagged, err := j.loans.MarkOverdue(ctx, now)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"as_of":   now,
		"flagged": flagged,
	})
	if err != nil {
		return fmt.Errorf("loans overdue: %w", err)
	}
	if flagged > 0 {
		j.logg.Info(logCtx, "loans marked overdue")
		return nil
	}
	j.logg.Debug(logCtx, "no loans overdue")
	return nil
}
