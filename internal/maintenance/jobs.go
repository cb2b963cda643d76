package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/SamuelSchlesinger/generalist/internal/session"
)

const defaultRetentionSchedule = "0 3 * * *"

// RetentionJob deletes sessions whose last update is older than the
// configured retention window.
type RetentionJob struct {
	Store        session.Store
	Retention    time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default, daily at 03:00
	now          func() time.Time
}

var _ Job = (*RetentionJob)(nil)

func (j *RetentionJob) Name() string { return "session_retention" }

func (j *RetentionJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return defaultRetentionSchedule
}

func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := j.clock()().Add(-j.Retention)
	pruned, err := j.Store.PruneBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if pruned > 0 {
		j.Logger.Info("pruned expired sessions", "count", pruned, "cutoff", cutoff)
	}
	return nil
}

func (j *RetentionJob) clock() func() time.Time {
	if j.now != nil {
		return j.now
	}
	return time.Now
}
