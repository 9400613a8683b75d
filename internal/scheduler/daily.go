package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is work run on a schedule.
type Job func(ctx context.Context) error

// Daily runs a job once a day at a fixed wall clock time.
type Daily struct {
	name   string
	hour   int
	minute int
	loc    *time.Location
	job    Job
	logger *zap.Logger
	now    func() time.Time
}

// NewDaily schedules job at hour:minute in loc (UTC when nil).
func NewDaily(name string, hour, minute int, loc *time.Location, job Job, logger *zap.Logger) *Daily {
	if loc == nil {
		loc = time.UTC
	}
	return &Daily{
		name:   name,
		hour:   hour,
		minute: minute,
		loc:    loc,
		job:    job,
		logger: logger.With(zap.String("job", name)),
		now:    time.Now,
	}
}

// Next returns the first run time strictly after t.
func (d *Daily) Next(t time.Time) time.Time {
	t = t.In(d.loc)
	next := time.Date(t.Year(), t.Month(), t.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(t) {
		next = time.Date(t.Year(), t.Month(), t.Day()+1, d.hour, d.minute, 0, 0, d.loc)
	}
	return next
}

// Run blocks, running the job at each daily slot, until ctx is cancelled.
// A job already in progress is waited for before Run returns.
func (d *Daily) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		next := d.Next(d.now())
		d.logger.Info("Next run scheduled", zap.Time("at", next))

		timer := time.NewTimer(next.Sub(d.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
			d.RunOnce(ctx)
		}
	}
	return nil
}

// RunOnce executes the job now. Errors are logged, never returned: a failed
// run is simply retried at the next slot.
func (d *Daily) RunOnce(ctx context.Context) {
	start := d.now()
	if err := d.job(ctx); err != nil {
		d.logger.Error("Scheduled job failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	d.logger.Info("Scheduled job finished", zap.Duration("duration", time.Since(start)))
}
