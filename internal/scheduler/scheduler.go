// Package scheduler runs housekeeping jobs on cron schedules in UTC.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"paper-trader/internal/logger"
)

type Job interface {
	Run() error
	Name() string
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	JobName string
	Fn      func() error
}

func (j JobFunc) Run() error   { return j.Fn() }
func (j JobFunc) Name() string { return j.JobName }

type Scheduler struct {
	cron *cron.Cron
}

// New uses standard five-field specs ("5 0 * * *") evaluated in UTC. A job
// still running when its next slot arrives is skipped.
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info(context.Background(), "Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop prevents new runs and waits for running jobs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		logger.Info(ctx, "Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx := context.Background()
		op := logger.StartOperation(ctx, "scheduler."+job.Name(), "job", job.Name())
		if err := job.Run(); err != nil {
			op.EndWithError(err)
			return
		}
		op.End()
	})
	if err != nil {
		return err
	}
	logger.Info(context.Background(), "Job registered", "job", job.Name(), "schedule", schedule)
	return nil
}

// Next lists the next fire time of every registered job.
func (s *Scheduler) Next() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Next)
	}
	return out
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	logger.Info(context.Background(), "Running job immediately", "job", job.Name())
	return job.Run()
}
