package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/ports"
)

// Job represents a scheduled job
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger ports.Logger
}

// New creates a new scheduler. ctx is passed to every job run; cancelling it
// does not stop the cron loop, call Stop for that.
func New(ctx context.Context, logger ports.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		ctx:    ctx,
		logger: logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info(s.ctx, "Scheduler started", map[string]interface{}{"jobs": len(s.cron.Entries())})
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	<-done.Done()
	s.logger.Info(s.ctx, "Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "30 18 * * MON-FRI" - 18:30 on weekdays
//   - "@hourly"           - Every hour
//   - "@every 15m"        - Every 15 minutes
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.logger.Debug(s.ctx, "Running job", map[string]interface{}{"job": job.Name()})

		if err := job.Run(s.ctx); err != nil {
			s.logger.Error(s.ctx, err, "Job failed", map[string]interface{}{"job": job.Name()})
		} else {
			s.logger.Debug(s.ctx, "Job completed", map[string]interface{}{"job": job.Name()})
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w: %w", schedule, job.Name(), ports.ErrConfigurationError, err)
	}

	s.logger.Info(s.ctx, "Job registered", map[string]interface{}{"schedule": schedule, "job": job.Name()})
	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.logger.Info(s.ctx, "Running job immediately", map[string]interface{}{"job": job.Name()})
	return job.Run(s.ctx)
}

// IngestJob adapts an ingestion trigger to Job.
type IngestJob struct {
	run    func(ctx context.Context) (*domain.RunReport, error)
	logger ports.Logger
}

// NewIngestJob wraps run, typically api.Server.RunIngest so scheduled and
// manual runs share one lock.
func NewIngestJob(run func(ctx context.Context) (*domain.RunReport, error), logger ports.Logger) *IngestJob {
	return &IngestJob{run: run, logger: logger}
}

func (j *IngestJob) Name() string { return "ingest" }

func (j *IngestJob) Run(ctx context.Context) error {
	report, err := j.run(ctx)
	if err != nil {
		return err
	}
	j.logger.Info(ctx, "Scheduled ingestion finished", map[string]interface{}{
		"runID": report.RunID, "outcome": string(report.Outcome), "added": report.Added,
	})
	return nil
}
