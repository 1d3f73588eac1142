package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/types"
)

// SchedulerConfig carries the cron specs and retention window for the
// background schedules. Zero values are filled in by NewScheduler.
type SchedulerConfig struct {
	FetchSpec    string
	CleanupSpec  string
	JobRetention time.Duration
	InitialDelay time.Duration
	SkipInitial  bool
}

// Scheduler drives the recurring fetch-all and job-cleanup work. It owns a
// cron runner and submits work through the JobManager so scheduled runs are
// tracked and broadcast exactly like user-triggered ones.
type Scheduler struct {
	log     *logger.Logger
	manager *JobManager
	cron    *cron.Cron
	cfg     SchedulerConfig
	cancel  context.CancelFunc
}

func NewScheduler(baseLog *logger.Logger, manager *JobManager, cfg SchedulerConfig) *Scheduler {
	if cfg.FetchSpec == "" {
		cfg.FetchSpec = "0 */2 * * *"
	}
	if cfg.CleanupSpec == "" {
		cfg.CleanupSpec = "0 2 * * *"
	}
	if cfg.JobRetention <= 0 {
		cfg.JobRetention = 7 * 24 * time.Hour
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 5 * time.Second
	}
	return &Scheduler{
		log:     baseLog.With("service", "Scheduler"),
		manager: manager,
		cron:    cron.New(),
		cfg:     cfg,
	}
}

// Start registers the schedules and begins running them. An initial fetch-all
// is kicked off shortly after boot so a fresh deployment has content without
// waiting for the first cron tick.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.cfg.FetchSpec, func() { s.runFetchAll(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.CleanupSpec, func() { s.runCleanup(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("Scheduler started", "fetch_spec", s.cfg.FetchSpec, "cleanup_spec", s.cfg.CleanupSpec)

	if !s.cfg.SkipInitial {
		go func() {
			select {
			case <-time.After(s.cfg.InitialDelay):
				s.runFetchAll(ctx)
			case <-ctx.Done():
			}
		}()
	}
	return nil
}

// Stop halts the cron runner and waits for in-flight scheduled entries.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) runFetchAll(ctx context.Context) {
	job, err := s.manager.CreateJob(ctx, types.JobTypeRSSFetch, types.FeedFetchPayload{AllFeeds: true})
	if err != nil {
		s.log.Error("Failed to create scheduled fetch job", "error", err)
		return
	}
	s.log.Info("Scheduled feed fetch starting", "job_id", job.ID)
	if err := s.manager.ProcessJob(ctx, job.ID); err != nil {
		s.log.Error("Scheduled feed fetch did not run", "job_id", job.ID, "error", err)
	}
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	if _, err := s.manager.CleanupOldJobs(ctx, s.cfg.JobRetention); err != nil {
		s.log.Error("Job cleanup failed", "error", err)
	}
}
