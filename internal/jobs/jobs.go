// Package jobs runs the periodic maintenance tasks of the portal.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/zeyuan/appeal-service/internal/config"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/notify"
)

const defaultJobTimeout = 30 * time.Second

// Refresher reloads a cached snapshot.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// StatusCounter counts appeals per status.
type StatusCounter interface {
	CountAppealsByStatus(ctx context.Context) (map[models.AppealStatus]int64, error)
}

// Deps are the components the jobs act on. Nil entries disable the part of a job that needs them.
type Deps struct {
	Refreshers map[string]Refresher // Keyed by name for logging.
	Appeals    StatusCounter
	Queue      notify.QueueInspector
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron    *cron.Cron
	deps    Deps
	timeout time.Duration
}

// New registers every job on a cron runner in loc. An invalid spec is an error.
func New(cfg config.JobsConfig, loc *time.Location, deps Deps) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	logger := cron.PrintfLogger(log.StandardLogger())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		deps:    deps,
		timeout: defaultJobTimeout,
	}
	for _, job := range []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{"config_refresh", cfg.ConfigRefresh, s.RefreshConfig},
		{"backlog_report", cfg.BacklogReport, s.ReportBacklog},
	} {
		if job.spec == "" {
			continue
		}
		run := job.run
		if _, errAdd := s.cron.AddFunc(job.spec, func() { s.withTimeout(run) }); errAdd != nil {
			return nil, fmt.Errorf("jobs: register %s (%q): %w", job.name, job.spec, errAdd)
		}
		log.Infof("jobs: %s scheduled (%s)", job.name, job.spec)
	}
	return s, nil
}

// Start launches the runner in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for running jobs or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn("jobs: stop timed out with jobs still running")
	}
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

func (s *Scheduler) withTimeout(run func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	run(ctx)
}

// RefreshConfig reloads every registered snapshot. A failure keeps the previous snapshot.
func (s *Scheduler) RefreshConfig(ctx context.Context) {
	for name, r := range s.deps.Refreshers {
		if r == nil {
			continue
		}
		if errRefresh := r.Refresh(ctx); errRefresh != nil {
			log.WithError(errRefresh).WithField("snapshot", name).Warn("jobs: refresh failed")
		}
	}
}

// Backlog is the open work reported by ReportBacklog.
type Backlog struct {
	Pending    int64
	Processing int64
	FollowUp   int64
	Mail       *notify.Backlog // Nil when the queue is not configured.
}

// CollectBacklog counts open appeals and queued notifications.
func (s *Scheduler) CollectBacklog(ctx context.Context) (Backlog, error) {
	var out Backlog
	if s.deps.Appeals != nil {
		counts, errCount := s.deps.Appeals.CountAppealsByStatus(ctx)
		if errCount != nil {
			return out, errCount
		}
		out.Pending = counts[models.AppealPending]
		out.Processing = counts[models.AppealProcessing]
		out.FollowUp = counts[models.AppealFollowUp]
	}
	if s.deps.Queue != nil {
		mail, errQueue := notify.QueueBacklog(s.deps.Queue)
		if errQueue != nil {
			return out, errQueue
		}
		out.Mail = &mail
	}
	return out, nil
}

// ReportBacklog logs the open appeal counts and the mail queue depth.
func (s *Scheduler) ReportBacklog(ctx context.Context) {
	backlog, errBacklog := s.CollectBacklog(ctx)
	if errBacklog != nil {
		log.WithError(errBacklog).Warn("jobs: backlog report failed")
		return
	}
	fields := log.Fields{
		"pending":    backlog.Pending,
		"processing": backlog.Processing,
		"follow_up":  backlog.FollowUp,
	}
	if backlog.Mail != nil {
		fields["mail_pending"] = backlog.Mail.Pending
		fields["mail_retry"] = backlog.Mail.Retry
	}
	log.WithFields(fields).Info("jobs: backlog")
}
