// Package jobs runs periodic account maintenance on a cron schedule.
package jobs

import (
	"context"
	"time"

	"mindcare-api/internal/metrics"
	"mindcare-api/internal/repository"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	PurgeTokensSpec = "@every 15m"
	MarkOfflineSpec = "@every 5m"
	IdleAfter       = 30 * time.Minute
	jobTimeout      = time.Minute
	purgeTokensJob  = "purge_expired_tokens"
	markOfflineJob  = "mark_idle_offline"
)

type Scheduler struct {
	cron    *cron.Cron
	users   repository.UserRepository
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewScheduler(users repository.UserRepository, m *metrics.Metrics, log logrus.FieldLogger, loc *time.Location) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		users:   users,
		metrics: m,
		log:     log.WithField("component", "jobs"),
		now:     time.Now,
	}

	if _, err := s.cron.AddFunc(PurgeTokensSpec, func() { s.run(purgeTokensJob, s.PurgeExpiredTokens) }); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(MarkOfflineSpec, func() { s.run(markOfflineJob, s.MarkIdleOffline) }); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.WithField("jobs", len(s.cron.Entries())).Info("Maintenance scheduler started")
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("Maintenance scheduler stop timed out")
	}
}

// PurgeExpiredTokens withdraws reset and verification tokens past their expiry.
func (s *Scheduler) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.users.PurgeExpiredTokens(ctx, s.now())
}

// MarkIdleOffline flags accounts unseen for IdleAfter as offline.
func (s *Scheduler) MarkIdleOffline(ctx context.Context) (int64, error) {
	return s.users.MarkIdleOffline(ctx, s.now().Add(-IdleAfter))
}

func (s *Scheduler) run(name string, job func(context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	n, err := job(ctx)
	s.metrics.JobRun(name, err == nil)
	if err != nil {
		s.log.WithError(err).WithField("job", name).Error("Maintenance job failed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"job":      name,
		"affected": n,
		"duration": time.Since(start).String(),
	}).Debug("Maintenance job finished")
}
