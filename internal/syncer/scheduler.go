package syncer

import (
	"context"

	"github.com/robfig/cron/v3"

	"po-reconciliation-service/pkg/errors"
	"po-reconciliation-service/pkg/logger"
)

// Scheduler runs bulk syncs on a cron schedule while the server is up
type Scheduler struct {
	cron   *cron.Cron
	syncer *Syncer
	logger logger.Logger
}

// NewScheduler creates a scheduler around a syncer
func NewScheduler(s *Syncer, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Scheduler{
		cron:   cron.New(),
		syncer: s,
		logger: log.WithComponent("syncer.scheduler"),
	}
}

// Start registers the sync job under the given cron expression and starts the
// scheduler. Overlapping runs are prevented by cron's per-entry serialization
// combined with the job itself being a single function.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		result, err := s.syncer.SyncAll(ctx)
		if err != nil {
			s.logger.WithError(err).Error("Scheduled sync failed")
			return
		}
		s.logger.WithFields(logger.Fields{
			"synced": result.Synced,
			"failed": result.Failed,
		}).Info("Scheduled sync finished")
	})
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "sync_schedule", spec, err)
	}

	s.cron.Start()
	s.logger.WithField("schedule", spec).Info("Sync scheduler started")
	return nil
}

// Stop halts the scheduler, waiting for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Sync scheduler stopped")
}
