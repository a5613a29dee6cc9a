// Package scheduler runs the periodic staff directory refresh.
package scheduler

import (
	"context"

	"careops/backend/internal/logger"
	"careops/backend/internal/service"

	"github.com/robfig/cron/v3"
)

// Scheduler owns the cron runner and its jobs
type Scheduler struct {
	cron      *cron.Cron
	directory *service.DirectoryService
	cronSpec  string
}

// NewScheduler creates a scheduler for the directory sync job. An empty
// cron spec disables scheduling; on-demand sync stays available over HTTP.
func NewScheduler(directory *service.DirectoryService, cronSpec string) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		directory: directory,
		cronSpec:  cronSpec,
	}
}

// Start registers the directory sync job and starts the cron runner
func (s *Scheduler) Start() error {
	if s.cronSpec == "" {
		logger.Info().Msg("directory sync schedule not configured, scheduler idle")
		return nil
	}

	_, err := s.cron.AddFunc(s.cronSpec, func() {
		ctx := context.Background()
		count, err := s.directory.SyncDirectory(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("scheduled directory sync failed")
			return
		}
		logger.Info().Int("synced", count).Msg("scheduled directory sync completed")
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info().Str("cron_spec", s.cronSpec).Msg("scheduler started")
	return nil
}

// Stop halts the cron runner; running jobs finish first
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("scheduler stopped")
}
