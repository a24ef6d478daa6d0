// Package scheduler runs the optional scheduled data update and the
// periodic session cleanup.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	common "github.com/bobmcallan/stock-portal/internal/common"
	"github.com/bobmcallan/stock-portal/internal/dashboard"
	"github.com/bobmcallan/stock-portal/internal/session"
)

// cleanupSpec runs session cleanup at the top of every minute.
const cleanupSpec = "0 * * * * *"

// Updater triggers a backend data update.
type Updater interface {
	TriggerUpdate(ctx context.Context) (string, error)
}

// Scheduler manages the cron entries.
type Scheduler struct {
	cron     *cron.Cron
	updater  Updater
	sessions *session.Manager
	logger   *common.Logger
	ctx      context.Context
}

// New creates a scheduler. Cron specs include a leading seconds field.
func New(ctx context.Context, updater Updater, sessions *session.Manager, logger *common.Logger) *Scheduler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		updater:  updater,
		sessions: sessions,
		logger:   logger,
		ctx:      ctx,
	}
}

// Register adds the session cleanup entry and, when updateSpec is not
// empty, the scheduled data update.
func (s *Scheduler) Register(updateSpec string) error {
	if updateSpec != "" {
		if _, err := s.cron.AddFunc(updateSpec, s.RunUpdateNow); err != nil {
			return fmt.Errorf("register update task %q: %w", updateSpec, err)
		}
	}
	if _, err := s.cron.AddFunc(cleanupSpec, s.cleanup); err != nil {
		return fmt.Errorf("register cleanup task: %w", err)
	}
	return nil
}

// Entries returns the number of registered cron entries.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("entries", s.Entries()).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// RunUpdateNow triggers the backend update and, on success, reloads the
// stock list of every live session.
func (s *Scheduler) RunUpdateNow() {
	start := time.Now()
	s.logger.Info().Msg("Running scheduled stock data update")

	msg, err := s.updater.TriggerUpdate(s.ctx)
	if err != nil {
		s.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Scheduled update failed")
		return
	}
	s.logger.Info().Str("message", msg).Dur("elapsed", time.Since(start)).Msg("Scheduled update complete")

	if s.sessions == nil {
		return
	}
	reloaded := 0
	s.sessions.Each(func(id string, ctrl *dashboard.Controller) {
		if err := ctrl.LoadStocks(s.ctx); err != nil {
			if !errors.Is(err, dashboard.ErrBusy) && !errors.Is(err, dashboard.ErrClosed) {
				s.logger.Warn().Err(err).Str("session", id).Msg("Session reload after scheduled update failed")
			}
			return
		}
		reloaded++
	})
	s.logger.Debug().Int("sessions", reloaded).Msg("Sessions reloaded after scheduled update")
}

func (s *Scheduler) cleanup() {
	if s.sessions == nil {
		return
	}
	s.sessions.Cleanup()
}
