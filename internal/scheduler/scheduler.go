package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Meedux/ai-meal/internal/config"
	"github.com/Meedux/ai-meal/internal/domain/models"
	"github.com/Meedux/ai-meal/internal/service/reporting"
)

const runTimeout = 5 * time.Minute

// ProfileLister enumerates the users the nightly job runs for.
type ProfileLister interface {
	ListProfiles(ctx context.Context) ([]models.UserProfile, error)
}

// Reporter exports and renders the daily figures.
type Reporter interface {
	ExportDay(ctx context.Context, userID, date string) (bool, error)
	DailyDigest(ctx context.Context, userID, date string) (string, error)
}

// Messenger delivers digests. It is satisfied by the WhatsApp service.
type Messenger interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// RunStats summarizes one nightly run.
type RunStats struct {
	Users    int
	Exported int
	Sent     int
	Failures int
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	schedule  string
	location  *time.Location
	users     ProfileLister
	reporter  Reporter
	messenger Messenger
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduler creates a new scheduler instance. messenger may be nil, in
// which case digests are not sent.
func NewScheduler(cfg config.ReportingConfig, users ProfileLister, reporter Reporter, messenger Messenger, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := cfg.Location()

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		schedule:  cfg.CronSchedule,
		location:  loc,
		users:     users,
		reporter:  reporter,
		messenger: messenger,
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers the nightly job and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule), zap.String("timezone", s.location.String()))

	if _, err := s.cron.AddFunc(s.schedule, s.runNightly); err != nil {
		return fmt.Errorf("schedule nightly digest %q: %w", s.schedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runNightly() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	stats, err := s.RunDigest(ctx)
	if err != nil {
		s.logger.Error("nightly digest failed", zap.Error(err))
		return
	}
	s.logger.Info("nightly digest finished",
		zap.Int("users", stats.Users),
		zap.Int("exported", stats.Exported),
		zap.Int("sent", stats.Sent),
		zap.Int("failures", stats.Failures))
}

// RunDigest exports today's totals and sends the daily digest for every
// registered user. A failure for one user is logged and does not stop the run.
func (s *Scheduler) RunDigest(ctx context.Context) (RunStats, error) {
	profiles, err := s.users.ListProfiles(ctx)
	if err != nil {
		return RunStats{}, fmt.Errorf("list users: %w", err)
	}

	date := models.Today(s.location, s.now())
	stats := RunStats{Users: len(profiles)}

	for _, profile := range profiles {
		logger := s.logger.With(zap.String("user_id", profile.UserID), zap.String("date", date))

		exported, err := s.reporter.ExportDay(ctx, profile.UserID, date)
		switch {
		case errors.Is(err, reporting.ErrExportDisabled):
		case err != nil:
			stats.Failures++
			logger.Error("failed to export daily totals", zap.Error(err))
		case exported:
			stats.Exported++
		}

		if s.messenger == nil || profile.Phone == "" {
			continue
		}

		digest, err := s.reporter.DailyDigest(ctx, profile.UserID, date)
		if err != nil {
			stats.Failures++
			logger.Error("failed to build daily digest", zap.Error(err))
			continue
		}
		if err := s.messenger.SendOutbound(ctx, models.OutboundMessageRequest{To: profile.Phone, Message: digest}); err != nil {
			stats.Failures++
			logger.Error("failed to send daily digest", zap.Error(err))
			continue
		}
		stats.Sent++
	}

	return stats, nil
}
