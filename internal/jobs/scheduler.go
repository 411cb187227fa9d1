package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"campusdesk/api/internal/audit"
	"campusdesk/api/internal/config"
	"campusdesk/api/internal/service"
)

// Sweeper is implemented by the in-memory rate counter store; the redis
// store expires keys on its own and needs no sweeping.
type Sweeper interface {
	Sweep() int
}

// Scheduler runs the control plane's maintenance: expired-session purge,
// stale rate-window sweep, and audit archival. None of these jobs are
// load-bearing for correctness; they bound storage growth.
type Scheduler struct {
	cron     *cron.Cron
	auth     *service.AuthService
	sweeper  Sweeper
	archiver *audit.Archiver
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewScheduler(
	auth *service.AuthService,
	sweeper Sweeper,
	archiver *audit.Archiver,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		auth:     auth,
		sweeper:  sweeper,
		archiver: archiver,
		cfg:      cfg,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 */1 * * *", s.purgeSessions); err != nil {
		return err
	}

	if s.sweeper != nil {
		if _, err := s.cron.AddFunc("0 */10 * * * *", s.sweepCounters); err != nil {
			return err
		}
	}

	if s.archiver != nil {
		if _, err := s.cron.AddFunc(s.cfg.Audit.ArchiveSchedule, s.archiveAudit); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.CancelFunc {
	_, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		s.cron.Stop()
		cancel()
	}()
	return cancel
}

func (s *Scheduler) purgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := s.auth.PurgeExpiredSessions(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("session purge failed")
		return
	}
	if count > 0 {
		s.log.Info().Int64("purged", count).Msg("expired sessions purged")
	}
}

func (s *Scheduler) sweepCounters() {
	if removed := s.sweeper.Sweep(); removed > 0 {
		s.log.Debug().Int("removed", removed).Msg("stale rate windows swept")
	}
}

func (s *Scheduler) archiveAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Archive the previous UTC day, which is closed by the time this runs.
	day := time.Now().UTC().AddDate(0, 0, -1)
	if err := s.archiver.ArchiveDay(ctx, day); err != nil {
		s.log.Error().Err(err).Msg("audit archive failed")
	}
}
