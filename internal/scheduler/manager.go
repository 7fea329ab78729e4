// Package scheduler runs periodic background jobs.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/animaisueg/pledge-service/internal/infra"
)

// Job is a unit of periodic work.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// Manager owns a gocron scheduler and the context handed to its jobs.
type Manager struct {
	scheduler gocron.Scheduler
	logger    *infra.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewManager creates a stopped manager.
func NewManager(logger *infra.Logger) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{scheduler: s, logger: logger, ctx: ctx, cancel: cancel}, nil
}

// Register adds job. Overlapping runs are skipped and rescheduled.
func (m *Manager) Register(job Job) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(job.Interval()),
		gocron.NewTask(func() { m.run(job) }),
		gocron.WithName(job.Name()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", job.Name(), err)
	}
	return nil
}

// Start begins executing registered jobs.
func (m *Manager) Start() {
	m.scheduler.Start()
	m.logger.Info().Int("jobs", len(m.scheduler.Jobs())).Msg("scheduler started")
}

// Stop cancels running jobs and waits for the scheduler to shut down.
func (m *Manager) Stop() error {
	m.cancel()
	if err := m.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	m.logger.Info().Msg("scheduler stopped")
	return nil
}

func (m *Manager) run(job Job) {
	start := time.Now()
	if err := job.Run(m.ctx); err != nil {
		m.logger.Error().Err(err).Str("job", job.Name()).Msg("job failed")
		return
	}
	m.logger.Debug().Str("job", job.Name()).Dur("took", time.Since(start)).Msg("job finished")
}
