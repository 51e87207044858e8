package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/cwsupport/crf-provisioner/internal/service"
)

// Cron cadences for the background jobs.
const (
	syncSpec    = "0 0 * * *"
	builderSpec = "*/20 * * * *"
	reaperSpec  = "0 * * * *"
)

// Scheduler drives the recurring jobs: the nightly catalog sync, the
// approved-request drain and the canceled-request reaper.
type Scheduler struct {
	sync     *service.SyncService
	builder  *service.BuilderService
	requests *service.RequestService
	logger   *zap.Logger
	cron     *cron.Cron
	cancel   context.CancelFunc
}

func NewScheduler(
	sync *service.SyncService,
	builder *service.BuilderService,
	requests *service.RequestService,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		sync:     sync,
		builder:  builder,
		requests: requests,
		logger:   logger,
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{logger}),
			cron.SkipIfStillRunning(cronLogger{logger}),
		)),
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"catalog-sync", syncSpec, func(ctx context.Context) error {
			if err := s.sync.SyncAll(ctx, nil); err != nil {
				return err
			}
			return s.sync.SweepCanceled(ctx, nil)
		}},
		{"site-builder", builderSpec, s.builder.BuildAllApproved},
		{"request-reaper", reaperSpec, s.requests.ReapCanceled},
	}

	for _, job := range jobs {
		job := job
		_, err := s.cron.AddFunc(job.spec, func() {
			s.runJob(ctx, job.name, job.run)
		})
		if err != nil {
			return fmt.Errorf("schedule %s: %w", job.name, err)
		}
	}

	s.logger.Info("Starting background scheduler")
	s.cron.Start()
	return nil
}

// Stop cancels running jobs and waits for the cron loop to drain.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runJob(ctx context.Context, name string, run func(context.Context) error) {
	runID := uuid.NewString()
	logger := s.logger.With(zap.String("job", name), zap.String("run_id", runID))

	logger.Info("Job started")
	if err := run(ctx); err != nil {
		logger.Error("Job failed", zap.Error(err))
		return
	}
	logger.Info("Job finished")
}

// cronLogger adapts zap to the cron logging interface.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
