package worker

import (
	stderrors "errors"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/config"
	"github.com/jafarshop/dropsim/internal/queue"
)

// Service runs the task server and the periodic scheduler
type Service struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	logger    *zap.Logger
}

// NewService creates the worker. The cart sweep and fulfillment refresh run on the configured cron specs.
func NewService(cfg config.QueueConfig, consumer *Consumer, logger *zap.Logger) (*Service, error) {
	if !cfg.Enabled {
		return nil, queue.ErrDisabled
	}
	if consumer == nil {
		return nil, stderrors.New("consumer is nil")
	}

	opt, serverCfg := queue.BuildServerConfig(cfg, logger)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   logger.Sugar(),
	})
	if cfg.SweepCron != "" {
		if _, err := scheduler.Register(cfg.SweepCron, queue.NewCartSweepTask(), asynq.Queue(queue.DefaultQueue)); err != nil {
			return nil, err
		}
	}
	if cfg.RefreshCron != "" {
		task, err := queue.NewRefreshFulfillmentTask("")
		if err != nil {
			return nil, err
		}
		if _, err := scheduler.Register(cfg.RefreshCron, task, asynq.Queue(queue.DefaultQueue)); err != nil {
			return nil, err
		}
	}

	return &Service{
		server:    asynq.NewServer(opt, serverCfg),
		scheduler: scheduler,
		mux:       mux,
		logger:    logger,
	}, nil
}

// Start begins consuming tasks without blocking
func (s *Service) Start() error {
	if err := s.scheduler.Start(); err != nil {
		return err
	}
	if err := s.server.Start(s.mux); err != nil {
		s.scheduler.Shutdown()
		return err
	}
	s.logger.Info("Worker started")
	return nil
}

// Stop waits for in-flight tasks and stops the scheduler
func (s *Service) Stop() {
	s.scheduler.Shutdown()
	s.server.Shutdown()
	s.logger.Info("Worker stopped")
}
