package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/koalabang/MUFCR6K2025/internal/dx"
	"github.com/koalabang/MUFCR6K2025/internal/muf"
)

// Scheduler drives the periodic acquisition cycles: the MUF refresh and
// the best-effort DX spot refresh. It is the only writer of the series
// store.
type Scheduler struct {
	scheduler   *gocron.Scheduler
	service     *muf.Service
	dxFetcher   *dx.Fetcher
	mufInterval time.Duration
	dxInterval  time.Duration
	log         *zap.Logger
}

func New(service *muf.Service, dxFetcher *dx.Fetcher, mufInterval, dxInterval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler:   gocron.NewScheduler(time.UTC),
		service:     service,
		dxFetcher:   dxFetcher,
		mufInterval: mufInterval,
		dxInterval:  dxInterval,
		log:         log,
	}
}

// Start registers the jobs and starts the underlying scheduler. Both
// jobs run once immediately so the API has data right after startup.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.mufInterval).StartImmediately().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.service.Refresh(ctx); err != nil {
			s.log.Error("muf refresh cycle failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	if s.dxFetcher != nil {
		_, err = s.scheduler.Every(s.dxInterval).StartImmediately().Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			// Best effort: a failed refresh keeps the previous spots.
			if err := s.dxFetcher.Refresh(ctx); err != nil {
				s.log.Warn("dx refresh failed", zap.Error(err))
			}
		})
		if err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
