package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultSweepInterval is how often the sweeper looks for stale sessions.
const DefaultSweepInterval = time.Minute

type sweepRunner interface {
	Sweep(ctx context.Context) (int, error)
}

// Sweeper periodically closes sessions that have been abandoned.
type Sweeper struct {
	runner   sweepRunner
	interval time.Duration
	log      logrus.FieldLogger
}

func NewSweeper(runner sweepRunner, interval time.Duration, log logrus.FieldLogger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{runner: runner, interval: interval, log: log}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithField("interval", s.interval.String()).Info("session sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("session sweeper stopped")
			return nil
		case <-ticker.C:
			n, err := s.runner.Sweep(ctx)
			if err != nil && ctx.Err() == nil {
				s.log.WithError(err).Warn("sweep failed")
				continue
			}
			if n > 0 {
				s.log.WithField("swept", n).Info("sweep finished")
			}
		}
	}
}
