// Package holds runs housekeeping for expired holds. Availability never
// depends on it: reads already ignore holds past expires_at.
package holds

import (
	"context"
	"log/slog"
	"time"

	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/metrics"
)

type Repository interface {
	DeleteExpiredHolds(ctx context.Context, now time.Time, limit int) (int64, error)
}

type Sweeper struct {
	repo      Repository
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

type SweeperConfig struct {
	Interval  time.Duration
	BatchSize int
}

func NewSweeper(repo Repository, logger *slog.Logger, cfg SweeperConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Sweeper{
		repo:      repo,
		logger:    logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		now:       time.Now,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("hold sweep failed", "err", err)
			}
		}
	}
}

// Sweep deletes expired holds in batches until a batch comes back short.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	var total int64
	for {
		n, err := s.repo.DeleteExpiredHolds(ctx, s.now().UTC(), s.batchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n < int64(s.batchSize) || ctx.Err() != nil {
			break
		}
	}
	if total > 0 {
		metrics.HoldsSwept.Add(float64(total))
		s.logger.Info("expired holds swept", "count", total)
	}
	return total, nil
}
