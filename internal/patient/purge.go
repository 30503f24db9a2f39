package patient

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cardion-health/precert/internal/shared/metrics"
)

// Purger periodically removes patient records older than the retention
// window. PHI is not kept past the configured TTL.
type Purger struct {
	repo     *Repository
	ttl      time.Duration
	interval time.Duration
	log      *zap.Logger
}

// NewPurger creates a retention purge job
func NewPurger(repo *Repository, ttl, interval time.Duration, log *zap.Logger) *Purger {
	return &Purger{repo: repo, ttl: ttl, interval: interval, log: log}
}

// Start runs the purge loop until the context is cancelled. One pass runs
// immediately on start so a restart never extends retention.
func (p *Purger) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Purger) runOnce(ctx context.Context) {
	cutoff := time.Now().Add(-p.ttl)

	purged, err := p.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		p.log.Error("retention purge failed", zap.Error(err))
		return
	}

	if purged > 0 {
		metrics.RecordPatientsPurged(purged)
		p.log.Info("retention purge completed",
			zap.Int("purged", purged),
			zap.Time("cutoff", cutoff))
	}
}
