package feed

import (
	"context"
	"time"

	"go.uber.org/zap"

	facilityDomain "github.com/parkwise/service-parking/internal/domain/facility"
)

// DefaultPollInterval is how often the feed is refreshed.
const DefaultPollInterval = 5 * time.Minute

// Fetcher returns the current availability snapshots.
type Fetcher interface {
	Fetch(ctx context.Context) ([]facilityDomain.Availability, error)
}

// Ingester stores a batch of snapshots.
type Ingester interface {
	Ingest(ctx context.Context, snapshots []facilityDomain.Availability, source facilityDomain.Source) (int, error)
}

// Poller refreshes availability from the feed on a fixed interval.
type Poller struct {
	fetcher  Fetcher
	sink     Ingester
	interval time.Duration
	logger   *zap.Logger
}

// NewPoller creates a Poller.
func NewPoller(fetcher Fetcher, sink Ingester, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{fetcher: fetcher, sink: sink, interval: interval, logger: logger}
}

// PollOnce fetches and ingests one feed document.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	snapshots, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	return p.sink.Ingest(ctx, snapshots, facilityDomain.SourceFeed)
}

// Run polls immediately and then every interval until ctx is cancelled.
// Failures are logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("availability poller started", zap.Duration("interval", p.interval))

	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("availability poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	n, err := p.PollOnce(pollCtx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("availability poll failed", zap.Error(err))
		}
		return
	}
	p.logger.Debug("availability refreshed", zap.Int("count", n))
}
