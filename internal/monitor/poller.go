package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ReadingTaker runs one read cycle. Session implements it, as does any
// wrapper that serializes access to a session.
type ReadingTaker interface {
	TakeReadings() Cycle
}

// Poller takes a reading cycle on a fixed interval
type Poller struct {
	target   ReadingTaker
	interval time.Duration
	logger   zerolog.Logger
}

// NewPoller creates a new poller
func NewPoller(target ReadingTaker, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		target:   target,
		interval: interval,
		logger:   logger,
	}
}

// Start takes one cycle per tick until ctx is cancelled
func (p *Poller) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().Dur("interval", p.interval).Msg("poller started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.PollOnce()
		}
	}
}

// PollOnce performs a single cycle
func (p *Poller) PollOnce() Cycle {
	cycle := p.target.TakeReadings()
	p.logger.Debug().
		Int("measurements", len(cycle.Measurements)).
		Int("alarms", len(cycle.Alarms)).
		Msg("poll cycle complete")
	return cycle
}
