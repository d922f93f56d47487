package pipeline

import (
	"context"
	"errors"

	"habari/internal/logging"
	"habari/internal/services"
)

// RunOptions controls the cycle loop.
type RunOptions struct {
	// Once stops after a single cycle without waiting for any back-off.
	Once bool
	// MaxCycles stops after this many cycles when positive.
	MaxCycles int
}

// Run drives cycles until ctx is done. Empty cycles wait for the empty-cycle
// back-off before the next fetch; failed pushes wait the publish back-off. Run returns nil on
// cancellation and an error only for configuration failures, which no retry
// can fix.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) error {
	logger := o.logger
	logger.Info("broadcast loop started",
		logging.String(logging.FieldEventType, "loop_started"),
		logging.Int("feeds", len(o.cfg.Feeds.URLs)),
		logging.Duration("segment_cooldown", o.cfg.SegmentCooldown()),
		logging.Duration("empty_cycle_backoff", o.cfg.EmptyCycleBackoff()),
		logging.Duration("publish_failure_backoff", o.cfg.PublishFailureBackoff()),
		logging.Bool("once", opts.Once),
	)

	for cycles := 1; ; cycles++ {
		report, err := o.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("broadcast loop stopped", logging.String(logging.FieldEventType, "loop_stopped"))
				return nil
			}
			return err
		}
		if errors.Is(report.Err, services.ErrConfiguration) {
			return report.Err
		}
		if opts.Once || (opts.MaxCycles > 0 && cycles >= opts.MaxCycles) {
			return nil
		}
		if report.Published {
			continue
		}
		wait := o.cfg.PublishFailureBackoff()
		if report.Empty {
			wait = o.cfg.EmptyCycleBackoff()
		}
		if err := o.sleep(ctx, wait); err != nil {
			logger.Info("broadcast loop stopped", logging.String(logging.FieldEventType, "loop_stopped"))
			return nil
		}
	}
}
