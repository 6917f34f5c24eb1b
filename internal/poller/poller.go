// Package poller drives the periodic scheduler trigger: on each cron tick
// it runs one pollUpdates with trigger "periodic", letting the engine's own
// rate gate and probability tables decide what happens.
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"phonesim/pkg/logger"
	"phonesim/pkg/sim"
)

// Start starts the periodic poller. Returns a cancel func.
func Start(ctx context.Context, svc *sim.Service, cronExpr string) (context.CancelFunc, error) {
	if cronExpr == "" {
		cronExpr = "*/2 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("poller_invalid_cron", "cron", cronExpr)
		return nil, fmt.Errorf("invalid poller cron expression: %s", cronExpr)
	}

	logger.Info("poller_enabled", "cron", cronExpr)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, svc, cronExpr)
	return cancel, nil
}

// runScheduler uses gronx to compute the next tick for the configured cron
// expression and sleeps until that time.
func runScheduler(ctx context.Context, svc *sim.Service, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("poller_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("poller_nexttick_failed", "cron", cronExpr, "error", err)
			// fallback sleep then retry
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("poller_stopping")
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if _, err := svc.PollUpdates(ctx, sim.PollOptions{Trigger: sim.TriggerPeriodic}); err != nil {
				logger.Error("poll_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("poller_stopping")
			return
		}
	}
}
