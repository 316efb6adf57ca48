package poller

import (
	"context"
	"time"

	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/platform/envutil"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
	"github.com/visionforge/classifier-backend/internal/services"
)

// Per-kind poll cadence. Imports finish in minutes, exports shortly after,
// training runs for hours; no point hammering the provider for the slow one.
var pollIntervals = map[string]time.Duration{
	domain.OperationImportData:  5 * time.Minute,
	domain.OperationExportModel: 10 * time.Minute,
	domain.OperationTrainModel:  15 * time.Minute,
}

// Worker is the optional in-process poll scheduler. The /check endpoint
// stays the external trigger surface; the worker just fires the same sweep
// on a timer when POLL_SCHEDULER_ENABLED is set.
type Worker struct {
	log    *logger.Logger
	poller services.PollerService
}

func NewWorker(baseLog *logger.Logger, poller services.PollerService) *Worker {
	return &Worker{
		log:    baseLog.With("component", "PollWorker"),
		poller: poller,
	}
}

func Enabled() bool {
	return envutil.Bool("POLL_SCHEDULER_ENABLED", false)
}

func (w *Worker) Start(ctx context.Context) {
	for kind, interval := range pollIntervals {
		kind, interval := kind, interval
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			w.log.Info("Poll loop started", "type", kind, "interval", interval.String())
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					refreshed, err := w.poller.Poll(ctx, kind)
					if err != nil {
						w.log.Warn("Scheduled poll failed", "type", kind, "error", err)
						continue
					}
					if refreshed > 0 {
						w.log.Info("Scheduled poll finished", "type", kind, "refreshed", refreshed)
					}
				}
			}
		}()
	}
}
