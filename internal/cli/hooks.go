package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/switchboard/pkg/domain"
)

func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Enter Node", "turn_id", e.TurnID, "node", e.NodeID)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			if e.Diff != nil {
				logger.Debug("Leave Node", "turn_id", e.TurnID, "node", e.NodeID, "edge", e.Edge, "elapsed", e.Elapsed, "diff", e.Diff)
			} else {
				logger.Debug("Leave Node", "turn_id", e.TurnID, "node", e.NodeID, "edge", e.Edge, "elapsed", e.Elapsed)
			}
		},
		OnCapabilityCall: func(ctx context.Context, e *domain.CapabilityEvent) {
			logger.Debug("Capability Call", "turn_id", e.TurnID, "capability", e.Name)
		},
		OnCapabilityReturn: func(ctx context.Context, e *domain.CapabilityEvent) {
			if e.IsError {
				logger.Debug("Capability Return (Error)", "turn_id", e.TurnID, "capability", e.Name, "err", e.Output)
			} else {
				logger.Debug("Capability Return (Success)", "turn_id", e.TurnID, "capability", e.Name)
			}
		},
	}
}
