package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loykin/dqtprobe/internal/common"
	"github.com/loykin/dqtprobe/internal/outcome"
)

// pinger probes the management API once.
type pinger interface {
	Ping(ctx context.Context) error
}

// waitForBroker polls the management API until it answers, a non-transport
// error surfaces, or the timeout elapses. A BrokerError means the API is up
// and responding, so it counts as reachable even when the status is non-2xx.
func waitForBroker(ctx context.Context, p pinger, timeout, interval time.Duration) error {
	logger := common.GetLogger().WithComponent("wait")

	if interval <= 0 {
		interval = 2 * time.Second
	}
	deadline := time.Now().Add(timeout)

	var lastErr error
	attempt := 0
	for {
		attempt++
		err := p.Ping(ctx)
		if err == nil {
			logger.Debug("broker is ready", "attempts", attempt)
			return nil
		}
		var be *outcome.BrokerError
		if errors.As(err, &be) {
			logger.Debug("management API reachable", "attempts", attempt, "status", be.Code)
			return nil
		}
		lastErr = err
		logger.Debug("broker not ready yet", "attempt", attempt, "error", err)

		if time.Now().Add(interval).After(deadline) {
			return fmt.Errorf("broker did not become ready within %s: %w", timeout, lastErr)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait canceled: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
}
