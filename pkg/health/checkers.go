package health

import (
	"context"
	"time"
)

// DefaultCheckTimeout bounds a single backend check.
const DefaultCheckTimeout = 5 * time.Second

// Pinger is a backend that can verify its own connectivity. The store
// backend and the event publishers implement it.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// PingChecker reports a Pinger as a named check.
type PingChecker struct {
	name    string
	target  Pinger
	timeout time.Duration
}

// NewPingChecker creates a checker. A non-positive timeout means
// DefaultCheckTimeout.
func NewPingChecker(name string, target Pinger, timeout time.Duration) *PingChecker {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &PingChecker{name: name, target: target, timeout: timeout}
}

// NewStoreChecker checks the document store backend.
func NewStoreChecker(store Pinger) *PingChecker {
	return NewPingChecker("store", store, 0)
}

// NewEventBusChecker checks the event broker connection.
func NewEventBusChecker(bus Pinger) *PingChecker {
	return NewPingChecker("eventbus", bus, 0)
}

// Name returns the check name.
func (c *PingChecker) Name() string { return c.name }

// Check pings the target within the timeout.
func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.target.HealthCheck(ctx)
	res := CheckResult{Name: c.name, Status: StatusHealthy, Duration: time.Since(start)}
	if err != nil {
		res.Status = StatusUnhealthy
		res.Error = err.Error()
	}
	return res
}
