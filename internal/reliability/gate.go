package reliability

import (
	"context"
	"sync"
	"time"
)

// Probe checks one backend. It returns nil when the backend is healthy and
// an error when it is not. A timeout should surface as ctx.Err().
type Probe func(ctx context.Context) error

// Gate tracks backend health from repeated probes. A backend is only marked
// down after consecutive failures, probes are debounced, and a timed-out
// probe is inconclusive so transient stalls never flap the status.
type Gate struct {
	probe         Probe
	debounce      time.Duration
	failThreshold int
	timeout       time.Duration

	mu        sync.Mutex
	healthy   bool
	failures  int
	lastProbe time.Time
}

func NewGate(probe Probe) *Gate {
	return &Gate{
		probe:         probe,
		debounce:      2 * time.Second,
		failThreshold: 2,
		timeout:       3 * time.Second,
		healthy:       true,
	}
}

// Check runs the probe unless one ran within the debounce window, and
// returns the current health verdict.
func (g *Gate) Check(ctx context.Context) bool {
	g.mu.Lock()
	if time.Since(g.lastProbe) < g.debounce {
		healthy := g.healthy
		g.mu.Unlock()
		return healthy
	}
	g.lastProbe = time.Now()
	probe := g.probe
	g.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, g.timeout)
	err := probe(probeCtx)
	cancel()

	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case err == nil:
		g.failures = 0
		g.healthy = true
	case probeCtx.Err() != nil && err == probeCtx.Err():
		// Inconclusive: keep the previous verdict.
	default:
		g.failures++
		if g.failures >= g.failThreshold {
			g.healthy = false
		}
	}
	return g.healthy
}

// Healthy reports the last verdict without probing.
func (g *Gate) Healthy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.healthy
}
