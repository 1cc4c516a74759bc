package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrEdHardy/schleuben/component"
)

var _ component.Component = (*EndpointCache)(nil)
var _ component.Describable = (*EndpointCache)(nil)

// Name returns the component name.
func (c *EndpointCache) Name() string { return "discovery." + c.cfg.Name }

// Start warms the cache when WarmUp is set. A failed warm-up leaves the
// cache empty so the first lookup tries again.
func (c *EndpointCache) Start(ctx context.Context) error {
	if !c.cfg.WarmUp {
		return nil
	}
	if err := c.Initialize(ctx); err != nil {
		c.log.Warn("Endpoint warm-up failed, deferring discovery to first lookup", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return nil
}

// Stop cancels the background refresh and waits for it to exit.
func (c *EndpointCache) Stop(ctx context.Context) error {
	c.life.Lock()
	c.stopped = true
	c.life.Unlock()
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("discovery: waiting for refresh loop: %w", ctx.Err())
	}
}

// Health reports degraded until the first sweep succeeds and while the
// latest refresh has failed.
func (c *EndpointCache) Health(_ context.Context) component.Health {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case !c.initialized:
		return component.Health{Name: c.Name(), Status: component.StatusDegraded, Message: "endpoints not discovered yet"}
	case c.lastErr != nil:
		return component.Health{Name: c.Name(), Status: component.StatusDegraded, Message: "serving stale endpoints: " + c.lastErr.Error()}
	default:
		return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: fmt.Sprintf("%d endpoints", len(c.keys))}
	}
}

// Describe returns a one-line summary for the startup log.
func (c *EndpointCache) Describe() string {
	return fmt.Sprintf("services=%s role_tagged=%t refresh=%s",
		strings.Join(c.cfg.Services, ","), c.cfg.RoleTagged, c.cfg.RefreshInterval)
}
