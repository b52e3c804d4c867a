package probe

import (
	"context"
	"time"

	"loginwatch/browser"
	"loginwatch/logger"
)

// Gate blocks until the SPA's home view is interactively usable and the
// transient disconnect overlay has cleared.
type Gate struct {
	cfg     Config
	surface browser.Surface
	logger  logger.Logger
}

// NewGate creates a readiness gate over one surface.
func NewGate(cfg Config, surface browser.Surface, log logger.Logger) *Gate {
	return &Gate{
		cfg:     cfg,
		surface: surface,
		logger:  log,
	}
}

// WaitUntilReady polls for the home indicator (or, unless the indicator is
// configured as a hard precondition, any visible primary navigation element
// as a weaker proxy), then waits for the disconnect overlay to clear on its
// own. Returns false on timeout. A false here is an environmental
// condition, never a credential failure, and the gate never clicks or
// dismisses the overlay: doing so would corrupt what the session believes
// about its connection state.
func (g *Gate) WaitUntilReady(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	ready := false
	for time.Now().Before(deadline) && ctx.Err() == nil {
		if visible, err := g.surface.TextVisible(ctx, g.cfg.HomeIndicator); err == nil && visible {
			ready = true
			break
		}
		if !g.cfg.HomeIndicatorRequired {
			if visible, err := g.surface.Visible(ctx, g.cfg.PrimaryNavSelector); err == nil && visible {
				ready = true
				break
			}
		}
		if !pause(ctx, g.cfg.PollInterval) {
			return false
		}
	}
	if !ready {
		g.logger.Warn(ctx, "home view never became ready", map[string]interface{}{
			"timeout": timeout.String(),
		})
		return false
	}

	return g.WaitDisconnectCleared(ctx, time.Until(deadline))
}

// WaitDisconnectCleared polls until the disconnect overlay is absent,
// reporting false if it never clears within the timeout.
func (g *Gate) WaitDisconnectCleared(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for ctx.Err() == nil {
		visible, err := g.surface.Visible(ctx, g.cfg.DisconnectSelector)
		if err == nil && !visible {
			return true
		}
		if !time.Now().Before(deadline) {
			break
		}
		if !pause(ctx, g.cfg.PollInterval) {
			break
		}
	}

	g.logger.Warn(ctx, "disconnect overlay never cleared", map[string]interface{}{
		"timeout": timeout.String(),
	})
	return false
}

// pause sleeps for d, returning false if the context is cancelled first.
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
