package probe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"loginwatch/browser"
	"loginwatch/logger"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PollInterval = 2 * time.Millisecond
	cfg.ElementWait = 20 * time.Millisecond
	cfg.ChannelTimeout = 50 * time.Millisecond
	return cfg
}

func TestGateWaitUntilReady(t *testing.T) {
	ctx := context.Background()
	log := logger.NewTestLogger()
	cfg := testConfig()

	t.Run("ready when home indicator visible and no overlay", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.SetTextHits(cfg.HomeIndicator, browser.TextHit{Y: 10})

		gate := NewGate(cfg, surface, log)
		assert.True(t, gate.WaitUntilReady(ctx, 100*time.Millisecond))
	})

	t.Run("nav fallback accepted when indicator not required", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.SetVisible(cfg.PrimaryNavSelector, true)

		gate := NewGate(cfg, surface, log)
		assert.True(t, gate.WaitUntilReady(ctx, 100*time.Millisecond))
	})

	t.Run("nav fallback rejected when indicator is a hard precondition", func(t *testing.T) {
		hard := cfg
		hard.HomeIndicatorRequired = true
		surface := browser.NewFakeSurface()
		surface.SetVisible(hard.PrimaryNavSelector, true)

		gate := NewGate(hard, surface, log)
		assert.False(t, gate.WaitUntilReady(ctx, 30*time.Millisecond))
	})

	t.Run("false when overlay never clears", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.SetTextHits(cfg.HomeIndicator, browser.TextHit{Y: 10})
		surface.SetVisible(cfg.DisconnectSelector, true)

		gate := NewGate(cfg, surface, log)
		assert.False(t, gate.WaitUntilReady(ctx, 50*time.Millisecond))
	})

	t.Run("ready once overlay clears on its own", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.SetTextHits(cfg.HomeIndicator, browser.TextHit{Y: 10})
		surface.SetVisible(cfg.DisconnectSelector, true)

		go func() {
			time.Sleep(15 * time.Millisecond)
			surface.SetVisible(cfg.DisconnectSelector, false)
		}()

		gate := NewGate(cfg, surface, log)
		assert.True(t, gate.WaitUntilReady(ctx, 200*time.Millisecond))
	})

	t.Run("false when nothing ever renders", func(t *testing.T) {
		surface := browser.NewFakeSurface()

		gate := NewGate(cfg, surface, log)
		assert.False(t, gate.WaitUntilReady(ctx, 30*time.Millisecond))
	})
}

func TestGateWaitDisconnectCleared(t *testing.T) {
	ctx := context.Background()
	log := logger.NewTestLogger()
	cfg := testConfig()

	t.Run("immediately true when absent", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		gate := NewGate(cfg, surface, log)
		assert.True(t, gate.WaitDisconnectCleared(ctx, 30*time.Millisecond))
	})

	t.Run("false when overlay persists", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.SetVisible(cfg.DisconnectSelector, true)
		gate := NewGate(cfg, surface, log)
		assert.False(t, gate.WaitDisconnectCleared(ctx, 30*time.Millisecond))
	})
}
