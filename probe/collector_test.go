package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"loginwatch/browser"
	"loginwatch/logger"
	"loginwatch/verdict"
)

func newTestSampler(surface browser.Surface, identity string) *Sampler {
	return NewSampler(testConfig(), verdict.DefaultTranscriptRules(), surface, identity, logger.NewTestLogger())
}

func TestSamplerSample(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	t.Run("empty page yields empty snapshot", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		snap := newTestSampler(surface, "alice").Sample(ctx)
		assert.Equal(t, verdict.EvidenceSnapshot{LogVerdict: verdict.LogNone}, snap)
	})

	t.Run("disconnect overlay observed", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.SetVisible(cfg.DisconnectSelector, true)
		snap := newTestSampler(surface, "alice").Sample(ctx)
		assert.True(t, snap.DisconnectedActive)
	})

	t.Run("banner above threshold counts", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.SetTextHits(cfg.FailureBannerText, browser.TextHit{Y: 120})
		snap := newTestSampler(surface, "alice").Sample(ctx)
		assert.True(t, snap.FailureBannerVisible)
	})

	t.Run("same text below threshold does not count", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.SetTextHits(cfg.FailureBannerText, browser.TextHit{Y: 900})
		snap := newTestSampler(surface, "alice").Sample(ctx)
		assert.False(t, snap.FailureBannerVisible)
	})

	t.Run("alert container counts regardless of position", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.SetTextHits(cfg.FailureBannerText, browser.TextHit{
			Y:               900,
			AncestorClasses: []string{"alert-danger"},
		})
		snap := newTestSampler(surface, "alice").Sample(ctx)
		assert.True(t, snap.FailureBannerVisible)
	})

	t.Run("log panel echo never counts even above threshold", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.SetTextHits(cfg.FailureBannerText, browser.TextHit{
			Y:               100,
			AncestorClasses: []string{cfg.LogPanelClass, "alert"},
		})
		snap := newTestSampler(surface, "alice").Sample(ctx)
		assert.False(t, snap.FailureBannerVisible)
	})

	t.Run("success indicator observed", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.SetTextHits(cfg.SuccessTexts[0], browser.TextHit{Y: 20})
		snap := newTestSampler(surface, "alice").Sample(ctx)
		assert.True(t, snap.SuccessVisible)
	})

	t.Run("log channel reads transcript tail", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.AppendTranscript("authenticate (login: alice)\nError: Invalid credentials.\n")
		snap := newTestSampler(surface, "alice").Sample(ctx)
		assert.Equal(t, verdict.LogFailInvalid, snap.LogVerdict)
	})

	t.Run("failed channel degrades to not observed", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.SetVisible(cfg.DisconnectSelector, true)
		surface.AppendTranscript("authenticate (login: alice)\nAuthenticated to authd.\nAuthenticated to dnsmanagerd.\n")
		surface.Errs["text_hits"] = errors.New("eval failed")

		snap := newTestSampler(surface, "alice").Sample(ctx)
		// Banner and success channels degrade; the others still report.
		assert.False(t, snap.FailureBannerVisible)
		assert.False(t, snap.SuccessVisible)
		assert.True(t, snap.DisconnectedActive)
		assert.Equal(t, verdict.LogSuccess, snap.LogVerdict)
	})

	t.Run("sampling is idempotent without mutation", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.SetTextHits(cfg.FailureBannerText, browser.TextHit{Y: 100})
		surface.AppendTranscript("authenticate (login: alice)\n")

		sampler := newTestSampler(surface, "alice")
		first := sampler.Sample(ctx)
		second := sampler.Sample(ctx)
		assert.Equal(t, first, second)
	})
}
