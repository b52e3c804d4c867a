package probe

import (
	"context"

	"loginwatch/browser"
	"loginwatch/logger"
	"loginwatch/verdict"
)

// Sampler reads the three evidence channels for one identity. Channels are
// independent and order-insensitive; each read is wrapped so a failure
// degrades that channel to "not observed" instead of propagating. Sampling
// is read-only: resampling without a session mutation in between yields the
// same snapshot.
type Sampler struct {
	cfg      Config
	rules    verdict.TranscriptRules
	surface  browser.Surface
	identity string
	logger   logger.Logger
}

// NewSampler creates a sampler bound to one surface and one identity.
func NewSampler(cfg Config, rules verdict.TranscriptRules, surface browser.Surface, identity string, log logger.Logger) *Sampler {
	return &Sampler{
		cfg:      cfg,
		rules:    rules,
		surface:  surface,
		identity: identity,
		logger:   log,
	}
}

// Sample reads all channels once and returns the snapshot.
func (s *Sampler) Sample(ctx context.Context) verdict.EvidenceSnapshot {
	snap := verdict.EvidenceSnapshot{LogVerdict: verdict.LogNone}

	snap.DisconnectedActive = s.disconnectChannel(ctx)
	snap.FailureBannerVisible = s.bannerChannel(ctx)
	snap.SuccessVisible = s.successChannel(ctx)
	snap.LogVerdict = s.logChannel(ctx)

	return snap
}

func (s *Sampler) disconnectChannel(ctx context.Context) bool {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.ChannelTimeout)
	defer cancel()

	visible, err := s.surface.Visible(cctx, s.cfg.DisconnectSelector)
	if err != nil {
		s.logger.Debug(ctx, "disconnect channel read failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	return visible
}

// bannerChannel counts an occurrence of the failure phrase only when it
// renders near the top of the viewport or inside a known alert container.
// The same phrase inside the log panel is part of the log's own narrative,
// possibly about a historic attempt, and never counts.
func (s *Sampler) bannerChannel(ctx context.Context) bool {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.ChannelTimeout)
	defer cancel()

	hits, err := s.surface.TextHits(cctx, s.cfg.FailureBannerText)
	if err != nil {
		s.logger.Debug(ctx, "banner channel read failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}

	for _, hit := range hits {
		if hit.HasAncestorClass(s.cfg.LogPanelClass) {
			continue
		}
		if hit.Y <= s.cfg.BannerYThreshold {
			return true
		}
		for _, class := range s.cfg.AlertClasses {
			if hit.HasAncestorClass(class) {
				return true
			}
		}
	}
	return false
}

func (s *Sampler) successChannel(ctx context.Context) bool {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.ChannelTimeout)
	defer cancel()

	for _, text := range s.cfg.SuccessTexts {
		visible, err := s.surface.TextVisible(cctx, text)
		if err != nil {
			s.logger.Debug(ctx, "success channel read failed", map[string]interface{}{
				"error": err.Error(),
			})
			return false
		}
		if visible {
			return true
		}
	}
	return false
}

func (s *Sampler) logChannel(ctx context.Context) verdict.LogVerdict {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.ChannelTimeout)
	defer cancel()

	transcript, err := s.surface.Transcript(cctx)
	if err != nil {
		s.logger.Debug(ctx, "log channel read failed", map[string]interface{}{
			"error": err.Error(),
		})
		return verdict.LogNone
	}

	lv, err := s.rules.Scan(transcript, s.identity)
	if err != nil {
		s.logger.Debug(ctx, "transcript scan failed", map[string]interface{}{
			"error": err.Error(),
		})
		return verdict.LogNone
	}
	return lv
}
