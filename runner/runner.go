// Package runner sequences login attempts over a credential list and
// aggregates their verdicts.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"loginwatch/browser"
	"loginwatch/credential"
	"loginwatch/internal/identutil"
	"loginwatch/logger"
	"loginwatch/notify"
	"loginwatch/probe"
	"loginwatch/result"
	"loginwatch/storage"
	"loginwatch/verdict"
)

// Config holds run-level settings.
type Config struct {
	BaseURL string

	// ReadinessTimeout bounds the readiness gate per attempt.
	ReadinessTimeout time.Duration

	// InterAttemptDelay separates attempts to reduce rate limiting and
	// session bleed-through.
	InterAttemptDelay time.Duration

	// ArtifactsEnabled gates screenshot and log-excerpt persistence.
	ArtifactsEnabled bool

	// ExcerptMaxBytes bounds the persisted transcript excerpt, keeping the
	// tail.
	ExcerptMaxBytes int
}

// DefaultConfig returns run defaults.
func DefaultConfig() Config {
	return Config{
		ReadinessTimeout:  30 * time.Second,
		InterAttemptDelay: 3 * time.Second,
		ArtifactsEnabled:  false,
		ExcerptMaxBytes:   16 * 1024,
	}
}

// Runner processes credentials strictly sequentially. Each attempt owns a
// fresh surface with cleared storage so no authentication artifact leaks
// from one credential into the next; no failure inside an attempt ever
// aborts the run.
type Runner struct {
	cfg         Config
	probeCfg    probe.Config
	rules       verdict.TranscriptRules
	resolverCfg verdict.ResolverConfig
	factory     browser.Factory
	logger      logger.Logger

	artifacts storage.ArtifactStore
	history   result.Store
	notifier  notify.Notifier
}

// New creates a runner. Artifact, history and notification collaborators
// are optional and attached with the With* methods.
func New(cfg Config, probeCfg probe.Config, rules verdict.TranscriptRules, resolverCfg verdict.ResolverConfig, factory browser.Factory, log logger.Logger) *Runner {
	return &Runner{
		cfg:         cfg,
		probeCfg:    probeCfg,
		rules:       rules,
		resolverCfg: resolverCfg,
		factory:     factory,
		logger:      log,
	}
}

// WithArtifacts attaches an artifact store.
func (r *Runner) WithArtifacts(store storage.ArtifactStore) *Runner {
	r.artifacts = store
	return r
}

// WithHistory attaches a run-history store.
func (r *Runner) WithHistory(store result.Store) *Runner {
	r.history = store
	return r
}

// WithNotifier attaches a summary notifier.
func (r *Runner) WithNotifier(n notify.Notifier) *Runner {
	r.notifier = n
	return r
}

// Run processes every credential and returns the aggregated summary. The
// only error it returns is an empty credential list; individual attempt
// outcomes, whatever they are, never fail the run.
func (r *Runner) Run(ctx context.Context, creds []credential.Credential) (*Summary, error) {
	if len(creds) == 0 {
		return nil, credential.ErrNoCredentials
	}

	summary := &Summary{BaseURL: r.cfg.BaseURL}
	runRecord := r.beginHistory(ctx)

	for i, cred := range creds {
		r.logger.Info(ctx, "starting attempt", map[string]interface{}{
			"identity": cred.Identity,
			"attempt":  i + 1,
			"total":    len(creds),
		})

		res := r.runAttempt(ctx, cred)
		summary.Results = append(summary.Results, res)
		r.recordAttempt(ctx, runRecord, res)

		if i < len(creds)-1 {
			if !pause(ctx, r.cfg.InterAttemptDelay) {
				r.logger.Warn(ctx, "run cancelled between attempts", nil)
				break
			}
		}
	}

	r.finishHistory(ctx, runRecord, summary)
	r.deliverSummary(ctx, summary)
	return summary, nil
}

// runAttempt classifies one credential. Panics and driver errors are
// contained here: the worst outcome is an Error verdict for this attempt.
func (r *Runner) runAttempt(ctx context.Context, cred credential.Credential) (res AttemptResult) {
	res = AttemptResult{
		Identity:  cred.Identity,
		StartTime: time.Now(),
	}
	defer func() {
		res.Duration = time.Since(res.StartTime)
		if rec := recover(); rec != nil {
			res.Verdict = verdict.Error
			res.Reason = fmt.Sprintf("automation panic: %v", rec)
			r.logger.Error(ctx, "attempt panicked", map[string]interface{}{
				"identity": cred.Identity,
				"panic":    fmt.Sprint(rec),
			})
		}
	}()

	surface, err := r.factory.NewSurface(ctx)
	if err != nil {
		res.Verdict = verdict.Error
		res.Reason = fmt.Sprintf("create session: %v", err)
		return res
	}
	defer surface.Close()
	defer r.captureArtifacts(ctx, surface, &res)

	if err := surface.ClearStorage(ctx); err != nil {
		r.logger.Warn(ctx, "failed to clear storage", map[string]interface{}{
			"identity": cred.Identity,
			"error":    err.Error(),
		})
	}

	// Initial navigation failures escalate to an error verdict; everything
	// after this point degrades more gently.
	if err := surface.Navigate(ctx, r.cfg.BaseURL); err != nil {
		res.Verdict = verdict.Error
		res.Reason = fmt.Sprintf("initial navigation: %v", err)
		return res
	}

	gate := probe.NewGate(r.probeCfg, surface, r.logger)
	if !gate.WaitUntilReady(ctx, r.cfg.ReadinessTimeout) {
		res.Verdict = verdict.FailUnknown
		res.Reason = "home view never became ready"
		return res
	}

	router := probe.NewRouter(r.probeCfg, surface, r.logger)
	nav := router.NavigateToLogin(ctx, r.cfg.BaseURL)
	res.AttemptedTargets = nav.AttemptedTargets
	if !nav.OK {
		res.Verdict = verdict.FailUnknown
		res.Reason = "login view unreachable"
		return res
	}

	submitter := probe.NewSubmitter(r.probeCfg, surface, r.logger)
	sub, err := submitter.Submit(ctx, cred.Identity, cred.Secret)
	if err != nil {
		res.Verdict = verdict.Error
		res.Reason = fmt.Sprintf("submit: %v", err)
		return res
	}
	res.UsedStrategy = sub.UsedStrategy

	sampler := probe.NewSampler(r.probeCfg, r.rules, surface, cred.Identity, r.logger)
	resolver := verdict.NewResolver(r.resolverCfg, sampler.Sample, gate.WaitDisconnectCleared, r.logger)
	res.Verdict, res.Reason, res.Snapshot = resolver.Resolve(ctx)
	return res
}

// captureArtifacts persists a screenshot and transcript excerpt keyed by a
// filesystem-safe transform of the identity. Best-effort on every path,
// including error verdicts.
func (r *Runner) captureArtifacts(ctx context.Context, surface browser.Surface, res *AttemptResult) {
	if r.artifacts == nil || !r.cfg.ArtifactsEnabled {
		return
	}
	key := identutil.SafeKey(res.Identity)

	if png, err := surface.Screenshot(ctx); err == nil {
		shotKey := key + ".png"
		if err := r.artifacts.Put(ctx, shotKey, bytes.NewReader(png)); err == nil {
			res.ScreenshotKey = shotKey
		} else {
			r.logger.Warn(ctx, "failed to store screenshot", map[string]interface{}{
				"identity": res.Identity,
				"error":    err.Error(),
			})
		}
	}

	if transcript, err := surface.Transcript(ctx); err == nil && transcript != "" {
		if max := r.cfg.ExcerptMaxBytes; max > 0 && len(transcript) > max {
			transcript = transcript[len(transcript)-max:]
		}
		excerptKey := key + ".log"
		if err := r.artifacts.Put(ctx, excerptKey, strings.NewReader(transcript)); err == nil {
			res.ExcerptKey = excerptKey
		} else {
			r.logger.Warn(ctx, "failed to store log excerpt", map[string]interface{}{
				"identity": res.Identity,
				"error":    err.Error(),
			})
		}
	}
}

// beginHistory opens a run record if history is attached. Persistence
// failures disable history for this run but never stop probing.
func (r *Runner) beginHistory(ctx context.Context) *result.Run {
	if r.history == nil {
		return nil
	}
	run := &result.Run{
		BaseURL:   r.cfg.BaseURL,
		StartTime: time.Now(),
	}
	if err := r.history.CreateRun(ctx, run); err != nil {
		r.logger.Warn(ctx, "history disabled for this run", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return run
}

func (r *Runner) recordAttempt(ctx context.Context, run *result.Run, res AttemptResult) {
	if run == nil {
		return
	}
	rec := &result.Attempt{
		RunID:         run.ID,
		Identity:      res.Identity,
		Verdict:       res.Verdict,
		Reason:        res.Reason,
		UsedStrategy:  res.UsedStrategy,
		ScreenshotKey: res.ScreenshotKey,
		ExcerptKey:    res.ExcerptKey,
		StartTime:     res.StartTime,
		DurationMs:    res.Duration.Milliseconds(),
	}
	if err := r.history.CreateAttempt(ctx, rec); err != nil {
		r.logger.Warn(ctx, "failed to record attempt", map[string]interface{}{
			"identity": res.Identity,
			"error":    err.Error(),
		})
	}
}

func (r *Runner) finishHistory(ctx context.Context, run *result.Run, summary *Summary) {
	if run == nil {
		return
	}
	counts := summary.Counts()
	err := r.history.UpdateRun(ctx, run.ID,
		result.SetStatus(result.StatusCompleted),
		result.SetEndTime(time.Now()),
		result.SetCounts(
			counts[verdict.Success],
			counts[verdict.FailInvalid],
			counts[verdict.FailUnknown],
			counts[verdict.Error],
		),
	)
	if err != nil {
		r.logger.Warn(ctx, "failed to finalize run record", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// deliverSummary sends the notification when a target is configured. An
// unconfigured notifier is normal; delivery failure is logged, not fatal.
func (r *Runner) deliverSummary(ctx context.Context, summary *Summary) {
	if r.notifier == nil || !r.notifier.Configured() {
		return
	}
	if err := r.notifier.Send(ctx, summary.Format()); err != nil {
		r.logger.Warn(ctx, "failed to deliver summary", map[string]interface{}{
			"error": err.Error(),
		})
	}
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
