package verdict

import (
	"context"
	"time"

	"loginwatch/logger"
)

// SampleFunc reads all three evidence channels once. Channel reads are
// best-effort: a failed read degrades to "not observed" inside the sampler,
// so sampling itself never fails.
type SampleFunc func(ctx context.Context) EvidenceSnapshot

// WaitClearFunc blocks until the disconnect overlay clears or the timeout
// elapses, reporting whether it cleared.
type WaitClearFunc func(ctx context.Context, timeout time.Duration) bool

// ResolverConfig bounds the polling loop.
type ResolverConfig struct {
	// PollWindow bounds the whole polling phase.
	PollWindow time.Duration

	// PollInterval is the pause between evidence samples.
	PollInterval time.Duration

	// SettleDelay runs after polling ends so the log stream can finish
	// appending trailing lines that belong to the same event.
	SettleDelay time.Duration

	// DisconnectWait bounds one suspension while the disconnect overlay is
	// up; polling resumes afterwards either way.
	DisconnectWait time.Duration
}

// DefaultResolverConfig returns the tuned polling bounds.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		PollWindow:     40 * time.Second,
		PollInterval:   400 * time.Millisecond,
		SettleDelay:    1500 * time.Millisecond,
		DisconnectWait: 10 * time.Second,
	}
}

// Resolver runs the terminal decision loop for one attempt: poll, settle,
// resolve. It holds no browser state of its own; everything it knows comes
// through the sample and wait-clear functions.
type Resolver struct {
	config    ResolverConfig
	sample    SampleFunc
	waitClear WaitClearFunc
	logger    logger.Logger
}

// NewResolver creates a resolver over the given evidence functions.
func NewResolver(config ResolverConfig, sample SampleFunc, waitClear WaitClearFunc, log logger.Logger) *Resolver {
	return &Resolver{
		config:    config,
		sample:    sample,
		waitClear: waitClear,
		logger:    log,
	}
}

// Resolve drives the polling window to one terminal verdict. While polling,
// an active disconnect overlay suspends the loop (bounded) instead of
// counting as evidence; any decisive snapshot breaks out early. After the
// settle delay one final sample is taken and that sample alone is decided.
func (r *Resolver) Resolve(ctx context.Context) (Verdict, string, EvidenceSnapshot) {
	deadline := time.Now().Add(r.config.PollWindow)

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}

		snap := r.sample(ctx)
		if snap.DisconnectedActive {
			wait := r.config.DisconnectWait
			if remaining := time.Until(deadline); remaining < wait {
				wait = remaining
			}
			r.logger.Debug(ctx, "disconnect overlay active, suspending poll", map[string]interface{}{
				"wait": wait.String(),
			})
			r.waitClear(ctx, wait)
			continue
		}

		if snap.Decisive() {
			r.logger.Debug(ctx, "decisive evidence observed", map[string]interface{}{
				"log_verdict":    string(snap.LogVerdict),
				"failure_banner": snap.FailureBannerVisible,
				"success":        snap.SuccessVisible,
			})
			break
		}

		if !sleep(ctx, r.config.PollInterval) {
			break
		}
	}

	// Settle so trailing log lines from the same event are included in the
	// authoritative sample.
	sleep(ctx, r.config.SettleDelay)

	final := r.sample(ctx)
	v, reason := Decide(final)

	r.logger.Info(ctx, "attempt resolved", map[string]interface{}{
		"verdict": string(v),
		"reason":  reason,
	})
	return v, reason, final
}

// sleep pauses for d, returning false if the context was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
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
