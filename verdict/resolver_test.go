package verdict

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"loginwatch/logger"
)

func testResolverConfig() ResolverConfig {
	return ResolverConfig{
		PollWindow:     200 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
		SettleDelay:    5 * time.Millisecond,
		DisconnectWait: 20 * time.Millisecond,
	}
}

// scriptedSampler replays a fixed snapshot sequence, holding the last
// snapshot once the script runs out.
type scriptedSampler struct {
	snapshots []EvidenceSnapshot
	calls     int
}

func (s *scriptedSampler) sample(ctx context.Context) EvidenceSnapshot {
	i := s.calls
	if i >= len(s.snapshots) {
		i = len(s.snapshots) - 1
	}
	s.calls++
	return s.snapshots[i]
}

func neverClears(ctx context.Context, timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return false
}

func clearsImmediately(ctx context.Context, timeout time.Duration) bool {
	return true
}

func TestResolverResolve(t *testing.T) {
	ctx := context.Background()
	log := logger.NewTestLogger()

	t.Run("breaks early on decisive failure evidence", func(t *testing.T) {
		s := &scriptedSampler{snapshots: []EvidenceSnapshot{
			{LogVerdict: LogUnknown},
			{FailureBannerVisible: true, LogVerdict: LogUnknown},
		}}
		r := NewResolver(testResolverConfig(), s.sample, clearsImmediately, log)

		v, reason, snap := r.Resolve(ctx)
		assert.Equal(t, FailInvalid, v)
		assert.Equal(t, ReasonBannerFailure, reason)
		assert.True(t, snap.FailureBannerVisible)
	})

	t.Run("final sample is authoritative not the breaking one", func(t *testing.T) {
		// Success indicator breaks the loop, but by the final sample the log
		// stream has caught up with a failure line. Failure must win.
		s := &scriptedSampler{snapshots: []EvidenceSnapshot{
			{SuccessVisible: true, LogVerdict: LogUnknown},
			{SuccessVisible: true, LogVerdict: LogFailInvalid},
		}}
		r := NewResolver(testResolverConfig(), s.sample, clearsImmediately, log)

		v, reason, _ := r.Resolve(ctx)
		assert.Equal(t, FailInvalid, v)
		assert.Equal(t, ReasonLogFailure, reason)
	})

	t.Run("log success resolves success", func(t *testing.T) {
		s := &scriptedSampler{snapshots: []EvidenceSnapshot{
			{LogVerdict: LogNone},
			{LogVerdict: LogUnknown},
			{LogVerdict: LogSuccess},
		}}
		r := NewResolver(testResolverConfig(), s.sample, clearsImmediately, log)

		v, reason, _ := r.Resolve(ctx)
		assert.Equal(t, Success, v)
		assert.Equal(t, ReasonLogSuccess, reason)
	})

	t.Run("persistent disconnect resolves fail unknown with sub-reason", func(t *testing.T) {
		s := &scriptedSampler{snapshots: []EvidenceSnapshot{
			{DisconnectedActive: true, LogVerdict: LogNone},
		}}
		r := NewResolver(testResolverConfig(), s.sample, neverClears, log)

		v, reason, snap := r.Resolve(ctx)
		assert.Equal(t, FailUnknown, v)
		assert.Equal(t, ReasonStillDisconnected, reason)
		assert.True(t, snap.DisconnectedActive)
	})

	t.Run("window exhaustion without signal resolves no-signal", func(t *testing.T) {
		cfg := testResolverConfig()
		cfg.PollWindow = 30 * time.Millisecond
		s := &scriptedSampler{snapshots: []EvidenceSnapshot{
			{LogVerdict: LogNone},
		}}
		r := NewResolver(cfg, s.sample, clearsImmediately, log)

		v, reason, _ := r.Resolve(ctx)
		assert.Equal(t, FailUnknown, v)
		assert.Equal(t, ReasonNoSignal, reason)
	})

	t.Run("polling resumes after disconnect clears", func(t *testing.T) {
		s := &scriptedSampler{snapshots: []EvidenceSnapshot{
			{DisconnectedActive: true, LogVerdict: LogNone},
			{LogVerdict: LogUnknown},
			{LogVerdict: LogSuccess},
		}}
		r := NewResolver(testResolverConfig(), s.sample, clearsImmediately, log)

		v, _, _ := r.Resolve(ctx)
		assert.Equal(t, Success, v)
	})

	t.Run("cancelled context stops polling", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		s := &scriptedSampler{snapshots: []EvidenceSnapshot{
			{LogVerdict: LogNone},
		}}
		r := NewResolver(testResolverConfig(), s.sample, clearsImmediately, log)

		v, _, _ := r.Resolve(cancelled)
		assert.Equal(t, FailUnknown, v)
		// One final settle sample still runs so the verdict is grounded in
		// evidence rather than left unset.
		assert.GreaterOrEqual(t, s.calls, 1)
	})
}
