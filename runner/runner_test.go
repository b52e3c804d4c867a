package runner

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loginwatch/browser"
	"loginwatch/credential"
	"loginwatch/logger"
	"loginwatch/probe"
	"loginwatch/result"
	"loginwatch/storage"
	"loginwatch/testutil"
	"loginwatch/verdict"
)

const testBaseURL = "http://panel.test:8080"

func testRunnerConfig() Config {
	cfg := DefaultConfig()
	cfg.BaseURL = testBaseURL
	cfg.ReadinessTimeout = 100 * time.Millisecond
	cfg.InterAttemptDelay = time.Millisecond
	return cfg
}

func testProbeConfig() probe.Config {
	cfg := probe.DefaultConfig()
	cfg.PollInterval = 2 * time.Millisecond
	cfg.ElementWait = 20 * time.Millisecond
	cfg.ChannelTimeout = 50 * time.Millisecond
	return cfg
}

func testResolverConfig() verdict.ResolverConfig {
	return verdict.ResolverConfig{
		PollWindow:     100 * time.Millisecond,
		PollInterval:   2 * time.Millisecond,
		SettleDelay:    2 * time.Millisecond,
		DisconnectWait: 5 * time.Millisecond,
	}
}

// readyLoginSurface scripts a surface where the SPA renders, the Login link
// routes through a fragment, and the form appears. The caller scripts what
// happens after submit through the OnSubmit hook.
func readyLoginSurface(cfg probe.Config) *browser.FakeSurface {
	surface := browser.NewFakeSurface()
	surface.SetTextHits(cfg.HomeIndicator, browser.TextHit{Y: 20})
	surface.SetLink(cfg.LoginLinkText, "#/login")
	surface.OnClickLink = func(f *browser.FakeSurface, text string) {
		f.SetVisibleLocked(cfg.UsernameSelector, true)
	}
	return surface
}

func anchorLine(identity string) string {
	return fmt.Sprintf("Sent: authenticate (login: %s)\n", identity)
}

type captureNotifier struct {
	sent []string
}

func (c *captureNotifier) Configured() bool { return true }

func (c *captureNotifier) Send(ctx context.Context, text string) error {
	c.sent = append(c.sent, text)
	return nil
}

func newTestRunner(t *testing.T, factory browser.Factory) *Runner {
	t.Helper()
	return New(testRunnerConfig(), testProbeConfig(), verdict.DefaultTranscriptRules(), testResolverConfig(), factory, logger.NewTestLogger())
}

func singleSurfaceFactory(surface browser.Surface) *browser.FakeFactory {
	return &browser.FakeFactory{
		New: func(ctx context.Context) (browser.Surface, error) {
			return surface, nil
		},
	}
}

func TestRunnerValidLogin(t *testing.T) {
	ctx := context.Background()
	probeCfg := testProbeConfig()

	surface := readyLoginSurface(probeCfg)
	surface.AppendTranscript("Connected.\nSent: authenticate (login: someone-else)\nError: Invalid credentials.\n")
	surface.OnSubmit = func(f *browser.FakeSurface) {
		f.AppendTranscriptLocked(anchorLine("alice"))
		f.AppendTranscriptLocked("Authenticated to authd.\nAuthenticated to dnsmanagerd.\n")
		f.SetTextHitsLocked("Logged in as", browser.TextHit{Y: 30})
	}

	r := newTestRunner(t, singleSurfaceFactory(surface))
	summary, err := r.Run(ctx, []credential.Credential{{Identity: "alice", Secret: "p:a,ss;"}})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)

	res := summary.Results[0]
	assert.Equal(t, verdict.Success, res.Verdict)
	assert.Equal(t, verdict.ReasonUISuccess, res.Reason)
	assert.True(t, res.Snapshot.SuccessVisible)
	assert.Equal(t, verdict.LogSuccess, res.Snapshot.LogVerdict)

	// The secret reaches the form verbatim, delimiters and all.
	assert.Equal(t, "alice", surface.Filled[probeCfg.UsernameSelector])
	assert.Equal(t, "p:a,ss;", surface.Filled[probeCfg.PasswordSelector])
	assert.Equal(t, 1, surface.StorageCleared)
	assert.True(t, surface.Closed)
}

func TestRunnerFailureEvidenceDominates(t *testing.T) {
	ctx := context.Background()
	probeCfg := testProbeConfig()

	// A top-of-page rejection banner must win even when the log stream and a
	// stale success indicator both claim an authenticated session.
	surface := readyLoginSurface(probeCfg)
	surface.OnSubmit = func(f *browser.FakeSurface) {
		f.AppendTranscriptLocked(anchorLine("bob"))
		f.AppendTranscriptLocked("Authenticated to authd.\nAuthenticated to dnsmanagerd.\n")
		f.SetTextHitsLocked("Logged in as", browser.TextHit{Y: 30})
		f.SetTextHitsLocked(probeCfg.FailureBannerText, browser.TextHit{Y: 120})
	}

	r := newTestRunner(t, singleSurfaceFactory(surface))
	summary, err := r.Run(ctx, []credential.Credential{{Identity: "bob", Secret: "hunter2"}})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)

	res := summary.Results[0]
	assert.Equal(t, verdict.FailInvalid, res.Verdict)
	assert.Equal(t, verdict.ReasonBannerFailure, res.Reason)
	assert.True(t, res.Snapshot.FailureBannerVisible)
}

func TestRunnerPersistentDisconnect(t *testing.T) {
	ctx := context.Background()
	probeCfg := testProbeConfig()

	surface := readyLoginSurface(probeCfg)
	surface.OnSubmit = func(f *browser.FakeSurface) {
		f.SetVisibleLocked(probeCfg.DisconnectSelector, true)
	}

	r := newTestRunner(t, singleSurfaceFactory(surface))
	summary, err := r.Run(ctx, []credential.Credential{{Identity: "carol", Secret: "pw"}})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)

	res := summary.Results[0]
	assert.Equal(t, verdict.FailUnknown, res.Verdict)
	assert.Equal(t, verdict.ReasonStillDisconnected, res.Reason)
	assert.True(t, res.Snapshot.DisconnectedActive)
}

func TestRunnerNoCredentials(t *testing.T) {
	r := newTestRunner(t, singleSurfaceFactory(browser.NewFakeSurface()))
	_, err := r.Run(context.Background(), nil)
	assert.ErrorIs(t, err, credential.ErrNoCredentials)
}

func TestRunnerUnreachableLoginView(t *testing.T) {
	ctx := context.Background()
	probeCfg := testProbeConfig()

	// SPA renders but no affordance or fragment alias ever shows the form.
	surface := browser.NewFakeSurface()
	surface.SetTextHits(probeCfg.HomeIndicator, browser.TextHit{Y: 20})

	r := newTestRunner(t, singleSurfaceFactory(surface))
	summary, err := r.Run(ctx, []credential.Credential{{Identity: "dave", Secret: "pw"}})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)

	res := summary.Results[0]
	assert.Equal(t, verdict.FailUnknown, res.Verdict)
	assert.Equal(t, "login view unreachable", res.Reason)
	assert.NotEmpty(t, res.AttemptedTargets)
	assert.Zero(t, surface.Submitted)
}

func TestRunnerAttemptPanicIsolated(t *testing.T) {
	ctx := context.Background()
	probeCfg := testProbeConfig()

	build := func() *browser.FakeSurface {
		surface := readyLoginSurface(probeCfg)
		surface.OnSubmit = func(f *browser.FakeSurface) {
			f.SetTextHitsLocked("Logged in as", browser.TextHit{Y: 30})
		}
		return surface
	}

	var calls int
	factory := &browser.FakeFactory{
		New: func(ctx context.Context) (browser.Surface, error) {
			calls++
			if calls == 2 {
				panic("driver crashed")
			}
			return build(), nil
		},
	}

	r := newTestRunner(t, factory)
	creds := []credential.Credential{
		{Identity: "ok-one", Secret: "pw"},
		{Identity: "boom", Secret: "pw"},
		{Identity: "ok-two", Secret: "pw"},
	}
	summary, err := r.Run(ctx, creds)
	require.NoError(t, err)
	require.Len(t, summary.Results, 3)

	assert.Equal(t, verdict.Success, summary.Results[0].Verdict)
	assert.Equal(t, verdict.Error, summary.Results[1].Verdict)
	assert.Contains(t, summary.Results[1].Reason, "driver crashed")
	assert.Equal(t, verdict.Success, summary.Results[2].Verdict)
}

func TestRunnerSessionIsolation(t *testing.T) {
	ctx := context.Background()
	probeCfg := testProbeConfig()

	// The first identity logs in. The shared append-only transcript keeps its
	// success lines, so the second attempt must anchor past them and not
	// inherit a success verdict. Each attempt also gets a fresh surface with
	// wiped storage.
	var surfaces []*browser.FakeSurface
	sharedTranscript := "Connected.\n"
	factory := &browser.FakeFactory{
		New: func(ctx context.Context) (browser.Surface, error) {
			surface := readyLoginSurface(probeCfg)
			surface.AppendTranscript(sharedTranscript)
			surface.OnSubmit = func(f *browser.FakeSurface) {
				if len(surfaces) == 1 {
					f.AppendTranscriptLocked(anchorLine("alice"))
					f.AppendTranscriptLocked("Authenticated to authd.\nAuthenticated to dnsmanagerd.\n")
					f.SetTextHitsLocked("Logged in as", browser.TextHit{Y: 30})
				} else {
					f.AppendTranscriptLocked(anchorLine("mallory"))
					f.AppendTranscriptLocked("Error: Invalid credentials.\n")
				}
				sharedTranscript = f.TranscriptText
			}
			surfaces = append(surfaces, surface)
			return surface, nil
		},
	}

	r := newTestRunner(t, factory)
	creds := []credential.Credential{
		{Identity: "alice", Secret: "right"},
		{Identity: "mallory", Secret: "wrong"},
	}
	summary, err := r.Run(ctx, creds)
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)

	assert.Equal(t, verdict.Success, summary.Results[0].Verdict)
	assert.Equal(t, verdict.FailInvalid, summary.Results[1].Verdict)
	assert.Equal(t, verdict.ReasonLogFailure, summary.Results[1].Reason)

	require.Len(t, surfaces, 2)
	for _, s := range surfaces {
		assert.Equal(t, 1, s.StorageCleared)
		assert.True(t, s.Closed)
	}
}

func TestRunnerArtifactsAndHistory(t *testing.T) {
	ctx := context.Background()
	probeCfg := testProbeConfig()
	log := logger.NewTestLogger()

	surface := readyLoginSurface(probeCfg)
	surface.ScreenshotPNG = []byte("png-bytes")
	surface.OnSubmit = func(f *browser.FakeSurface) {
		f.AppendTranscriptLocked(anchorLine("alice"))
		f.AppendTranscriptLocked("Error: Invalid credentials.\n")
	}

	artifacts, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	db := testutil.SetupTestDB(t)
	history := result.NewGormStore(db, log)
	require.NoError(t, history.Migrate())

	notifier := &captureNotifier{}

	cfg := testRunnerConfig()
	cfg.ArtifactsEnabled = true
	r := New(cfg, probeCfg, verdict.DefaultTranscriptRules(), testResolverConfig(), singleSurfaceFactory(surface), log).
		WithArtifacts(artifacts).
		WithHistory(history).
		WithNotifier(notifier)

	summary, err := r.Run(ctx, []credential.Credential{{Identity: "alice", Secret: "wrong"}})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)

	res := summary.Results[0]
	assert.Equal(t, verdict.FailInvalid, res.Verdict)
	assert.Equal(t, "alice.png", res.ScreenshotKey)
	assert.Equal(t, "alice.log", res.ExcerptKey)

	reader, err := artifacts.Get(ctx, res.ScreenshotKey)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	reader.Close()
	assert.Equal(t, []byte("png-bytes"), data)

	excerpt, err := artifacts.Get(ctx, res.ExcerptKey)
	require.NoError(t, err)
	text, err := io.ReadAll(excerpt)
	require.NoError(t, err)
	excerpt.Close()
	assert.Contains(t, string(text), "Error: Invalid credentials.")
	// The secret itself never lands in an artifact.
	assert.NotContains(t, string(text), "wrong")

	runs, err := history.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.StatusCompleted, runs[0].Status)
	assert.Equal(t, 1, runs[0].FailInvalidCount)
	require.NotNil(t, runs[0].EndTime)

	attempts, err := history.ListAttemptsByRun(ctx, runs[0].ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "alice", attempts[0].Identity)
	assert.Equal(t, verdict.FailInvalid, attempts[0].Verdict)

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "alice: fail_invalid")
	assert.NotContains(t, notifier.sent[0], "wrong")
}

func TestRunnerExcerptKeepsTail(t *testing.T) {
	ctx := context.Background()
	probeCfg := testProbeConfig()

	surface := readyLoginSurface(probeCfg)
	surface.AppendTranscript("old old old old old old old old old old old old\n")
	surface.OnSubmit = func(f *browser.FakeSurface) {
		f.AppendTranscriptLocked(anchorLine("alice"))
		f.AppendTranscriptLocked("Error: Invalid credentials.\n")
	}

	artifacts, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	cfg := testRunnerConfig()
	cfg.ArtifactsEnabled = true
	cfg.ExcerptMaxBytes = 40
	r := New(cfg, probeCfg, verdict.DefaultTranscriptRules(), testResolverConfig(), singleSurfaceFactory(surface), logger.NewTestLogger()).
		WithArtifacts(artifacts)

	summary, err := r.Run(ctx, []credential.Credential{{Identity: "alice", Secret: "pw"}})
	require.NoError(t, err)

	excerpt, err := artifacts.Get(ctx, summary.Results[0].ExcerptKey)
	require.NoError(t, err)
	text, err := io.ReadAll(excerpt)
	require.NoError(t, err)
	excerpt.Close()

	assert.Len(t, text, 40)
	assert.Contains(t, string(text), "Invalid credentials.")
	assert.NotContains(t, string(text), "old old old")
}

func TestSummaryFormat(t *testing.T) {
	s := &Summary{
		BaseURL: testBaseURL,
		Results: []AttemptResult{
			{Identity: "alice", Verdict: verdict.Success, Reason: verdict.ReasonUISuccess},
			{Identity: "bob", Verdict: verdict.FailInvalid, Reason: verdict.ReasonBannerFailure},
			{Identity: "carol", Verdict: verdict.FailUnknown, Reason: verdict.ReasonNoSignal},
		},
	}

	text := s.Format()
	assert.Contains(t, text, testBaseURL)
	assert.Contains(t, text, "3 attempt(s)")
	assert.Contains(t, text, "alice: success")
	assert.Contains(t, text, "totals: 1 success, 1 invalid, 1 unknown, 0 error")

	counts := s.Counts()
	assert.Equal(t, 1, counts[verdict.Success])
	assert.Equal(t, 1, counts[verdict.FailInvalid])
	assert.Equal(t, 0, counts[verdict.Error])
}
