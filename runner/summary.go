package runner

import (
	"fmt"
	"strings"
	"time"

	"loginwatch/verdict"
)

// AttemptResult is the in-memory outcome of one classified login attempt.
type AttemptResult struct {
	Identity string
	Verdict  verdict.Verdict
	Reason   string
	Snapshot verdict.EvidenceSnapshot

	UsedStrategy     string
	AttemptedTargets []string

	ScreenshotKey string
	ExcerptKey    string

	StartTime time.Time
	Duration  time.Duration
}

// Summary aggregates a whole run.
type Summary struct {
	BaseURL string
	Results []AttemptResult
}

// Counts tallies results per verdict.
func (s *Summary) Counts() map[verdict.Verdict]int {
	counts := make(map[verdict.Verdict]int)
	for _, r := range s.Results {
		counts[r.Verdict]++
	}
	return counts
}

// Format renders the notification text: one status line per attempt plus
// aggregate counts. Secrets never appear here.
func (s *Summary) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "login probe against %s: %d attempt(s)\n", s.BaseURL, len(s.Results))
	for _, r := range s.Results {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", r.Identity, r.Verdict, r.Reason)
	}
	counts := s.Counts()
	fmt.Fprintf(&b, "totals: %d success, %d invalid, %d unknown, %d error",
		counts[verdict.Success],
		counts[verdict.FailInvalid],
		counts[verdict.FailUnknown],
		counts[verdict.Error],
	)
	return b.String()
}
