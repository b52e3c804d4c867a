package verdict

import (
	"fmt"
	"regexp"
	"strings"
)

// TranscriptRules describes how the append-only server log transcript is
// read. The transcript is shared across all attempts in one browsing
// session, so evidence for an attempt is only ever taken from the text after
// the last occurrence of that identity's anchor line. Only appends occur,
// which is what makes the lock-free read safe; anchors must not be reused
// out of order.
type TranscriptRules struct {
	// AnchorPattern is a regexp fragment with one %s placeholder for the
	// regexp-escaped identity.
	AnchorPattern string

	// FailureMarker marks an explicit credential rejection.
	FailureMarker string

	// SuccessMarkers must all appear after the anchor to count as success.
	// The authentication subsystem line alone is not enough: the secondary
	// subsystem line confirms the session fully established.
	SuccessMarkers []string
}

// DefaultTranscriptRules returns the marker set for the target panel's
// authd/dnsmanagerd log narrative.
func DefaultTranscriptRules() TranscriptRules {
	return TranscriptRules{
		AnchorPattern: `authenticate \(login: %s\)`,
		FailureMarker: "Error: Invalid credentials.",
		SuccessMarkers: []string{
			"Authenticated to authd.",
			"Authenticated to dnsmanagerd.",
		},
	}
}

// Scan evaluates the transcript for the given identity. It is a pure
// function over the transcript text so the channel is independently
// testable. Identities are regexp-escaped before the anchor pattern is
// built, since they may contain characters with pattern meaning.
func (r TranscriptRules) Scan(transcript, identity string) (LogVerdict, error) {
	pattern := fmt.Sprintf(r.AnchorPattern, regexp.QuoteMeta(identity))
	anchor, err := regexp.Compile(pattern)
	if err != nil {
		return LogNone, fmt.Errorf("compile anchor pattern: %w", err)
	}

	locs := anchor.FindAllStringIndex(transcript, -1)
	if len(locs) == 0 {
		return LogNone, nil
	}

	// Only the text after the last anchor belongs to this attempt; earlier
	// occurrences are historic attempts for the same identity.
	tail := transcript[locs[len(locs)-1][1]:]

	if strings.Contains(tail, r.FailureMarker) {
		return LogFailInvalid, nil
	}

	success := len(r.SuccessMarkers) > 0
	for _, marker := range r.SuccessMarkers {
		if !strings.Contains(tail, marker) {
			success = false
			break
		}
	}
	if success {
		return LogSuccess, nil
	}

	return LogUnknown, nil
}
