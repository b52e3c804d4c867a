package verdict

// Verdict is the terminal classification of one login attempt. It is
// assigned exactly once per attempt.
type Verdict string

const (
	// Success means the credential pair authenticated.
	Success Verdict = "success"

	// FailInvalid means the target explicitly rejected the credential pair.
	FailInvalid Verdict = "fail_invalid"

	// FailUnknown means no decisive outcome could be determined. This covers
	// environmental conditions (disconnects, unreachable login view) and is
	// deliberately distinct from FailInvalid.
	FailUnknown Verdict = "fail_unknown"

	// Error means the automation layer itself failed mid-attempt.
	Error Verdict = "error"
)

func (v Verdict) IsValid() bool {
	switch v {
	case Success, FailInvalid, FailUnknown, Error:
		return true
	}
	return false
}

// LogVerdict is the log-stream channel's reading of the transcript tail
// after this identity's most recent anchor line.
type LogVerdict string

const (
	// LogNone means no anchor for the identity was found at all: the channel
	// has insufficient evidence, which is distinct from inconclusive.
	LogNone LogVerdict = "none"

	// LogUnknown means an anchor was found but the trailing text is not
	// decisive yet.
	LogUnknown LogVerdict = "unknown"

	LogSuccess     LogVerdict = "success"
	LogFailInvalid LogVerdict = "fail_invalid"
)

// EvidenceSnapshot is one read of the three evidence channels. Snapshots are
// resampled throughout the polling window; the final sample before
// resolution is authoritative.
type EvidenceSnapshot struct {
	DisconnectedActive   bool       `json:"disconnected_active"`
	FailureBannerVisible bool       `json:"failure_banner_visible"`
	SuccessVisible       bool       `json:"success_visible"`
	LogVerdict           LogVerdict `json:"log_verdict"`
}

// Decisive reports whether the snapshot carries enough signal to stop
// polling early.
func (s EvidenceSnapshot) Decisive() bool {
	return s.FailureBannerVisible ||
		s.SuccessVisible ||
		s.LogVerdict == LogSuccess ||
		s.LogVerdict == LogFailInvalid
}

// Human-readable reasons attached to each resolved verdict.
const (
	ReasonBannerFailure     = "failure banner visible at top level"
	ReasonLogFailure        = "log stream reports invalid credentials"
	ReasonUISuccess         = "success indicator visible"
	ReasonLogSuccess        = "log stream reports authenticated"
	ReasonStillDisconnected = "still disconnected at end of poll window"
	ReasonNoSignal          = "no decisive signal within poll window"
)

// Decide applies the terminal decision rule to a snapshot. Failure evidence
// from either channel strictly dominates success evidence from either
// channel: a false success (treating a broken credential as working) is far
// more harmful than a false unknown.
func Decide(s EvidenceSnapshot) (Verdict, string) {
	switch {
	case s.FailureBannerVisible:
		return FailInvalid, ReasonBannerFailure
	case s.LogVerdict == LogFailInvalid:
		return FailInvalid, ReasonLogFailure
	case s.SuccessVisible:
		return Success, ReasonUISuccess
	case s.LogVerdict == LogSuccess:
		return Success, ReasonLogSuccess
	case s.DisconnectedActive:
		return FailUnknown, ReasonStillDisconnected
	default:
		return FailUnknown, ReasonNoSignal
	}
}
