package probe

import "time"

// Config carries the page-level selectors, texts and thresholds the probe
// components use. Everything layout-fragile lives here rather than in code:
// in particular the banner vertical threshold is an empirically tuned
// heuristic, not a contract, and deployments differ on it.
type Config struct {
	// HomeIndicator is a stable piece of UI text proving the SPA finished
	// its initial render.
	HomeIndicator string

	// HomeIndicatorRequired makes the home indicator a hard precondition.
	// When false, any visible primary navigation element is accepted as a
	// weaker readiness proxy.
	HomeIndicatorRequired bool

	// PrimaryNavSelector matches the SPA's main navigation elements.
	PrimaryNavSelector string

	// DisconnectSelector matches the transient disconnect overlay.
	DisconnectSelector string

	UsernameSelector string
	PasswordSelector string
	SubmitLabel      string

	// LoginLinkText and AuthTabText are the visible navigation affordances
	// toward the authentication view.
	LoginLinkText string
	AuthTabText   string

	// RouteAliases are fragment routes tried directly when no usable
	// affordance exists. Path routes are never tried: the origin server
	// 404s on any path-based deep link.
	RouteAliases []string

	// NotFoundTitles and NotFoundBodyMarker detect a server error page so it
	// is retried as a navigation failure instead of scraped for evidence.
	NotFoundTitles     []string
	NotFoundBodyMarker string

	// FailureBannerText is the credential-rejection phrase. An occurrence
	// only counts as an authoritative banner above BannerYThreshold or
	// inside a container carrying one of AlertClasses; occurrences inside a
	// container carrying LogPanelClass never count, since the log panel
	// legitimately echoes the same phrase.
	FailureBannerText string
	BannerYThreshold  float64
	AlertClasses      []string
	LogPanelClass     string

	// SuccessTexts are UI indicators that a session is established.
	SuccessTexts []string

	// PollInterval is the fixed short interval for readiness polling.
	PollInterval time.Duration

	// ElementWait bounds individual element-visibility waits.
	ElementWait time.Duration

	// ChannelTimeout bounds one evidence-channel read; a timed-out channel
	// degrades to "not observed" for that sample.
	ChannelTimeout time.Duration
}

// DefaultConfig returns selectors and thresholds tuned for the target
// panel's layout.
func DefaultConfig() Config {
	return Config{
		HomeIndicator:         "DNS Manager",
		HomeIndicatorRequired: false,
		PrimaryNavSelector:    "nav a, .navbar a, .menu a",
		DisconnectSelector:    ".disconnected, .disconnect-overlay",
		UsernameSelector:      `input[name="username"], input#username`,
		PasswordSelector:      `input[type="password"]`,
		SubmitLabel:           "Login",
		LoginLinkText:         "Login",
		AuthTabText:           "Authentication",
		RouteAliases:          []string{"#/login", "#!/login", "#/auth", "#login"},
		NotFoundTitles:        []string{"404", "Not Found"},
		NotFoundBodyMarker:    "Cannot GET",
		FailureBannerText:     "Invalid credentials.",
		BannerYThreshold:      450,
		AlertClasses:          []string{"alert", "alert-danger", "notification", "toast"},
		LogPanelClass:         "log-panel",
		SuccessTexts:          []string{"Logged in as", "Log out"},
		PollInterval:          400 * time.Millisecond,
		ElementWait:           5 * time.Second,
		ChannelTimeout:        3 * time.Second,
	}
}
