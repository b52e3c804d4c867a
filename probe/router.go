package probe

import (
	"context"
	"strings"

	"loginwatch/browser"
	"loginwatch/logger"
)

// NavResult reports the outcome of driving the surface to the login view.
type NavResult struct {
	OK bool

	// AttemptedTargets lists every navigation target tried, in order, for
	// diagnostics.
	AttemptedTargets []string
}

// Router drives the surface to the authentication view across the SPA's
// hash routing. Every step is abandoned on failure without raising; a
// router failure maps to an unknown outcome, never to a credential error.
type Router struct {
	cfg     Config
	surface browser.Surface
	logger  logger.Logger
}

// NewRouter creates a router over one surface.
func NewRouter(cfg Config, surface browser.Surface, log logger.Logger) *Router {
	return &Router{
		cfg:     cfg,
		surface: surface,
		logger:  log,
	}
}

// NavigateToLogin tries, in order: the visible Login affordance, the
// Authentication tab, then each configured fragment-route alias with a
// clean reload from origin first. Affordances are only followed when their
// target is a client-side fragment route; the origin server 404s on any
// path-based deep link, so a path href is recorded and skipped. Success
// means the username input became visible.
func (r *Router) NavigateToLogin(ctx context.Context, baseURL string) NavResult {
	var result NavResult

	for _, linkText := range []string{r.cfg.LoginLinkText, r.cfg.AuthTabText} {
		if ctx.Err() != nil {
			return result
		}
		href, found, err := r.surface.LinkHref(ctx, linkText)
		if err != nil || !found {
			continue
		}
		result.AttemptedTargets = append(result.AttemptedTargets, href)

		if !isFragmentRoute(href) {
			r.logger.Debug(ctx, "skipping path-based affordance", map[string]interface{}{
				"link": linkText,
				"href": href,
			})
			continue
		}

		if err := r.surface.ClickLink(ctx, linkText); err != nil {
			continue
		}
		if r.loginFormVisible(ctx) {
			return NavResult{OK: true, AttemptedTargets: result.AttemptedTargets}
		}
	}

	for _, alias := range r.cfg.RouteAliases {
		if ctx.Err() != nil {
			return result
		}
		result.AttemptedTargets = append(result.AttemptedTargets, alias)

		if r.tryFragment(ctx, baseURL, alias) {
			return NavResult{OK: true, AttemptedTargets: result.AttemptedTargets}
		}
	}

	r.logger.Warn(ctx, "login view unreachable", map[string]interface{}{
		"attempted": result.AttemptedTargets,
	})
	return result
}

// tryFragment reloads from origin for a clean SPA bootstrap, sets the
// fragment, and retries once if a server error page is detected.
func (r *Router) tryFragment(ctx context.Context, baseURL, alias string) bool {
	target := strings.TrimRight(baseURL, "/") + "/" + alias

	for attempt := 0; attempt < 2; attempt++ {
		if err := r.surface.Navigate(ctx, baseURL); err != nil {
			return false
		}
		if err := r.surface.Navigate(ctx, target); err != nil {
			return false
		}

		if r.notFoundPage(ctx) {
			r.logger.Debug(ctx, "server error page detected, retrying", map[string]interface{}{
				"target": target,
			})
			continue
		}
		return r.loginFormVisible(ctx)
	}
	return false
}

// notFoundPage detects a server-rendered error page by title pattern or a
// known body marker. Such a page is a navigation failure to retry, not page
// content to scrape for login evidence.
func (r *Router) notFoundPage(ctx context.Context) bool {
	if title, err := r.surface.Title(ctx); err == nil {
		for _, marker := range r.cfg.NotFoundTitles {
			if strings.Contains(title, marker) {
				return true
			}
		}
	}
	if r.cfg.NotFoundBodyMarker != "" {
		if visible, err := r.surface.TextVisible(ctx, r.cfg.NotFoundBodyMarker); err == nil && visible {
			return true
		}
	}
	return false
}

func (r *Router) loginFormVisible(ctx context.Context) bool {
	return r.surface.WaitVisible(ctx, r.cfg.UsernameSelector, r.cfg.ElementWait) == nil
}

// isFragmentRoute reports whether the href is a client-side route: either a
// bare fragment or a URL whose path portion carries one.
func isFragmentRoute(href string) bool {
	return strings.Contains(href, "#")
}
