package probe

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loginwatch/browser"
	"loginwatch/logger"
)

const testBaseURL = "http://panel.local"

func TestRouterNavigateToLogin(t *testing.T) {
	ctx := context.Background()
	log := logger.NewTestLogger()
	cfg := testConfig()

	t.Run("follows fragment login affordance", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.SetLink(cfg.LoginLinkText, "#/login")
		surface.OnClickLink = func(f *browser.FakeSurface, text string) {
			f.SetVisibleLocked(cfg.UsernameSelector, true)
		}

		router := NewRouter(cfg, surface, log)
		result := router.NavigateToLogin(ctx, testBaseURL)
		require.True(t, result.OK)
		assert.Contains(t, result.AttemptedTargets, "#/login")
		assert.Contains(t, surface.ClickedLinks, cfg.LoginLinkText)
	})

	t.Run("refuses path-based affordance and succeeds via fragment fallback", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		// Server-path target: following it would get a server 404.
		surface.SetLink(cfg.LoginLinkText, "/login")
		surface.OnNavigate = func(f *browser.FakeSurface, url string) {
			if strings.Contains(url, "#") {
				f.SetVisibleLocked(cfg.UsernameSelector, true)
			}
		}

		router := NewRouter(cfg, surface, log)
		result := router.NavigateToLogin(ctx, testBaseURL)
		require.True(t, result.OK)
		assert.Empty(t, surface.ClickedLinks, "path-based affordance must not be followed")
		assert.Contains(t, result.AttemptedTargets, "/login")
	})

	t.Run("authentication tab followed only when fragment", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.SetLink(cfg.AuthTabText, "#/auth")
		surface.OnClickLink = func(f *browser.FakeSurface, text string) {
			f.SetVisibleLocked(cfg.UsernameSelector, true)
		}

		router := NewRouter(cfg, surface, log)
		result := router.NavigateToLogin(ctx, testBaseURL)
		require.True(t, result.OK)
		assert.Contains(t, surface.ClickedLinks, cfg.AuthTabText)
	})

	t.Run("retries fragment alias once after 404 page", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		navs := 0
		surface.OnNavigate = func(f *browser.FakeSurface, url string) {
			if !strings.Contains(url, "#") {
				// Clean origin reload clears the error page.
				f.PageTitle = ""
				return
			}
			navs++
			if navs == 1 {
				f.PageTitle = "404 Not Found"
				return
			}
			f.PageTitle = "Panel"
			f.SetVisibleLocked(cfg.UsernameSelector, true)
		}

		router := NewRouter(cfg, surface, log)
		result := router.NavigateToLogin(ctx, testBaseURL)
		require.True(t, result.OK)
		assert.GreaterOrEqual(t, navs, 2)
	})

	t.Run("reports failure after exhausting all targets", func(t *testing.T) {
		surface := browser.NewFakeSurface()

		router := NewRouter(cfg, surface, log)
		result := router.NavigateToLogin(ctx, testBaseURL)
		assert.False(t, result.OK)
		assert.Len(t, result.AttemptedTargets, len(cfg.RouteAliases))
	})

	t.Run("error page never scraped as login view", func(t *testing.T) {
		surface := browser.NewFakeSurface()
		surface.OnNavigate = func(f *browser.FakeSurface, url string) {
			f.PageTitle = "404 Not Found"
			// Even if something username-shaped renders on the error page.
			f.SetVisibleLocked(cfg.UsernameSelector, true)
		}

		router := NewRouter(cfg, surface, log)
		result := router.NavigateToLogin(ctx, testBaseURL)
		assert.False(t, result.OK)
	})
}

func TestIsFragmentRoute(t *testing.T) {
	assert.True(t, isFragmentRoute("#/login"))
	assert.True(t, isFragmentRoute("/#/login"))
	assert.True(t, isFragmentRoute("http://panel.local/#/auth"))
	assert.False(t, isFragmentRoute("/login"))
	assert.False(t, isFragmentRoute("http://panel.local/login"))
}
