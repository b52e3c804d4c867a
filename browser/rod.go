package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"loginwatch/logger"
)

// Config holds browser automation configuration.
type Config struct {
	// ChromePath optionally points at a Chrome/Chromium binary. Empty means
	// the launcher's managed browser.
	ChromePath string

	Headless       bool
	ViewportWidth  int
	ViewportHeight int

	// NavTimeout bounds navigation and document-load waits.
	NavTimeout time.Duration

	// LogPanelSelector locates the streamed log panel whose rendered text is
	// the transcript.
	LogPanelSelector string
}

// DefaultConfig returns sensible browser defaults.
func DefaultConfig() Config {
	return Config{
		Headless:         true,
		ViewportWidth:    1366,
		ViewportHeight:   900,
		NavTimeout:       30 * time.Second,
		LogPanelSelector: ".log-panel, .console-output, pre.log",
	}
}

// RodBrowser owns one Chrome instance and creates isolated incognito
// surfaces from it, one per attempt.
type RodBrowser struct {
	cfg    Config
	logger logger.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

// NewRodBrowser creates an unstarted browser owner.
func NewRodBrowser(cfg Config, log logger.Logger) *RodBrowser {
	return &RodBrowser{
		cfg:    cfg,
		logger: log,
	}
}

// Start launches Chrome and connects to it. Calling Start on a healthy
// browser is a no-op; a stale connection is replaced.
func (b *RodBrowser) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		if _, err := b.browser.Version(); err == nil {
			return nil
		}
		b.logger.Warn(ctx, "stale browser connection, relaunching", nil)
		_ = b.browser.Close()
		b.browser = nil
	}

	l := launcher.New().Headless(b.cfg.Headless)
	if b.cfg.ChromePath != "" {
		l = l.Bin(b.cfg.ChromePath)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	b.browser = browser
	b.logger.Info(ctx, "browser started", map[string]interface{}{
		"headless": b.cfg.Headless,
	})
	return nil
}

// NewSurface opens a fresh incognito page. The caller owns the surface and
// must Close it at attempt end.
func (b *RodBrowser) NewSurface(ctx context.Context) (Surface, error) {
	if err := b.Start(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	browser := b.browser
	b.mu.Unlock()

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             b.cfg.ViewportWidth,
		Height:            b.cfg.ViewportHeight,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		b.logger.Warn(ctx, "failed to set viewport", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return &rodSurface{cfg: b.cfg, page: page}, nil
}

// Shutdown closes the browser.
func (b *RodBrowser) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	return err
}

// rodSurface implements Surface over one rod page.
type rodSurface struct {
	cfg  Config
	page *rod.Page

	closeOnce sync.Once
	closeErr  error
}

func (s *rodSurface) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx).Timeout(s.cfg.NavTimeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (s *rodSurface) CurrentURL(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (s *rodSurface) Title(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (s *rodSurface) Visible(ctx context.Context, selector string) (bool, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return false, err
	}
	for _, el := range els {
		visible, err := el.Visible()
		if err != nil {
			continue
		}
		if visible {
			return true, nil
		}
	}
	return false, nil
}

func (s *rodSurface) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	el, err := s.page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return nil
}

func (s *rodSurface) TextVisible(ctx context.Context, text string) (bool, error) {
	hits, err := s.TextHits(ctx, text)
	if err != nil {
		return false, err
	}
	return len(hits) > 0, nil
}

func (s *rodSurface) TextHits(ctx context.Context, text string) ([]TextHit, error) {
	res, err := s.page.Context(ctx).Eval(`(needle) => {
		const hits = [];
		const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_TEXT);
		while (walker.nextNode()) {
			const node = walker.currentNode;
			if (!node.textContent.includes(needle)) continue;
			const el = node.parentElement;
			if (!el) continue;
			const rect = el.getBoundingClientRect();
			if (rect.width === 0 && rect.height === 0) continue;
			const classes = [];
			for (let a = el; a; a = a.parentElement) classes.push(...a.classList);
			hits.push({ y: rect.top, classes: classes });
		}
		return hits;
	}`, text)
	if err != nil {
		return nil, err
	}

	var hits []TextHit
	for _, item := range res.Value.Arr() {
		hit := TextHit{Y: item.Get("y").Num()}
		for _, c := range item.Get("classes").Arr() {
			hit.AncestorClasses = append(hit.AncestorClasses, c.Str())
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *rodSurface) LinkHref(ctx context.Context, text string) (string, bool, error) {
	res, err := s.page.Context(ctx).Eval(`(needle) => {
		const links = Array.from(document.querySelectorAll('a'));
		const m = links.find(a => a.textContent.trim() === needle && a.offsetParent !== null);
		return m ? { found: true, href: m.getAttribute('href') || '' } : { found: false, href: '' };
	}`, text)
	if err != nil {
		return "", false, err
	}
	return res.Value.Get("href").Str(), res.Value.Get("found").Bool(), nil
}

func (s *rodSurface) ClickLink(ctx context.Context, text string) error {
	res, err := s.page.Context(ctx).Eval(`(needle) => {
		document.querySelectorAll('[data-lw-link]').forEach(e => e.removeAttribute('data-lw-link'));
		const links = Array.from(document.querySelectorAll('a'));
		const m = links.find(a => a.textContent.trim() === needle && a.offsetParent !== null);
		if (!m) return false;
		m.setAttribute('data-lw-link', '1');
		return true;
	}`, text)
	if err != nil {
		return err
	}
	if !res.Value.Bool() {
		return fmt.Errorf("%w: link %q", ErrElementNotFound, text)
	}

	el, err := s.page.Context(ctx).Element(`[data-lw-link="1"]`)
	if err != nil {
		return fmt.Errorf("%w: link %q", ErrElementNotFound, text)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (s *rodSurface) Fill(ctx context.Context, selector, value string) error {
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	// Replace any prefilled value, then type the credential verbatim.
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	return el.Input(value)
}

func (s *rodSurface) ClickSubmit(ctx context.Context, q SubmitQuery) (string, error) {
	res, err := s.page.Context(ctx).Eval(`(userSel, passSel, label) => {
		const norm = el => ((el.textContent || '') + (el.value || '')).trim().toLowerCase();
		const want = label.trim().toLowerCase();
		const controls = scope => Array.from(
			scope.querySelectorAll('button, input[type=submit], input[type=button], a[role=button]'));
		const byLabel = scope => controls(scope).filter(c => norm(c) === want);

		const user = document.querySelector(userSel);
		const pass = document.querySelector(passSel);
		let chosen = null, strategy = '';

		if (user) {
			const form = user.closest('form');
			if (form && pass && form.contains(pass)) {
				const cands = byLabel(form);
				if (cands.length === 0) {
					const submits = controls(form).filter(c => c.type === 'submit');
					if (submits.length === 1) cands.push(submits[0]);
				}
				if (cands.length > 0) {
					chosen = cands[0];
					strategy = 'enclosing-form';
				}
			}
			if (!chosen && pass) {
				let scope = user.parentElement;
				while (scope && !scope.contains(pass)) scope = scope.parentElement;
				if (scope) {
					const cands = byLabel(scope);
					if (cands.length === 1) {
						chosen = cands[0];
						strategy = 'enclosing-container';
					}
				}
			}
		}
		if (!chosen) {
			const cands = byLabel(document);
			if (cands.length === 1) {
				chosen = cands[0];
				strategy = 'page-wide-label';
			}
		}
		if (!chosen) return '';
		document.querySelectorAll('[data-lw-submit]').forEach(e => e.removeAttribute('data-lw-submit'));
		chosen.setAttribute('data-lw-submit', '1');
		return strategy;
	}`, q.UsernameSelector, q.PasswordSelector, q.Label)
	if err != nil {
		return "", err
	}

	strategy := res.Value.Str()
	if strategy == "" {
		return "", ErrNoSubmitControl
	}

	el, err := s.page.Context(ctx).Element(`[data-lw-submit="1"]`)
	if err != nil {
		return "", ErrNoSubmitControl
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", fmt.Errorf("click submit: %w", err)
	}
	return strategy, nil
}

func (s *rodSurface) Transcript(ctx context.Context) (string, error) {
	els, err := s.page.Context(ctx).Elements(s.cfg.LogPanelSelector)
	if err != nil {
		return "", err
	}
	var transcript string
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			continue
		}
		transcript += text
	}
	return transcript, nil
}

func (s *rodSurface) Screenshot(ctx context.Context) ([]byte, error) {
	return s.page.Context(ctx).Screenshot(false, nil)
}

func (s *rodSurface) ClearStorage(ctx context.Context) error {
	_, err := s.page.Context(ctx).Eval(`() => {
		try { localStorage.clear(); } catch (e) {}
		try { sessionStorage.clear(); } catch (e) {}
		return true;
	}`)
	return err
}

func (s *rodSurface) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.page.Close()
	})
	return s.closeErr
}
