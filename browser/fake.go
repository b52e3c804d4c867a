package browser

import (
	"context"
	"sync"
	"time"
)

// FakeSurface is a scripted in-memory Surface for tests. State fields are
// mutated through the setter helpers or from the On* hooks; hooks run with
// the internal lock held and must touch fields directly rather than calling
// Surface methods.
type FakeSurface struct {
	mu sync.Mutex

	URL            string
	PageTitle      string
	visibleSels    map[string]bool
	textHits       map[string][]TextHit
	links          map[string]string
	TranscriptText string
	Strategy       string
	ScreenshotPNG  []byte

	Filled         map[string]string
	ClickedLinks   []string
	Submitted      int
	StorageCleared int
	Closed         bool

	// Errs injects an error for a named operation ("navigate", "visible",
	// "text_hits", "transcript", "fill", "click_submit", "screenshot",
	// "clear_storage", "wait_visible", "link_href", "click_link").
	Errs map[string]error

	// OnNavigate runs after a successful Navigate.
	OnNavigate func(f *FakeSurface, url string)

	// OnClickLink runs after a successful ClickLink.
	OnClickLink func(f *FakeSurface, text string)

	// OnSubmit runs after a successful ClickSubmit.
	OnSubmit func(f *FakeSurface)
}

// NewFakeSurface creates an empty fake surface.
func NewFakeSurface() *FakeSurface {
	return &FakeSurface{
		visibleSels: make(map[string]bool),
		textHits:    make(map[string][]TextHit),
		links:       make(map[string]string),
		Filled:      make(map[string]string),
		Errs:        make(map[string]error),
	}
}

// SetVisible marks a selector visible or hidden.
func (f *FakeSurface) SetVisible(selector string, visible bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visibleSels[selector] = visible
}

// SetTextHits scripts the occurrences returned for a text needle.
func (f *FakeSurface) SetTextHits(text string, hits ...TextHit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textHits[text] = hits
}

// RemoveText clears a scripted text needle.
func (f *FakeSurface) RemoveText(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.textHits, text)
}

// SetLink scripts a visible link.
func (f *FakeSurface) SetLink(text, href string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[text] = href
}

// AppendTranscript appends to the scripted log transcript. The transcript
// only ever grows, matching the real append-only panel.
func (f *FakeSurface) AppendTranscript(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TranscriptText += text
}

func (f *FakeSurface) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["navigate"]; err != nil {
		return err
	}
	f.URL = url
	if f.OnNavigate != nil {
		f.OnNavigate(f, url)
	}
	return nil
}

func (f *FakeSurface) CurrentURL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.URL, nil
}

func (f *FakeSurface) Title(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.PageTitle, nil
}

func (f *FakeSurface) Visible(ctx context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["visible"]; err != nil {
		return false, err
	}
	return f.visibleSels[selector], nil
}

func (f *FakeSurface) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		visible, err := f.Visible(ctx, selector)
		if f.errFor("wait_visible") != nil {
			return f.errFor("wait_visible")
		}
		if err != nil {
			return err
		}
		if visible {
			return nil
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return ErrElementNotFound
		}
		time.Sleep(time.Millisecond)
	}
}

func (f *FakeSurface) TextVisible(ctx context.Context, text string) (bool, error) {
	hits, err := f.TextHits(ctx, text)
	if err != nil {
		return false, err
	}
	return len(hits) > 0, nil
}

func (f *FakeSurface) TextHits(ctx context.Context, text string) ([]TextHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["text_hits"]; err != nil {
		return nil, err
	}
	return f.textHits[text], nil
}

func (f *FakeSurface) LinkHref(ctx context.Context, text string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["link_href"]; err != nil {
		return "", false, err
	}
	href, ok := f.links[text]
	return href, ok, nil
}

func (f *FakeSurface) ClickLink(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["click_link"]; err != nil {
		return err
	}
	if _, ok := f.links[text]; !ok {
		return ErrElementNotFound
	}
	f.ClickedLinks = append(f.ClickedLinks, text)
	if f.OnClickLink != nil {
		f.OnClickLink(f, text)
	}
	return nil
}

func (f *FakeSurface) Fill(ctx context.Context, selector, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["fill"]; err != nil {
		return err
	}
	f.Filled[selector] = value
	return nil
}

func (f *FakeSurface) ClickSubmit(ctx context.Context, q SubmitQuery) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["click_submit"]; err != nil {
		return "", err
	}
	f.Submitted++
	if f.OnSubmit != nil {
		f.OnSubmit(f)
	}
	if f.Strategy == "" {
		return StrategyEnclosingForm, nil
	}
	return f.Strategy, nil
}

func (f *FakeSurface) Transcript(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["transcript"]; err != nil {
		return "", err
	}
	return f.TranscriptText, nil
}

func (f *FakeSurface) Screenshot(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["screenshot"]; err != nil {
		return nil, err
	}
	if f.ScreenshotPNG != nil {
		return f.ScreenshotPNG, nil
	}
	return []byte("fake-png"), nil
}

func (f *FakeSurface) ClearStorage(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["clear_storage"]; err != nil {
		return err
	}
	f.StorageCleared++
	return nil
}

func (f *FakeSurface) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

func (f *FakeSurface) errFor(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Errs[op]
}

// Locked setter variants for use inside On* hooks, which already hold the
// internal lock.

// SetVisibleLocked marks a selector visible or hidden from inside a hook.
func (f *FakeSurface) SetVisibleLocked(selector string, visible bool) {
	f.visibleSels[selector] = visible
}

// SetTextHitsLocked scripts text occurrences from inside a hook.
func (f *FakeSurface) SetTextHitsLocked(text string, hits ...TextHit) {
	f.textHits[text] = hits
}

// RemoveTextLocked clears a scripted text needle from inside a hook.
func (f *FakeSurface) RemoveTextLocked(text string) {
	delete(f.textHits, text)
}

// AppendTranscriptLocked appends to the transcript from inside a hook.
func (f *FakeSurface) AppendTranscriptLocked(text string) {
	f.TranscriptText += text
}

// FakeFactory builds surfaces from a constructor function, one per attempt.
type FakeFactory struct {
	New func(ctx context.Context) (Surface, error)

	mu       sync.Mutex
	Surfaces []Surface
}

func (f *FakeFactory) NewSurface(ctx context.Context) (Surface, error) {
	s, err := f.New(ctx)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.Surfaces = append(f.Surfaces, s)
	f.mu.Unlock()
	return s, nil
}
