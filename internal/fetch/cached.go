package fetch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonathan/career-navigator/internal/logging"
)

// DefaultCacheTTL is how long extracted page text is reused.
const DefaultCacheTTL = 15 * time.Minute

type cacheEntry struct {
	text    string
	expires time.Time
}

// TextCache is an in-memory, expiring cache of extracted page text keyed by URL.
type TextCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewTextCache returns a cache whose entries live for ttl. A non-positive ttl uses DefaultCacheTTL.
func NewTextCache(ttl time.Duration) *TextCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &TextCache{ttl: ttl, entries: make(map[string]cacheEntry), now: time.Now}
}

// Get returns the cached text for url if it has not expired.
func (c *TextCache) Get(url string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[url]
	if !ok {
		return "", false
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, url)
		return "", false
	}
	return entry.text, true
}

// Put stores text for url.
func (c *TextCache) Put(url, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = cacheEntry{text: text, expires: c.now().Add(c.ttl)}
}

// Invalidate drops url from the cache.
func (c *TextCache) Invalidate(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, url)
}

// Fetcher turns profile URLs into plain text: HTTP fetch, platform-aware
// extraction, and an optional headless browser fallback for thin pages.
type Fetcher struct {
	options *Options
	render  Renderer
	cache   *TextCache
	logger  *slog.Logger
}

// FetcherConfig holds configuration for a Fetcher.
type FetcherConfig struct {
	Options *Options
	// UseBrowser enables the chromedp fallback when Render is nil.
	UseBrowser bool
	Render     Renderer
	CacheTTL   time.Duration
	SkipCache  bool
	Logger     *slog.Logger
}

// NewFetcher creates a Fetcher. A nil config fetches over HTTP only, with caching.
func NewFetcher(config *FetcherConfig) *Fetcher {
	if config == nil {
		config = &FetcherConfig{}
	}
	f := &Fetcher{
		options: config.Options,
		render:  config.Render,
		logger:  config.Logger,
	}
	if f.options == nil {
		f.options = DefaultOptions()
	}
	if f.logger == nil {
		f.logger = logging.Logger()
	}
	if f.render == nil && config.UseBrowser {
		timeout := f.options.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		f.render = BrowserRenderer(timeout, f.logger)
	}
	if !config.SkipCache {
		f.cache = NewTextCache(config.CacheTTL)
	}
	return f
}

// FetchText retrieves url and returns its main text.
func (f *Fetcher) FetchText(ctx context.Context, url string) (string, error) {
	if f.cache != nil {
		if text, ok := f.cache.Get(url); ok {
			f.logger.Debug("fetch cache hit", "url", url)
			return text, nil
		}
	}

	platform := DetectPlatform(url)
	text, httpErr := f.fetchHTTP(ctx, url, platform)

	if f.render != nil && (httpErr != nil || ShouldUseBrowser(text) || platform.RequiresBrowser()) {
		rendered, err := f.fetchRendered(ctx, url, platform)
		switch {
		case err == nil && len(rendered) > len(text):
			text, httpErr = rendered, nil
		case err != nil:
			f.logger.Warn("browser fallback failed", "url", url, "error", err)
		}
	}
	if httpErr != nil {
		return "", httpErr
	}
	if text == "" {
		return "", &Error{URL: url, Message: "no text content found"}
	}

	if f.cache != nil {
		f.cache.Put(url, text)
	}
	return text, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, url string, platform Platform) (string, error) {
	result, err := URL(ctx, url, f.options)
	if err != nil {
		return "", err
	}
	text, err := ExtractMainText(result.HTML, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...)
	if err != nil {
		return "", &Error{URL: url, Message: "failed to extract text", Cause: err}
	}
	f.logger.Debug("fetched profile page", "url", url, "platform", string(platform), "chars", len(text))
	return text, nil
}

func (f *Fetcher) fetchRendered(ctx context.Context, url string, platform Platform) (string, error) {
	html, err := f.render(ctx, url)
	if err != nil {
		return "", err
	}
	return ExtractMainText(html, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...)
}
