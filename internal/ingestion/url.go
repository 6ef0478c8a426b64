package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonathan/career-navigator/internal/fetch"
	"github.com/jonathan/career-navigator/internal/logging"
)

// ErrFetchFailed wraps failures retrieving a profile URL
var ErrFetchFailed = errors.New("profile fetch failed")

// TextFetcher retrieves the main text of a page.
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// URLIngester fetches profile pages and cleans their text. It satisfies the
// workflow's fetcher dependency.
type URLIngester struct {
	fetcher TextFetcher
	logger  *slog.Logger
}

// NewURLIngester wraps fetcher. A nil fetcher uses fetch.NewFetcher(nil).
func NewURLIngester(fetcher TextFetcher, logger *slog.Logger) *URLIngester {
	if fetcher == nil {
		fetcher = fetch.NewFetcher(nil)
	}
	if logger == nil {
		logger = logging.Logger()
	}
	return &URLIngester{fetcher: fetcher, logger: logger}
}

// Ingest fetches url and returns cleaned text with metadata.
func (u *URLIngester) Ingest(ctx context.Context, url string) (string, *Metadata, error) {
	platform := fetch.DetectPlatform(url)
	u.logger.Debug("ingesting profile url", "url", url, "platform", string(platform))

	text, err := u.fetcher.FetchText(ctx, url)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	cleaned := CleanText(text)
	if cleaned == "" {
		return "", nil, fmt.Errorf("%s: %w", url, ErrEmptyContent)
	}

	metadata := NewMetadata(cleaned, SourceURL)
	metadata.URL = url
	metadata.Platform = string(platform)
	u.logger.Debug("ingested profile url", "url", url, "chars", metadata.Chars, "hash", metadata.Hash[:12])
	return cleaned, metadata, nil
}

// FetchText returns the cleaned text of url.
func (u *URLIngester) FetchText(ctx context.Context, url string) (string, error) {
	text, _, err := u.Ingest(ctx, url)
	return text, err
}
