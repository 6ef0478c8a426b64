package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/career-navigator/internal/fetch"
)

type fakeFetcher struct {
	text string
	err  error
	urls []string
}

func (f *fakeFetcher) FetchText(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.text, f.err
}

func TestURLIngester_Ingest(t *testing.T) {
	fetcher := &fakeFetcher{text: "Jane   Doe\n\n\n\nEngineer"}
	ingester := NewURLIngester(fetcher, nil)

	text, metadata, err := ingester.Ingest(context.Background(), "https://www.linkedin.com/in/jane")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\n\nEngineer", text)
	assert.Equal(t, SourceURL, metadata.Source)
	assert.Equal(t, "https://www.linkedin.com/in/jane", metadata.URL)
	assert.Equal(t, "linkedin", metadata.Platform)
	assert.Equal(t, []string{"https://www.linkedin.com/in/jane"}, fetcher.urls)
}

func TestURLIngester_Errors(t *testing.T) {
	cause := errors.New("connection refused")
	_, _, err := NewURLIngester(&fakeFetcher{err: cause}, nil).Ingest(context.Background(), "https://jane.dev")
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, cause)

	_, err = NewURLIngester(&fakeFetcher{text: "  \n "}, nil).FetchText(context.Background(), "https://jane.dev")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestURLIngester_DefaultFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><nav>Nav</nav><main><h1>Jane Doe</h1><ul><li>Go</li><li>SQL</li></ul></main><footer>Footer</footer></body></html>`))
	}))
	defer server.Close()

	text, err := NewURLIngester(nil, nil).FetchText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo\nSQL", text)

	_, err = NewURLIngester(fetch.NewFetcher(nil), nil).FetchText(context.Background(), server.URL+"/%zz")
	assert.ErrorIs(t, err, ErrFetchFailed)
}
