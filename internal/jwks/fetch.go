package jwks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	jwkserrors "github.com/tendant/jwks-resolver/internal/errors"
	"github.com/tendant/jwks-resolver/internal/metrics"
)

const (
	// DefaultFetchTimeout bounds a single JWKS request.
	DefaultFetchTimeout = 10 * time.Second
	// DefaultMaxBodyBytes caps the size of an accepted JWKS document.
	DefaultMaxBodyBytes int64 = 1 << 20
)

// Fetcher retrieves a JWKS document.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (*Document, error)
}

// HTTPFetcher fetches JWKS documents over HTTP. It does not retry or cache.
type HTTPFetcher struct {
	client       *http.Client
	timeout      time.Duration
	maxBodyBytes int64
	logger       *slog.Logger
}

// FetcherOption configures the HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient sets the HTTP client used for requests. The client is not
// modified; WithTimeout applies to a copy.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithTimeout sets the request timeout, regardless of option order.
func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.timeout = timeout
	}
}

// WithMaxBodyBytes caps the accepted response size.
func WithMaxBodyBytes(n int64) FetcherOption {
	return func(f *HTTPFetcher) {
		f.maxBodyBytes = n
	}
}

// WithFetchLogger sets the logger for the fetcher.
func WithFetchLogger(logger *slog.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// NewHTTPFetcher creates a new HTTPFetcher.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	switch {
	case f.client == nil:
		timeout := f.timeout
		if timeout <= 0 {
			timeout = DefaultFetchTimeout
		}
		f.client = &http.Client{Timeout: timeout}
	case f.timeout > 0:
		client := *f.client
		client.Timeout = f.timeout
		f.client = &client
	}

	return f
}

// Fetch performs a GET on uri and decodes the body as a JWKS document.
// Every failure is returned as a fetch_error wrapping the cause.
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) (*Document, error) {
	start := time.Now()
	fetchID := uuid.New().String()

	doc, err := f.fetch(ctx, uri, fetchID)
	metrics.RecordFetch(err == nil, time.Since(start))
	if err != nil {
		f.logger.Debug("JWKS fetch failed", "uri", uri, "fetch_id", fetchID, "error", err)
		return nil, jwkserrors.FetchFailed(uri, err)
	}

	f.logger.Debug("fetched JWKS",
		"uri", uri,
		"fetch_id", fetchID,
		"key_count", len(doc.Keys),
		"duration", time.Since(start),
	)
	return doc, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, uri, fetchID string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", fetchID)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", f.maxBodyBytes)
	}

	return DecodeDocument(bytes.NewReader(body))
}
