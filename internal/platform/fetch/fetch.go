package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/dontdude/tiobot/internal/domain"
)

// DefaultMaxBytes caps fetched documents when no limit is configured.
const DefaultMaxBytes = 1 << 20

// HTTPFetcher downloads attachments and paste documents as text.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// Check if HTTPFetcher implements domain.Fetcher
var _ domain.Fetcher = (*HTTPFetcher)(nil)

func NewHTTPFetcher(client *http.Client, maxBytes int64) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &HTTPFetcher{client: client, maxBytes: maxBytes}
}

// Fetch GETs url and decodes the body as UTF-8 text.
// Any failure is reported as domain.ErrFetchFailure.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
	}

	slog.Debug("Fetching code", "url", url)
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.StatusError{URL: url, StatusCode: resp.StatusCode, Err: domain.ErrFetchFailure}
	}

	body, err := ReadLimited(resp.Body, f.maxBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
	}
	return DecodeText(body), nil
}

// ReadLimited reads at most limit bytes and fails if the body is longer.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("body exceeds %d bytes", limit)
	}
	return body, nil
}

// DecodeText turns raw bytes into a string: a UTF-8 (or UTF-16 with BOM) byte order mark is
// honoured and dropped, and invalid UTF-8 sequences become U+FFFD.
func DecodeText(b []byte) string {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
