package tio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/dontdude/tiobot/internal/domain"
	"github.com/dontdude/tiobot/internal/platform/fetch"
)

// Default provider endpoints.
const (
	DefaultRunURL       = "https://tio.run/cgi-bin/run/api/"
	DefaultLanguagesURL = "https://tio.run/languages.json"
)

// tokenLen is the length of the session token the provider puts in front of every response
// and repeats between output sections.
const tokenLen = 16

// maxResponseBytes caps how much provider output is read.
const maxResponseBytes = 8 << 20

// Client talks to the execution provider.
type Client struct {
	http         *http.Client
	runURL       string
	languagesURL string
}

// Check if Client implements domain.Executor
var _ domain.Executor = (*Client)(nil)

func NewClient(httpClient *http.Client, runURL, languagesURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if runURL == "" {
		runURL = DefaultRunURL
	}
	if languagesURL == "" {
		languagesURL = DefaultLanguagesURL
	}
	return &Client{http: httpClient, runURL: runURL, languagesURL: languagesURL}
}

// Run encodes req and executes it remotely.
func (c *Client) Run(ctx context.Context, req domain.ExecutionRequest) (string, error) {
	payload, err := Encode(req)
	if err != nil {
		return "", err
	}
	return c.Execute(ctx, payload)
}

// Execute POSTs an encoded payload and returns the output with the session token removed.
// Non-success statuses are not retried.
func (c *Client) Execute(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.runURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build run request: %w", err)
	}

	slog.Debug("Sending request to execution provider", "bytes", len(payload))
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.StatusError{URL: c.runURL, StatusCode: resp.StatusCode, Err: domain.ErrTransport}
	}

	body, err := fetch.ReadLimited(resp.Body, maxResponseBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	return StripToken(fetch.DecodeText(body)), nil
}

// StripToken removes the leading session token and every repetition of it.
func StripToken(body string) string {
	runes := []rune(body)
	if len(runes) <= tokenLen {
		return ""
	}
	token := string(runes[:tokenLen])
	return strings.ReplaceAll(body, token, "")
}

// Languages fetches the provider's language list. The endpoint returns either an array of
// identifiers or an object keyed by identifier.
func (c *Client) Languages(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.languagesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build languages request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.StatusError{URL: c.languagesURL, StatusCode: resp.StatusCode, Err: domain.ErrTransport}
	}

	body, err := fetch.ReadLimited(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	return ParseLanguages(body)
}

// ParseLanguages decodes a languages document into a sorted list of identifiers.
func ParseLanguages(body []byte) ([]string, error) {
	var list []string
	if err := json.Unmarshal(body, &list); err == nil {
		sort.Strings(list)
		return list, nil
	}

	var byName map[string]json.RawMessage
	if err := json.Unmarshal(body, &byName); err != nil {
		return nil, fmt.Errorf("failed to decode language list: %w", err)
	}
	list = make([]string, 0, len(byName))
	for name := range byName {
		list = append(list, name)
	}
	sort.Strings(list)
	return list, nil
}
