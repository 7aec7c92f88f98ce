// Package paste uploads oversized output to a paste host.
package paste

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dontdude/tiobot/internal/domain"
	"github.com/dontdude/tiobot/internal/platform/fetch"
)

// Default hosts.
const (
	DefaultPrimaryURL  = "https://hastebin.com"
	DefaultFallbackURL = "https://bin.drlazor.be"
)

// maxReplyBytes caps how much of a paste host's reply is read.
const maxReplyBytes = 64 << 10

// Service uploads to a hastebin-style primary host and falls back to a form-post host.
type Service struct {
	client      *http.Client
	primaryURL  string
	fallbackURL string
}

// Check if Service implements domain.Paster
var _ domain.Paster = (*Service)(nil)

func NewService(client *http.Client, primaryURL, fallbackURL string) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	return &Service{
		client:      client,
		primaryURL:  strings.TrimRight(primaryURL, "/"),
		fallbackURL: fallbackURL,
	}
}

// Upload stores text and returns its public URL. Each host is tried once.
func (s *Service) Upload(ctx context.Context, text string) (string, error) {
	slog.Info("Uploading full output to paste service")

	var errs []error
	if s.primaryURL != "" {
		link, err := s.uploadPrimary(ctx, text)
		if err == nil {
			return link, nil
		}
		slog.Warn("Primary paste host failed, trying fallback", "error", err)
		errs = append(errs, err)
	}

	if s.fallbackURL != "" {
		link, err := s.uploadFallback(ctx, text)
		if err == nil {
			return link, nil
		}
		slog.Warn("Fallback paste host failed", "error", err)
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return "", fmt.Errorf("%w: no paste host configured", domain.ErrPasteUpload)
	}
	return "", fmt.Errorf("%w: %w", domain.ErrPasteUpload, errors.Join(errs...))
}

// uploadPrimary POSTs the raw text to /documents and builds the link from the returned key.
func (s *Service) uploadPrimary(ctx context.Context, text string) (string, error) {
	endpoint := s.primaryURL + "/documents"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(text))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.StatusError{URL: endpoint, StatusCode: resp.StatusCode, Err: domain.ErrPasteUpload}
	}

	body, err := fetch.ReadLimited(resp.Body, maxReplyBytes)
	if err != nil {
		return "", err
	}
	var doc struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("failed to decode paste reply: %w", err)
	}
	if doc.Key == "" {
		return "", errors.New("paste reply has no key")
	}
	return s.primaryURL + "/" + doc.Key, nil
}

// uploadFallback POSTs a form and uses the URL the host redirected to as the link.
func (s *Service) uploadFallback(ctx context.Context, text string) (string, error) {
	form := url.Values{"val": {text}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.fallbackURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.StatusError{URL: s.fallbackURL, StatusCode: resp.StatusCode, Err: domain.ErrPasteUpload}
	}
	return resp.Request.URL.String(), nil
}
