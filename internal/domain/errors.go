package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for classifying pipeline failures.
// Each one maps to a distinct piece of user-facing guidance.
var (
	// ErrMissingCode means no code body could be resolved from the invocation.
	ErrMissingCode = errors.New("missing code argument")

	// ErrLanguageNotFound means the language token was empty or garbled.
	ErrLanguageNotFound = errors.New("language not found")

	// ErrUnsupportedLanguage means the language token is well formed but not in the catalog.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrUnauthorizedSource means a link= source is not on the paste-host allow-list.
	ErrUnauthorizedSource = errors.New("unauthorized source")

	// ErrFetchFailure means an attachment or link could not be retrieved.
	ErrFetchFailure = errors.New("fetch failure")

	// ErrWrapNotSupported means --wrapped was requested for a language without a template.
	ErrWrapNotSupported = errors.New("wrapping not supported")

	// ErrTransport means the execution provider answered with a non-success status.
	ErrTransport = errors.New("execution transport error")

	// ErrPasteUpload means every paste host refused the output.
	ErrPasteUpload = errors.New("paste upload failure")

	// ErrRateLimited means the user exceeded the invocation budget.
	ErrRateLimited = errors.New("rate limited")

	// ErrCatalogUnavailable means no language catalog has been loaded yet.
	ErrCatalogUnavailable = errors.New("language catalog unavailable")

	// ErrConfiguration indicates an invalid or incomplete configuration.
	ErrConfiguration = errors.New("configuration error")
)

// LanguageError reports a language token that could not be resolved.
type LanguageError struct {
	// Token is the normalised token after alias substitution.
	Token string

	// Err is ErrLanguageNotFound or ErrUnsupportedLanguage.
	Err error
}

func (e *LanguageError) Error() string {
	if e.Token == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %q", e.Err, e.Token)
}

func (e *LanguageError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-success HTTP status from a remote service.
type StatusError struct {
	URL        string
	StatusCode int

	// Err classifies the failure (ErrTransport, ErrFetchFailure, ...).
	Err error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned status %d", e.Err, e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}
