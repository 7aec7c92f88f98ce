// Package source works out what code an invocation wants to run and which side-channel
// fields (stdin, compiler flags, options, arguments) come with it.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dontdude/tiobot/internal/domain"
)

// fenceTag matches the language tag that may open a ``` block.
var fenceTag = regexp.MustCompile(`^[A-Za-z0-9_+#.\-]+$`)

// Resolved is the outcome of input resolution for one invocation.
type Resolved struct {
	Code    string
	Extras  Extras
	Options domain.Options

	// Origin says where Code came from: "attachment", "link" or "inline".
	Origin string
}

// Resolver resolves invocation input. It keeps no per-request state.
type Resolver struct {
	fetcher domain.Fetcher
	grammar Grammar
	allowed []string
}

func NewResolver(fetcher domain.Fetcher, grammar Grammar, allowed []string) *Resolver {
	if grammar == nil {
		grammar = DefaultGrammar()
	}
	if len(allowed) == 0 {
		allowed = DefaultAllowedHosts
	}
	return &Resolver{fetcher: fetcher, grammar: grammar, allowed: allowed}
}

// Resolve picks the code source (attachment, then trailing link=, then inline text) and
// collects flags and option lines from the message text.
func (r *Resolver) Resolve(ctx context.Context, inv domain.Invocation) (Resolved, error) {
	opts, text := ParseFlags(inv.Code)
	link, hasLink := TrailingLink(text)

	var extras Extras
	if len(inv.Attachments) > 0 || hasLink {
		extras, _ = r.grammar.ExtractAll(text)
	} else {
		extras, text = r.grammar.Extract(text)
	}

	res := Resolved{Extras: extras, Options: opts}

	switch {
	case len(inv.Attachments) > 0:
		att := inv.Attachments[0]
		code, err := r.fetcher.Fetch(ctx, att.URL)
		if err != nil {
			slog.Warn("Attachment fetch failed", "invocationID", inv.ID, "file", att.Filename, "error", err)
			return Resolved{}, fmt.Errorf("attachment %s: %w", att.Filename, err)
		}
		res.Code, res.Origin = code, "attachment"

	case hasLink:
		raw, err := RawURL(link, r.allowed)
		if err != nil {
			return Resolved{}, err
		}
		code, err := r.fetcher.Fetch(ctx, raw)
		if err != nil {
			slog.Warn("Link fetch failed", "invocationID", inv.ID, "url", raw, "error", err)
			return Resolved{}, fmt.Errorf("link %s: %w", raw, err)
		}
		res.Code, res.Origin = code, "link"

	default:
		res.Code, res.Origin = inlineCode(text, inv.Language), "inline"
	}

	if strings.TrimSpace(res.Code) == "" {
		return Resolved{}, domain.ErrMissingCode
	}
	return res, nil
}

// inlineCode strips the backticks around message code. When the text was a ``` block whose
// first line is a language tag, that line is dropped, unless the language token itself
// opened the fence. A one-line block drops its first word only when it repeats the language
// token (```py print(1)```).
func inlineCode(text, language string) string {
	trimmed := strings.TrimSpace(text)
	fenced := strings.HasPrefix(trimmed, fence)

	code := strings.Trim(trimmed, "`")
	if fenced && !strings.HasPrefix(language, fence) {
		if first, rest, ok := strings.Cut(code, "\n"); ok {
			if fenceTag.MatchString(strings.TrimSpace(first)) {
				code = rest
			}
		} else if tag, rest, ok := strings.Cut(code, " "); ok && strings.TrimSpace(rest) != "" &&
			strings.EqualFold(tag, strings.TrimSpace(language)) {
			code = strings.TrimSpace(rest)
		}
	}
	return strings.Trim(code, "\r\n")
}
