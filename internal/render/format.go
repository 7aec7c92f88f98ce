// Package render turns raw execution output and pipeline failures into chat responses.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dontdude/tiobot/internal/domain"
)

// Stats block delimiters in provider output.
const (
	statsStart = "Real time: "
	statsEnd   = "%\nExit code: "
)

// maxPreviewChars clips the inline preview shown next to a paste link.
const maxPreviewChars = 1000

const noOutput = "[No output]"

// Limits is the display budget of the chat surface.
type Limits struct {
	// MaxChars is the largest output, in characters, rendered inline.
	MaxChars int
	// MaxLines is the largest number of newlines rendered inline.
	MaxLines int
	// PreviewLines is how many lines are previewed when output goes to a paste host.
	PreviewLines int
}

func DefaultLimits() Limits {
	return Limits{MaxChars: 1990, MaxLines: 40, PreviewLines: 10}
}

// Exceeds reports whether text is over either budget.
func (l Limits) Exceeds(text string) bool {
	return utf8.RuneCountInString(text) > l.MaxChars || strings.Count(text, "\n") > l.MaxLines
}

// Formatter renders execution output.
type Formatter struct {
	limits Limits
	paster domain.Paster
}

func NewFormatter(limits Limits, paster domain.Paster) *Formatter {
	limits.PreviewLines = max(limits.PreviewLines, 0)
	return &Formatter{limits: limits, paster: paster}
}

// Format renders raw provider output for req. Output over budget is uploaded and linked;
// if the upload fails the error wraps domain.ErrPasteUpload.
func (f *Formatter) Format(ctx context.Context, raw string, req domain.ExecutionRequest, mention string) (domain.Response, error) {
	text := strings.TrimSuffix(raw, "\n")
	if !req.WantStats {
		text = StripStats(text)
	}

	if !f.limits.Exceeds(text) {
		return domain.Response{
			Content: mention,
			Embed: &domain.Embed{
				Title:       fmt.Sprintf("Eval results (%s)", req.Language),
				Description: codeBlock(text),
				Color:       domain.ColorGreen,
			},
		}, nil
	}

	link, err := f.paster.Upload(ctx, text)
	if err != nil {
		return domain.Response{}, err
	}
	slog.Info("Output uploaded to paste service", "url", link, "chars", utf8.RuneCountInString(text))

	return domain.Response{
		Content: mention,
		Embed: &domain.Embed{
			Title:       fmt.Sprintf("Eval results (%s)", req.Language),
			Description: fmt.Sprintf("Output too long, showing a preview.\nFull output: [here](%s)\n%s", link, codeBlock(f.preview(text))),
			URL:         link,
			Color:       domain.ColorYellow,
			Footer:      fmt.Sprintf("%d lines, %d characters", strings.Count(text, "\n")+1, utf8.RuneCountInString(text)),
		},
	}, nil
}

func (f *Formatter) preview(text string) string {
	lines := strings.SplitN(text, "\n", f.limits.PreviewLines+1)
	truncated := len(lines) > f.limits.PreviewLines
	if truncated {
		lines = lines[:f.limits.PreviewLines]
	}
	out := strings.Join(lines, "\n")

	if utf8.RuneCountInString(out) > maxPreviewChars {
		out = string([]rune(out)[:maxPreviewChars])
		truncated = true
	}
	if truncated {
		out += "\n..."
	}
	return out
}

// StripStats removes the provider's timing block (from the last "Real time: " through the
// "%\n" before the last "Exit code: "). Text without both markers is returned unchanged.
func StripStats(text string) string {
	start := strings.LastIndex(text, statsStart)
	end := strings.LastIndex(text, statsEnd)
	if start < 0 || end < 0 || end < start {
		return text
	}
	return text[:start] + text[end+2:]
}

// codeBlock fences text, breaking up any ``` inside it with a zero-width space.
func codeBlock(text string) string {
	if text == "" {
		text = noOutput
	}
	return "```\n" + strings.ReplaceAll(text, "```", "`\u200b``") + "\n```"
}
