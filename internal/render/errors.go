package render

import (
	"errors"
	"fmt"
	"time"

	"github.com/dontdude/tiobot/internal/domain"
)

// SupportedLanguagesURL lists everything the provider can run.
const SupportedLanguagesURL = "https://tio.run"

// Usage returns the command synopsis for prefix.
func Usage(prefix string) string {
	return prefix + "eval <language> [--wrapped] [--stats] <code>"
}

// ErrorContext carries what error rendering needs to know about the invocation.
type ErrorContext struct {
	Usage    string
	Language string
	Mention  string
}

// ErrorResponse renders a pipeline failure as guidance for the user.
func ErrorResponse(err error, ec ErrorContext) domain.Response {
	embed := &domain.Embed{Color: domain.ColorSoftRed}
	usage := fmt.Sprintf("\n\nUsage:\n```%s```", ec.Usage)

	var langErr *domain.LanguageError
	switch {
	case errors.Is(err, domain.ErrMissingCode):
		embed.Title = "MissingRequiredArgument"
		embed.Description = "Missing argument code." + usage

	case errors.Is(err, domain.ErrLanguageNotFound):
		embed.Title = "MissingRequiredArgument"
		embed.Description = "Missing argument language." + usage

	case errors.Is(err, domain.ErrUnsupportedLanguage):
		lang := ec.Language
		if errors.As(err, &langErr) && langErr.Token != "" {
			lang = langErr.Token
		}
		embed.Title = "Language Not Supported"
		embed.Description = fmt.Sprintf("Your language was invalid: %s\nAll supported languages: [here](%s)%s", lang, SupportedLanguagesURL, usage)

	case errors.Is(err, domain.ErrUnauthorizedSource):
		embed.Title = "Bad Argument"
		embed.Description = "I only accept links from [hastebin](https://hastebin.com) or [GitHub gist](https://gist.github.com).\n" +
			"Your command must end with `link=<link>` (no space around `=`)."

	case errors.Is(err, domain.ErrFetchFailure):
		embed.Title = "Couldn't Fetch Code"
		embed.Description = "The attachment or link could not be downloaded, nothing was run."

	case errors.Is(err, domain.ErrWrapNotSupported):
		embed.Title = "Cannot Wrap"
		embed.Description = fmt.Sprintf("`%s` cannot be wrapped.", ec.Language)

	case errors.Is(err, domain.ErrTransport):
		embed.Title = "Execution Failed"
		embed.Description = "The execution service did not answer. Please try again later."

	case errors.Is(err, domain.ErrPasteUpload):
		embed.Title = "Output Too Long"
		embed.Description = "The output was too long to show here and could not be uploaded to a paste service."

	case errors.Is(err, domain.ErrCatalogUnavailable):
		embed.Title = "Languages Unavailable"
		embed.Description = "The list of supported languages is still loading. Please try again in a moment."

	default:
		embed.Title = "Something Went Wrong"
		embed.Description = "The code could not be evaluated."
	}

	return domain.Response{Content: ec.Mention, Embed: embed}
}

// CooldownResponse tells a user how long to wait before the next invocation.
func CooldownResponse(retryAfter time.Duration, mention string) domain.Response {
	secs := retryAfter.Seconds()
	if secs < 0.1 {
		secs = 0.1
	}
	return domain.Response{
		Content: mention,
		Embed: &domain.Embed{
			Title:       "Slow Down!",
			Description: fmt.Sprintf("You are on cooldown. Try again in %.1fs.", secs),
			Color:       domain.ColorSoftRed,
		},
	}
}
