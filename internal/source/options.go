package source

import (
	"strings"

	"github.com/dontdude/tiobot/internal/domain"
)

const fence = "```"

// Recognised flags.
const (
	FlagWrapped = "--wrapped"
	FlagStats   = "--stats"
)

// ParseFlags consumes --wrapped and --stats from the start of text.
// Flags may come in any order and may repeat; the first other token ends flag parsing.
func ParseFlags(text string) (domain.Options, string) {
	var opts domain.Options

	for {
		trimmed := strings.TrimLeft(text, " \t\r\n")
		token := trimmed
		if i := strings.IndexAny(trimmed, " \t\r\n"); i >= 0 {
			token = trimmed[:i]
		}

		switch token {
		case FlagWrapped:
			opts.Wrapped = true
		case FlagStats:
			opts.Stats = true
		default:
			return opts, text
		}
		text = trimmed[len(token):]
	}
}

// Target names the request field an option line feeds.
type Target int

const (
	TargetStdin Target = iota
	TargetCompilerFlags
	TargetCLIOptions
	TargetArgs
)

// Grammar maps the first word of an option line to the field it fills.
//
// Option lines are only read from messages that carry their code in a ``` fence: an option
// line is a line outside the fence whose first word is a marker followed by a space. Unfenced
// messages are all code, so a line such as "input = 5" is never taken for an option. The rest of the line, with surrounding backticks removed, is its value: stdin lines
// are joined with newlines in order, list fields are split on whitespace and appended.
type Grammar map[string]Target

// DefaultGrammar is the grammar advertised in the eval help text.
func DefaultGrammar() Grammar {
	return Grammar{
		"input":                TargetStdin,
		"compiler-flags":       TargetCompilerFlags,
		"command-line-options": TargetCLIOptions,
		"arguments":            TargetArgs,
	}
}

// Extras are the side-channel fields collected from option lines.
type Extras struct {
	Stdin         string
	CompilerFlags []string
	CLIOptions    []string
	Args          []string
}

// Extract removes option lines from text and returns what they carried.
// Text without a fence is returned unchanged.
func (g Grammar) Extract(text string) (Extras, string) {
	if !strings.Contains(text, fence) {
		return Extras{}, text
	}
	return g.ExtractAll(text)
}

// ExtractAll reads option lines from text whether or not it has a fence. It is for messages
// whose code comes from an attachment or a link, where no line of the text is code.
func (g Grammar) ExtractAll(text string) (Extras, string) {
	var (
		extras Extras
		stdin  []string
		kept   []string
		fenced bool
	)

	for _, line := range strings.Split(text, "\n") {
		if !fenced && !strings.Contains(line, fence) {
			if target, value, ok := g.match(line); ok {
				switch target {
				case TargetStdin:
					stdin = append(stdin, value)
				case TargetCompilerFlags:
					extras.CompilerFlags = append(extras.CompilerFlags, strings.Fields(value)...)
				case TargetCLIOptions:
					extras.CLIOptions = append(extras.CLIOptions, strings.Fields(value)...)
				case TargetArgs:
					extras.Args = append(extras.Args, strings.Fields(value)...)
				}
				continue
			}
		}
		if strings.Count(line, fence)%2 == 1 {
			fenced = !fenced
		}
		kept = append(kept, line)
	}

	extras.Stdin = strings.Join(stdin, "\n")
	return extras, strings.Join(kept, "\n")
}

func (g Grammar) match(line string) (Target, string, bool) {
	word, rest, found := strings.Cut(strings.TrimRight(line, "\r"), " ")
	if !found {
		return 0, "", false
	}
	target, ok := g[word]
	if !ok {
		return 0, "", false
	}
	return target, strings.Trim(strings.TrimSpace(rest), "`"), true
}
