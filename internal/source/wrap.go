package source

import (
	"fmt"
	"strings"

	"github.com/dontdude/tiobot/internal/catalog"
	"github.com/dontdude/tiobot/internal/domain"
)

// Placeholder marks where user code goes in a wrapping template.
const Placeholder = "{code}"

// Wrapper places code inside per-family boilerplate for --wrapped.
type Wrapper struct {
	templates map[string]string
	excluded  map[string]struct{}
}

func NewWrapper(templates map[string]string, excluded []string) *Wrapper {
	w := &Wrapper{
		templates: make(map[string]string, len(templates)),
		excluded:  make(map[string]struct{}, len(excluded)),
	}
	for family, tmpl := range templates {
		w.templates[family] = tmpl
	}
	for _, lang := range excluded {
		w.excluded[lang] = struct{}{}
	}
	return w
}

// Wrap returns code wrapped in the template of lang's family.
func (w *Wrapper) Wrap(lang, code string) (string, error) {
	if _, ok := w.excluded[lang]; ok {
		return "", fmt.Errorf("%w: `%s` cannot be wrapped", domain.ErrWrapNotSupported, lang)
	}
	tmpl, ok := w.templates[catalog.Family(lang)]
	if !ok {
		return "", fmt.Errorf("%w: `%s` cannot be wrapped", domain.ErrWrapNotSupported, lang)
	}
	return strings.ReplaceAll(tmpl, Placeholder, code), nil
}
