// Package catalog keeps the set of languages the execution provider accepts and resolves
// user-typed tokens against it.
//
// A Snapshot is immutable. Refreshes build a new Snapshot and swap it into the Store in one
// step, so readers never see a half-updated catalog.
package catalog

import (
	"sort"
	"strings"

	"github.com/dontdude/tiobot/internal/domain"
)

// Snapshot is one generation of the language catalog.
type Snapshot struct {
	canonical     map[string]struct{}
	languages     []string
	quickAlias    map[string]string
	familyDefault map[string]string
}

// NewSnapshot builds a snapshot from the provider's language list and the alias tables.
// The alias maps are copied.
func NewSnapshot(languages []string, quickAlias, familyDefault map[string]string) *Snapshot {
	s := &Snapshot{
		canonical:     make(map[string]struct{}, len(languages)),
		quickAlias:    make(map[string]string, len(quickAlias)),
		familyDefault: make(map[string]string, len(familyDefault)),
	}
	for _, lang := range languages {
		if lang == "" {
			continue
		}
		if _, dup := s.canonical[lang]; dup {
			continue
		}
		s.canonical[lang] = struct{}{}
		s.languages = append(s.languages, lang)
	}
	sort.Strings(s.languages)

	for k, v := range quickAlias {
		s.quickAlias[k] = v
	}
	for k, v := range familyDefault {
		s.familyDefault[k] = v
	}
	return s
}

// Resolve maps a user token to a canonical identifier.
// Quick aliases are applied first, then family defaults. An empty token fails with
// ErrLanguageNotFound; anything else that is not canonical fails with ErrUnsupportedLanguage.
func (s *Snapshot) Resolve(token string) (string, error) {
	lang := Normalize(token)
	if lang == "" {
		return "", &domain.LanguageError{Err: domain.ErrLanguageNotFound}
	}

	if alias, ok := s.quickAlias[lang]; ok {
		lang = alias
	}
	if def, ok := s.familyDefault[lang]; ok {
		lang = def
	}

	if !s.Has(lang) {
		return "", &domain.LanguageError{Token: lang, Err: domain.ErrUnsupportedLanguage}
	}
	return lang, nil
}

// Has reports whether lang is a canonical identifier.
func (s *Snapshot) Has(lang string) bool {
	_, ok := s.canonical[lang]
	return ok
}

// Languages returns the canonical identifiers in sorted order.
func (s *Snapshot) Languages() []string {
	out := make([]string, len(s.languages))
	copy(out, s.languages)
	return out
}

func (s *Snapshot) Len() int {
	return len(s.languages)
}

// Normalize strips code-fence backticks and whitespace from a language token and lowercases it.
func Normalize(token string) string {
	token = strings.TrimSpace(token)
	token = strings.Trim(token, "`")
	return strings.ToLower(strings.TrimSpace(token))
}

// Family returns the leading hyphen-delimited segment of a canonical identifier.
func Family(lang string) string {
	family, _, _ := strings.Cut(lang, "-")
	return family
}
