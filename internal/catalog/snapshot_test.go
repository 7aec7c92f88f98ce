package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dontdude/tiobot/internal/domain"
)

var (
	testLanguages = []string{"python3", "python2", "javascript-node", "cs-core", "cs-csi", "rust"}
	testQuick     = map[string]string{"py": "python", "js": "javascript", "rs": "rust"}
	testFamily    = map[string]string{"python": "python3", "javascript": "javascript-node"}
)

func newTestSnapshot() *Snapshot {
	return NewSnapshot(testLanguages, testQuick, testFamily)
}

func TestResolve(t *testing.T) {
	snap := newTestSnapshot()

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "quick then family alias", token: "py", want: "python3"},
		{name: "family alias only", token: "python", want: "python3"},
		{name: "quick alias to canonical", token: "rs", want: "rust"},
		{name: "canonical", token: "python2", want: "python2"},
		{name: "case and fence are ignored", token: "```PY", want: "python3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := snap.Resolve(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	snap := newTestSnapshot()

	for _, lang := range snap.Languages() {
		got, err := snap.Resolve(lang)
		require.NoError(t, err, lang)
		assert.Equal(t, lang, got)

		again, err := snap.Resolve(got)
		require.NoError(t, err)
		assert.Equal(t, got, again)
	}
}

func TestResolveFailures(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		wantErr   error
		wantToken string
	}{
		{name: "empty", token: "", wantErr: domain.ErrLanguageNotFound},
		{name: "only backticks", token: "```", wantErr: domain.ErrLanguageNotFound},
		{name: "unknown", token: "xyz123", wantErr: domain.ErrUnsupportedLanguage, wantToken: "xyz123"},
		{name: "alias to missing language", token: "js", wantErr: domain.ErrUnsupportedLanguage, wantToken: "javascript-node"},
	}

	snap := NewSnapshot([]string{"python3"}, testQuick, testFamily)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := snap.Resolve(tt.token)
			require.ErrorIs(t, err, tt.wantErr)

			var langErr *domain.LanguageError
			require.True(t, errors.As(err, &langErr))
			assert.Equal(t, tt.wantToken, langErr.Token)
		})
	}
}

func TestNewSnapshotCopiesAndSorts(t *testing.T) {
	quick := map[string]string{"py": "python"}
	snap := NewSnapshot([]string{"rust", "", "c-gcc", "rust"}, quick, nil)
	quick["py"] = "ruby"

	assert.Equal(t, []string{"c-gcc", "rust"}, snap.Languages())
	assert.Equal(t, 2, snap.Len())
	_, err := snap.Resolve("py")
	assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage, "later edits to the alias table must not leak in")
}

func TestFamily(t *testing.T) {
	assert.Equal(t, "cs", Family("cs-mono-shell"))
	assert.Equal(t, "rust", Family("rust"))
	assert.Equal(t, "javascript", Family("javascript-node"))
}
