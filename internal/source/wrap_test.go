package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dontdude/tiobot/internal/domain"
)

func TestWrap(t *testing.T) {
	w := NewWrapper(map[string]string{
		"c":  "int main() {\n{code}\n}",
		"cs": "class P { static void Main() {\n{code}\n} }",
	}, []string{"cs-mono-shell", "cs-csi"})

	got, err := w.Wrap("c-gcc", `printf("hi");`)
	require.NoError(t, err)
	assert.Equal(t, "int main() {\nprintf(\"hi\");\n}", got)

	got, err = w.Wrap("cs-core", "System.Console.WriteLine(1);")
	require.NoError(t, err)
	assert.Contains(t, got, "System.Console.WriteLine(1);")
	assert.NotContains(t, got, Placeholder)
}

func TestWrapRefused(t *testing.T) {
	w := NewWrapper(map[string]string{"cs": "{code}"}, []string{"cs-mono-shell", "cs-csi"})

	for _, lang := range []string{"python3", "cs-csi", "cs-mono-shell", "csharp"} {
		_, err := w.Wrap(lang, "x")
		assert.ErrorIs(t, err, domain.ErrWrapNotSupported, lang)
	}
}
