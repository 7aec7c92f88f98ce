package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dontdude/tiobot/internal/domain"
)

type fakeFetcher struct {
	docs  map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	doc, ok := f.docs[url]
	if !ok {
		return "", &domain.StatusError{URL: url, StatusCode: 404, Err: domain.ErrFetchFailure}
	}
	return doc, nil
}

func TestResolveInline(t *testing.T) {
	tests := []struct {
		name     string
		language string
		code     string
		want     string
	}{
		{name: "single backticks", language: "py", code: "`print(1)`", want: "print(1)"},
		{name: "bare code", language: "py", code: "print(1)", want: "print(1)"},
		{name: "fence with tag", language: "py", code: "```py\nprint(1)\nprint(2)\n```", want: "print(1)\nprint(2)"},
		{name: "fence without tag", language: "py", code: "```\nprint(1)\n```", want: "print(1)"},
		{name: "fence first line is code", language: "py", code: "```print(1)\nprint(2)```", want: "print(1)\nprint(2)"},
		{name: "one-line fence with tag", language: "py", code: "```py print(1)```", want: "print(1)"},
		{name: "one-line fence tag differs in case", language: "PY", code: "```py print(1)```", want: "print(1)"},
		{name: "one-line fence first word is code", language: "py2", code: "```print 1```", want: "print 1"},
		{name: "one-line fence tag only", language: "py", code: "```py```", want: "py"},
		{name: "language carried the fence", language: "```py", code: "print(1)\n```", want: "print(1)"},
		{name: "unfenced input assignment is code", language: "py", code: "input = 5\nprint(input)", want: "input = 5\nprint(input)"},
		{name: "unfenced arguments assignment is code", language: "py", code: "import sys\narguments = sys.argv\nprint(arguments)", want: "import sys\narguments = sys.argv\nprint(arguments)"},
		{name: "flags and option lines removed", language: "py", code: "--stats\ninput 4\n```py\nprint(input())\n```", want: "print(input())"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&fakeFetcher{}, nil, nil)
			res, err := r.Resolve(context.Background(), domain.Invocation{Language: tt.language, Code: tt.code})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Code)
			assert.Equal(t, "inline", res.Origin)
		})
	}
}

func TestResolveCollectsExtras(t *testing.T) {
	r := NewResolver(&fakeFetcher{}, nil, nil)

	res, err := r.Resolve(context.Background(), domain.Invocation{
		Language: "bash",
		Code:     "--wrapped --stats\narguments x y\ninput hi\n```sh\necho $1\n```",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.Options{Wrapped: true, Stats: true}, res.Options)
	assert.Equal(t, []string{"x", "y"}, res.Extras.Args)
	assert.Equal(t, "hi", res.Extras.Stdin)
	assert.Equal(t, "echo $1", res.Code)
}

func TestResolveOptionLinesWithLink(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{"https://hastebin.com/raw/abcdef": "print(input())"}}
	r := NewResolver(f, nil, nil)

	res, err := r.Resolve(context.Background(), domain.Invocation{
		Language: "py",
		Code:     "input hello\narguments a b\nlink=https://hastebin.com/abcdef",
	})
	require.NoError(t, err)

	assert.Equal(t, "print(input())", res.Code)
	assert.Equal(t, "hello", res.Extras.Stdin)
	assert.Equal(t, []string{"a", "b"}, res.Extras.Args)
}

func TestResolveAttachmentWinsOverLink(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{
		"https://cdn.example/file.py":      "print('attachment')",
		"https://hastebin.com/raw/abcdef": "print('link')",
	}}
	r := NewResolver(f, nil, nil)

	res, err := r.Resolve(context.Background(), domain.Invocation{
		Language:    "py",
		Code:        "link=https://hastebin.com/abcdef",
		Attachments: []domain.Attachment{{URL: "https://cdn.example/file.py", Filename: "file.py"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "print('attachment')", res.Code)
	assert.Equal(t, "attachment", res.Origin)
	assert.Equal(t, []string{"https://cdn.example/file.py"}, f.calls)
}

func TestResolveAttachmentFailureDoesNotFallBack(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{}}
	r := NewResolver(f, nil, nil)

	_, err := r.Resolve(context.Background(), domain.Invocation{
		Language:    "py",
		Code:        "print(1)",
		Attachments: []domain.Attachment{{URL: "https://cdn.example/gone.py", Filename: "gone.py"}},
	})

	require.ErrorIs(t, err, domain.ErrFetchFailure)
	assert.Len(t, f.calls, 1)
}

func TestResolveLink(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{"https://hastebin.com/raw/gurkbot": "print(1)"}}
	r := NewResolver(f, nil, nil)

	res, err := r.Resolve(context.Background(), domain.Invocation{Language: "python", Code: "link=https://hastebin.com/gurkbot.py"})
	require.NoError(t, err)
	assert.Equal(t, "print(1)", res.Code)
	assert.Equal(t, "link", res.Origin)
}

func TestResolveLinkErrors(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{}}
	r := NewResolver(f, nil, nil)

	_, err := r.Resolve(context.Background(), domain.Invocation{Language: "py", Code: "link=https://pastebin.com/abc"})
	assert.ErrorIs(t, err, domain.ErrUnauthorizedSource)
	assert.Empty(t, f.calls, "unauthorized links are never fetched")

	_, err = r.Resolve(context.Background(), domain.Invocation{Language: "py", Code: "link=https://hastebin.com/missing"})
	assert.ErrorIs(t, err, domain.ErrFetchFailure)
}

func TestResolveMissingCode(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{"https://cdn.example/empty.py": "  \n"}}
	r := NewResolver(f, nil, nil)

	for _, inv := range []domain.Invocation{
		{Language: "py", Code: ""},
		{Language: "py", Code: "``````"},
		{Language: "py", Code: "--stats --wrapped"},
		{Language: "py", Code: "input 3\n``````"},
		{Language: "py", Attachments: []domain.Attachment{{URL: "https://cdn.example/empty.py"}}},
	} {
		_, err := r.Resolve(context.Background(), inv)
		assert.True(t, errors.Is(err, domain.ErrMissingCode), "%+v: %v", inv, err)
	}
}
