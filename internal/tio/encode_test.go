package tio

import (
	"bytes"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dontdude/tiobot/internal/domain"
)

func TestFrame(t *testing.T) {
	tests := []struct {
		name string
		req  domain.ExecutionRequest
		want string
	}{
		{
			name: "language and code",
			req:  domain.ExecutionRequest{Language: "python3", Code: "print(1)"},
			want: "Vlang\x001\x00python3\x00F.code.tio\x008\x00print(1)\x00R",
		},
		{
			name: "every field",
			req: domain.ExecutionRequest{
				Language:      "c-gcc",
				Code:          "int main(){}",
				Stdin:         "42",
				CompilerFlags: []string{"-O2", "-Wall"},
				CLIOptions:    []string{"-v"},
				Args:          []string{"a", "b c"},
			},
			want: "Vlang\x001\x00c-gcc\x00" +
				"F.code.tio\x0012\x00int main(){}\x00" +
				"F.input.tio\x002\x0042\x00" +
				"VTIO_CFLAGS\x002\x00-O2\x00-Wall\x00" +
				"VTIO_OPTIONS\x001\x00-v\x00" +
				"Vargs\x002\x00a\x00b c\x00" +
				"R",
		},
		{
			name: "byte length counts utf-8 bytes",
			req:  domain.ExecutionRequest{Language: "python3", Code: "é"},
			want: "Vlang\x001\x00python3\x00F.code.tio\x002\x00é\x00R",
		},
		{
			name: "empty request is only the run marker",
			req:  domain.ExecutionRequest{},
			want: "R",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(Frame(tt.req)))
		})
	}
}

func TestFrameEmptyListsContributeNothing(t *testing.T) {
	withEmpty := Frame(domain.ExecutionRequest{Language: "python3", Code: "x", Args: []string{}})
	withNil := Frame(domain.ExecutionRequest{Language: "python3", Code: "x"})

	assert.Equal(t, withNil, withEmpty)
	assert.NotContains(t, string(withEmpty), "Vargs")
	assert.NotContains(t, string(withEmpty), "F.input.tio")
}

func TestEncodeStripsZlibContainer(t *testing.T) {
	req := domain.ExecutionRequest{Language: "python3", Code: "print(1)"}

	payload, err := Encode(req)
	require.NoError(t, err)

	var full bytes.Buffer
	zw, err := zlib.NewWriterLevel(&full, zlib.BestCompression)
	require.NoError(t, err)
	_, err = zw.Write(Frame(req))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	wrapped := full.Bytes()
	assert.Equal(t, []byte{0x78, 0xda}, wrapped[:zlibHeaderLen], "best-compression zlib header")
	assert.Equal(t, wrapped[zlibHeaderLen:len(wrapped)-adler32TrailerLen], payload)

	// The untrimmed stream still inflates back to the frame.
	zr, err := zlib.NewReader(bytes.NewReader(wrapped))
	require.NoError(t, err)
	inflated, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, Frame(req), inflated)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []domain.ExecutionRequest{
		{Language: "python3", Code: "print(1)"},
		{Language: "bash", Code: "echo $1", Args: []string{"hello"}},
		{Language: "c-gcc", Code: "int main(){return 0;}", Stdin: "1\n2\n", CompilerFlags: []string{"-lm"}, CLIOptions: []string{"-x"}},
		{Language: "python3", Code: strings.Repeat("print('long')\n", 500)},
		{Language: "python3", Code: "print('ünïcödé ✓')", Stdin: "日本"},
	}

	for _, req := range tests {
		payload, err := Encode(req)
		require.NoError(t, err)

		got, err := Decode(payload)
		require.NoError(t, err)
		if diff := cmp.Diff(req, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestEncodeDecodeRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		req := domain.ExecutionRequest{
			Language:      randomString(rng, 1, 12),
			Code:          randomString(rng, 1, 300),
			Stdin:         randomString(rng, 0, 40),
			CompilerFlags: randomList(rng),
			CLIOptions:    randomList(rng),
			Args:          randomList(rng),
		}

		payload, err := Encode(req)
		require.NoError(t, err)
		got, err := Decode(payload)
		require.NoError(t, err)
		if diff := cmp.Diff(req, got, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("round trip mismatch for case %d (-want +got):\n%s", i, diff)
		}
	}
}

func TestUnframeRejectsGarbage(t *testing.T) {
	tests := []string{
		"",
		"X",
		"F.code.tio\x0099\x00short\x00R",
		"Vlang\x002\x00a\x00b\x00R",
		"Fbogus\x001\x00a\x00R",
		"Vlang\x001\x00python3\x00Rtrailing",
	}

	for _, raw := range tests {
		_, err := Unframe([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformed, "%q", raw)
	}
}

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789 -_=\n\t\"'`{}()é✓"

func randomString(rng *rand.Rand, minLen, maxLen int) string {
	runes := []rune(alphabet)
	n := minLen + rng.Intn(maxLen-minLen+1)
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteRune(runes[rng.Intn(len(runes))])
	}
	return b.String()
}

func randomList(rng *rand.Rand) []string {
	n := rng.Intn(4)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, randomString(rng, 0, 10))
	}
	return out
}
