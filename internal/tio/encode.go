// Package tio speaks the tio.run execution API: the compact request framing, its deflate
// quirk, and the token-delimited response.
package tio

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/klauspost/compress/zlib"

	"github.com/dontdude/tiobot/internal/domain"
)

// Field names of the request framing, in the order the provider parses them.
const (
	fieldLang          = "lang"
	fieldCode          = ".code.tio"
	fieldInput         = ".input.tio"
	fieldCompilerFlags = "TIO_CFLAGS"
	fieldOptions       = "TIO_OPTIONS"
	fieldArgs          = "args"
)

// Segment markers.
const (
	markerFile     = 'F'
	markerVariable = 'V'
	markerRun      = 'R'
	separator      = 0x00
)

// The provider wants a bare DEFLATE stream. zlib (RFC 1950) wraps one in a 2-byte
// CMF/FLG header and a 4-byte big-endian Adler-32 trailer, which are cut off after
// compressing. Re-derive these if the container format ever changes.
const (
	zlibHeaderLen     = 2
	adler32TrailerLen = 4
)

// field is one named entry of the framing: either a single string or a list.
type field struct {
	name   string
	value  string
	list   []string
	isList bool
}

func fields(req domain.ExecutionRequest) []field {
	var lang []string
	if req.Language != "" {
		lang = []string{req.Language}
	}
	return []field{
		{name: fieldLang, list: lang, isList: true},
		{name: fieldCode, value: req.Code},
		{name: fieldInput, value: req.Stdin},
		{name: fieldCompilerFlags, list: req.CompilerFlags, isList: true},
		{name: fieldOptions, list: req.CLIOptions, isList: true},
		{name: fieldArgs, list: req.Args, isList: true},
	}
}

// Frame serialises req into the uncompressed wire message.
// Empty strings and empty lists contribute nothing.
func Frame(req domain.ExecutionRequest) []byte {
	var buf bytes.Buffer

	for _, f := range fields(req) {
		if f.isList {
			if len(f.list) == 0 {
				continue
			}
			buf.WriteByte(markerVariable)
			buf.WriteString(f.name)
			buf.WriteByte(separator)
			buf.WriteString(strconv.Itoa(len(f.list)))
			buf.WriteByte(separator)
			for _, item := range f.list {
				buf.WriteString(item)
				buf.WriteByte(separator)
			}
			continue
		}

		if f.value == "" {
			continue
		}
		buf.WriteByte(markerFile)
		buf.WriteString(f.name)
		buf.WriteByte(separator)
		buf.WriteString(strconv.Itoa(len(f.value)))
		buf.WriteByte(separator)
		buf.WriteString(f.value)
		buf.WriteByte(separator)
	}

	buf.WriteByte(markerRun)
	return buf.Bytes()
}

// Encode frames req and compresses it into the payload the run endpoint accepts.
func Encode(req domain.ExecutionRequest) ([]byte, error) {
	var buf bytes.Buffer

	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}
	if _, err := zw.Write(Frame(req)); err != nil {
		return nil, fmt.Errorf("failed to compress request: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress request: %w", err)
	}

	out := buf.Bytes()
	if len(out) < zlibHeaderLen+adler32TrailerLen {
		return nil, fmt.Errorf("compressed request too short: %d bytes", len(out))
	}
	return out[zlibHeaderLen : len(out)-adler32TrailerLen], nil
}
