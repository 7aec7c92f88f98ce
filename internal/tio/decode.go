package tio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/compress/flate"

	"github.com/dontdude/tiobot/internal/domain"
)

// ErrMalformed is returned when a payload does not follow the request framing.
var ErrMalformed = errors.New("malformed tio request")

// Decode inflates a payload produced by Encode and parses it back into a request.
func Decode(payload []byte) (domain.ExecutionRequest, error) {
	r := flate.NewReader(bytes.NewReader(payload))
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return domain.ExecutionRequest{}, fmt.Errorf("failed to inflate request: %w", err)
	}
	return Unframe(raw)
}

// Unframe parses an uncompressed wire message.
func Unframe(raw []byte) (domain.ExecutionRequest, error) {
	var req domain.ExecutionRequest
	p := &parser{buf: raw}

	for {
		marker, err := p.next()
		if err != nil {
			return req, err
		}

		switch marker {
		case markerRun:
			if p.pos != len(p.buf) {
				return req, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(p.buf)-p.pos)
			}
			return req, nil

		case markerFile:
			name, err := p.token()
			if err != nil {
				return req, err
			}
			size, err := p.number()
			if err != nil {
				return req, err
			}
			value, err := p.value(size)
			if err != nil {
				return req, err
			}
			switch name {
			case fieldCode:
				req.Code = value
			case fieldInput:
				req.Stdin = value
			default:
				return req, fmt.Errorf("%w: unknown file %q", ErrMalformed, name)
			}

		case markerVariable:
			name, err := p.token()
			if err != nil {
				return req, err
			}
			count, err := p.number()
			if err != nil {
				return req, err
			}
			items := make([]string, 0, count)
			for i := 0; i < count; i++ {
				item, err := p.token()
				if err != nil {
					return req, err
				}
				items = append(items, item)
			}
			switch name {
			case fieldLang:
				if len(items) != 1 {
					return req, fmt.Errorf("%w: lang has %d values", ErrMalformed, len(items))
				}
				req.Language = items[0]
			case fieldCompilerFlags:
				req.CompilerFlags = items
			case fieldOptions:
				req.CLIOptions = items
			case fieldArgs:
				req.Args = items
			default:
				return req, fmt.Errorf("%w: unknown variable %q", ErrMalformed, name)
			}

		default:
			return req, fmt.Errorf("%w: unexpected marker %q at %d", ErrMalformed, marker, p.pos-1)
		}
	}
}

type parser struct {
	buf []byte
	pos int
}

func (p *parser) next() (byte, error) {
	if p.pos >= len(p.buf) {
		return 0, fmt.Errorf("%w: missing run marker", ErrMalformed)
	}
	b := p.buf[p.pos]
	p.pos++
	return b, nil
}

// token reads up to the next separator and consumes it.
func (p *parser) token() (string, error) {
	i := bytes.IndexByte(p.buf[p.pos:], separator)
	if i < 0 {
		return "", fmt.Errorf("%w: unterminated value at %d", ErrMalformed, p.pos)
	}
	s := string(p.buf[p.pos : p.pos+i])
	p.pos += i + 1
	return s, nil
}

func (p *parser) number() (int, error) {
	s, err := p.token()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad length %q", ErrMalformed, s)
	}
	return n, nil
}

// value reads exactly n bytes followed by a separator.
func (p *parser) value(n int) (string, error) {
	if p.pos+n >= len(p.buf) || p.buf[p.pos+n] != separator {
		return "", fmt.Errorf("%w: value of %d bytes not terminated at %d", ErrMalformed, n, p.pos)
	}
	s := string(p.buf[p.pos : p.pos+n])
	p.pos += n + 1
	return s, nil
}
