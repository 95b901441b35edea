package tabular

// stream.go prepares raw upload bytes for the CSV reader.
//
// Extracts exported from spreadsheet tools on Windows often start with a
// UTF-8 byte order mark and occasionally carry bytes from legacy code pages.
// The BOM is dropped and every invalid byte becomes '?' so that column
// lookups by header name keep working.

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrTooLarge is returned when an upload exceeds the configured size limit.
var ErrTooLarge = errors.New("file too large")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM discards a leading UTF-8 byte order mark from br.
func skipBOM(br *bufio.Reader) error {
	head, err := br.Peek(len(utf8BOM))
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if len(head) == len(utf8BOM) && string(head) == string(utf8BOM) {
		_, err = br.Discard(len(utf8BOM))
		return err
	}
	return nil
}

// sanitizingReader re-encodes its input rune by rune, replacing every
// invalid UTF-8 byte with '?'.
type sanitizingReader struct {
	src *bufio.Reader
}

func (s *sanitizingReader) Read(p []byte) (int, error) {
	n := 0
	for n+utf8.UTFMax <= len(p) {
		r, size, err := s.src.ReadRune()
		if err != nil {
			if n > 0 && errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err
		}
		if r == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			continue
		}
		n += utf8.EncodeRune(p[n:], r)
	}
	if n == 0 && len(p) > 0 {
		// p is shorter than one rune; fall back to a byte at a time.
		b, err := s.src.ReadByte()
		if err != nil {
			return 0, err
		}
		if b >= utf8.RuneSelf {
			b = '?'
		}
		p[0] = b
		return 1, nil
	}
	return n, nil
}

// limitReader fails with ErrTooLarge once more than max bytes were read.
type limitReader struct {
	r    io.Reader
	max  int64
	read int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.max > 0 && l.read > l.max {
		return n, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, l.max)
	}
	return n, err
}

// newCleanReader wraps r with size limiting, BOM removal and UTF-8 repair.
func newCleanReader(r io.Reader, maxBytes int64) (io.Reader, error) {
	br := bufio.NewReader(&limitReader{r: r, max: maxBytes})
	if err := skipBOM(br); err != nil {
		return nil, err
	}
	return &sanitizingReader{src: br}, nil
}
