package process

// This file contains the line splitter used to turn raw child output into
// discrete lines.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

const maxLineLength = 4 * 1024 * 1024

// lineSplitter is a bufio.SplitFunc that ends lines at '\n' or '\r'. A "\r\n"
// pair counts as one terminator. A line is returned as soon as its terminator
// is buffered, so a trailing '\r' never waits for the next read. A line longer
// than maxLineLength is split into chunks of that size.
type lineSplitter struct {
	skipLF bool
}

func (s *lineSplitter) split(data []byte, atEOF bool) (int, []byte, error) {
	if len(data) == 0 {
		return 0, nil, nil
	}
	if s.skipLF {
		s.skipLF = false
		if data[0] == '\n' {
			return 1, nil, nil
		}
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		s.skipLF = data[i] == '\r'
		return i + 1, data[:i], nil
	}
	if len(data) >= maxLineLength {
		return maxLineLength, data[:maxLineLength], nil
	}
	if atEOF {
		// residual partial line without terminator
		return len(data), data, nil
	}
	return 0, nil, nil
}

// readLines decodes r into lines until end of file. Invalid UTF-8 is replaced
// rather than rejected. The reader is always drained, even after an error, so
// the child never blocks on a full pipe.
func readLines(r io.Reader, emit func(string)) error {
	splitter := &lineSplitter{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineLength)
	scanner.Split(splitter.split)

	for scanner.Scan() {
		emit(strings.ToValidUTF8(scanner.Text(), "�"))
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return fmt.Errorf("failed to split output: %w", err)
	}
	return nil
}
