// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package reclog

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/scafiti/exfatrescue/internal/rescuerr"
)

var (
	fdeLine       = regexp.MustCompile(`^FDE ([0-9a-fA-F]{16})(?: (.*))?$`)
	badSectorLine = regexp.MustCompile(`^BAD_SECTOR ([0-9a-fA-F]{16})$`)
)

// TextWriter appends textual log lines as the scanning engine discovers
// them. It is append-only and line-oriented; callers open it once per
// scanning session and Close it when the sweep finishes.
type TextWriter struct {
	w *bufio.Writer
	c io.Closer
}

// NewTextWriter wraps w (typically a file opened for append) as a
// TextWriter.
func NewTextWriter(w io.Writer) *TextWriter {
	tw := &TextWriter{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		tw.c = c
	}
	return tw
}

// WriteFDE appends "FDE <16-hex offset> <name>" followed by a newline.
func (t *TextWriter) WriteFDE(offset uint64, name string) error {
	_, err := fmt.Fprintf(t.w, "FDE %016x %s\n", offset, name)
	return err
}

// WriteBadSector appends "BAD_SECTOR <16-hex offset>" followed by a
// newline.
func (t *TextWriter) WriteBadSector(offset uint64) error {
	_, err := fmt.Fprintf(t.w, "BAD_SECTOR %016x\n", offset)
	return err
}

// Flush pushes buffered lines to the underlying writer without closing
// it, so a long-running scan's progress is observable on disk.
func (t *TextWriter) Flush() error { return t.w.Flush() }

// Close flushes and, if the underlying writer is also an io.Closer,
// closes it.
func (t *TextWriter) Close() error {
	if err := t.w.Flush(); err != nil {
		return err
	}
	if t.c != nil {
		return t.c.Close()
	}
	return nil
}

// TextReader replays a textual recovery log in line (discovery) order.
type TextReader struct {
	sc *bufio.Scanner
}

// NewTextReader wraps r as a TextReader.
func NewTextReader(r io.Reader) *TextReader {
	return &TextReader{sc: bufio.NewScanner(r)}
}

// Next returns the next record, or io.EOF once the log is exhausted. A
// malformed line is reported as a rescuerr.LogParse error and the line is
// otherwise skipped; callers typically log it as a warning and call Next
// again.
func (t *TextReader) Next() (Record, error) {
	for t.sc.Scan() {
		line := t.sc.Text()
		if line == "" {
			continue
		}

		if m := fdeLine.FindStringSubmatch(line); m != nil {
			offset, err := strconv.ParseUint(m[1], 16, 64)
			if err != nil {
				return Record{}, rescuerr.New(rescuerr.LogParse).WithMessage(line).WrapError(err)
			}
			return Record{Kind: KindFDE, Offset: offset, Name: m[2]}, nil
		}

		if m := badSectorLine.FindStringSubmatch(line); m != nil {
			offset, err := strconv.ParseUint(m[1], 16, 64)
			if err != nil {
				return Record{}, rescuerr.New(rescuerr.LogParse).WithMessage(line).WrapError(err)
			}
			return Record{Kind: KindBadSector, Offset: offset}, nil
		}

		return Record{}, rescuerr.New(rescuerr.LogParse).WithMessage("unrecognized line: " + strings.TrimSpace(line))
	}
	if err := t.sc.Err(); err != nil {
		return Record{}, err
	}
	return Record{}, io.EOF
}
