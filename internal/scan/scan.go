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

// Package scan implements the sweep that walks a device or image byte by
// byte looking for file directory entry triples, independent of any
// filesystem metadata that may already be corrupt. It reads through a
// plain io.ReaderAt rather than a memory mapping so a bad sector surfaces
// as a read error instead of a fault.
package scan

import (
	"errors"
	"io"

	"github.com/scafiti/exfatrescue/internal/exfat"
	"github.com/scafiti/exfatrescue/internal/logger"
	"github.com/scafiti/exfatrescue/internal/reclog"
	"github.com/scafiti/exfatrescue/pkg/pbar"
)

const (
	// ChunkSize is the amount of the device read per iteration.
	ChunkSize = 1 << 20 // 1 MiB

	sectorSize = 512

	minContinuations = 2
	maxContinuations = 18

	// Overlap is how much of the trailing window from the previous chunk
	// is carried into the next one, so a triple straddling a chunk
	// boundary is never missed. A triple's last byte lies at most
	// maxContinuations entries past its first (the FDE, the stream
	// extension, and every name continuation), so the overlap must cover
	// the whole worst-case triple or a long-name candidate near the
	// boundary is silently dropped: a candidate is only examined in the
	// window whose chunk holds its FDE, never again in the next one.
	Overlap = (maxContinuations + 1) * exfat.EntrySize
)

// Sink receives discoveries as the sweep makes them.
type Sink interface {
	WriteFDE(offset uint64, name string) error
	WriteBadSector(offset uint64) error
}

var _ Sink = (*reclog.TextWriter)(nil)

// Options configures a sweep.
type Options struct {
	// StartOffset and EndOffset bound the sweep, in absolute device
	// bytes. EndOffset of zero means "to the end of the device".
	StartOffset uint64
	EndOffset   uint64
	Logger      *logger.Logger
	ShowBar     bool
}

// Scanner performs the byte-level sweep described above.
type Scanner struct {
	device io.ReaderAt
	sink   Sink
	opts   Options
}

// New builds a Scanner reading from device and emitting discoveries to
// sink.
func New(device io.ReaderAt, sink Sink, opts Options) *Scanner {
	if opts.Logger == nil {
		opts.Logger = logger.New(io.Discard, logger.InfoLevel)
	}
	return &Scanner{device: device, sink: sink, opts: opts}
}

// Run sweeps [StartOffset, EndOffset) (or to EOF when EndOffset is zero),
// emitting an FDE record for every checksum-valid triple found and a
// BAD_SECTOR record for every unreadable 512-byte sector. It returns once
// the range is exhausted.
func (s *Scanner) Run(totalSize uint64) error {
	end := s.opts.EndOffset
	if end == 0 {
		end = totalSize
	}

	var bar *pbar.ProgressBarState
	if s.opts.ShowBar {
		bar = pbar.NewProgressBarState(int64(end - s.opts.StartOffset))
	}

	buf := make([]byte, ChunkSize+Overlap)
	found := 0

	offset := s.opts.StartOffset
	for offset < end {
		readLen := ChunkSize + Overlap
		if remaining := end - offset; remaining < uint64(readLen) {
			readLen = int(remaining)
		}

		n, err := s.device.ReadAt(buf[:readLen], int64(offset))
		if err != nil && !errors.Is(err, io.EOF) {
			s.opts.Logger.Warnf("unreadable range at offset 0x%x: %v", offset, err)
			if err := s.sink.WriteBadSector(sectorFloor(offset)); err != nil {
				return err
			}
			offset = sectorFloor(offset) + sectorSize
			continue
		}
		if n == 0 {
			break
		}

		s.scanWindow(buf[:n], offset, &found)
		if bar != nil {
			bar.ProcessedBytes = int64(offset - s.opts.StartOffset)
			bar.FilesFound = found
			bar.Render(false)
		}

		// Advance by the non-overlapping prefix scanned this round; the
		// overlap bytes are re-read as the head of the next window so a
		// triple straddling the boundary is still seen whole.
		if n < ChunkSize {
			offset += uint64(n)
		} else {
			offset += ChunkSize
		}

		if errors.Is(err, io.EOF) && n < readLen {
			break
		}
	}

	if bar != nil {
		bar.ProcessedBytes = int64(end - s.opts.StartOffset)
		bar.FilesFound = found
		bar.Finish()
	}
	return nil
}

// scanWindow examines window for candidate triples at every byte offset,
// validating each with the metadata-entry checksum, and returns how much
// of the window was consumed productively (ChunkSize worth, unless the
// window is shorter than a full chunk meaning EOF is near).
func (s *Scanner) scanWindow(window []byte, base uint64, found *int) int {
	limit := len(window)
	if limit > ChunkSize {
		limit = ChunkSize
	}

	for p := 0; p < limit; p++ {
		if !candidateAt(window, p) {
			continue
		}

		continuations := window[p+1]
		if continuations < minContinuations || continuations > maxContinuations {
			continue
		}

		tripleLen := int(continuations+1) * exfat.EntrySize
		if p+tripleLen > len(window) {
			continue
		}

		triple := window[p : p+tripleLen]
		var entry exfat.RawEntry
		copy(entry[:], triple[:exfat.EntrySize])

		if exfat.SetChecksum(triple) != entry.SetChecksum() {
			continue
		}

		nameEntries := make([]exfat.RawEntry, 0, continuations-1)
		for i := 2; i <= int(continuations); i++ {
			var e exfat.RawEntry
			copy(e[:], triple[i*exfat.EntrySize:(i+1)*exfat.EntrySize])
			nameEntries = append(nameEntries, e)
		}

		var streamEntry exfat.RawEntry
		copy(streamEntry[:], triple[exfat.EntrySize:2*exfat.EntrySize])

		name, _, _ := exfat.DecodeName(nameEntries, int(streamEntry.NameLength()))

		if err := s.sink.WriteFDE(base+uint64(p), name); err != nil {
			s.opts.Logger.Errorf("writing FDE record: %v", err)
		}
		*found++
	}

	return limit
}

// candidateAt reports whether window[p:] begins with the fixed type-byte
// skeleton of a file directory entry triple (FDE, stream extension, name).
func candidateAt(window []byte, p int) bool {
	if p+65 > len(window) {
		return false
	}
	return window[p] == exfat.TypeFileDirectory &&
		window[p+32] == exfat.TypeStreamExtension &&
		window[p+64] == exfat.TypeFileName
}

// sectorFloor rounds off down to the enclosing 512-byte sector boundary.
func sectorFloor(off uint64) uint64 {
	return off - off%sectorSize
}
