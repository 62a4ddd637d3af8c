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

// Package reconstruct implements the second pass over a recovery log: it
// loads each recorded entity, walks directory cluster chains to discover
// children, reparents anything left orphaned into a synthesized root, and
// either writes a consistent metadata region back or streams recovered
// files out to a destination directory.
package reconstruct

import (
	"errors"
	"io"

	"github.com/hashicorp/go-multierror"

	"github.com/scafiti/exfatrescue/internal/entity"
	"github.com/scafiti/exfatrescue/internal/exfat"
	"github.com/scafiti/exfatrescue/internal/logger"
	"github.com/scafiti/exfatrescue/internal/reclog"
	"github.com/scafiti/exfatrescue/internal/rescuerr"
)

const (
	minContinuations = 2
	maxContinuations = 18
)

// Source is the byte-addressable view a Loader reads triples and
// directory contents through. *volume.Accessor satisfies it.
type Source interface {
	At(off exfat.ByteOffset, length int) ([]byte, error)
	ClusterPtr(i exfat.ClusterIndex, n int) ([]byte, error)
	Geometry() exfat.Geometry
	PartitionStart() exfat.ByteOffset
}

// LogReader is the minimal surface a Loader needs to replay a recovery
// log; both reclog.TextReader and reclog.BinaryReader satisfy it.
type LogReader interface {
	Next() (reclog.Record, error)
}

// Loader replays a recovery log into an in-memory entity tree.
type Loader struct {
	src      Source
	logger   *logger.Logger
	entities map[uint64]entity.Entity
	warnings *multierror.Error
}

// NewLoader builds a Loader reading triples through src.
func NewLoader(src Source, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.New(io.Discard, logger.InfoLevel)
	}
	return &Loader{
		src:      src,
		logger:   log,
		entities: make(map[uint64]entity.Entity),
	}
}

// LoadFromLog loads every FDE record in the log, recursing into
// directories as it goes. Bad-sector records are skipped; they carry no
// entity to load. Malformed log lines (rescuerr.LogParse) are logged as
// warnings and skipped.
func (l *Loader) LoadFromLog(log LogReader) error {
	for {
		rec, err := log.Next()
		if err == io.EOF {
			return l.warnings.ErrorOrNil()
		}
		if err != nil {
			if errors.Is(err, rescuerr.ErrLogParse) {
				l.logger.Warnf("skipping log line: %v", err)
				continue
			}
			return err
		}
		if rec.Kind != reclog.KindFDE {
			continue
		}
		if _, err := l.LoadEntity(rec.Offset, "noname"); err != nil {
			l.warnings = multierror.Append(l.warnings, err)
		}
	}
}

// LoadEntity validates and loads the triple at offset, recursing into
// load-directory when it is a directory. A structurally invalid triple is
// not an error: it is logged as a warning and LoadEntity returns (nil,
// nil), matching the source behavior of simply skipping bad candidates.
// An offset already loaded is returned from the offset→entity map rather
// than re-parsed, satisfying the uniqueness invariant over the whole
// reconstruction session.
func (l *Loader) LoadEntity(offset uint64, suggestedName string) (entity.Entity, error) {
	if existing, ok := l.entities[offset]; ok {
		return existing, nil
	}

	header, err := l.src.At(exfat.ByteOffset(offset), exfat.EntrySize)
	if err != nil {
		return nil, rescuerr.New(rescuerr.InvalidEntity).AtOffset(offset).WrapError(err)
	}
	var fde exfat.RawEntry
	copy(fde[:], header)

	if fde.Type() != exfat.TypeFileDirectory {
		l.logger.Warnf("offset 0x%016x: not a file directory entry (type 0x%02x)", offset, fde.Type())
		return nil, nil
	}

	continuations := fde.Continuations()
	if continuations < minContinuations || continuations > maxContinuations {
		l.logger.Warnf("offset 0x%016x: bad continuation count %d", offset, continuations)
		return nil, nil
	}

	tripleLen := int(continuations+1) * exfat.EntrySize
	triple, err := l.src.At(exfat.ByteOffset(offset), tripleLen)
	if err != nil {
		l.logger.Warnf("offset 0x%016x: triple out of bounds: %v", offset, err)
		return nil, nil
	}

	if exfat.SetChecksum(triple) != fde.SetChecksum() {
		l.logger.Warnf("offset 0x%016x: set checksum mismatch", offset)
		return nil, nil
	}

	var stream exfat.RawEntry
	copy(stream[:], triple[exfat.EntrySize:2*exfat.EntrySize])

	nameEntries := make([]exfat.RawEntry, 0, continuations-1)
	for i := 2; i <= int(continuations); i++ {
		var e exfat.RawEntry
		copy(e[:], triple[i*exfat.EntrySize:(i+1)*exfat.EntrySize])
		nameEntries = append(nameEntries, e)
	}

	name, consumed, _ := exfat.DecodeName(nameEntries, int(stream.NameLength()))
	if consumed < int(stream.NameLength()) {
		name = suggestedName
	}

	var ent entity.Entity
	if fde.IsDirectory() {
		d := entity.NewDirectory(offset, fde, stream, name)
		l.entities[offset] = d
		if err := l.loadDirectory(d); err != nil {
			l.warnings = multierror.Append(l.warnings, err)
		}
		ent = d
	} else {
		ent = entity.NewFile(offset, fde, stream, name)
		l.entities[offset] = ent
	}

	return ent, nil
}

// loadDirectory walks d's content records, loading and attaching each
// child FDE it finds.
func (l *Loader) loadDirectory(d *entity.Directory) error {
	var (
		recordOffset uint64
		limit        uint64
	)

	if d.FirstCluster() == 0 {
		recordOffset = d.Offset() + uint64(d.Continuations()+1)*exfat.EntrySize
		limit = ^uint64(0)
	} else {
		off, err := l.src.Geometry().ClusterToOffset(exfat.ClusterIndex(d.FirstCluster()))
		if err != nil {
			return rescuerr.New(rescuerr.InvalidCluster).AtOffset(d.Offset()).WrapError(err)
		}
		recordOffset = uint64(l.src.PartitionStart() + off)
		limit = recordOffset + d.DataSize()
	}

	for recordOffset < limit {
		record, err := l.src.At(exfat.ByteOffset(recordOffset), exfat.EntrySize)
		if err != nil {
			break
		}
		switch record[0] {
		case exfat.TypeEndOfDirectory:
			return nil

		case exfat.TypeFileDirectory:
			child, err := l.LoadEntity(recordOffset, "noname")
			if err != nil {
				l.warnings = multierror.Append(l.warnings, err)
				recordOffset += exfat.EntrySize
				continue
			}
			if child == nil {
				recordOffset += exfat.EntrySize
				continue
			}
			d.AddChild(child)

			var childFDE exfat.RawEntry
			copy(childFDE[:], record)
			recordOffset += uint64(childFDE.Continuations()+1) * exfat.EntrySize

		case exfat.TypeStreamExtension, exfat.TypeFileName,
			exfat.TypeDeletedFDE, exfat.TypeDeletedStreamExt, exfat.TypeDeletedFileName:
			recordOffset += exfat.EntrySize

		default:
			l.logger.Warnf("offset 0x%016x: unexpected directory record type 0x%02x", recordOffset, record[0])
			recordOffset += exfat.EntrySize
		}
	}
	return nil
}

// AdoptOrphans attaches every loaded entity with no parent to a freshly
// synthesized root and returns it.
func (l *Loader) AdoptOrphans() *entity.Directory {
	root := entity.NewRoot()
	for _, e := range l.entities {
		if e.Parent() == nil {
			root.AddChild(e)
		}
	}
	return root
}

// Warnings returns the accumulated non-fatal load warnings, or nil if
// there were none.
func (l *Loader) Warnings() error { return l.warnings.ErrorOrNil() }
