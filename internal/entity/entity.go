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

// Package entity models the in-memory tree the reconstruction engine
// builds out of recovered file directory entry triples: files, the
// directories that contain them, and a synthesized root that adopts
// anything left parentless once the log has been fully replayed.
package entity

import (
	"io"

	"github.com/scafiti/exfatrescue/internal/exfat"
	"github.com/scafiti/exfatrescue/internal/rescuerr"
)

// InvalidOffset marks the root's synthetic, addressless offset.
const InvalidOffset uint64 = ^uint64(0)

// maxCopyChunk bounds a single File.CopyTo write.
const maxCopyChunk = 64 * 1024

// directoryFullThreshold is ExFAT's practical per-directory child bound in
// the limited address form this recovery model uses.
const directoryFullThreshold = 254

// Kind discriminates an entity's variant.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
	KindRoot
)

// Entity is the common surface shared by File, Directory, and the
// synthesized Root. An Entity tracks at most one parent at a time; the
// only way to change it is through a Directory's AddChild/RemoveChild.
type Entity interface {
	Kind() Kind
	Offset() uint64
	Name() string
	Parent() *Directory
	setParent(d *Directory)
}

// base carries the fields every variant shares.
type base struct {
	offset   uint64
	name     string
	parent   *Directory
	fde      exfat.RawEntry
	stream   exfat.RawEntry
	continuations uint8

	allocPossible bool
	contiguous    bool
	firstCluster  uint32
	dataSize      uint64
}

func (b *base) Offset() uint64         { return b.offset }
func (b *base) Name() string           { return b.name }
func (b *base) Parent() *Directory     { return b.parent }
func (b *base) setParent(d *Directory) { b.parent = d }

// Continuations returns the number of secondary entries following the
// primary FDE in this entity's on-disk triple.
func (b *base) Continuations() uint8 { return b.continuations }

// AllocPossible reports whether the stream extension's allocation-possible
// flag was set when this entity was loaded.
func (b *base) AllocPossible() bool { return b.allocPossible }

// Contiguous reports whether the entity's data is a single run (no FAT
// chain needed to read it back).
func (b *base) Contiguous() bool { return b.contiguous }

// FirstCluster returns the entity's first data cluster, or 0 when its data
// immediately follows the triple on disk.
func (b *base) FirstCluster() uint32 { return b.firstCluster }

// DataSize returns the entity's declared data length in bytes.
func (b *base) DataSize() uint64 { return b.dataSize }

// DataOffset returns the absolute byte offset of the entity's data: right
// after its triple when FirstCluster is 0, otherwise the mapped address of
// FirstCluster, as resolved by toOffset.
func (b *base) DataOffset(toOffset func(cluster uint32) (uint64, error)) (uint64, error) {
	if b.firstCluster == 0 {
		tripleLen := uint64(b.continuations+1) * exfat.EntrySize
		return b.offset + tripleLen, nil
	}
	return toOffset(b.firstCluster)
}

// File is a leaf entity whose data can be copied out.
type File struct {
	base
}

// NewFile builds a File loaded from the triple at offset.
func NewFile(offset uint64, fde, stream exfat.RawEntry, name string) *File {
	return &File{base: newBase(offset, fde, stream, name)}
}

func (*File) Kind() Kind { return KindFile }

// CopyTo streams the file's data to w in chunks of at most 64 KiB. dataAt
// reads length bytes of the underlying mapping starting at an absolute
// byte offset; clusterToOffset resolves a cluster index to that same
// address space. CopyTo fails with rescuerr.NonContiguous if the file is
// not contiguous, and with rescuerr.ShortWrite if any chunk writes fewer
// bytes than it read.
func (f *File) CopyTo(
	w io.Writer,
	dataAt func(off uint64, length int) ([]byte, error),
	clusterToOffset func(cluster uint32) (uint64, error),
) error {
	if !f.contiguous {
		return rescuerr.New(rescuerr.NonContiguous).AtOffset(f.offset)
	}

	start, err := f.DataOffset(clusterToOffset)
	if err != nil {
		return rescuerr.New(rescuerr.InvalidCluster).AtOffset(f.offset).WrapError(err)
	}

	remaining := f.dataSize
	off := start
	for remaining > 0 {
		chunkLen := int(remaining)
		if chunkLen > maxCopyChunk {
			chunkLen = maxCopyChunk
		}

		chunk, err := dataAt(off, chunkLen)
		if err != nil {
			return rescuerr.New(rescuerr.DestinationError).AtOffset(f.offset).WrapError(err)
		}

		n, err := w.Write(chunk)
		if err != nil {
			return rescuerr.New(rescuerr.DestinationError).AtOffset(f.offset).WrapError(err)
		}
		if n < len(chunk) {
			return rescuerr.New(rescuerr.ShortWrite).AtOffset(f.offset)
		}

		off += uint64(chunkLen)
		remaining -= uint64(chunkLen)
	}
	return nil
}

// Directory owns a set of children keyed by their offset.
type Directory struct {
	base
	children map[uint64]Entity
}

// NewDirectory builds a Directory loaded from the triple at offset.
func NewDirectory(offset uint64, fde, stream exfat.RawEntry, name string) *Directory {
	return &Directory{
		base:     newBase(offset, fde, stream, name),
		children: make(map[uint64]Entity),
	}
}

// NewRoot builds the synthesized root directory, which has no on-disk
// triple of its own.
func NewRoot() *Directory {
	return &Directory{
		base:     base{offset: InvalidOffset, name: "ROOT"},
		children: make(map[uint64]Entity),
	}
}

func (d *Directory) Kind() Kind {
	if d.offset == InvalidOffset {
		return KindRoot
	}
	return KindDirectory
}

// AddChild attaches c to d, detaching it from any prior parent first.
// At most one parent holds c after this call returns.
func (d *Directory) AddChild(c Entity) {
	if old := c.Parent(); old != nil {
		old.RemoveChild(c)
	}
	c.setParent(d)
	d.children[c.Offset()] = c
}

// RemoveChild detaches c from d without destroying it, so the caller may
// reattach it elsewhere. A no-op if c is not currently a child of d.
func (d *Directory) RemoveChild(c Entity) {
	if existing, ok := d.children[c.Offset()]; !ok || existing != c {
		return
	}
	delete(d.children, c.Offset())
	c.setParent(nil)
}

// Children returns the directory's children keyed by offset. Callers must
// not assume any particular iteration order.
func (d *Directory) Children() map[uint64]Entity { return d.children }

// IsFull reports whether d has reached the practical per-directory child
// bound.
func (d *Directory) IsFull() bool { return len(d.children) >= directoryFullThreshold }

func newBase(offset uint64, fde, stream exfat.RawEntry, name string) base {
	allocPossible := stream.AllocPossible()
	b := base{
		offset:        offset,
		name:          name,
		fde:           fde,
		stream:        stream,
		continuations: fde.Continuations(),
		allocPossible: allocPossible,
		contiguous:    stream.Contiguous(),
	}
	if allocPossible {
		b.firstCluster = stream.FirstCluster()
		b.dataSize = stream.DataSize()
	}
	return b
}
