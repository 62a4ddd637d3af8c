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

// Package volume is the only component that performs OS I/O against a
// recovery target: it opens the device or image file, memory-maps it, and
// presents the rest of the pipeline with a flat byte range plus cluster
// address arithmetic. Nothing above this package reads or writes the
// device directly.
package volume

import (
	"fmt"
	"os"

	"github.com/scafiti/exfatrescue/internal/exfat"
	"github.com/scafiti/exfatrescue/internal/rescuerr"
	"golang.org/x/sys/unix"
)

// Accessor is a memory-mapped view of an ExFAT volume (or an image file
// standing in for one). It owns the single shared mapping resource and
// guarantees unmap+close on every exit path.
type Accessor struct {
	file     *os.File
	data     []byte
	writable bool
	geometry exfat.Geometry
}

// Open opens devicePath for raw access. When writable is true the mapping
// is later created with read/write protection and the file is opened with
// synchronous-write semantics (O_SYNC) so writeback durability does not
// depend on a later explicit flush.
func Open(devicePath string, writable bool) (*os.File, error) {
	flags := os.O_RDONLY
	if writable {
		flags = os.O_RDWR | os.O_SYNC
	}
	f, err := os.OpenFile(NormalizeVolumePath(devicePath), flags, 0)
	if err != nil {
		return nil, rescuerr.New(rescuerr.DeviceUnavailable).WrapError(err)
	}
	return f, nil
}

// Map memory-maps the entire file as a byte window of known length and
// returns an Accessor over it. geometry describes the partition layout
// within that window; callers typically derive it via DiscoverGeometry,
// which reads the MBR and boot sector, before calling Map.
func Map(f *os.File, writable bool, geometry exfat.Geometry) (*Accessor, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, rescuerr.New(rescuerr.DeviceUnavailable).WrapError(err)
	}
	size := fi.Size()
	if size == 0 {
		return nil, rescuerr.New(rescuerr.DeviceUnavailable).WithMessage("device is empty")
	}

	prot := unix.PROT_READ
	flags := unix.MAP_SHARED
	if writable {
		prot |= unix.PROT_WRITE
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), prot, flags)
	if err != nil {
		return nil, rescuerr.New(rescuerr.MappingFailed).WrapError(err)
	}

	return &Accessor{
		file:     f,
		data:     data,
		writable: writable,
		geometry: geometry,
	}, nil
}

// Geometry returns the volume geometry this accessor was mapped with.
func (a *Accessor) Geometry() exfat.Geometry { return a.geometry }

// Writable reports whether the mapping grants write access.
func (a *Accessor) Writable() bool { return a.writable }

// Bytes returns the entire mapped byte window. Callers must not retain
// slices of it past Close.
func (a *Accessor) Bytes() []byte { return a.data }

// PartitionStart returns the absolute byte offset of the first byte of
// the mapped partition.
func (a *Accessor) PartitionStart() exfat.ByteOffset {
	return exfat.ByteOffset(a.geometry.PartitionFirstSector) * exfat.ByteOffset(a.geometry.SectorSize)
}

// PartitionEnd returns the absolute byte offset one past the last byte of
// the mapped partition.
func (a *Accessor) PartitionEnd() exfat.ByteOffset {
	return a.PartitionStart() + exfat.ByteOffset(a.geometry.TotalSectors)*exfat.ByteOffset(a.geometry.SectorSize)
}

// At returns a slice of the mapping starting at absolute byte offset off
// and extending length bytes, bounds-checked against the mapped window.
func (a *Accessor) At(off exfat.ByteOffset, length int) ([]byte, error) {
	start := int(off)
	end := start + length
	if start < 0 || end > len(a.data) || end < start {
		return nil, fmt.Errorf("volume: range [%d,%d) out of bounds (mapping size %d)", start, end, len(a.data))
	}
	return a.data[start:end], nil
}

// ClusterPtr returns a byte slice of length n starting at the given
// cluster's first byte. i must be >= exfat.FirstValidCluster.
func (a *Accessor) ClusterPtr(i exfat.ClusterIndex, n int) ([]byte, error) {
	off, err := a.geometry.ClusterToOffset(i)
	if err != nil {
		return nil, rescuerr.New(rescuerr.InvalidCluster).WrapError(err)
	}
	return a.At(a.PartitionStart()+off, n)
}

// Sync flushes dirty mapped pages to the underlying device. Relevant only
// for writable mappings; a no-op otherwise.
func (a *Accessor) Sync() error {
	if !a.writable {
		return nil
	}
	if err := unix.Msync(a.data, unix.MS_SYNC); err != nil {
		return rescuerr.New(rescuerr.WritebackFailed).WrapError(err)
	}
	return nil
}

// Close guarantees unmap and descriptor release on every exit path,
// syncing first when the mapping is writable.
func (a *Accessor) Close() error {
	var syncErr error
	if a.writable && a.data != nil {
		syncErr = a.Sync()
	}

	var unmapErr error
	if a.data != nil {
		unmapErr = unix.Munmap(a.data)
		a.data = nil
	}

	var closeErr error
	if a.file != nil {
		closeErr = a.file.Close()
		a.file = nil
	}

	switch {
	case syncErr != nil:
		return syncErr
	case unmapErr != nil:
		return rescuerr.New(rescuerr.WritebackFailed).WrapError(unmapErr)
	default:
		return closeErr
	}
}
