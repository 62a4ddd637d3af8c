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
package exfat

import "encoding/binary"

// EntrySize is the fixed size of every metadata entry.
const EntrySize = 32

// Entry type codes for the 32-byte metadata-entry family. Values match the
// ExFAT on-disk encoding: bit 0x80 is the in-use flag, bit 0x40 marks a
// secondary (continuation) entry.
const (
	TypeEndOfDirectory    byte = 0x00
	TypeAllocationBitmap  byte = 0x81
	TypeUpcaseTable       byte = 0x82
	TypeVolumeLabel       byte = 0x83
	TypeFileDirectory     byte = 0x85
	TypeVolumeGUID        byte = 0xA0
	TypeStreamExtension   byte = 0xC0
	TypeFileName          byte = 0xC1
	TypeDeletedBitmap     byte = 0x01
	TypeDeletedFDE        byte = 0x05
	TypeDeletedStreamExt  byte = 0x40
	TypeDeletedFileName   byte = 0x41
	inUseBit              byte = 0x80
	secondaryBit          byte = 0x40
)

// FileAttribute flags carried by a file directory entry.
const (
	AttrReadOnly  uint16 = 0x01
	AttrHidden    uint16 = 0x02
	AttrSystem    uint16 = 0x04
	AttrDirectory uint16 = 0x10
	AttrArchive   uint16 = 0x20
)

// StreamFlag bits carried by a stream extension entry.
const (
	FlagAllocPossible uint8 = 0x01
	FlagNoFatChain    uint8 = 0x02
)

// VolumeFlag bits carried by the volume boot record.
const (
	VolumeFlagSecondFatActive uint16 = 0x01
	VolumeFlagDirty           uint16 = 0x02
	VolumeFlagMediaFailure    uint16 = 0x04
	VolumeFlagClearToZero     uint16 = 0x08
)

// RawEntry is one 32-byte metadata entry, addressed by field offset rather
// than an unsafe struct cast over the mapping (see Design Notes: Memory
// mapped address arithmetic).
type RawEntry [EntrySize]byte

// Type returns the entry's type byte, in-use bit included.
func (e *RawEntry) Type() byte { return e[0] }

// InUse reports whether the entry's in-use bit (0x80) is set.
func (e *RawEntry) InUse() bool { return e[0]&inUseBit != 0 }

// IsSecondary reports whether the entry is a continuation (0x40) entry.
func (e *RawEntry) IsSecondary() bool { return e[0]&secondaryBit != 0 }

// --- File directory entry (primary, type 0x85) ---

func (e *RawEntry) Continuations() uint8        { return e[1] }
func (e *RawEntry) SetContinuations(n uint8)     { e[1] = n }
func (e *RawEntry) SetChecksum() uint16          { return binary.LittleEndian.Uint16(e[2:4]) }
func (e *RawEntry) SetSetChecksum(c uint16)      { binary.LittleEndian.PutUint16(e[2:4], c) }
func (e *RawEntry) Attributes() uint16           { return binary.LittleEndian.Uint16(e[4:6]) }
func (e *RawEntry) SetAttributes(a uint16)       { binary.LittleEndian.PutUint16(e[4:6], a) }
func (e *RawEntry) IsDirectory() bool            { return e.Attributes()&AttrDirectory != 0 }
func (e *RawEntry) CreatedTime() uint16          { return binary.LittleEndian.Uint16(e[8:10]) }
func (e *RawEntry) CreatedDate() uint16          { return binary.LittleEndian.Uint16(e[10:12]) }
func (e *RawEntry) ModifiedTime() uint16         { return binary.LittleEndian.Uint16(e[12:14]) }
func (e *RawEntry) ModifiedDate() uint16         { return binary.LittleEndian.Uint16(e[14:16]) }
func (e *RawEntry) AccessedTime() uint16         { return binary.LittleEndian.Uint16(e[16:18]) }
func (e *RawEntry) AccessedDate() uint16         { return binary.LittleEndian.Uint16(e[18:20]) }

// --- Stream extension entry (first secondary, type 0xC0) ---

func (e *RawEntry) StreamFlags() uint8       { return e[1] }
func (e *RawEntry) SetStreamFlags(f uint8)   { e[1] = f }
func (e *RawEntry) NameLength() uint8        { return e[3] }
func (e *RawEntry) SetNameLength(n uint8)    { e[3] = n }
func (e *RawEntry) NameHash() uint16         { return binary.LittleEndian.Uint16(e[4:6]) }
func (e *RawEntry) ValidSize() uint64        { return binary.LittleEndian.Uint64(e[8:16]) }
func (e *RawEntry) SetValidSize(v uint64)    { binary.LittleEndian.PutUint64(e[8:16], v) }
func (e *RawEntry) FirstCluster() uint32     { return binary.LittleEndian.Uint32(e[20:24]) }
func (e *RawEntry) SetFirstCluster(c uint32) { binary.LittleEndian.PutUint32(e[20:24], c) }
func (e *RawEntry) DataSize() uint64         { return binary.LittleEndian.Uint64(e[24:32]) }
func (e *RawEntry) SetDataSize(s uint64)     { binary.LittleEndian.PutUint64(e[24:32], s) }

func (e *RawEntry) AllocPossible() bool { return e.StreamFlags()&FlagAllocPossible != 0 }
func (e *RawEntry) Contiguous() bool    { return e.StreamFlags()&FlagNoFatChain != 0 }

// --- File name entry (secondary, type 0xC1) ---

const nameUnitsPerEntry = 15

// NameUnits returns the up-to-15 UTF-16LE code units this entry carries.
func (e *RawEntry) NameUnits() [nameUnitsPerEntry]uint16 {
	var units [nameUnitsPerEntry]uint16
	for i := 0; i < nameUnitsPerEntry; i++ {
		units[i] = binary.LittleEndian.Uint16(e[2+2*i : 4+2*i])
	}
	return units
}

// SetNameUnits writes up-to-15 UTF-16LE code units into the entry.
func (e *RawEntry) SetNameUnits(units []uint16) {
	for i := 0; i < nameUnitsPerEntry && i < len(units); i++ {
		binary.LittleEndian.PutUint16(e[2+2*i:4+2*i], units[i])
	}
}

// --- Allocation bitmap entry (type 0x81) ---

func (e *RawEntry) BitmapFlags() uint8            { return e[1] }
func (e *RawEntry) BitmapFirstCluster() uint32     { return binary.LittleEndian.Uint32(e[20:24]) }
func (e *RawEntry) SetBitmapFirstCluster(c uint32) { binary.LittleEndian.PutUint32(e[20:24], c) }
func (e *RawEntry) BitmapDataLength() uint64       { return binary.LittleEndian.Uint64(e[24:32]) }
func (e *RawEntry) SetBitmapDataLength(n uint64)   { binary.LittleEndian.PutUint64(e[24:32], n) }

// --- Upcase table entry (type 0x82) ---

func (e *RawEntry) UpcaseChecksum() uint32        { return binary.LittleEndian.Uint32(e[4:8]) }
func (e *RawEntry) SetUpcaseChecksum(c uint32)     { binary.LittleEndian.PutUint32(e[4:8], c) }
func (e *RawEntry) UpcaseFirstCluster() uint32     { return binary.LittleEndian.Uint32(e[20:24]) }
func (e *RawEntry) SetUpcaseFirstCluster(c uint32) { binary.LittleEndian.PutUint32(e[20:24], c) }
func (e *RawEntry) UpcaseDataLength() uint64       { return binary.LittleEndian.Uint64(e[24:32]) }
func (e *RawEntry) SetUpcaseDataLength(n uint64)   { binary.LittleEndian.PutUint64(e[24:32], n) }

// --- Volume label entry (type 0x83) ---

func (e *RawEntry) LabelCharCount() uint8     { return e[1] }
func (e *RawEntry) SetLabelCharCount(n uint8) { e[1] = n }

const labelUnitsMax = 11

// LabelUnits returns the up-to-11 UTF-16LE code units of the volume label.
func (e *RawEntry) LabelUnits() [labelUnitsMax]uint16 {
	var units [labelUnitsMax]uint16
	for i := 0; i < labelUnitsMax; i++ {
		units[i] = binary.LittleEndian.Uint16(e[2+2*i : 4+2*i])
	}
	return units
}

// SetLabelUnits writes up-to-11 UTF-16LE code units for the volume label.
func (e *RawEntry) SetLabelUnits(units []uint16) {
	for i := 0; i < labelUnitsMax && i < len(units); i++ {
		binary.LittleEndian.PutUint16(e[2+2*i:4+2*i], units[i])
	}
}

// --- Volume GUID entry (type 0xA0) ---

func (e *RawEntry) GUID() [16]byte {
	var g [16]byte
	copy(g[:], e[2:18])
	return g
}

func (e *RawEntry) SetGUID(g [16]byte) { copy(e[2:18], g[:]) }

// NewEntry builds a zeroed entry stamped with the given type byte.
func NewEntry(entryType byte) RawEntry {
	var e RawEntry
	e[0] = entryType
	return e
}
