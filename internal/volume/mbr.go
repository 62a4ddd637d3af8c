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
package volume

import (
	"encoding/binary"
	"fmt"
)

// MBRPartitionType identifies the filesystem a partition table entry
// claims to hold.
type MBRPartitionType uint8

const (
	PartitionTypeEmpty           MBRPartitionType = 0x00
	PartitionTypeFAT32LBA        MBRPartitionType = 0x0C
	PartitionTypeNTFSHPFSExFAT   MBRPartitionType = 0x07
	PartitionTypeGPTProtective   MBRPartitionType = 0xEE
)

// MBRPartitionEntry is one 16-byte entry in the MBR's partition table.
type MBRPartitionEntry struct {
	BootIndicator uint8
	PartitionType MBRPartitionType
	StartLBA      uint32
	TotalSectors  uint32
}

// MBR is a parsed Master Boot Record: the boot code and disk signature are
// not retained, only what is needed to locate an ExFAT partition.
type MBR struct {
	PartitionEntries [4]MBRPartitionEntry
}

// ParseMBR parses the first 512 bytes of a device into an MBR, validating
// the trailing 0xAA55 signature.
func ParseMBR(sector []byte) (*MBR, error) {
	const size = 512
	const sigOffset = 0x1FE

	if len(sector) < size {
		return nil, fmt.Errorf("volume: MBR sector too short: %d bytes", len(sector))
	}

	sig := binary.LittleEndian.Uint16(sector[sigOffset : sigOffset+2])
	if sig != 0xAA55 {
		return nil, fmt.Errorf("volume: invalid MBR signature 0x%04x", sig)
	}

	var mbr MBR
	for i := 0; i < 4; i++ {
		off := 0x1BE + i*16
		entry := sector[off : off+16]
		mbr.PartitionEntries[i] = MBRPartitionEntry{
			BootIndicator: entry[0x00],
			PartitionType: MBRPartitionType(entry[0x04]),
			StartLBA:      binary.LittleEndian.Uint32(entry[0x08:0x0C]),
			TotalSectors:  binary.LittleEndian.Uint32(entry[0x0C:0x10]),
		}
	}
	return &mbr, nil
}

// FindExFATPartition returns the first partition table entry whose type
// byte is the shared NTFS/HPFS/exFAT code (0x07); the caller still
// verifies the VBR itself to distinguish ExFAT from its type-code
// siblings. Returns false if no such entry exists.
func (m *MBR) FindExFATPartition() (MBRPartitionEntry, bool) {
	for _, e := range m.PartitionEntries {
		if e.PartitionType == PartitionTypeNTFSHPFSExFAT && e.TotalSectors > 0 {
			return e, true
		}
	}
	return MBRPartitionEntry{}, false
}
