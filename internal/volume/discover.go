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
	"fmt"
	"os"

	"github.com/scafiti/exfatrescue/internal/exfat"
	"github.com/scafiti/exfatrescue/internal/rescuerr"
)

// DefaultSectorSize is used when a device's physical sector size cannot be
// determined (regular files standing in for a raw device).
const DefaultSectorSize = 512

// DiscoverGeometry derives a Geometry for f. When f is a whole-disk image
// carrying an MBR with an NTFS/HPFS/exFAT partition entry, the partition's
// LBA offset is honored; otherwise the VBR is assumed to start at
// sector 0. sectorSizeHint overrides sector-size auto-detection when
// non-zero; the CLI commands always pass 0.
func DiscoverGeometry(f *os.File, sectorSizeHint uint32) (exfat.Geometry, error) {
	sectorSize := sectorSizeHint
	if sectorSize == 0 {
		sectorSize = probeSectorSize(f)
	}

	fi, err := f.Stat()
	if err != nil {
		return exfat.Geometry{}, rescuerr.New(rescuerr.DeviceUnavailable).WrapError(err)
	}
	totalBytes := fi.Size()
	if totalBytes <= 0 {
		return exfat.Geometry{}, rescuerr.New(rescuerr.DeviceUnavailable).WithMessage("device has zero size")
	}

	firstSector := uint64(0)
	mbrSector := make([]byte, 512)
	if n, err := f.ReadAt(mbrSector, 0); err == nil && n == 512 {
		if mbr, err := ParseMBR(mbrSector); err == nil {
			if part, ok := mbr.FindExFATPartition(); ok {
				firstSector = uint64(part.StartLBA)
			}
		}
	}

	vbrSector := make([]byte, sectorSize)
	vbrOffset := int64(firstSector) * int64(sectorSize)
	if _, err := f.ReadAt(vbrSector, vbrOffset); err != nil {
		return exfat.Geometry{}, rescuerr.New(rescuerr.DeviceUnavailable).WrapError(err)
	}
	if !exfat.IsExFAT(vbrSector) {
		return exfat.Geometry{}, fmt.Errorf("volume: no ExFAT signature at sector %d", firstSector)
	}

	vbr, err := exfat.UnmarshalVBR(vbrSector)
	if err != nil {
		return exfat.Geometry{}, err
	}

	return exfat.Geometry{
		SectorSize:               sectorSize,
		SectorsPerCluster:        1 << vbr.SectorsPerClusterShift,
		TotalSectors:             vbr.VolumeLengthSectors,
		PartitionFirstSector:     firstSector,
		ClusterHeapOffsetSectors: vbr.ClusterHeapOffsetSectors,
		ClusterCount:             vbr.ClusterCount,
		RootDirectoryCluster:     exfat.ClusterIndex(vbr.RootDirectoryCluster),
	}, nil
}
