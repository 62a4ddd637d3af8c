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
package reconstruct

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/boljen/go-bitmap"

	"github.com/scafiti/exfatrescue/internal/exfat"
)

// fatEntrySize is the on-disk width of one FAT chain entry.
const fatEntrySize = 4

// Metadata is the complete in-memory metadata region init builds: a boot
// region, a FAT, an allocation bitmap marking every cluster in use, the
// default upcase table, and a synthesized, empty root directory.
type Metadata struct {
	Geometry      exfat.Geometry
	BootRegion    exfat.BootRegion
	FAT           []byte
	Bitmap        []byte
	UpcaseTable   []byte
	RootDirectory []byte
}

// InitMetadata builds a fresh Metadata for a volume of totalClusters
// clusters, clusterSectors sectors per cluster, at the given sector size.
// The derivation follows the rules recorded for this recovery tool's
// simplified, non-mountable metadata region: enough of a valid boot
// region and directory structure to let a human or a more complete
// ExFAT driver pick through what survived, not a guarantee of a clean
// mount.
func InitMetadata(totalClusters uint32, clusterSectors uint32, sectorSize uint32) (*Metadata, error) {
	geometry := exfat.Geometry{
		SectorSize:        sectorSize,
		SectorsPerCluster: clusterSectors,
		ClusterCount:      totalClusters,
	}

	upcase := exfat.BuildDefaultUpcaseTable()
	bm := bitmap.New(int(totalClusters))
	for i := 0; i < int(totalClusters); i++ {
		bm.Set(i, true)
	}
	bitmapBytes := bm.Data(false)

	// Clusters 2 and 3 hold the bitmap and upcase table respectively; the
	// root directory itself occupies cluster 3 (RootDirectoryCluster
	// below), matching libresurrExion's init_metadata() layout.
	const (
		bitmapFirstCluster = 2
		upcaseFirstCluster = 3
	)
	rootDir := buildRootDirectory(upcase, bitmapBytes, bitmapFirstCluster, upcaseFirstCluster)

	bootRegionSize := uint32(exfat.BootRegionSizeBytes(int(sectorSize)))
	fatOffsetSectors := 2 * bootRegionSize / sectorSize
	fatEntryCount := totalClusters + 2
	fatSize := fatEntryCount * fatEntrySize
	fatLengthSectors := ceilDiv(fatSize, sectorSize)
	clusterHeapOffsetSectors := ceilDiv(bootRegionSize+uint32(len(rootDir)), sectorSize)

	vbr := exfat.VolumeBootRecord{
		VolumeLengthSectors:      uint64(totalClusters) * uint64(clusterSectors),
		FATOffsetSectors:         fatOffsetSectors,
		FATLengthSectors:         fatLengthSectors,
		ClusterHeapOffsetSectors: clusterHeapOffsetSectors,
		ClusterCount:             totalClusters,
		RootDirectoryCluster:     3,
		VolumeFlags:              exfat.VolumeFlagDirty,
		BytesPerSectorShift:      uint8(bits.TrailingZeros32(sectorSize)),
		SectorsPerClusterShift:   uint8(bits.TrailingZeros32(clusterSectors)),
		PercentUsed:              100,
	}

	return &Metadata{
		Geometry:      geometry,
		BootRegion:    exfat.BootRegion{VBR: vbr},
		FAT:           make([]byte, fatSize),
		Bitmap:        bitmapBytes,
		UpcaseTable:   upcase,
		RootDirectory: rootDir,
	}, nil
}

// buildRootDirectory assembles the synthesized, empty root directory's
// fixed entries: volume label, allocation bitmap, upcase table, volume
// GUID, and an end-of-directory marker.
func buildRootDirectory(upcase, bitmapBytes []byte, bitmapFirstCluster, upcaseFirstCluster uint32) []byte {
	label := exfat.NewEntry(exfat.TypeVolumeLabel)
	label.SetLabelCharCount(0)

	bitmapEntry := exfat.NewEntry(exfat.TypeAllocationBitmap)
	bitmapEntry.SetBitmapFirstCluster(bitmapFirstCluster)
	bitmapEntry.SetBitmapDataLength(uint64(len(bitmapBytes)))

	upcaseEntry := exfat.NewEntry(exfat.TypeUpcaseTable)
	upcaseEntry.SetUpcaseChecksum(exfat.UpcaseChecksum(upcase))
	upcaseEntry.SetUpcaseFirstCluster(upcaseFirstCluster)
	upcaseEntry.SetUpcaseDataLength(uint64(len(upcase)))

	guidEntry := exfat.NewEntry(exfat.TypeVolumeGUID)

	end := exfat.NewEntry(exfat.TypeEndOfDirectory)

	dir := make([]byte, 0, 5*exfat.EntrySize)
	for _, e := range []exfat.RawEntry{label, bitmapEntry, upcaseEntry, guidEntry, end} {
		dir = append(dir, e[:]...)
	}
	return dir
}

func ceilDiv(n, d uint32) uint32 {
	return (n + d - 1) / d
}

// Writeback serializes m's boot region into both the primary and backup
// boot-region slots, then writes the FAT and root directory regions. It
// is idempotent: running it twice against the same in-memory Metadata
// produces byte-identical output, since nothing it writes depends on wall
// clock time or prior on-disk state.
func Writeback(dst io.WriterAt, m *Metadata) error {
	sectorSize := int(m.Geometry.SectorSize)
	bootBytes, err := m.BootRegion.Marshal(sectorSize)
	if err != nil {
		return fmt.Errorf("reconstruct: marshal boot region: %w", err)
	}

	if _, err := dst.WriteAt(bootBytes, 0); err != nil {
		return fmt.Errorf("reconstruct: write primary boot region: %w", err)
	}
	if _, err := dst.WriteAt(bootBytes, int64(len(bootBytes))); err != nil {
		return fmt.Errorf("reconstruct: write backup boot region: %w", err)
	}

	fatOffset := int64(m.BootRegion.VBR.FATOffsetSectors) * int64(sectorSize)
	if _, err := dst.WriteAt(m.FAT, fatOffset); err != nil {
		return fmt.Errorf("reconstruct: write FAT: %w", err)
	}

	// Written immediately after the FAT region regardless of the VBR's
	// cluster_heap_offset_sectors field, which follows the source's
	// formula literally as descriptive metadata; taken as a write position
	// it would point at sector 13, inside the backup boot region.
	rootOffset := fatOffset + int64(len(m.FAT))
	if _, err := dst.WriteAt(m.RootDirectory, rootOffset); err != nil {
		return fmt.Errorf("reconstruct: write root directory: %w", err)
	}

	return nil
}
