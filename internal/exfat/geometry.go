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

// Package exfat implements the on-disk structures, checksums and geometry
// arithmetic of the ExFAT filesystem format, independent of how a volume's
// bytes were obtained (memory map, raw device, disk image).
package exfat

import "fmt"

// ByteOffset is an absolute byte offset from the start of a volume.
type ByteOffset uint64

// SectorOffset is a sector index from the start of a volume.
type SectorOffset uint64

// ClusterIndex is a cluster number. Cluster numbering starts at 2; 0 and 1
// are reserved and never denote real heap clusters.
type ClusterIndex uint32

const (
	// FirstValidCluster is the smallest cluster index that maps into the
	// cluster heap.
	FirstValidCluster ClusterIndex = 2
	// BadCluster marks a FAT chain entry as broken media.
	BadCluster uint32 = 0xFFFFFFF7
	// EndOfChainCluster marks the last cluster of a FAT chain.
	EndOfChainCluster uint32 = 0xFFFFFFFF
)

// Geometry captures the layout of one ExFAT volume: sector and cluster
// sizing plus the sector, relative to the partition start, where the
// cluster heap begins.
type Geometry struct {
	SectorSize               uint32
	SectorsPerCluster        uint32
	TotalSectors             uint64
	PartitionFirstSector     uint64
	ClusterHeapOffsetSectors uint32
	ClusterCount             uint32
	RootDirectoryCluster     ClusterIndex
}

// ClusterBytes returns the size, in bytes, of one cluster.
func (g Geometry) ClusterBytes() uint64 {
	return uint64(g.SectorSize) * uint64(g.SectorsPerCluster)
}

// ClusterToOffset converts a cluster index into a byte offset relative to
// the partition start (spec invariant: cluster numbering starts at 2).
func (g Geometry) ClusterToOffset(c ClusterIndex) (ByteOffset, error) {
	if c < FirstValidCluster {
		return 0, fmt.Errorf("cluster %d is below the first valid cluster %d", c, FirstValidCluster)
	}
	heapOffsetBytes := uint64(g.ClusterHeapOffsetSectors) * uint64(g.SectorSize)
	clusterOffset := uint64(c-FirstValidCluster) * g.ClusterBytes()
	return ByteOffset(heapOffsetBytes + clusterOffset), nil
}

// OffsetToCluster is the inverse of ClusterToOffset: given a byte offset
// relative to the partition start, returns the cluster index containing it.
func (g Geometry) OffsetToCluster(off ByteOffset) (ClusterIndex, error) {
	heapOffsetBytes := uint64(g.ClusterHeapOffsetSectors) * uint64(g.SectorSize)
	if uint64(off) < heapOffsetBytes {
		return 0, fmt.Errorf("offset %#x precedes the cluster heap at %#x", off, heapOffsetBytes)
	}
	rel := uint64(off) - heapOffsetBytes
	return ClusterIndex(rel/g.ClusterBytes()) + FirstValidCluster, nil
}

// SectorToOffset converts an absolute sector index into a byte offset.
func (g Geometry) SectorToOffset(s SectorOffset) ByteOffset {
	return ByteOffset(uint64(s) * uint64(g.SectorSize))
}

// Log2SectorSize returns log2(SectorSize), as stored in the boot sector.
func (g Geometry) Log2SectorSize() uint8 {
	return uint8(log2(uint64(g.SectorSize)))
}

// Log2SectorsPerCluster returns log2(SectorsPerCluster), as stored in the
// boot sector.
func (g Geometry) Log2SectorsPerCluster() uint8 {
	return uint8(log2(uint64(g.SectorsPerCluster)))
}

func log2(n uint64) int {
	shifts := 0
	for n > 1 {
		n >>= 1
		shifts++
	}
	return shifts
}
