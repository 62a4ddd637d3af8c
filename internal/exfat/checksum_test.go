package exfat_test

import (
	"testing"

	"github.com/scafiti/exfatrescue/internal/exfat"
	"github.com/stretchr/testify/require"
)

// buildTriple constructs a minimal valid FDE/stream/name triple with the
// given ASCII name, mirroring boundary scenario B1 from the on-disk format
// layer's acceptance rules.
func buildTriple(name string, firstCluster uint32, size uint64, contiguous bool) []byte {
	const unitsPerEntry = 15

	units := exfat.EncodeName(name)
	nameEntries := (len(units) + unitsPerEntry - 1) / unitsPerEntry
	if nameEntries == 0 {
		nameEntries = 1
	}
	continuations := uint8(1 + nameEntries)

	fde := exfat.NewEntry(exfat.TypeFileDirectory)
	fde.SetContinuations(continuations)

	stream := exfat.NewEntry(exfat.TypeStreamExtension)
	flags := exfat.FlagAllocPossible
	if contiguous {
		flags |= exfat.FlagNoFatChain
	}
	stream.SetStreamFlags(flags)
	stream.SetNameLength(uint8(len(units)))
	stream.SetFirstCluster(firstCluster)
	stream.SetDataSize(size)
	stream.SetValidSize(size)

	triple := append([]byte{}, fde[:]...)
	triple = append(triple, stream[:]...)

	remaining := units
	for i := 0; i < nameEntries; i++ {
		nameEnt := exfat.NewEntry(exfat.TypeFileName)
		n := unitsPerEntry
		if len(remaining) < n {
			n = len(remaining)
		}
		nameEnt.SetNameUnits(remaining[:n])
		remaining = remaining[n:]
		triple = append(triple, nameEnt[:]...)
	}

	sum := exfat.SetChecksum(triple)
	var fdeFixed exfat.RawEntry
	copy(fdeFixed[:], triple[:exfat.EntrySize])
	fdeFixed.SetSetChecksum(sum)
	copy(triple[:exfat.EntrySize], fdeFixed[:])

	return triple
}

func TestSetChecksumClosure(t *testing.T) {
	triple := buildTriple("A", 2, 0x200, true)

	var fde exfat.RawEntry
	copy(fde[:], triple[:exfat.EntrySize])

	require.Equal(t, fde.SetChecksum(), exfat.SetChecksum(triple))
}

func TestSetChecksumFlipDetected(t *testing.T) {
	triple := buildTriple("A", 2, 0x200, true)
	triple[8] ^= 0x01 // flip a byte covered by the checksum (created timestamp low byte)

	var fde exfat.RawEntry
	copy(fde[:], triple[:exfat.EntrySize])

	require.NotEqual(t, fde.SetChecksum(), exfat.SetChecksum(triple))
}

func TestVBRChecksumSkipsFlagAndPercentUsed(t *testing.T) {
	region := &exfat.BootRegion{
		VBR: exfat.VolumeBootRecord{
			ClusterCount:        1000,
			RootDirectoryCluster: 3,
			VolumeFlags:          0,
			PercentUsed:          0,
		},
	}
	before, err := region.Marshal(512)
	require.NoError(t, err)

	region.VBR.VolumeFlags = exfat.VolumeFlagDirty
	region.VBR.PercentUsed = 100
	after, err := region.Marshal(512)
	require.NoError(t, err)

	require.Equal(t, exfat.VBRChecksum(before[:512*11]), exfat.VBRChecksum(after[:512*11]))
}

func TestVBRRoundTrip(t *testing.T) {
	region := &exfat.BootRegion{
		VBR: exfat.VolumeBootRecord{
			PartitionOffsetSectors:   0,
			VolumeLengthSectors:      200000,
			FATOffsetSectors:         24,
			FATLengthSectors:         16,
			ClusterHeapOffsetSectors: 40,
			ClusterCount:             25000,
			RootDirectoryCluster:     3,
			VolumeSerialNumber:       0xDEADBEEF,
			VolumeFlags:              exfat.VolumeFlagDirty,
			BytesPerSectorShift:      9,
			SectorsPerClusterShift:   3,
			PercentUsed:              100,
		},
	}
	out, err := region.Marshal(512)
	require.NoError(t, err)
	require.True(t, exfat.IsExFAT(out[:512]))

	got, err := exfat.UnmarshalVBR(out[:512])
	require.NoError(t, err)
	require.Equal(t, region.VBR.VolumeLengthSectors, got.VolumeLengthSectors)
	require.Equal(t, region.VBR.FATOffsetSectors, got.FATOffsetSectors)
	require.Equal(t, region.VBR.ClusterCount, got.ClusterCount)
	require.Equal(t, region.VBR.RootDirectoryCluster, got.RootDirectoryCluster)
	require.Equal(t, region.VBR.VolumeSerialNumber, got.VolumeSerialNumber)
}

func TestBootRegionMarshalIdempotent(t *testing.T) {
	region := &exfat.BootRegion{
		VBR: exfat.VolumeBootRecord{ClusterCount: 500, RootDirectoryCluster: 3},
	}
	a, err := region.Marshal(512)
	require.NoError(t, err)
	b, err := region.Marshal(512)
	require.NoError(t, err)
	require.Equal(t, a, b)
}
