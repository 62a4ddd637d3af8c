package volume_test

import (
	"encoding/binary"
	"testing"

	"github.com/scafiti/exfatrescue/internal/volume"
	"github.com/stretchr/testify/require"
)

func buildMBR(partType volume.MBRPartitionType, startLBA, totalSectors uint32) []byte {
	sector := make([]byte, 512)
	const entryOff = 0x1BE
	sector[entryOff+0x04] = byte(partType)
	binary.LittleEndian.PutUint32(sector[entryOff+0x08:], startLBA)
	binary.LittleEndian.PutUint32(sector[entryOff+0x0C:], totalSectors)
	binary.LittleEndian.PutUint16(sector[0x1FE:], 0xAA55)
	return sector
}

func TestParseMBRFindsExFATPartition(t *testing.T) {
	sector := buildMBR(volume.PartitionTypeNTFSHPFSExFAT, 2048, 204800)

	mbr, err := volume.ParseMBR(sector)
	require.NoError(t, err)

	entry, ok := mbr.FindExFATPartition()
	require.True(t, ok)
	require.Equal(t, uint32(2048), entry.StartLBA)
	require.Equal(t, uint32(204800), entry.TotalSectors)
}

func TestParseMBRRejectsBadSignature(t *testing.T) {
	sector := make([]byte, 512)
	_, err := volume.ParseMBR(sector)
	require.Error(t, err)
}

func TestParseMBRNoExFATPartition(t *testing.T) {
	sector := buildMBR(volume.PartitionTypeFAT32LBA, 2048, 204800)

	mbr, err := volume.ParseMBR(sector)
	require.NoError(t, err)

	_, ok := mbr.FindExFATPartition()
	require.False(t, ok)
}
