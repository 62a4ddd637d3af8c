package exfat_test

import (
	"testing"

	"github.com/scafiti/exfatrescue/internal/exfat"
	"github.com/stretchr/testify/require"
)

func testGeometry() exfat.Geometry {
	return exfat.Geometry{
		SectorSize:               512,
		SectorsPerCluster:        8,
		TotalSectors:             200000,
		ClusterHeapOffsetSectors: 40,
		ClusterCount:             25000,
		RootDirectoryCluster:     3,
	}
}

func TestClusterOffsetInvertible(t *testing.T) {
	g := testGeometry()
	for _, c := range []exfat.ClusterIndex{2, 3, 10, 1000, 25001} {
		off, err := g.ClusterToOffset(c)
		require.NoError(t, err)

		back, err := g.OffsetToCluster(off)
		require.NoError(t, err)
		require.Equal(t, c, back)
	}
}

func TestClusterToOffsetRejectsBelowFirstValid(t *testing.T) {
	g := testGeometry()
	_, err := g.ClusterToOffset(1)
	require.Error(t, err)
	_, err = g.ClusterToOffset(0)
	require.Error(t, err)
}

func TestClusterBytes(t *testing.T) {
	g := testGeometry()
	require.Equal(t, uint64(512*8), g.ClusterBytes())
}

func TestLog2Shifts(t *testing.T) {
	g := testGeometry()
	require.Equal(t, uint8(9), g.Log2SectorSize())
	require.Equal(t, uint8(3), g.Log2SectorsPerCluster())
}
