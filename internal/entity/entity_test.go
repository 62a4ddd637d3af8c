package entity_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/scafiti/exfatrescue/internal/entity"
	"github.com/scafiti/exfatrescue/internal/exfat"
	"github.com/scafiti/exfatrescue/internal/rescuerr"
	"github.com/stretchr/testify/require"
)

func contiguousFileStream(firstCluster uint32, size uint64) exfat.RawEntry {
	s := exfat.NewEntry(exfat.TypeStreamExtension)
	s.SetStreamFlags(exfat.FlagAllocPossible | exfat.FlagNoFatChain)
	s.SetFirstCluster(firstCluster)
	s.SetDataSize(size)
	s.SetValidSize(size)
	return s
}

func TestAddChildAtMostOneParent(t *testing.T) {
	dirA := entity.NewDirectory(0x1000, exfat.NewEntry(exfat.TypeFileDirectory), exfat.NewEntry(exfat.TypeStreamExtension), "A")
	dirB := entity.NewDirectory(0x2000, exfat.NewEntry(exfat.TypeFileDirectory), exfat.NewEntry(exfat.TypeStreamExtension), "B")
	file := entity.NewFile(0x3000, exfat.NewEntry(exfat.TypeFileDirectory), contiguousFileStream(5, 10), "F.TXT")

	dirA.AddChild(file)
	require.Same(t, dirA, file.Parent())
	require.Contains(t, dirA.Children(), uint64(0x3000))

	dirB.AddChild(file)
	require.Same(t, dirB, file.Parent())
	require.NotContains(t, dirA.Children(), uint64(0x3000))
	require.Contains(t, dirB.Children(), uint64(0x3000))
}

func TestRemoveChildReleasesOwnership(t *testing.T) {
	dir := entity.NewDirectory(0x1000, exfat.NewEntry(exfat.TypeFileDirectory), exfat.NewEntry(exfat.TypeStreamExtension), "A")
	file := entity.NewFile(0x3000, exfat.NewEntry(exfat.TypeFileDirectory), contiguousFileStream(5, 10), "F.TXT")

	dir.AddChild(file)
	dir.RemoveChild(file)

	require.Nil(t, file.Parent())
	require.NotContains(t, dir.Children(), uint64(0x3000))
}

func TestDirectoryIsFullAtThreshold(t *testing.T) {
	dir := entity.NewDirectory(0x1000, exfat.NewEntry(exfat.TypeFileDirectory), exfat.NewEntry(exfat.TypeStreamExtension), "A")
	for i := 0; i < 254; i++ {
		f := entity.NewFile(uint64(0x4000+i*32), exfat.NewEntry(exfat.TypeFileDirectory), contiguousFileStream(0, 0), "F")
		dir.AddChild(f)
	}
	require.True(t, dir.IsFull())
}

func TestFileCopyToChunksAtMost64KiB(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 70*1024)
	file := entity.NewFile(0x1000, exfat.NewEntry(exfat.TypeFileDirectory), contiguousFileStream(0, uint64(len(data))), "BIG.BIN")

	var chunkSizes []int
	var out bytes.Buffer

	dataAt := func(off uint64, length int) ([]byte, error) {
		chunkSizes = append(chunkSizes, length)
		tripleLen := uint64(file.Continuations()+1) * exfat.EntrySize
		start := off - 0x1000 - tripleLen
		return data[start : start+uint64(length)], nil
	}

	err := file.CopyTo(&out, dataAt, nil)
	require.NoError(t, err)
	require.Equal(t, data, out.Bytes())
	for _, n := range chunkSizes {
		require.LessOrEqual(t, n, 64*1024)
	}
}

func TestFileCopyToNonContiguousFails(t *testing.T) {
	s := exfat.NewEntry(exfat.TypeStreamExtension)
	s.SetStreamFlags(exfat.FlagAllocPossible) // NoFatChain not set
	file := entity.NewFile(0x1000, exfat.NewEntry(exfat.TypeFileDirectory), s, "FRAG.BIN")

	err := file.CopyTo(&bytes.Buffer{}, nil, nil)
	require.Error(t, err)
	var rerr *rescuerr.RescueError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, rescuerr.NonContiguous, rerr.Kind())
}

func TestFileCopyToShortWriteDetected(t *testing.T) {
	data := []byte("hello world")
	file := entity.NewFile(0x1000, exfat.NewEntry(exfat.TypeFileDirectory), contiguousFileStream(0, uint64(len(data))), "F.TXT")

	dataAt := func(off uint64, length int) ([]byte, error) { return data[:length], nil }

	err := file.CopyTo(shortWriter{}, dataAt, nil)
	require.Error(t, err)
	var rerr *rescuerr.RescueError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, rescuerr.ShortWrite, rerr.Kind())
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return len(p) - 1, nil
}
