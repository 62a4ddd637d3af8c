package reconstruct_test

import (
	"bytes"
	"testing"

	"github.com/scafiti/exfatrescue/internal/exfat"
	"github.com/scafiti/exfatrescue/internal/reclog"
	"github.com/scafiti/exfatrescue/internal/reconstruct"
	"github.com/stretchr/testify/require"
)

const unitsPerEntry = 15

func buildTriple(typeByte byte, name string, firstCluster uint32, size uint64, contiguous bool) []byte {
	units := exfat.EncodeName(name)
	nameEntries := (len(units) + unitsPerEntry - 1) / unitsPerEntry
	if nameEntries == 0 {
		nameEntries = 1
	}
	continuations := uint8(1 + nameEntries)

	fde := exfat.NewEntry(typeByte)
	fde.SetContinuations(continuations)
	if typeByte == exfat.TypeFileDirectory {
		// no attributes are set here; buildDirTriple adds AttrDirectory
	}

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

func buildDirTriple(name string, firstCluster uint32, size uint64) []byte {
	units := exfat.EncodeName(name)
	nameEntries := (len(units) + unitsPerEntry - 1) / unitsPerEntry
	if nameEntries == 0 {
		nameEntries = 1
	}
	continuations := uint8(1 + nameEntries)

	fde := exfat.NewEntry(exfat.TypeFileDirectory)
	fde.SetContinuations(continuations)
	fde.SetAttributes(exfat.AttrDirectory)

	stream := exfat.NewEntry(exfat.TypeStreamExtension)
	stream.SetStreamFlags(exfat.FlagAllocPossible | exfat.FlagNoFatChain)
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

// fakeSource is a flat in-memory Source for tests, with no real partition
// offset or cluster geometry beyond what each test configures.
type fakeSource struct {
	data     []byte
	geometry exfat.Geometry
}

func (f *fakeSource) At(off exfat.ByteOffset, length int) ([]byte, error) {
	start := int(off)
	if start+length > len(f.data) {
		out := make([]byte, length)
		copy(out, f.data[start:])
		return out, nil
	}
	return f.data[start : start+length], nil
}

func (f *fakeSource) ClusterPtr(i exfat.ClusterIndex, n int) ([]byte, error) {
	off, err := f.geometry.ClusterToOffset(i)
	if err != nil {
		return nil, err
	}
	return f.At(off, n)
}

func (f *fakeSource) Geometry() exfat.Geometry { return f.geometry }

func (f *fakeSource) PartitionStart() exfat.ByteOffset { return 0 }

func TestLoadEntityDedupesByOffset(t *testing.T) {
	src := &fakeSource{data: make([]byte, 4096)}
	triple := buildTriple(exfat.TypeFileDirectory, "A.TXT", 0, 10, true)
	copy(src.data[512:], triple)

	loader := reconstruct.NewLoader(src, nil)
	a, err := loader.LoadEntity(512, "noname")
	require.NoError(t, err)
	require.NotNil(t, a)

	b, err := loader.LoadEntity(512, "noname")
	require.NoError(t, err)
	require.Same(t, a, b)
}

func TestLoadDirectoryWithEmbeddedChild(t *testing.T) {
	src := &fakeSource{data: make([]byte, 8192)}

	childTriple := buildTriple(exfat.TypeFileDirectory, "CHILD.TXT", 0, 5, true)
	dirTriple := buildDirTriple("SUBDIR", 0, 0)

	dirOffset := 1024
	copy(src.data[dirOffset:], dirTriple)
	copy(src.data[dirOffset+len(dirTriple):], childTriple)

	loader := reconstruct.NewLoader(src, nil)
	d, err := loader.LoadEntity(uint64(dirOffset), "noname")
	require.NoError(t, err)
	require.NotNil(t, d)

	root := loader.AdoptOrphans()
	require.Len(t, root.Children(), 1)
}

func TestAdoptOrphansAttachesEverythingParentless(t *testing.T) {
	src := &fakeSource{data: make([]byte, 4096)}
	t1 := buildTriple(exfat.TypeFileDirectory, "A.TXT", 0, 1, true)
	t2 := buildTriple(exfat.TypeFileDirectory, "B.TXT", 0, 1, true)
	copy(src.data[512:], t1)
	copy(src.data[1024:], t2)

	loader := reconstruct.NewLoader(src, nil)
	_, err := loader.LoadEntity(512, "noname")
	require.NoError(t, err)
	_, err = loader.LoadEntity(1024, "noname")
	require.NoError(t, err)

	root := loader.AdoptOrphans()
	require.Len(t, root.Children(), 2)
}

func TestInitMetadataWritebackIdempotent(t *testing.T) {
	meta, err := reconstruct.InitMetadata(1000, 8, 512)
	require.NoError(t, err)

	var bufA, bufB bytes.Buffer
	require.NoError(t, reconstruct.Writeback(writerAtFor(&bufA, 1<<20), meta))
	require.NoError(t, reconstruct.Writeback(writerAtFor(&bufB, 1<<20), meta))

	require.Equal(t, bufA.Bytes(), bufB.Bytes())
}

// memWriterAt adapts a byte slice to io.WriterAt for tests.
type memWriterAt struct {
	buf *bytes.Buffer
	data []byte
}

func writerAtFor(buf *bytes.Buffer, size int) *memWriterAt {
	return &memWriterAt{buf: buf, data: make([]byte, size)}
}

func (m *memWriterAt) WriteAt(p []byte, off int64) (int, error) {
	n := copy(m.data[off:], p)
	m.buf.Reset()
	m.buf.Write(m.data)
	return n, nil
}

func TestReclogRecordKindUsedByLoader(t *testing.T) {
	require.Equal(t, reclog.KindFDE, reclog.Kind(0))
}
