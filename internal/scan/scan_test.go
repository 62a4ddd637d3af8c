package scan_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/scafiti/exfatrescue/internal/exfat"
	"github.com/scafiti/exfatrescue/internal/scan"
	"github.com/stretchr/testify/require"
)

const unitsPerEntry = 15

// maxTripleContinuations mirrors scan's own unexported maxContinuations
// (18): the longest name a triple can carry before scan.scanWindow
// rejects it outright.
const maxTripleContinuations = 18

func buildTriple(name string, firstCluster uint32, size uint64) []byte {
	units := exfat.EncodeName(name)
	nameEntries := (len(units) + unitsPerEntry - 1) / unitsPerEntry
	if nameEntries == 0 {
		nameEntries = 1
	}
	continuations := uint8(1 + nameEntries)

	fde := exfat.NewEntry(exfat.TypeFileDirectory)
	fde.SetContinuations(continuations)

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

// recordingSink captures discoveries for assertions instead of writing a
// real text log.
type recordingSink struct {
	fdes       map[uint64]string
	badSectors []uint64
}

func newRecordingSink() *recordingSink {
	return &recordingSink{fdes: map[uint64]string{}}
}

func (s *recordingSink) WriteFDE(offset uint64, name string) error {
	s.fdes[offset] = name
	return nil
}

func (s *recordingSink) WriteBadSector(offset uint64) error {
	s.badSectors = append(s.badSectors, offset)
	return nil
}

func TestScannerFindsTripleAtKnownOffset(t *testing.T) {
	device := make([]byte, 4096)
	triple := buildTriple("HELLO.TXT", 5, 1024)
	copy(device[512:], triple)

	sink := newRecordingSink()
	s := scan.New(bytes.NewReader(device), sink, scan.Options{})
	require.NoError(t, s.Run(uint64(len(device))))

	require.Equal(t, "HELLO.TXT", sink.fdes[512])
}

func TestScannerFindsTripleStraddlingChunkBoundary(t *testing.T) {
	triple := buildTriple("BOUNDARY.BIN", 9, 4096)
	device := make([]byte, scan.ChunkSize+len(triple)+512)
	// place the triple so it straddles the end of the first chunk
	placeAt := scan.ChunkSize - 16
	copy(device[placeAt:], triple)

	sink := newRecordingSink()
	s := scan.New(bytes.NewReader(device), sink, scan.Options{})
	require.NoError(t, s.Run(uint64(len(device))))

	require.Equal(t, "BOUNDARY.BIN", sink.fdes[uint64(placeAt)])
}

func TestScannerFindsLongNameTripleAtChunkBoundary(t *testing.T) {
	// A name long enough to need the maximum number of continuations,
	// placed so its FDE starts in the last few bytes of the first chunk:
	// the full triple only fits in that chunk's window if Overlap covers
	// the entire worst-case triple length, not just a short-name one.
	longName := ""
	for len(exfat.EncodeName(longName)) < unitsPerEntry*(maxTripleContinuations-1) {
		longName += "A"
	}
	triple := buildTriple(longName, 9, 4096)
	device := make([]byte, scan.ChunkSize+len(triple)+512)
	placeAt := scan.ChunkSize - 1
	copy(device[placeAt:], triple)

	sink := newRecordingSink()
	s := scan.New(bytes.NewReader(device), sink, scan.Options{})
	require.NoError(t, s.Run(uint64(len(device))))

	require.Equal(t, longName, sink.fdes[uint64(placeAt)])
}

func TestScannerIgnoresChecksumMismatch(t *testing.T) {
	device := make([]byte, 4096)
	triple := buildTriple("CORRUPT.TXT", 5, 1024)
	triple[8] ^= 0xFF
	copy(device[512:], triple)

	sink := newRecordingSink()
	s := scan.New(bytes.NewReader(device), sink, scan.Options{})
	require.NoError(t, s.Run(uint64(len(device))))

	require.Empty(t, sink.fdes)
}

// flakyDevice fails ReadAt for any range overlapping a configured bad
// sector, and otherwise defers to an in-memory backing buffer.
type flakyDevice struct {
	data      []byte
	badSector uint64
}

func (f *flakyDevice) ReadAt(p []byte, off int64) (int, error) {
	start := uint64(off)
	end := start + uint64(len(p))
	if start <= f.badSector && f.badSector < end {
		return 0, errors.New("simulated device I/O error")
	}
	n := copy(p, f.data[start:end])
	return n, nil
}

func TestScannerRecoversFromBadSector(t *testing.T) {
	device := &flakyDevice{data: make([]byte, 4096), badSector: 0}
	triple := buildTriple("AFTERBAD.TXT", 5, 1024)
	copy(device.data[1024:], triple)

	sink := newRecordingSink()
	s := scan.New(device, sink, scan.Options{})
	require.NoError(t, s.Run(uint64(len(device.data))))

	require.Contains(t, sink.badSectors, uint64(0))
	require.Equal(t, "AFTERBAD.TXT", sink.fdes[1024])
}
