package reclog_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/scafiti/exfatrescue/internal/exfat"
	"github.com/scafiti/exfatrescue/internal/reclog"
	"github.com/scafiti/exfatrescue/internal/rescuerr"
	"github.com/stretchr/testify/require"
)

func TestTextLogRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := reclog.NewTextWriter(&buf)
	require.NoError(t, w.WriteFDE(0x1000, "HELLO.TXT"))
	require.NoError(t, w.WriteBadSector(0x2000))
	require.NoError(t, w.Close())

	r := reclog.NewTextReader(&buf)

	rec, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, reclog.KindFDE, rec.Kind)
	require.Equal(t, uint64(0x1000), rec.Offset)
	require.Equal(t, "HELLO.TXT", rec.Name)

	rec, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, reclog.KindBadSector, rec.Kind)
	require.Equal(t, uint64(0x2000), rec.Offset)

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestTextLogMalformedLineReportsLogParse(t *testing.T) {
	r := reclog.NewTextReader(bytes.NewBufferString("GARBAGE LINE\n"))
	_, err := r.Next()
	require.Error(t, err)
	require.ErrorIs(t, err, rescuerr.ErrLogParse)
}

func TestBinaryLogRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := reclog.NewBinaryWriter(&buf)

	triple := make([]byte, exfat.EntrySize*3)
	triple[0] = exfat.TypeFileDirectory

	require.NoError(t, w.WriteEntity(0x4000, triple))
	require.NoError(t, w.WriteBadSector(0x5000))

	r := reclog.NewBinaryReader(&buf)

	rec, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, reclog.KindFDE, rec.Kind)
	require.Equal(t, uint64(0x4000), rec.Offset)
	require.Equal(t, triple, rec.Payload)

	rec, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, reclog.KindBadSector, rec.Kind)
	require.Equal(t, uint64(0x5000), rec.Offset)

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

// fakeDevice lets ConvertTextToBinary re-read a triple at a recorded offset.
type fakeDevice struct {
	data []byte
}

func (f *fakeDevice) ReadAt(p []byte, off int64) (int, error) {
	if int(off)+len(p) > len(f.data) {
		return 0, io.ErrUnexpectedEOF
	}
	return copy(p, f.data[off:int(off)+len(p)]), nil
}

func TestConvertTextToBinaryReReadsPayload(t *testing.T) {
	device := &fakeDevice{data: make([]byte, 8192)}
	var entry exfat.RawEntry
	entry[0] = exfat.TypeFileDirectory
	entry.SetContinuations(2)
	copy(device.data[0x1000:], entry[:])

	var textBuf bytes.Buffer
	tw := reclog.NewTextWriter(&textBuf)
	require.NoError(t, tw.WriteFDE(0x1000, "A.TXT"))
	require.NoError(t, tw.WriteBadSector(0x2000))
	require.NoError(t, tw.Close())

	var binBuf bytes.Buffer
	err := reclog.ConvertTextToBinary(device, reclog.NewTextReader(&textBuf), reclog.NewBinaryWriter(&binBuf))
	require.NoError(t, err)

	r := reclog.NewBinaryReader(&binBuf)
	rec, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, reclog.KindFDE, rec.Kind)
	require.Len(t, rec.Payload, exfat.EntrySize*3)

	rec, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, reclog.KindBadSector, rec.Kind)
}
