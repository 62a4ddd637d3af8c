package exfat_test

import (
	"testing"

	"github.com/scafiti/exfatrescue/internal/exfat"
	"github.com/stretchr/testify/require"
)

func makeNameEntries(units []uint16) []exfat.RawEntry {
	const unitsPerEntry = 15
	var entries []exfat.RawEntry
	for i := 0; i < len(units); i += unitsPerEntry {
		end := i + unitsPerEntry
		if end > len(units) {
			end = len(units)
		}
		ent := exfat.NewEntry(exfat.TypeFileName)
		ent.SetNameUnits(units[i:end])
		entries = append(entries, ent)
	}
	return entries
}

func TestDecodeNameExactLength(t *testing.T) {
	units := exfat.EncodeName("A")
	name, consumed, clean := exfat.DecodeName(makeNameEntries(units), len(units))
	require.Equal(t, "A", name)
	require.Equal(t, len(units), consumed)
	require.True(t, clean)
}

// TestDecodeNameMaxContinuations mirrors boundary scenario B2: 17 file-name
// entries carrying 15*17=255 UTF-16 code units.
func TestDecodeNameMaxContinuations(t *testing.T) {
	runes := make([]rune, 255)
	for i := range runes {
		runes[i] = rune('a' + (i % 26))
	}
	long := string(runes)
	units := exfat.EncodeName(long)
	require.Len(t, units, 255)

	entries := makeNameEntries(units)
	require.Len(t, entries, 17)

	name, consumed, clean := exfat.DecodeName(entries, 255)
	require.Equal(t, 255, consumed)
	require.Equal(t, long, name)
	require.True(t, clean)
}

// TestDecodeNameShortSupply mirrors boundary scenario B4: name_length
// claims 10 units but only 8 are actually supplied across the file-name
// entries. The decoder must not block past what was supplied.
func TestDecodeNameShortSupply(t *testing.T) {
	units := exfat.EncodeName("ABCDEFGH") // 8 units
	entries := makeNameEntries(units)

	name, consumed, _ := exfat.DecodeName(entries, 10)
	require.Equal(t, "ABCDEFGH", name)
	require.Equal(t, 8, consumed)
	require.NotEqual(t, 10, consumed)
}

func TestDecodeNameFlagsInvalidCharacters(t *testing.T) {
	units := exfat.EncodeName("bad*name")
	entries := makeNameEntries(units)

	_, _, clean := exfat.DecodeName(entries, len(units))
	require.False(t, clean)
}
