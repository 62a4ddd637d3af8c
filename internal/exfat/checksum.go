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
package exfat

// SetChecksum computes the 16-bit checksum covering an entire FDE triple:
// a primary entry plus continuations secondary entries, each EntrySize
// bytes. Bytes at primary offsets 2-3 (the checksum field itself) are
// skipped. The recurrence is a 16-bit rotate-right-by-one followed by an
// addition of the next byte.
func SetChecksum(triple []byte) uint16 {
	var c uint16
	for i, b := range triple {
		if i == 2 || i == 3 {
			continue
		}
		c = rotr16(c) + uint16(b)
	}
	return c
}

func rotr16(c uint16) uint16 {
	if c&1 != 0 {
		return 0x8000 | (c >> 1)
	}
	return c >> 1
}

// vbrChecksumSkip marks the byte offsets within the VBR sector excluded
// from the VBR checksum: volume_flags (106-107) and percent_used (112).
func vbrChecksumSkip(i int) bool {
	return i == 106 || i == 107 || i == 112
}

// VBRChecksum computes the 32-bit checksum over the first 11 sectors of
// the boot region (vbr string), skipping the volume_flags and percent_used
// byte positions.
func VBRChecksum(vbr []byte) uint32 {
	var c uint32
	for i, b := range vbr {
		if vbrChecksumSkip(i) {
			continue
		}
		c = rotr32(c) + uint32(b)
	}
	return c
}

// UpcaseChecksum computes the 32-bit checksum over the raw bytes of the
// upcase table, using the same recurrence as VBRChecksum with no skipped
// positions.
func UpcaseChecksum(table []byte) uint32 {
	var c uint32
	for _, b := range table {
		c = rotr32(c) + uint32(b)
	}
	return c
}

func rotr32(c uint32) uint32 {
	if c&1 != 0 {
		return 0x80000000 | (c >> 1)
	}
	return c >> 1
}
