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

import "encoding/binary"

// DefaultUpcaseTableEntries is the number of code-point entries in the
// default upcase table synthesized by init_metadata. It covers code points
// 0x0000-0x00FF (Basic Latin and Latin-1 Supplement) only.
const DefaultUpcaseTableEntries = 0xFF + 1

// BuildDefaultUpcaseTable constructs the default identity/ASCII-fold
// upcase table content: identity for 0x0000-0x0060, ASCII lower-to-upper
// fold for 0x0061-0x007A, identity for 0x007B-0x00DF excluding the fold
// range, fold for 0x00E0-0x00FE excluding 0x00D7 and 0x00F7 (multiplication
// and division signs, which have no case), identity elsewhere up to the
// entry count.
func BuildDefaultUpcaseTable() []byte {
	table := make([]byte, DefaultUpcaseTableEntries*2)
	for cp := 0; cp < DefaultUpcaseTableEntries; cp++ {
		upper := uint16(cp)
		switch {
		case cp >= 0x0061 && cp <= 0x007A:
			upper = uint16(cp - 0x20)
		case cp >= 0x00E0 && cp <= 0x00FE && cp != 0x00D7 && cp != 0x00F7:
			upper = uint16(cp - 0x20)
		}
		binary.LittleEndian.PutUint16(table[cp*2:cp*2+2], upper)
	}
	return table
}
