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

import "unicode/utf16"

// invalidNameChars is the fixed blacklist of code units that must never
// appear in a decoded filename: the nine reserved characters plus every
// control code below 0x20.
var invalidNameChars = map[uint16]bool{
	'"': true, '*': true, '/': true, ':': true,
	'<': true, '>': true, '?': true, '\\': true, '|': true,
}

func isInvalidNameUnit(u uint16) bool {
	if u < 0x20 {
		return true
	}
	return invalidNameChars[u]
}

// DecodeName concatenates up to 15 UTF-16LE code units from each of the
// given file-name entries (in order) until nameLength units have been
// consumed, then converts the result to UTF-8. It returns the decoded
// name, the number of code units actually consumed, and whether every
// consumed unit passed the invalid-character blacklist. A zero code unit
// ends the supply early. A short supply of units (fewer than nameLength
// before the entries or a zero unit run out) is not an error here;
// the caller decides whether to treat it as a warning (spec boundary B4).
func DecodeName(nameEntries []RawEntry, nameLength int) (name string, consumed int, clean bool) {
	units := make([]uint16, 0, nameLength)
	clean = true
	for _, ent := range nameEntries {
		if ent.Type() != TypeFileName {
			continue
		}
		for _, u := range ent.NameUnits() {
			if len(units) == nameLength {
				break
			}
			if u == 0 {
				return string(utf16.Decode(units)), len(units), clean
			}
			if isInvalidNameUnit(u) {
				clean = false
			}
			units = append(units, u)
		}
		if len(units) == nameLength {
			break
		}
	}
	return string(utf16.Decode(units)), len(units), clean
}

// EncodeName converts a UTF-8 name into UTF-16 code units. It returns one
// flat slice; splitting it into 15-unit file-name entries is left to the
// caller.
func EncodeName(name string) []uint16 {
	return utf16.Encode([]rune(name))
}
