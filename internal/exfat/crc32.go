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

import (
	"hash"
	"hash/crc32"
)

// crcTable is the reflected CRC-32 table, polynomial 0xEDB88320 — the IEEE
// polynomial used by Go's standard hash/crc32 package under the same
// reflected convention as the original implementation's hand-rolled table.
var crcTable = crc32.MakeTable(crc32.IEEE)

// CRC32 computes the reflected CRC-32 (poly 0xEDB88320, init 0xFFFFFFFF,
// final inversion) of data, used for post-hoc identity checks on extracted
// file content.
func CRC32(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// NewCRC32 returns a running CRC-32 hash that extraction can feed file
// content through incrementally as it streams chunks to disk.
func NewCRC32() hash.Hash32 {
	return crc32.New(crcTable)
}
