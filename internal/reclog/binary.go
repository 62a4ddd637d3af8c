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
package reclog

import (
	"bufio"
	"encoding/binary"
	"io"
)

// BinaryWriter appends records in the compact binary form: a u64 offset,
// an i32 length, and length bytes of payload (length=-1 and no payload
// for a bad sector). Offset and length are written little-endian on every
// host, not in the host's native byte order.
type BinaryWriter struct {
	w io.Writer
}

// NewBinaryWriter wraps w as a BinaryWriter.
func NewBinaryWriter(w io.Writer) *BinaryWriter {
	return &BinaryWriter{w: w}
}

// WriteBadSector appends a bad-sector record (length=-1, no payload).
func (b *BinaryWriter) WriteBadSector(offset uint64) error {
	if err := binary.Write(b.w, binary.LittleEndian, offset); err != nil {
		return err
	}
	return binary.Write(b.w, binary.LittleEndian, BadSectorLength)
}

// WriteEntity appends an entity record: offset, the triple's byte length,
// then the raw triple bytes themselves.
func (b *BinaryWriter) WriteEntity(offset uint64, triple []byte) error {
	if err := binary.Write(b.w, binary.LittleEndian, offset); err != nil {
		return err
	}
	if err := binary.Write(b.w, binary.LittleEndian, int32(len(triple))); err != nil {
		return err
	}
	_, err := b.w.Write(triple)
	return err
}

// BinaryReader replays a binary recovery log in record order.
type BinaryReader struct {
	r *bufio.Reader
}

// NewBinaryReader wraps r as a BinaryReader.
func NewBinaryReader(r io.Reader) *BinaryReader {
	return &BinaryReader{r: bufio.NewReader(r)}
}

// Next returns the next record, or io.EOF once the log is exhausted.
func (b *BinaryReader) Next() (Record, error) {
	var offset uint64
	if err := binary.Read(b.r, binary.LittleEndian, &offset); err != nil {
		return Record{}, err
	}

	var length int32
	if err := binary.Read(b.r, binary.LittleEndian, &length); err != nil {
		return Record{}, err
	}

	if length == BadSectorLength {
		return Record{Kind: KindBadSector, Offset: offset}, nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(b.r, payload); err != nil {
		return Record{}, err
	}
	return Record{Kind: KindFDE, Offset: offset, Payload: payload}, nil
}
