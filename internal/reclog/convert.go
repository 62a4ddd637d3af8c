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
	"io"

	"github.com/scafiti/exfatrescue/internal/exfat"
	"github.com/scafiti/exfatrescue/internal/rescuerr"
)

// ConvertTextToBinary replays a textual log and re-reads device at each
// recorded FDE offset to recover the triple bytes, writing a binary log
// with the full payload. Bad-sector lines pass through unchanged. device
// is addressed by absolute byte offset, matching the offsets recorded by
// the scanning engine.
func ConvertTextToBinary(device io.ReaderAt, text *TextReader, bin *BinaryWriter) error {
	header := make([]byte, exfat.EntrySize)

	for {
		rec, err := text.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch rec.Kind {
		case KindBadSector:
			if err := bin.WriteBadSector(rec.Offset); err != nil {
				return err
			}

		case KindFDE:
			if _, err := device.ReadAt(header, int64(rec.Offset)); err != nil {
				return rescuerr.New(rescuerr.LogParse).AtOffset(rec.Offset).WrapError(err)
			}
			var entry exfat.RawEntry
			copy(entry[:], header)

			length := int(entry.Continuations()+1) * exfat.EntrySize
			triple := make([]byte, length)
			if _, err := device.ReadAt(triple, int64(rec.Offset)); err != nil {
				return rescuerr.New(rescuerr.LogParse).AtOffset(rec.Offset).WrapError(err)
			}

			if err := bin.WriteEntity(rec.Offset, triple); err != nil {
				return err
			}
		}
	}
}
