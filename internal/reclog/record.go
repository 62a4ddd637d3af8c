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

// Package reclog implements the scanning engine's recovery log: a
// streaming Writer that appends discoveries as they are found and a
// Reader that replays them in discovery order, in both a human-readable
// text form and a compact binary form for large partitions.
package reclog

// Kind discriminates a recovery log record.
type Kind int

const (
	// KindFDE records a candidate file-entry triple found at an offset.
	KindFDE Kind = iota
	// KindBadSector records an unreadable sector range.
	KindBadSector
)

// Record is one entry in a recovery log, in either text or binary form.
// Name is populated for KindFDE records from a text log; Payload is
// populated for KindFDE records from a binary log (the raw triple bytes).
type Record struct {
	Kind    Kind
	Offset  uint64
	Name    string
	Payload []byte
}

// BadSectorLength is the sentinel binary-log length value marking a
// bad-sector record (it carries no payload).
const BadSectorLength int32 = -1
