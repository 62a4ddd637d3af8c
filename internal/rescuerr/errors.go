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

// Package rescuerr defines the typed error kinds raised by the recovery
// pipeline, chainable the way a disk driver's errors are: each kind can be
// narrowed with WithMessage or wrap an underlying cause with WrapError, and
// every kind supports errors.Is/errors.As against the sentinel values below.
package rescuerr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories a recovery session can raise.
type Kind int

const (
	DeviceUnavailable Kind = iota
	MappingFailed
	InvalidEntity
	InvalidCluster
	NonContiguous
	ShortWrite
	DestinationError
	BadSector
	LogParse
	WritebackFailed
)

func (k Kind) String() string {
	switch k {
	case DeviceUnavailable:
		return "device unavailable"
	case MappingFailed:
		return "mapping failed"
	case InvalidEntity:
		return "invalid entity"
	case InvalidCluster:
		return "invalid cluster"
	case NonContiguous:
		return "non-contiguous file"
	case ShortWrite:
		return "short write"
	case DestinationError:
		return "destination error"
	case BadSector:
		return "bad sector"
	case LogParse:
		return "recovery log parse error"
	case WritebackFailed:
		return "metadata writeback failed"
	default:
		return "unknown error"
	}
}

// EntityReason narrows an InvalidEntity error to the specific validation
// that failed while loading a candidate metadata entry.
type EntityReason int

const (
	BadType EntityReason = iota
	BadContinuationCount
	BadChecksum
	BadNameLength
)

func (r EntityReason) String() string {
	switch r {
	case BadType:
		return "unexpected entry type"
	case BadContinuationCount:
		return "continuation count out of range"
	case BadChecksum:
		return "set checksum mismatch"
	case BadNameLength:
		return "name length does not match continuation count"
	default:
		return "unknown reason"
	}
}

// Sentinel kind errors usable with errors.Is. Every RescueError matches the
// one for its kind through its Is method, so callers can write
// errors.Is(err, rescuerr.ErrBadSector) regardless of how much message
// context was chained on top.
var (
	ErrDeviceUnavailable = errors.New(DeviceUnavailable.String())
	ErrMappingFailed     = errors.New(MappingFailed.String())
	ErrInvalidEntity     = errors.New(InvalidEntity.String())
	ErrInvalidCluster    = errors.New(InvalidCluster.String())
	ErrNonContiguous     = errors.New(NonContiguous.String())
	ErrShortWrite        = errors.New(ShortWrite.String())
	ErrDestinationError  = errors.New(DestinationError.String())
	ErrBadSector         = errors.New(BadSector.String())
	ErrLogParse          = errors.New(LogParse.String())
	ErrWritebackFailed   = errors.New(WritebackFailed.String())
)

func sentinelFor(k Kind) error {
	switch k {
	case DeviceUnavailable:
		return ErrDeviceUnavailable
	case MappingFailed:
		return ErrMappingFailed
	case InvalidEntity:
		return ErrInvalidEntity
	case InvalidCluster:
		return ErrInvalidCluster
	case NonContiguous:
		return ErrNonContiguous
	case ShortWrite:
		return ErrShortWrite
	case DestinationError:
		return ErrDestinationError
	case BadSector:
		return ErrBadSector
	case LogParse:
		return ErrLogParse
	case WritebackFailed:
		return ErrWritebackFailed
	default:
		return errors.New(k.String())
	}
}

// RescueError is a typed, chainable error. Its Is method matches the
// sentinel for its Kind, so a caller can test the category with errors.Is
// without caring how it was constructed. Unwrap yields the wrapped cause
// when there is one, and the sentinel otherwise.
type RescueError struct {
	kind    Kind
	reason  *EntityReason
	offset  uint64
	hasOff  bool
	message string
	cause   error
}

// New creates a bare error of the given kind.
func New(kind Kind) *RescueError {
	return &RescueError{kind: kind}
}

// NewInvalidEntity creates an InvalidEntity error narrowed to reason.
func NewInvalidEntity(reason EntityReason) *RescueError {
	r := reason
	return &RescueError{kind: InvalidEntity, reason: &r}
}

// Kind reports the error's category.
func (e *RescueError) Kind() Kind { return e.kind }

// Reason reports the InvalidEntity sub-reason, if any.
func (e *RescueError) Reason() (EntityReason, bool) {
	if e.reason == nil {
		return 0, false
	}
	return *e.reason, true
}

// Offset reports the byte offset this error pertains to, if one was attached.
func (e *RescueError) Offset() (uint64, bool) { return e.offset, e.hasOff }

// AtOffset returns a copy of the error carrying the given byte offset.
func (e *RescueError) AtOffset(off uint64) *RescueError {
	n := *e
	n.offset = off
	n.hasOff = true
	return &n
}

// WithMessage returns a copy of the error with additional context appended
// to its message, in the style of dargueta-disko's DriverError.WithMessage.
func (e *RescueError) WithMessage(message string) *RescueError {
	n := *e
	if n.message == "" {
		n.message = message
	} else {
		n.message = fmt.Sprintf("%s: %s", n.message, message)
	}
	return &n
}

// WrapError returns a copy of the error wrapping cause as its Unwrap target
// underneath the kind sentinel.
func (e *RescueError) WrapError(cause error) *RescueError {
	n := *e
	n.cause = cause
	return &n
}

func (e *RescueError) Error() string {
	base := e.kind.String()
	if e.reason != nil {
		base = fmt.Sprintf("%s: %s", base, e.reason.String())
	}
	if e.hasOff {
		base = fmt.Sprintf("%s at offset 0x%016x", base, e.offset)
	}
	if e.message != "" {
		base = fmt.Sprintf("%s: %s", base, e.message)
	}
	if e.cause != nil {
		base = fmt.Sprintf("%s: %s", base, e.cause.Error())
	}
	return base
}

// Unwrap exposes the wrapped cause (if any) and otherwise the kind's
// sentinel, so errors.Is(err, ErrBadSector) matches even when WrapError was
// never called.
func (e *RescueError) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return sentinelFor(e.kind)
}

// Is reports whether target is the sentinel for this error's kind, letting
// errors.Is(err, rescuerr.ErrInvalidCluster) work without forcing callers to
// unwrap chains of WithMessage/WrapError calls by hand.
func (e *RescueError) Is(target error) bool {
	return target == sentinelFor(e.kind)
}
