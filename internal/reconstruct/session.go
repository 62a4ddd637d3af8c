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
package reconstruct

import (
	"fmt"

	"github.com/scafiti/exfatrescue/internal/entity"
	"github.com/scafiti/exfatrescue/internal/logger"
)

// State is a reconstruction session's position in its lifecycle. Moving
// backward, or skipping straight to Extracted/MetadataWritten without
// first Loading, is a programmer error and rejected by Session's methods.
type State int

const (
	Opened State = iota
	Scanned
	LogPersisted
	Loaded
	Extracted
	MetadataWritten
	Both
	Closed
)

func (s State) String() string {
	switch s {
	case Opened:
		return "opened"
	case Scanned:
		return "scanned"
	case LogPersisted:
		return "log-persisted"
	case Loaded:
		return "loaded"
	case Extracted:
		return "extracted"
	case MetadataWritten:
		return "metadata-written"
	case Both:
		return "extracted+metadata-written"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session tracks one recovery run's progress through its source material:
// a device (or image) opened for reading, a recovery log produced by a
// sweep, the loaded entity tree, and whichever of extraction or metadata
// writeback have run against it.
type Session struct {
	state State
	src   Source
	root  *entity.Directory
	log   *logger.Logger
}

// NewSession starts a session against src, freshly opened.
func NewSession(src Source, log *logger.Logger) *Session {
	return &Session{state: Opened, src: src, log: log}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State { return s.state }

// MarkScanned records that a sweep has produced a recovery log.
func (s *Session) MarkScanned() error {
	if s.state != Opened {
		return fmt.Errorf("reconstruct: cannot mark scanned from state %s", s.state)
	}
	s.state = Scanned
	return nil
}

// MarkLogPersisted records that the recovery log has been durably
// written (text, binary, or both).
func (s *Session) MarkLogPersisted() error {
	if s.state != Scanned {
		return fmt.Errorf("reconstruct: cannot mark log-persisted from state %s", s.state)
	}
	s.state = LogPersisted
	return nil
}

// Load replays log through a Loader, adopts orphans, and stores the
// resulting root. Valid only from LogPersisted.
func (s *Session) Load(log LogReader) error {
	if s.state != LogPersisted {
		return fmt.Errorf("reconstruct: cannot load from state %s", s.state)
	}

	loader := NewLoader(s.src, s.log)
	if err := loader.LoadFromLog(log); err != nil {
		return err
	}
	s.root = loader.AdoptOrphans()
	s.state = Loaded
	return nil
}

// Root returns the loaded entity tree's synthesized root. Valid only once
// State is at least Loaded.
func (s *Session) Root() *entity.Directory { return s.root }

// Extract restores every contiguous file under the loaded tree to
// destination, transitioning Loaded→Extracted or MetadataWritten→Both.
func (s *Session) Extract(destination string) error {
	switch s.state {
	case Loaded, MetadataWritten:
	default:
		return fmt.Errorf("reconstruct: cannot extract from state %s", s.state)
	}

	if err := RestoreAll(s.root, s.src, destination, s.log); err != nil {
		return err
	}

	if s.state == MetadataWritten {
		s.state = Both
	} else {
		s.state = Extracted
	}
	return nil
}

// WriteMetadata builds and writes back a fresh metadata region describing
// geometry, transitioning Loaded→MetadataWritten or Extracted→Both.
func (s *Session) WriteMetadata(dst interface {
	WriteAt(p []byte, off int64) (int, error)
}, totalClusters, clusterSectors, sectorSize uint32) error {
	switch s.state {
	case Loaded, Extracted:
	default:
		return fmt.Errorf("reconstruct: cannot write metadata from state %s", s.state)
	}

	meta, err := InitMetadata(totalClusters, clusterSectors, sectorSize)
	if err != nil {
		return err
	}
	if err := Writeback(dst, meta); err != nil {
		return err
	}

	if s.state == Extracted {
		s.state = Both
	} else {
		s.state = MetadataWritten
	}
	return nil
}

// Close marks the session finished. Valid from any state.
func (s *Session) Close() {
	s.state = Closed
}
