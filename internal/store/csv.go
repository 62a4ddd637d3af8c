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
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// CSVRepository is the default Repository: entities and relocations are
// buffered in memory as the session runs, then flushed to two sidecar
// files (<base>.entities.csv and <base>.relocations.csv) on Close.
type CSVRepository struct {
	entitiesPath    string
	relocationsPath string

	entities    []EntityRecord
	relocations []RelocationRecord
	byOffset    map[uint64]int
}

// NewCSVRepository builds a CSVRepository writing next to logPath, e.g.
// "recovery.log" yields "recovery.log.entities.csv" and
// "recovery.log.relocations.csv".
func NewCSVRepository(logPath string) *CSVRepository {
	return &CSVRepository{
		entitiesPath:    logPath + ".entities.csv",
		relocationsPath: logPath + ".relocations.csv",
		byOffset:        make(map[uint64]int),
	}
}

func (c *CSVRepository) UpsertEntity(rec EntityRecord) error {
	if idx, ok := c.byOffset[rec.Offset]; ok {
		c.entities[idx] = rec
		return nil
	}
	c.byOffset[rec.Offset] = len(c.entities)
	c.entities = append(c.entities, rec)
	return nil
}

func (c *CSVRepository) UpsertRelocation(rec RelocationRecord) error {
	c.relocations = append(c.relocations, rec)
	return nil
}

func (c *CSVRepository) MarkCopied(offset uint64) error {
	idx, ok := c.byOffset[offset]
	if !ok {
		return fmt.Errorf("store: no entity recorded at offset 0x%016x", offset)
	}
	c.entities[idx].Copied = true
	return nil
}

func (c *CSVRepository) IterOrphanDirs() ([]RelocationRecord, error) {
	out := make([]RelocationRecord, len(c.relocations))
	copy(out, c.relocations)
	return out, nil
}

// Close flushes both sidecar files to disk. It is safe to call even when
// nothing was ever recorded: empty CSVs (header row only) are written so a
// later run can tell "nothing found" from "never ran".
func (c *CSVRepository) Close() error {
	if err := os.MkdirAll(filepath.Dir(c.entitiesPath), 0o755); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := writeCSV(c.entitiesPath, &c.entities); err != nil {
		return err
	}
	if err := writeCSV(c.relocationsPath, &c.relocations); err != nil {
		return err
	}
	return nil
}

func writeCSV[T any](path string, rows *[]T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	return nil
}
