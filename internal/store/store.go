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

// Package store persists a reconstruction session's findings to a sidecar
// file next to the recovery log, independent of the device image itself:
// one row per loaded entity plus one row per directory that still had no
// parent when the session closed. A relational backend is a natural
// extension of Repository but is out of scope here; CSVRepository is the
// only implementation.
package store

import "github.com/scafiti/exfatrescue/internal/entity"

// EntityRecord is one row describing a loaded entity, independent of
// whatever in-memory tree it ended up attached to.
type EntityRecord struct {
	Offset       uint64 `csv:"offset"`
	ParentOffset uint64 `csv:"parent_offset"`
	Name         string `csv:"name"`
	Kind         string `csv:"kind"`
	FirstCluster uint32 `csv:"first_cluster"`
	DataSize     uint64 `csv:"data_size"`
	Contiguous   bool   `csv:"contiguous"`
	Copied       bool   `csv:"copied"`
}

// RelocationRecord notes that a directory was re-parented onto the
// synthesized root because no owning directory was ever found for it.
type RelocationRecord struct {
	Offset   uint64 `csv:"offset"`
	Name     string `csv:"name"`
	Reason   string `csv:"reason"`
}

// Repository is the persistence surface a reconstruction session writes
// its findings through. Implementations own both where and how records are
// stored; callers only ever see entity and relocation rows.
type Repository interface {
	UpsertEntity(rec EntityRecord) error
	UpsertRelocation(rec RelocationRecord) error
	MarkCopied(offset uint64) error
	IterOrphanDirs() ([]RelocationRecord, error)
	Close() error
}

// entityRecordOf translates a loaded entity into its persisted row. The
// parent offset is entity.InvalidOffset for anything still attached
// directly to a synthesized root, matching root's own sentinel offset.
func entityRecordOf(e entity.Entity) EntityRecord {
	rec := EntityRecord{
		Offset: e.Offset(),
		Name:   e.Name(),
	}
	if p := e.Parent(); p != nil {
		rec.ParentOffset = p.Offset()
	}
	switch v := e.(type) {
	case *entity.Directory:
		rec.Kind = "directory"
		rec.FirstCluster = v.FirstCluster()
		rec.DataSize = v.DataSize()
		rec.Contiguous = v.Contiguous()
	case *entity.File:
		rec.Kind = "file"
		rec.FirstCluster = v.FirstCluster()
		rec.DataSize = v.DataSize()
		rec.Contiguous = v.Contiguous()
	}
	return rec
}

// RecordTree walks root depth-first, upserting one EntityRecord per
// descendant (root itself, a synthesized sentinel, is never recorded) and
// one RelocationRecord for every directory that is a direct child of root,
// since those are exactly the directories that had no real parent when
// loading finished.
func RecordTree(root *entity.Directory, repo Repository) error {
	for _, child := range root.Children() {
		if _, isDir := child.(*entity.Directory); isDir {
			if err := repo.UpsertRelocation(RelocationRecord{
				Offset: child.Offset(),
				Name:   child.Name(),
				Reason: "no parent directory found during load",
			}); err != nil {
				return err
			}
		}
		if err := recordSubtree(child, repo); err != nil {
			return err
		}
	}
	return nil
}

func recordSubtree(e entity.Entity, repo Repository) error {
	if err := repo.UpsertEntity(entityRecordOf(e)); err != nil {
		return err
	}
	if dir, ok := e.(*entity.Directory); ok {
		for _, child := range dir.Children() {
			if err := recordSubtree(child, repo); err != nil {
				return err
			}
		}
	}
	return nil
}
