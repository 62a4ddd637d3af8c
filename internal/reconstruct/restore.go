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
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/scafiti/exfatrescue/internal/entity"
	"github.com/scafiti/exfatrescue/internal/exfat"
	"github.com/scafiti/exfatrescue/internal/logger"
)

// RestoreAll walks root depth-first, materializing directory paths and
// streaming every contiguous file's data to destination. A non-contiguous
// file is logged as a warning and skipped rather than aborting the whole
// walk; every other per-file failure is collected and returned together
// once the walk completes.
func RestoreAll(root *entity.Directory, src Source, destination string, log *logger.Logger) error {
	return restoreDir(root, src, destination, log)
}

func restoreDir(dir *entity.Directory, src Source, destPath string, log *logger.Logger) error {
	if err := os.MkdirAll(destPath, 0o755); err != nil {
		return err
	}

	var errs *multierror.Error
	for _, child := range dir.Children() {
		childPath := filepath.Join(destPath, sanitizeName(child.Name()))

		switch c := child.(type) {
		case *entity.Directory:
			if err := restoreDir(c, src, childPath, log); err != nil {
				errs = multierror.Append(errs, err)
			}

		case *entity.File:
			if !c.Contiguous() {
				log.Warnf("skipping non-contiguous file %q at offset 0x%016x", c.Name(), c.Offset())
				continue
			}
			if err := restoreFile(c, src, childPath); err != nil {
				log.Errorf("restoring %q: %v", c.Name(), err)
				errs = multierror.Append(errs, err)
			}
		}
	}
	return errs.ErrorOrNil()
}

func restoreFile(f *entity.File, src Source, destPath string) error {
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	dataAt := func(off uint64, length int) ([]byte, error) {
		return src.At(exfat.ByteOffset(off), length)
	}
	clusterToOffset := func(cluster uint32) (uint64, error) {
		off, err := src.Geometry().ClusterToOffset(exfat.ClusterIndex(cluster))
		if err != nil {
			return 0, err
		}
		return uint64(src.PartitionStart() + off), nil
	}

	return f.CopyTo(out, dataAt, clusterToOffset)
}

// sanitizeName replaces path separators recovered in a (possibly
// corrupted) filename so extraction never writes outside destPath.
func sanitizeName(name string) string {
	if name == "" {
		return "_"
	}
	return filepath.Base(filepath.Clean("/" + name))
}
