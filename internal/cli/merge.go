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
package cli

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"io"
	mrand "math/rand/v2"
	"os"

	"github.com/spf13/cobra"

	"github.com/scafiti/exfatrescue/internal/logger"
	osutils "github.com/scafiti/exfatrescue/pkg/util/os"
)

// defineMergeCommand combines multiple files into a single flat disk image,
// with randomized padding between entries. Useful for building test
// fixtures for the scan and reconstruct commands without a real exFAT
// volume on hand. Gap sizes and gap contents are random, so two runs over
// the same inputs produce different images.
func defineMergeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "merge <file1> <file2> ...",
		Short:        "Merge multiple files into a single disk image for testing",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         runMerge,
	}

	cmd.Flags().StringP("output", "o", "", "path to the output disk image file (required)")
	cmd.Flags().Int("min-gap", 4*1024, "minimum gap size in bytes between files")
	cmd.Flags().Int("max-gap", 512*1024, "maximum gap size in bytes between files")
	cmd.Flags().Int("block-size", 512, "block size in bytes")

	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runMerge(cmd *cobra.Command, args []string) error {
	filePaths := make([]string, 0, len(args))
	for _, arg := range args {
		paths, err := osutils.ListFiles(arg)
		if err != nil {
			return err
		}
		filePaths = append(filePaths, paths...)
	}

	out, _ := cmd.Flags().GetString("output")

	minGap, _ := cmd.Flags().GetInt("min-gap")
	maxGap, _ := cmd.Flags().GetInt("max-gap")
	if minGap <= 0 {
		return fmt.Errorf("min-gap must be greater than 0")
	}
	if minGap > maxGap {
		return fmt.Errorf("min-gap (%d) cannot be greater than max-gap (%d)", minGap, maxGap)
	}

	blockSize, _ := cmd.Flags().GetInt("block-size")
	if blockSize <= 0 {
		return fmt.Errorf("block size must be greater than 0")
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	log := logger.New(os.Stdout, logger.InfoLevel)
	log.Infof("merging %d files into %s", len(filePaths), out)

	w := bufio.NewWriter(f)

	randGap := func() int {
		g := minGap + mrand.IntN(maxGap-minGap+1)
		return (g / blockSize) * blockSize
	}

	bytesWritten := int64(0)
	gapSize := randGap()
	for _, path := range filePaths {
		n, err := io.CopyN(w, rand.Reader, int64(gapSize))
		if err != nil {
			return err
		}
		bytesWritten += n

		nCopied, err := osutils.CopyFile(w, path)
		if err != nil {
			return err
		}
		bytesWritten += nCopied

		padding := int64(blockSize) - nCopied%int64(blockSize)
		gapSize = randGap() + int(padding)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing merged image: %w", err)
	}

	log.Infof("merge complete: %d bytes written", bytesWritten)
	return nil
}
