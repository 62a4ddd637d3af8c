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
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scafiti/exfatrescue/internal/logger"
	"github.com/scafiti/exfatrescue/internal/reclog"
	"github.com/scafiti/exfatrescue/internal/reconstruct"
	"github.com/scafiti/exfatrescue/internal/store"
	"github.com/scafiti/exfatrescue/internal/volume"
	osutils "github.com/scafiti/exfatrescue/pkg/util/os"
)

func defineReconstructCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconstruct <device> <log-file> <destination>",
		Short: "Load a recovery log, extract recovered files, and record what was found",
		Long: `The 'reconstruct' command replays a recovery log produced by 'scan' (or
converted by 'convert'), walks directory cluster chains to rebuild the
original tree as far as possible, adopts anything left orphaned onto a
synthesized root, and streams every recovered contiguous file under
destination. A CSV sidecar next to the log records every entity it saw
and every directory it had to adopt.`,
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE:         runReconstruct,
	}

	cmd.Flags().Bool("binary-log", false, "the log file is in the binary format, not the textual one")
	cmd.Flags().Bool("write-metadata", false, "also write a fresh metadata region describing the volume's geometry")
	cmd.Flags().Uint32("total-clusters", 0, "total cluster count to use when --write-metadata is set")
	cmd.Flags().Uint32("cluster-sectors", 8, "sectors per cluster to use when --write-metadata is set")

	return cmd
}

func runReconstruct(cmd *cobra.Command, args []string) error {
	devicePath, logPath, destination := args[0], args[1], args[2]

	if _, err := osutils.EnsureDir(destination, true); err != nil {
		return err
	}

	level, _ := cmd.Flags().GetString("log-level")
	log := logger.New(os.Stderr, logger.ParseLevel(level))

	writeMetadata, _ := cmd.Flags().GetBool("write-metadata")

	f, err := volume.Open(devicePath, writeMetadata)
	if err != nil {
		return err
	}
	defer f.Close()

	geometry, err := volume.DiscoverGeometry(f, 0)
	if err != nil {
		return fmt.Errorf("reconstruct: discover geometry: %w", err)
	}

	src, err := volume.Map(f, writeMetadata, geometry)
	if err != nil {
		return err
	}
	defer src.Close()

	logFile, err := os.Open(logPath)
	if err != nil {
		return err
	}
	defer logFile.Close()

	binary, _ := cmd.Flags().GetBool("binary-log")
	var logReader reconstruct.LogReader
	if binary {
		logReader = reclog.NewBinaryReader(logFile)
	} else {
		logReader = reclog.NewTextReader(logFile)
	}

	session := reconstruct.NewSession(src, log)
	if err := session.MarkScanned(); err != nil {
		return err
	}
	if err := session.MarkLogPersisted(); err != nil {
		return err
	}
	if err := session.Load(logReader); err != nil {
		return err
	}

	repo := store.NewCSVRepository(logPath)
	if err := store.RecordTree(session.Root(), repo); err != nil {
		return err
	}
	if err := repo.Close(); err != nil {
		return err
	}

	if err := session.Extract(destination); err != nil {
		return err
	}

	if writeMetadata {
		totalClusters, _ := cmd.Flags().GetUint32("total-clusters")
		clusterSectors, _ := cmd.Flags().GetUint32("cluster-sectors")
		if totalClusters == 0 {
			totalClusters = geometry.ClusterCount
		}
		if err := session.WriteMetadata(f, totalClusters, clusterSectors, geometry.SectorSize); err != nil {
			return err
		}
	}

	session.Close()

	log.Infof("reconstruction finished: state %s", strings.ToLower(session.State().String()))
	return nil
}
