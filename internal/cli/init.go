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
	"github.com/spf13/cobra"

	"github.com/scafiti/exfatrescue/internal/reconstruct"
	"github.com/scafiti/exfatrescue/internal/volume"
)

// defineInitCommand writes a fresh metadata region directly, with no log
// to replay first: useful for preparing a blank target image to restore
// extracted files onto, or for regression-testing Writeback in isolation.
func defineInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "init <image>",
		Short:        "Write a fresh, empty exFAT metadata region to an image",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runInit,
	}

	cmd.Flags().Uint32("total-clusters", 65536, "total cluster count")
	cmd.Flags().Uint32("cluster-sectors", 8, "sectors per cluster")
	cmd.Flags().Uint32("sector-size", 512, "bytes per sector")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	imagePath := args[0]

	f, err := volume.Open(imagePath, true)
	if err != nil {
		return err
	}
	defer f.Close()

	totalClusters, _ := cmd.Flags().GetUint32("total-clusters")
	clusterSectors, _ := cmd.Flags().GetUint32("cluster-sectors")
	sectorSize, _ := cmd.Flags().GetUint32("sector-size")

	meta, err := reconstruct.InitMetadata(totalClusters, clusterSectors, sectorSize)
	if err != nil {
		return err
	}
	return reconstruct.Writeback(f, meta)
}
