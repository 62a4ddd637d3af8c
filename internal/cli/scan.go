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
	"os"

	"github.com/spf13/cobra"

	"github.com/scafiti/exfatrescue/internal/logger"
	"github.com/scafiti/exfatrescue/internal/reclog"
	"github.com/scafiti/exfatrescue/internal/scan"
	"github.com/scafiti/exfatrescue/internal/volume"
)

func defineScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "scan <device> <log-file>",
		Short:        "Sweep a device or image for exFAT file directory entries",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         runScan,
	}

	cmd.Flags().Uint64("start-offset", 0, "absolute byte offset to start the sweep at")
	cmd.Flags().Uint64("end-offset", 0, "absolute byte offset to end the sweep at (0 means to end of device)")
	cmd.Flags().Bool("progress", true, "show a progress bar while scanning")

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	devicePath, logPath := args[0], args[1]

	level, _ := cmd.Flags().GetString("log-level")
	log := logger.New(os.Stderr, logger.ParseLevel(level))

	f, err := volume.Open(devicePath, false)
	if err != nil {
		return err
	}
	defer f.Close()

	size, err := volume.DeviceSize(f)
	if err != nil {
		return err
	}

	out, err := os.Create(logPath)
	if err != nil {
		return err
	}
	defer out.Close()

	sink := reclog.NewTextWriter(out)

	startOffset, _ := cmd.Flags().GetUint64("start-offset")
	endOffset, _ := cmd.Flags().GetUint64("end-offset")
	showProgress, _ := cmd.Flags().GetBool("progress")

	scanner := scan.New(f, sink, scan.Options{
		StartOffset: startOffset,
		EndOffset:   endOffset,
		Logger:      log,
		ShowBar:     showProgress,
	})

	return scanner.Run(size)
}
