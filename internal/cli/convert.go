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

	"github.com/scafiti/exfatrescue/internal/fs"
	"github.com/scafiti/exfatrescue/internal/reclog"
)

func defineConvertCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "convert <device> <text-log> <binary-log>",
		Aliases:      []string{"textlog-to-binlog"},
		Short:        "Convert a textual recovery log to the compact binary log format",
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE:         runConvert,
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	devicePath, textPath, binPath := args[0], args[1], args[2]

	device, err := fs.Open(devicePath)
	if err != nil {
		return err
	}
	defer device.Close()

	textFile, err := os.Open(textPath)
	if err != nil {
		return err
	}
	defer textFile.Close()

	binFile, err := os.Create(binPath)
	if err != nil {
		return err
	}
	defer binFile.Close()

	text := reclog.NewTextReader(textFile)
	bin := reclog.NewBinaryWriter(binFile)

	return reclog.ConvertTextToBinary(device, text, bin)
}
