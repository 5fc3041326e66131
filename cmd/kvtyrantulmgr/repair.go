/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	spfcbr "github.com/spf13/cobra"

	libulg "github.com/nabbar/kvtyrant/ulog"
)

func newRepairCmd() *spfcbr.Command {
	var dryRun bool

	cmd := &spfcbr.Command{
		Use:   "repair <dir>",
		Short: "truncate every segment at its first corrupt frame",
		Args:  spfcbr.ExactArgs(1),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			return runRepair(args[0], dryRun, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be truncated without modifying any file")

	return cmd
}

func runRepair(dir string, dryRun bool, w io.Writer) error {
	ordinals, err := libulg.ListSegments(dir)
	if err != nil {
		return err
	}

	for _, ord := range ordinals {
		if err := repairSegment(dir, ord, dryRun, w); err != nil {
			return fmt.Errorf("segment %d: %w", ord, err)
		}
	}

	return nil
}

// repairSegment decodes frames from the start of the segment and, on the
// first corrupt frame, truncates the file to the end of the last
// good frame. A segment that decodes cleanly to EOF is left untouched.
func repairSegment(dir string, ordinal uint64, dryRun bool, w io.Writer) error {
	path := libulg.SegmentPath(dir, ordinal)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	for {
		before, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}

		_, derr := libulg.DecodeFrame(f)
		if derr != nil {
			if errors.Is(derr, io.EOF) {
				return nil
			}

			fmt.Fprintf(w, "%s: corrupt frame at offset %d, truncating\n", path, before)
			if dryRun {
				return nil
			}
			return f.Truncate(before)
		}
	}
}
