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
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	spfcbr "github.com/spf13/cobra"

	libulg "github.com/nabbar/kvtyrant/ulog"
)

func newExportCmd() *spfcbr.Command {
	var ts uint64
	var skipSID uint32

	cmd := &spfcbr.Command{
		Use:   "export <dir>",
		Short: "print every frame from ts onward as ts\\tsid\\thex(payload) lines",
		Args:  spfcbr.ExactArgs(1),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			return runExport(args[0], ts, skipSID, os.Stdout)
		},
	}

	cmd.Flags().Uint64Var(&ts, "ts", 0, "only frames with timestamp >= ts")
	cmd.Flags().Uint32Var(&skipSID, "sid", 0, "skip frames originating from this server id (0 skips none)")

	return cmd
}

// runExport walks every segment once, in ordinal order, printing frames
// whose timestamp is at or after ts and whose SID isn't skipSID. Unlike
// ulog.Reader it never blocks waiting for new frames: this is an offline
// inspection tool, grounded on ttulmgr.c's procexport, which reads the log
// to its current end and stops.
func runExport(dir string, ts uint64, skipSID uint32, w io.Writer) error {
	ordinals, err := libulg.ListSegments(dir)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	defer func() { _ = bw.Flush() }()

	for _, ord := range ordinals {
		if err := exportSegment(libulg.SegmentPath(dir, ord), ts, skipSID, bw); err != nil {
			return fmt.Errorf("segment %d: %w", ord, err)
		}
	}

	return bw.Flush()
}

func exportSegment(path string, ts uint64, skipSID uint32, bw *bufio.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	for {
		frame, derr := libulg.DecodeFrame(f)
		if derr != nil {
			if errors.Is(derr, io.EOF) {
				return nil
			}
			return derr
		}

		if frame.Timestamp < ts {
			continue
		}
		if skipSID != 0 && frame.SID == skipSID {
			continue
		}

		if _, err := fmt.Fprintf(bw, "%d\t%d\t%s\n", frame.Timestamp, frame.SID, hex.EncodeToString(frame.Payload)); err != nil {
			return err
		}
	}
}
