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

	libpol "github.com/nabbar/kvtyrant/errors/pool"
	libulg "github.com/nabbar/kvtyrant/ulog"
)

func newListCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "list <dir>",
		Short: "list update-log segments with their frame count and timestamp range",
		Args:  spfcbr.ExactArgs(1),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			return runList(args[0])
		},
	}
}

// segmentSummary describes one segment file's contents, collected by
// decoding it end to end since the on-disk format carries no index.
type segmentSummary struct {
	ordinal  uint64
	path     string
	frames   uint64
	firstTS  uint64
	lastTS   uint64
	corrupt  bool
	corruptAt uint64
}

func summarizeSegment(dir string, ordinal uint64) (segmentSummary, error) {
	path := libulg.SegmentPath(dir, ordinal)
	s := segmentSummary{ordinal: ordinal, path: path}

	f, err := os.Open(path)
	if err != nil {
		return s, err
	}
	defer func() { _ = f.Close() }()

	for {
		frame, derr := libulg.DecodeFrame(f)
		if derr != nil {
			if errors.Is(derr, io.EOF) {
				return s, nil
			}
			s.corrupt = true
			s.corruptAt = s.frames
			return s, nil
		}

		if s.frames == 0 {
			s.firstTS = frame.Timestamp
		}
		s.lastTS = frame.Timestamp
		s.frames++
	}
}

func runList(dir string) error {
	ordinals, err := libulg.ListSegments(dir)
	if err != nil {
		return err
	}

	if len(ordinals) == 0 {
		fmt.Println("no segments found")
		return nil
	}

	// One unreadable segment (permissions, a half-written rotation) should
	// not hide the status of every other segment: errors accumulate here
	// and are reported together after the table, rather than aborting the
	// listing at the first one.
	errs := libpol.New()

	fmt.Println("ordinal\tframes\tfirst_ts\tlast_ts\tstatus\tpath")
	for _, ord := range ordinals {
		s, err := summarizeSegment(dir, ord)
		if err != nil {
			errs.Add(fmt.Errorf("segment %d: %w", ord, err))
			continue
		}

		status := "ok"
		if s.corrupt {
			status = fmt.Sprintf("corrupt-after-frame-%d", s.corruptAt)
		}

		fmt.Printf("%d\t%d\t%d\t%d\t%s\t%s\n", s.ordinal, s.frames, s.firstTS, s.lastTS, status, s.path)
	}

	return errs.Error()
}
