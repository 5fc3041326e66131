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
	"fmt"
	"io"
	"strconv"
	"strings"

	spfcbr "github.com/spf13/cobra"

	libulg "github.com/nabbar/kvtyrant/ulog"
)

func newImportCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "import <dir>",
		Short: "append frames read as ts\\tsid\\thex(payload) lines from stdin",
		Args:  spfcbr.ExactArgs(1),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			n, err := runImport(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d frames\n", n)
			return nil
		},
	}
}

// runImport appends one frame per well-formed input line. Lines that
// don't parse as ts\tsid\thex, or whose ts or sid is 0, are skipped,
// mirroring ttulmgr.c's procimport tolerance for blank/malformed separator
// lines. The update log assigns its own monotonic write timestamp (see
// ulog.Writer.Append); the imported ts is only used to validate the line
// and is not replayed onto the new frame, since the writer's frame header
// format has no caller-settable timestamp field.
func runImport(dir string, r io.Reader) (int, error) {
	w, err := libulg.NewWriter(libulg.WriterOptions{Dir: dir})
	if err != nil {
		return 0, err
	}
	defer func() { _ = w.Close() }()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)

	n := 0
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			continue
		}

		ts, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil || ts < 1 {
			continue
		}

		sid, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil || sid < 1 {
			continue
		}

		payload, err := hex.DecodeString(fields[2])
		if err != nil {
			continue
		}

		if _, err := w.Append(uint32(sid), payload); err != nil {
			return n, err
		}
		n++
	}

	if err := scanner.Err(); err != nil {
		return n, err
	}

	return n, nil
}
