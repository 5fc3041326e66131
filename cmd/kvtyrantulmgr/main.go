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

// Command kvtyrantulmgr inspects and repairs an update-log directory
// offline: list segments, export frames as hex-encoded TSV, replay a TSV
// export back in, or truncate a segment at its first corrupt frame.
// Mirrors ttulmgr.c's export/import shape (original_source); list and
// repair are additions this log format's segment-file layout makes cheap
// and operationally useful.
package main

import (
	"fmt"
	"os"

	spfcbr "github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *spfcbr.Command {
	root := &spfcbr.Command{
		Use:   "kvtyrantulmgr",
		Short: "inspect and repair an update-log directory",
	}

	root.AddCommand(
		newListCmd(),
		newExportCmd(),
		newImportCmd(),
		newRepairCmd(),
	)

	return root
}
