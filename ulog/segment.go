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

package ulog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// segmentExt is the on-disk extension for update-log segment files.
const segmentExt = ".ulog"

// segmentDigits is the zero-padded width of a segment ordinal.
const segmentDigits = 10

// segmentName renders ordinal as the 10-digit zero-padded segment filename.
func segmentName(ordinal uint64) string {
	return fmt.Sprintf("%0*d%s", segmentDigits, ordinal, segmentExt)
}

// segmentOrdinal parses a segment filename back to its ordinal. ok is false
// if name does not look like a segment file.
func segmentOrdinal(name string) (ordinal uint64, ok bool) {
	if !strings.HasSuffix(name, segmentExt) {
		return 0, false
	}

	base := strings.TrimSuffix(name, segmentExt)
	if len(base) != segmentDigits {
		return 0, false
	}

	n, err := strconv.ParseUint(base, 10, 64)
	if err != nil {
		return 0, false
	}

	return n, true
}

// listSegments returns every segment ordinal found in dir, ascending.
func listSegments(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ordinals []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if n, ok := segmentOrdinal(e.Name()); ok {
			ordinals = append(ordinals, n)
		}
	}

	sort.Slice(ordinals, func(i, j int) bool { return ordinals[i] < ordinals[j] })
	return ordinals, nil
}

func segmentPath(dir string, ordinal uint64) string {
	return filepath.Join(dir, segmentName(ordinal))
}

// ListSegments returns every update-log segment ordinal found in dir,
// ascending. Exported for inspection tooling (cmd/kvtyrantulmgr); the
// writer and reader use the unexported form internally.
func ListSegments(dir string) ([]uint64, error) {
	return listSegments(dir)
}

// SegmentPath returns the on-disk path of the segment identified by
// ordinal within dir.
func SegmentPath(dir string, ordinal uint64) string {
	return segmentPath(dir, ordinal)
}

// SegmentName renders ordinal as its zero-padded segment filename, with
// no directory component.
func SegmentName(ordinal uint64) string {
	return segmentName(ordinal)
}
