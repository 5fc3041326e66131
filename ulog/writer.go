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

// Package ulog implements the append-only, segmented update log: every
// successful mutating command (other than misc calls carrying the
// mono-ulog option) appends exactly one frame here, and the replication
// follower tails it through a Reader opened at a given start timestamp.
package ulog

import (
	"os"
	"sync"
)

// Writer appends mutation events to the update log, rotating segments as
// they cross Limit bytes.
type Writer interface {
	// Append writes one event under sid, stamping it with the next
	// monotonic microsecond timestamp, and returns that timestamp.
	Append(sid uint32, payload []byte) (uint64, error)

	// Sync flushes the current segment to durable storage.
	Sync() error

	// Close flushes and closes the current segment.
	Close() error
}

// WriterOptions configures a Writer.
type WriterOptions struct {
	// Dir is the update log directory. Created if absent.
	Dir string

	// Limit is the segment size threshold in bytes that triggers rotation
	// to a new segment once exceeded. 0 means unlimited (a single,
	// ever-growing segment).
	Limit int64

	// Async, when true, reports success to the caller as soon as the
	// frame is queued rather than after the write syscall returns. The
	// reference server calls this best-effort durability; the caller
	// accepts the tradeoff explicitly by setting this field.
	Async bool
}

type writer struct {
	mu sync.Mutex

	dir   string
	limit int64

	clk *clock

	async bool

	ordinal uint64
	f       *os.File
	size    int64
}

// NewWriter opens (creating if necessary) the update log directory and
// positions the writer at the end of the highest-numbered existing
// segment, ready to append.
func NewWriter(opt WriterOptions) (Writer, error) {
	if err := os.MkdirAll(opt.Dir, 0o750); err != nil {
		return nil, ErrorDirCreate.Error(err)
	}

	segs, err := listSegments(opt.Dir)
	if err != nil {
		return nil, ErrorDirCreate.Error(err)
	}

	w := &writer{
		dir:   opt.Dir,
		limit: opt.Limit,
		async: opt.Async,
		clk:   newClock(),
	}

	ordinal := uint64(1)
	if len(segs) > 0 {
		ordinal = segs[len(segs)-1]
	}

	if err = w.openSegment(ordinal); err != nil {
		return nil, err
	}

	return w, nil
}

func (w *writer) openSegment(ordinal uint64) error {
	f, err := os.OpenFile(segmentPath(w.dir, ordinal), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o640)
	if err != nil {
		return ErrorSegmentOpen.Error(err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return ErrorSegmentOpen.Error(err)
	}

	w.ordinal = ordinal
	w.f = f
	w.size = info.Size()

	return nil
}

func (w *writer) rotateIfNeeded() error {
	if w.limit <= 0 || w.size <= w.limit {
		return nil
	}

	if err := w.f.Close(); err != nil {
		return ErrorSegmentWrite.Error(err)
	}

	return w.openSegment(w.ordinal + 1)
}

func (w *writer) Append(sid uint32, payload []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ts := w.clk.next()

	frame := Frame{Timestamp: ts, SID: sid, Payload: payload}

	n, err := frame.Encode(w.f)
	if err != nil {
		return 0, ErrorSegmentWrite.Error(err)
	}

	w.size += int64(n)

	if !w.async {
		if err = w.f.Sync(); err != nil {
			return 0, ErrorSegmentWrite.Error(err)
		}
	}

	if err = w.rotateIfNeeded(); err != nil {
		return 0, err
	}

	return ts, nil
}

func (w *writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}

	return w.f.Sync()
}

func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}

	err := w.f.Sync()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	w.f = nil

	return err
}
