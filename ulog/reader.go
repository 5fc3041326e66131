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
	"context"
	"errors"
	"io"
	"os"
	"time"
)

// DefaultMaxBackoff is the reference poll backoff ceiling when the reader
// has caught up with the writer.
const DefaultMaxBackoff = time.Second

// Reader is a cursor over the update log that resumes from a timestamp and
// emits frames in order, blocking (with polling backoff) when caught up.
type Reader interface {
	// Next blocks until a frame is available, ctx is done, or the reader
	// is closed. Returns the frame and its timestamp in that case.
	Next(ctx context.Context) (Frame, error)

	// Close stops the reader. Any blocked Next call returns
	// ErrorReaderClosed.
	Close() error
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	// Dir is the update log directory to read.
	Dir string

	// StartTS is the timestamp to resume from: the first frame returned
	// has Timestamp >= StartTS.
	StartTS uint64

	// MaxBackoff caps the polling delay once the reader has caught up
	// with the writer. Defaults to DefaultMaxBackoff.
	MaxBackoff time.Duration
}

type reader struct {
	dir        string
	startTS    uint64
	maxBackoff time.Duration

	ordinal uint64
	f       *os.File

	closed chan struct{}
}

// NewReader opens a Reader positioned at the earliest segment that could
// contain a frame with Timestamp >= opt.StartTS.
func NewReader(opt ReaderOptions) (Reader, error) {
	if opt.MaxBackoff <= 0 {
		opt.MaxBackoff = DefaultMaxBackoff
	}

	segs, err := listSegments(opt.Dir)
	if err != nil {
		return nil, ErrorSegmentOpen.Error(err)
	}

	r := &reader{
		dir:        opt.Dir,
		startTS:    opt.StartTS,
		maxBackoff: opt.MaxBackoff,
		closed:     make(chan struct{}),
	}

	ordinal := uint64(1)
	if len(segs) > 0 {
		ordinal = segs[0]
	}

	if err = r.openSegment(ordinal); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *reader) openSegment(ordinal uint64) error {
	f, err := os.Open(segmentPath(r.dir, ordinal))
	if err != nil {
		return ErrorSegmentOpen.Error(err)
	}

	r.ordinal = ordinal
	r.f = f

	return nil
}

// advanceSegment tries to move to the next-numbered segment, including
// segments created after this reader was opened.
func (r *reader) advanceSegment() bool {
	next := r.ordinal + 1

	f, err := os.Open(segmentPath(r.dir, next))
	if err != nil {
		return false
	}

	_ = r.f.Close()
	r.ordinal = next
	r.f = f

	return true
}

func (r *reader) Next(ctx context.Context) (Frame, error) {
	backoff := 10 * time.Millisecond

	for {
		select {
		case <-r.closed:
			return Frame{}, ErrorReaderClosed.Error(nil)
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		default:
		}

		f, err := DecodeFrame(r.f)
		if err == nil {
			if f.Timestamp < r.startTS {
				continue
			}
			return f, nil
		}

		if !errors.Is(err, io.EOF) {
			return Frame{}, err
		}

		if r.advanceSegment() {
			backoff = 10 * time.Millisecond
			continue
		}

		select {
		case <-r.closed:
			return Frame{}, ErrorReaderClosed.Error(nil)
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-time.After(backoff):
		}

		if backoff < r.maxBackoff {
			backoff *= 2
			if backoff > r.maxBackoff {
				backoff = r.maxBackoff
			}
		}
	}
}

func (r *reader) Close() error {
	select {
	case <-r.closed:
		return nil
	default:
		close(r.closed)
	}

	if r.f != nil {
		return r.f.Close()
	}

	return nil
}
