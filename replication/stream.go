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

package replication

import (
	"context"
	"io"
	"time"

	libulg "github.com/nabbar/kvtyrant/ulog"
)

// KeepaliveByte is the 1-byte idle marker the master-side stream writes
// periodically so the follower can detect a dead connection. EventByte is
// ulog.Magic: the reference server's repl event frame IS an on-disk ulog
// frame, read straight off the log rather than re-encoded.
const KeepaliveByte = 0xC9

// KeepaliveInterval is how often the master writes a keepalive byte while
// the follower has caught up and the stream would otherwise sit idle.
// Callers pass their own interval to Stream; zero or negative selects this
// default.
const KeepaliveInterval = 10 * time.Second

// Stream is the master side of the repl command: it tails the update log
// from ts and writes each frame (or periodic keepalives) to w. It never
// times out on its own — the caller keeps reading until the connection
// drops or ctx is cancelled.
func Stream(ctx context.Context, w io.Writer, rd libulg.Reader, interval time.Duration) error {
	if interval <= 0 {
		interval = KeepaliveInterval
	}

	for {
		c, cancel := context.WithTimeout(ctx, interval)
		f, err := rd.Next(c)
		cancel()

		if err == nil {
			if _, werr := f.Encode(w); werr != nil {
				return werr
			}
			continue
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Reader.Next timed out against our interval context, not ctx
		// itself: the follower is caught up, emit a keepalive and loop.
		if _, werr := w.Write([]byte{KeepaliveByte}); werr != nil {
			return werr
		}
	}
}
