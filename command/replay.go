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

package command

import (
	"context"
	"errors"
	"time"

	libbck "github.com/nabbar/kvtyrant/database/backend"
	liberr "github.com/nabbar/kvtyrant/errors"
	libulg "github.com/nabbar/kvtyrant/ulog"
)

// Replay applies a replicated update-log payload to the local backend
// through the MUTATION WRAPPER: the stripe lock for the event's key is
// taken as usual, but the re-emitted local log entry is stamped with
// originSID (the producer that first wrote it), not this router's own SID,
// so the event's provenance survives further replication hops. The
// follower calls this once per frame it decides is worth applying (after
// its own origin-sid loop-prevention check).
func (r *Router) Replay(ctx context.Context, originSID uint32, payload []byte) liberr.Error {
	entry, ok := DecodeLogEntry(payload)
	if !ok {
		return ErrorInvalidArgs.Error(nil)
	}

	_, err := r.mutate(ctx, entry.Key, false, originSID, func() ([]byte, Status, liberr.Error) {
		if e := ApplyLogEntry(r.Backend, entry); e != nil {
			return nil, StatusFail, liberr.Make(e)
		}
		return payload, StatusOK, nil
	})

	return err
}

// replayIdleGap is how long replayDir waits for one more frame before
// deciding the log has been fully drained and the restore is complete.
// Unlike a live replication tail, a restore has a definite end.
const replayIdleGap = 150 * time.Millisecond

// replayDir reads every update-log frame under dir from ts onward and
// applies it to back, stopping once no further frame arrives within
// replayIdleGap.
func replayDir(ctx context.Context, back libbck.Backend, dir string, ts uint64) error {
	rd, err := libulg.NewReader(libulg.ReaderOptions{Dir: dir, StartTS: ts})
	if err != nil {
		return err
	}
	defer func() { _ = rd.Close() }()

	for {
		c, cancel := context.WithTimeout(ctx, replayIdleGap)
		f, err := rd.Next(c)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		entry, ok := DecodeLogEntry(f.Payload)
		if !ok {
			continue
		}

		if err = ApplyLogEntry(back, entry); err != nil {
			return err
		}
	}
}

// ApplyLogEntry applies a decoded update-log entry directly to back,
// bypassing the stripe lock and the router mask: both the restore handler
// and the replication follower call this once they already hold whatever
// serialisation they need (the follower through the MUTATION WRAPPER, the
// restore handler because nothing else can be writing to a backend mid
// restore).
func ApplyLogEntry(back libbck.Backend, entry LogEntry) error {
	switch entry.Op {
	case logOpPut:
		return back.Put(entry.Key, entry.Value)
	case logOpPutCat:
		return back.PutCat(entry.Key, entry.Value)
	case logOpOut:
		err := back.Out(entry.Key)
		if errors.Is(err, libbck.ErrorNoRecord.Error(nil)) {
			return nil
		}
		return err
	case logOpAddInt:
		_, err := back.AddInt(entry.Key, entry.Delta)
		return err
	case logOpAddDouble:
		_, err := back.AddDouble(entry.Key, entry.DeltaF)
		return err
	}

	return nil
}
