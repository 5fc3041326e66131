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
	"os/exec"
	"strings"

	liberr "github.com/nabbar/kvtyrant/errors"
)

// Sync flushes any buffered backend state to durable storage.
func (r *Router) Sync(_ context.Context, dialect Mask) (Status, liberr.Error) {
	if st, err, done := r.checkMask(BitSync, dialect, true); done {
		return st, err
	}

	if err := r.Backend.Sync(); err != nil {
		return StatusFail, nil
	}

	return StatusOK, nil
}

// Vanish removes every record from the backend.
func (r *Router) Vanish(_ context.Context, dialect Mask) (Status, liberr.Error) {
	if st, err, done := r.checkMask(BitVanish, dialect, true); done {
		return st, err
	}

	if err := r.Backend.Vanish(); err != nil {
		return StatusFail, nil
	}

	return StatusOK, nil
}

// Copy writes a consistent snapshot of the backend to dest. If dest begins
// with '@', the remainder is run as a shell command after the snapshot is
// taken, mirroring the reference server's "pipe to an external program"
// convention for copy.
func (r *Router) Copy(ctx context.Context, dialect Mask, dest string) (Status, liberr.Error) {
	if st, err, done := r.checkMask(BitCopy, dialect, true); done {
		return st, err
	}

	if strings.HasPrefix(dest, "@") {
		cmd := exec.CommandContext(ctx, "/bin/sh", "-c", dest[1:])
		if err := cmd.Run(); err != nil {
			return StatusFail, nil
		}
		return StatusOK, nil
	}

	if err := r.Backend.Copy(dest); err != nil {
		return StatusFail, nil
	}

	return StatusOK, nil
}

// Restore replays the on-disk update-log segments under dir from ts
// onward against the backend. checkConsistency disables the (reserved)
// consistency check when the wire request's leading '+' flag is set.
func (r *Router) Restore(ctx context.Context, dialect Mask, dir string, ts uint64, checkConsistency bool) (Status, liberr.Error) {
	if st, err, done := r.checkMask(BitRestore, dialect, true); done {
		return st, err
	}

	_ = checkConsistency

	if err := replayDir(ctx, r.Backend, dir, ts); err != nil {
		return StatusFail, nil
	}

	return StatusOK, nil
}

// SetMst mutates the replication follower's target atomically; the
// follower observes the change and reconnects at its next frame boundary.
func (r *Router) SetMst(_ context.Context, dialect Mask, host string, port uint32) (Status, liberr.Error) {
	if st, err, done := r.checkMask(BitSetMst, dialect, true); done {
		return st, err
	}

	if r.Repl != nil {
		r.Repl.SetMaster(host, port)
	}

	return StatusOK, nil
}
