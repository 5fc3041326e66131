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

// Package command implements the dialect-independent core: the access
// mask, the mutation wrapper that couples backend writes to update-log
// emission under the right stripe lock, and one handler per command in
// spec §4.6. The three wire packages each translate their own framing into
// calls on a Router and their own framing back out of a Status.
package command

import (
	"context"
	"sync/atomic"

	libbck "github.com/nabbar/kvtyrant/database/backend"
	liberr "github.com/nabbar/kvtyrant/errors"
	libstr "github.com/nabbar/kvtyrant/stripe"
	libulg "github.com/nabbar/kvtyrant/ulog"
)

// Status is the single-byte response status shared by every dialect: 0
// means success, any non-zero value is a command-specific failure meaning
// (see spec §4.6/§6.1). The router deliberately does not mint a distinct
// status for "forbidden by mask" on management commands: it reuses
// StatusFail, the same value a genuine backend failure would produce, so a
// client cannot tell the two apart. This is documented, not accidental.
type Status = uint8

const (
	StatusOK   Status = 0
	StatusFail Status = 1
)

// ScriptHost is the subset of the scripting extension hook the router
// drives for the ext command. Implemented by package script.
type ScriptHost interface {
	Invoke(ctx context.Context, name string, key, val []byte) ([]byte, error)
}

// ReplControl is the subset of the replication follower the router drives
// for setmst. Implemented by package replication.
type ReplControl interface {
	SetMaster(host string, port uint32)
}

// Router dispatches every wire-level command onto the backend, the stripe
// array and the update log.
type Router struct {
	Backend libbck.Backend
	Stripes libstr.Stripes
	Log     libulg.Writer
	Script  ScriptHost
	Repl    ReplControl

	// SID is this server's origin-sid, stamped on every locally-produced
	// log event.
	SID uint32

	// LogDir is the update-log directory, reopened read-only by ReplReader
	// for the repl and restore handlers.
	LogDir string

	mask atomic.Uint64
}

// New builds a Router. back, strp and log must be non-nil; Script and Repl
// may be nil if those features are not wired up, in which case ext and
// setmst fail with ErrorNoScript / are silently ignored respectively.
func New(back libbck.Backend, strp libstr.Stripes, log libulg.Writer, sid uint32, logDir string) *Router {
	return &Router{Backend: back, Stripes: strp, Log: log, SID: sid, LogDir: logDir}
}

// ReplReader opens a fresh update-log Reader positioned at ts, for the repl
// command's master-side streaming handler.
func (r *Router) ReplReader(ts uint64) (libulg.Reader, error) {
	return libulg.NewReader(libulg.ReaderOptions{Dir: r.LogDir, StartTS: ts})
}

// SetMask atomically replaces the access mask.
func (r *Router) SetMask(m Mask) {
	r.mask.Store(uint64(m))
}

// Mask returns the current access mask.
func (r *Router) Mask() Mask {
	return Mask(r.mask.Load())
}

// forbidden reports whether bit is denied for dialect under the current
// mask.
func (r *Router) forbidden(bit, dialect Mask) bool {
	return r.Mask().Forbidden(bit, dialect)
}

// mutate runs op under the stripe lock for key (unless key is nil, for
// whole-database operations like vanish/restore which the caller already
// serialises some other way), then appends op's returned payload to the
// update log unless monoUlog is set. origin is the sid to stamp the log
// event with: the router's own SID for locally originated mutations, or the
// original producer's sid when replaying a replication stream.
func (r *Router) mutate(ctx context.Context, key []byte, monoUlog bool, origin uint32, op func() ([]byte, Status, liberr.Error)) (Status, liberr.Error) {
	if key != nil {
		if err := r.Stripes.Lock(ctx, key); err != nil {
			return StatusFail, liberr.Make(err)
		}
		defer r.Stripes.Unlock(key)
	}

	payload, status, err := op()
	if err != nil || status != StatusOK {
		return status, err
	}

	if !monoUlog && r.Log != nil {
		if _, e := r.Log.Append(origin, payload); e != nil {
			return StatusFail, liberr.Make(e)
		}
	}

	return StatusOK, nil
}
