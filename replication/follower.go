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
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	libcmd "github.com/nabbar/kvtyrant/command"
	liblog "github.com/nabbar/kvtyrant/logger"
	loglvl "github.com/nabbar/kvtyrant/logger/level"
	libulg "github.com/nabbar/kvtyrant/ulog"
)

// ReconnectDelay is the fixed backoff the follower waits after any I/O
// error before retrying the whole connect sequence from scratch.
const ReconnectDelay = time.Second

// wireMagic and wireOpRepl mirror wire/binary's Magic and OpRepl. The
// follower dials the master's shared listener like any other binary-dialect
// client and must frame its request the same way: wire/binary already
// imports this package for Stream, so importing wire/binary back here would
// cycle — these two bytes are duplicated rather than exported just for this
// one caller.
const (
	wireMagic  byte = 0xC8
	wireOpRepl byte = 0xA0
)

// Applier is the subset of command.Router the follower drives to replay
// remote events.
type Applier interface {
	Replay(ctx context.Context, originSID uint32, payload []byte) error
}

type applierAdapter struct{ r *libcmd.Router }

func (a applierAdapter) Replay(ctx context.Context, originSID uint32, payload []byte) error {
	return a.r.Replay(ctx, originSID, payload)
}

// NewApplier adapts a *command.Router to Applier.
func NewApplier(r *libcmd.Router) Applier { return applierAdapter{r: r} }

// Follower tails a single master's update log into the local backend. It
// implements command.ReplControl so the router's setmst handler can retarget
// it live.
type Follower struct {
	mu sync.Mutex

	sid   uint32
	state *StateFile
	apply Applier
	log   liblog.FuncLog

	host string
	port uint32

	reconnect atomic.Bool

	warnedOnce atomic.Bool
}

// NewFollower builds a Follower with no master configured; callers reach
// that state through SetMaster (directly, or via the router's setmst
// command).
func NewFollower(sid uint32, state *StateFile, apply Applier, log liblog.FuncLog) *Follower {
	return &Follower{sid: sid, state: state, apply: apply, log: log}
}

// SetMaster atomically changes the follower's target. The running loop
// observes this at its next frame boundary and reconnects.
func (f *Follower) SetMaster(host string, port uint32) {
	f.mu.Lock()
	f.host, f.port = host, port
	f.mu.Unlock()

	f.reconnect.Store(true)
}

func (f *Follower) target() (string, uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.host, f.port
}

// Run drives the follower loop until ctx is cancelled: connect, stream,
// replay, and on any error wait ReconnectDelay and retry from the top. Only
// the first failure in a run of consecutive failures is logged, to avoid
// flooding the log while a master is down.
func (f *Follower) Run(ctx context.Context) {
	for ctx.Err() == nil {
		host, port := f.target()
		if host == "" {
			select {
			case <-ctx.Done():
				return
			case <-time.After(ReconnectDelay):
			}
			continue
		}

		if err := f.runOnce(ctx, host, port); err != nil {
			if !f.warnedOnce.Swap(true) && f.log != nil {
				f.log().Entry(loglvl.ErrorLevel, fmt.Sprintf("replication: lost connection to master %s:%d: %v", host, port, err)).Log()
			}
		} else {
			f.warnedOnce.Store(false)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(ReconnectDelay):
		}
	}
}

func (f *Follower) runOnce(ctx context.Context, host string, port uint32) error {
	lastTS, err := f.state.Load()
	if err != nil {
		return err
	}

	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return ErrorDial.Error(err)
	}
	defer func() { _ = conn.Close() }()

	// The shared listener picks a dialect by sniffing the connection's first
	// byte, then wire/binary.Serve reads an opcode byte before any frame
	// body: a repl request is [Magic][OpRepl][u64 ts][u32 sid], exactly like
	// every other binary-dialect frame, not the bare 12-byte body alone.
	var req [14]byte
	req[0] = wireMagic
	req[1] = wireOpRepl
	binary.BigEndian.PutUint64(req[2:10], lastTS+1)
	binary.BigEndian.PutUint32(req[10:14], f.sid)
	if _, err = conn.Write(req[:]); err != nil {
		return err
	}

	br := bufio.NewReader(conn)
	f.reconnect.Store(false)

	for {
		if f.reconnect.Load() {
			return nil
		}

		marker, err := br.ReadByte()
		if err != nil {
			return err
		}

		switch marker {
		case KeepaliveByte:
			continue
		case libulg.Magic:
			frame, err := libulg.DecodeFrame(io.MultiReader(bytes.NewReader([]byte{libulg.Magic}), br))
			if err != nil {
				return err
			}

			if frame.SID == f.sid {
				// Loop-prevention: this event originated here. Spec leaves
				// sid collisions between distinct servers undetected and
				// silently dropped; we replicate that behaviour verbatim
				// rather than validating uniqueness.
				continue
			}

			if err = f.apply.Replay(ctx, frame.SID, frame.Payload); err != nil {
				return err
			}

			if err = f.state.Save(frame.Timestamp); err != nil {
				return err
			}
		default:
			return ErrorFrameCorrupt.Error(nil)
		}
	}
}
