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
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	liberr "github.com/nabbar/kvtyrant/errors"
)

// Version is the server version string reported by Stat. Overridden at
// build time by the cmd/kvtyrantd main package where possible.
var Version = "dev"

// RNum returns the current record count.
func (r *Router) RNum(_ context.Context, dialect Mask) (int64, Status, liberr.Error) {
	if st, err, done := r.checkMask(BitRNum, dialect, false); done {
		return 0, st, err
	}

	n, err := r.Backend.RNum()
	if err != nil {
		return 0, StatusFail, liberr.Make(err)
	}

	return n, StatusOK, nil
}

// Size returns the approximate backend byte size.
func (r *Router) Size(_ context.Context, dialect Mask) (int64, Status, liberr.Error) {
	if st, err, done := r.checkMask(BitSize, dialect, false); done {
		return 0, st, err
	}

	n, err := r.Backend.Size()
	if err != nil {
		return 0, StatusFail, liberr.Make(err)
	}

	return n, StatusOK, nil
}

// StatInfo is the structured form of the stat command's report, rendered
// to a TSV block by the wire packages.
type StatInfo struct {
	Version     string
	Time        time.Time
	PID         int
	SID         uint32
	BackendType string
	RNum        int64
	Size        int64
	BigEndian   bool
	ReplHost    string
	ReplPort    uint32
	GoMaxProcs  int
}

// Stat reports version, time, pid, sid, backend-type tag, record count,
// byte size, endianness and replication target, and a minimal resource
// usage figure — the same shape as the reference server's status block.
func (r *Router) Stat(ctx context.Context, dialect Mask, replHost string, replPort uint32) (StatInfo, Status, liberr.Error) {
	if st, err, done := r.checkMask(BitStat, dialect, false); done {
		return StatInfo{}, st, err
	}

	rnum, err := r.Backend.RNum()
	if err != nil {
		return StatInfo{}, StatusFail, liberr.Make(err)
	}

	size, err := r.Backend.Size()
	if err != nil {
		return StatInfo{}, StatusFail, liberr.Make(err)
	}

	return StatInfo{
		Version:     Version,
		Time:        time.Now(),
		PID:         os.Getpid(),
		SID:         r.SID,
		BackendType: r.Backend.Mode(),
		RNum:        rnum,
		Size:        size,
		BigEndian:   false,
		ReplHost:    replHost,
		ReplPort:    replPort,
		GoMaxProcs:  runtime.GOMAXPROCS(0),
	}, StatusOK, nil
}

// TSV renders a StatInfo as newline-terminated key\tvalue lines, which the
// text and binary dialects both embed verbatim in their stat response.
func (s StatInfo) TSV() string {
	var b strings.Builder

	fmt.Fprintf(&b, "version\t%s\n", s.Version)
	fmt.Fprintf(&b, "time\t%d\n", s.Time.Unix())
	fmt.Fprintf(&b, "pid\t%d\n", s.PID)
	fmt.Fprintf(&b, "sid\t%d\n", s.SID)
	fmt.Fprintf(&b, "type\t%s\n", s.BackendType)
	fmt.Fprintf(&b, "rnum\t%d\n", s.RNum)
	fmt.Fprintf(&b, "size\t%d\n", s.Size)
	if s.BigEndian {
		fmt.Fprintf(&b, "bigend\t1\n")
	} else {
		fmt.Fprintf(&b, "bigend\t0\n")
	}
	if s.ReplHost != "" {
		fmt.Fprintf(&b, "mhost\t%s\n", s.ReplHost)
		fmt.Fprintf(&b, "mport\t%d\n", s.ReplPort)
	}
	fmt.Fprintf(&b, "gomaxprocs\t%d\n", s.GoMaxProcs)

	return b.String()
}
