/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

// Package hooksyslog provides a logrus hook implementation for writing logs to syslog.
// This file handles connection aggregation: multiple hooks pointed at the same
// network/endpoint pair share one open connection, reference-counted so the last
// hook to close also closes the connection.
package hooksyslog

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime"
	"sync"

	libatm "github.com/nabbar/kvtyrant/atomic"
)

// ErrClosedResources is returned by a shared syslog connection after its last
// reference has been closed; callers must re-acquire via setAgg.
var ErrClosedResources = errors.New("hooksyslog: connection closed")

// localSyslogPaths lists the Unix domain sockets tried, in order, to reach the
// local syslog daemon when no remote endpoint is configured.
var localSyslogPaths = []string{"/dev/log", "/var/run/syslog", "/var/run/log"}

type connAgg struct {
	mu     sync.Mutex
	refs   int
	conn   net.Conn
	local  bool
	closed bool
}

func (c *connAgg) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosedResources
	}

	return c.conn.Write(p)
}

var agg = libatm.NewMapTyped[string, *connAgg]()

func init() {
	runtime.SetFinalizer(agg, func(a libatm.MapTyped[string, *connAgg]) {
		a.Range(func(k string, v *connAgg) bool {
			if v != nil {
				_ = v.conn.Close()
			}
			return true
		})
	})
}

func aggKey(network, endpoint string) string {
	return network + "|" + endpoint
}

// setAgg retrieves or creates the shared connection for network/endpoint,
// incrementing its reference count. It returns whether the resolved endpoint
// is the local syslog daemon, used by Fire() to pick the message layout.
func setAgg(network, endpoint string) (io.Writer, bool, error) {
	k := aggKey(network, endpoint)

	if i, ok := agg.Load(k); ok && i != nil {
		i.mu.Lock()
		i.refs++
		i.mu.Unlock()
		return i, i.local, nil
	}

	i, e := newAgg(network, endpoint)
	if e != nil {
		return nil, false, e
	}

	agg.Store(k, i)
	return i, i.local, nil
}

// delAgg decrements the reference count for network/endpoint, closing the
// underlying connection once it reaches zero.
func delAgg(network, endpoint string) {
	k := aggKey(network, endpoint)

	i, ok := agg.Load(k)
	if !ok || i == nil {
		return
	}

	i.mu.Lock()
	i.refs--
	done := i.refs <= 0
	if done {
		i.closed = true
	}
	i.mu.Unlock()

	if done {
		agg.Delete(k)
		_ = i.conn.Close()
	}
}

func newAgg(network, endpoint string) (*connAgg, error) {
	local := false

	if endpoint == "" {
		n, e, err := systemSyslog()
		if err != nil {
			return nil, err
		}
		network, endpoint = n, e
		local = true
	}

	c, e := net.Dial(network, endpoint)
	if e != nil {
		return nil, e
	}

	return &connAgg{refs: 1, conn: c, local: local}, nil
}

// systemSyslog locates the local syslog daemon's Unix domain socket.
func systemSyslog() (string, string, error) {
	for _, p := range localSyslogPaths {
		if fi, e := os.Stat(p); e == nil && fi.Mode()&os.ModeSocket != 0 {
			return "unixgram", p, nil
		}
	}

	return "", "", fmt.Errorf("hooksyslog: no local syslog socket found")
}

// ResetOpenSyslog closes all active syslog connections and clears the registry.
// Used by tests to reset global state between cases.
func ResetOpenSyslog() {
	agg.Range(func(k string, v *connAgg) bool {
		if v != nil {
			_ = v.conn.Close()
		}
		agg.Delete(k)
		return true
	})
}
