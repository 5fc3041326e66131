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

package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	libcmd "github.com/nabbar/kvtyrant/command"
	liberr "github.com/nabbar/kvtyrant/errors"
	liblog "github.com/nabbar/kvtyrant/logger"
	loglvl "github.com/nabbar/kvtyrant/logger/level"
	libbin "github.com/nabbar/kvtyrant/wire/binary"
	libhttp "github.com/nabbar/kvtyrant/wire/httpwire"
	libtxt "github.com/nabbar/kvtyrant/wire/text"
)

// DefaultWorkers is the reference server's default worker pool size.
const DefaultWorkers = 8

// Options configures a Server.
type Options struct {
	// Addr is the single listen endpoint shared by all three dialects.
	Addr string

	// Workers is the fixed pool size; DefaultWorkers if zero.
	Workers int

	// IdleTimeout bounds how long a connection may sit with no bytes in
	// flight before being closed; zero means no timeout.
	IdleTimeout time.Duration

	// Router is the dialect-independent command core every decoder calls
	// into.
	Router *libcmd.Router

	// Log, if set, receives lifecycle and per-connection error events.
	Log liblog.FuncLog
}

// Server owns the listener and the fixed worker pool draining it. Each
// worker accepts a connection, sniffs its dialect, and drives that
// dialect's request loop to completion before accepting again — per
// spec.md §4.1, a work-stealing design (one acceptor, N handlers off a
// queue) would satisfy the same externally visible contract, but this is
// the simpler shape and bounds concurrency identically.
type Server struct {
	opt Options
	ln  net.Listener

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// New builds a Server. It does not bind the listener until Run is called.
func New(opt Options) *Server {
	if opt.Workers <= 0 {
		opt.Workers = DefaultWorkers
	}
	return &Server{opt: opt}
}

func (s *Server) log() liblog.FuncLog {
	return s.opt.Log
}

// Run binds the listener, starts the worker pool, and blocks until ctx is
// cancelled or a SIGTERM/SIGINT/SIGHUP arrives. SIGHUP does not stop the
// server: it only asks the caller-supplied reopen hook to rotate the log
// file, then the accept loop continues undisturbed.
func (s *Server) Run(ctx context.Context, reopenLog func() error) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrorAlreadyRunning.Error(nil)
	}
	s.running = true
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.opt.Addr)
	if err != nil {
		return ErrorListen.Error(err)
	}
	s.ln = ln

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(sig)

	runCtx, cancel := context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case s := <-sig:
				if s == syscall.SIGHUP {
					if reopenLog != nil {
						_ = reopenLog()
					}
					continue
				}
				cancel()
				return
			}
		}
	}()

	for i := 0; i < s.opt.Workers; i++ {
		s.wg.Add(1)
		go s.worker(runCtx, i)
	}

	<-runCtx.Done()
	_ = s.ln.Close()
	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return nil
}

func (s *Server) worker(ctx context.Context, index int) {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		s.handleConn(ctx, conn, index)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn, workerIndex int) {
	defer func() { _ = conn.Close() }()

	if s.opt.IdleTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.opt.IdleTimeout))
	}

	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)

	first, err := br.Peek(1)
	if err != nil {
		return
	}

	var derr error
	switch {
	case first[0] == libbin.Magic:
		_, _ = br.Discard(1)
		derr = libbin.Serve(ctx, br, bw, s.opt.Router)
	default:
		if looksLikeHTTP(br) {
			derr = libhttp.Serve(ctx, br, bw, s.opt.Router)
		} else {
			derr = libtxt.Serve(ctx, br, bw, s.opt.Router)
		}
	}

	if derr != nil && s.log() != nil {
		s.log().Entry(loglvl.DebugLevel, fmt.Sprintf("server: worker %d: connection %s ended: %v", workerIndex, conn.RemoteAddr(), derr)).Log()
	}
}

// looksLikeHTTP peeks the request line without consuming it: if the third
// whitespace-delimited token begins with "HTTP/1." this is the HTTP
// dialect, otherwise it is memcache text. Peek-only keeps both wire
// decoders free to do their own line reads from the start of the buffer.
func looksLikeHTTP(br *bufio.Reader) bool {
	for n := 64; n <= 8192; n *= 2 {
		buf, _ := br.Peek(n)
		if i := indexByte(buf, '\n'); i >= 0 {
			return thirdTokenIsHTTP(buf[:i])
		}
		if len(buf) < n {
			return false
		}
	}
	return false
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

func thirdTokenIsHTTP(line []byte) bool {
	fields := 0
	start := -1
	for i := 0; i <= len(line); i++ {
		atSpace := i == len(line) || line[i] == ' ' || line[i] == '\t'
		if !atSpace && start < 0 {
			start = i
		} else if atSpace && start >= 0 {
			fields++
			if fields == 3 {
				tok := string(line[start:i])
				return len(tok) >= 7 && tok[:7] == "HTTP/1."
			}
			start = -1
		}
	}
	return false
}
