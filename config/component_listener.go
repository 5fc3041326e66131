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

package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	libcmd "github.com/nabbar/kvtyrant/command"
	libbck "github.com/nabbar/kvtyrant/database/backend"
	liberr "github.com/nabbar/kvtyrant/errors"
	liblog "github.com/nabbar/kvtyrant/logger"
	loglvl "github.com/nabbar/kvtyrant/logger/level"
	libper "github.com/nabbar/kvtyrant/periodic"
	libscr "github.com/nabbar/kvtyrant/script"
	libsrv "github.com/nabbar/kvtyrant/server"
	libstr "github.com/nabbar/kvtyrant/stripe"
	libulg "github.com/nabbar/kvtyrant/ulog"
	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"
)

// ListenerComponent assembles the Stripes, Router and Server out of the
// backend, ulog and mask components and runs the accept loop until Stop.
type ListenerComponent struct {
	key string
	ctx context.Context
	get FuncCptGet
	vpr *spfvpr.Viper
	log liblog.FuncLog

	mu        sync.RWMutex
	running   bool
	router    *libcmd.Router
	srv       *libsrv.Server
	script    *libscr.Host
	periodic  *libper.Runner
	cancel    context.CancelFunc
	done      chan struct{}
	perDone   chan struct{}
}

// NewListenerComponent builds an unstarted listener component.
func NewListenerComponent() *ListenerComponent {
	return &ListenerComponent{}
}

func (c *ListenerComponent) Type() string { return "listener" }

func (c *ListenerComponent) Init(key string, ctx context.Context, get FuncCptGet, vpr *spfvpr.Viper, log liblog.FuncLog) {
	c.key, c.ctx, c.get, c.vpr, c.log = key, ctx, get, vpr, log
}

func (c *ListenerComponent) RegisterFlag(cmd *spfcbr.Command) error {
	cmd.Flags().String("listen-addr", "127.0.0.1:1978", "TCP address shared by the binary, text and HTTP dialects")
	cmd.Flags().Int("workers", libsrv.DefaultWorkers, "fixed worker pool size")
	cmd.Flags().Duration("idle-timeout", 0, "close a connection idle this long; 0 disables")
	cmd.Flags().Uint32("server-id", 0, "this server's replication source id, stamped on every append; 0 auto-generates and persists one")
	if c.vpr != nil {
		_ = c.vpr.BindPFlag("listener.addr", cmd.Flags().Lookup("listen-addr"))
		_ = c.vpr.BindPFlag("listener.workers", cmd.Flags().Lookup("workers"))
		_ = c.vpr.BindPFlag("listener.idle-timeout", cmd.Flags().Lookup("idle-timeout"))
		_ = c.vpr.BindPFlag("listener.server-id", cmd.Flags().Lookup("server-id"))
	}
	return nil
}

func (c *ListenerComponent) Dependencies() []string {
	return []string{KeyBackend, KeyULog, KeyMask}
}

func (c *ListenerComponent) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Router returns the command core, or nil before Start. The replication
// component uses it to drive Replay during catch-up and ReplReader to
// serve the stream to followers.
func (c *ListenerComponent) Router() *libcmd.Router {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.router
}

func (c *ListenerComponent) logf(lvl loglvl.Level, format string, args ...interface{}) {
	if c.log != nil {
		c.log().Entry(lvl, fmt.Sprintf(format, args...)).Log()
	}
}

func (c *ListenerComponent) Start() liberr.Error {
	bc, _ := c.get(KeyBackend).(*BackendComponent)
	uc, _ := c.get(KeyULog).(*ULogComponent)
	mc, _ := c.get(KeyMask).(*MaskComponent)

	if bc == nil || uc == nil || mc == nil {
		return ErrorMissingDependency.Error(nil)
	}

	var back libbck.Backend = bc.Backend()
	var writer libulg.Writer = uc.Writer()

	addr := "127.0.0.1:1978"
	workers := libsrv.DefaultWorkers
	var idle time.Duration
	var configuredSID uint32
	if c.vpr != nil {
		if v := c.vpr.GetString("listener.addr"); v != "" {
			addr = v
		}
		if v := c.vpr.GetInt("listener.workers"); v > 0 {
			workers = v
		}
		idle = c.vpr.GetDuration("listener.idle-timeout")
		configuredSID = c.vpr.GetUint32("listener.server-id")
	}

	sid, err := resolveSID(uc.Dir(), configuredSID)
	if err != nil {
		return liberr.Make(err)
	}

	strp, err := libstr.New(libstr.DefaultSize)
	if err != nil {
		return liberr.Make(err)
	}

	router := libcmd.New(back, strp, writer, sid, uc.Dir())
	router.SetMask(mc.Current())
	mc.OnChange(func(m libcmd.Mask) {
		router.SetMask(m)
		c.logf(loglvl.InfoLevel, "config: listener applied updated access mask %#x", uint64(m))
	})

	script := libscr.NewHost(libscr.DefaultStashBuckets)
	router.Script = script

	srv := libsrv.New(libsrv.Options{
		Addr:        addr,
		Workers:     workers,
		IdleTimeout: idle,
		Router:      router,
		Log:         c.log,
	})

	runCtx, cancel := context.WithCancel(c.ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		if rerr := srv.Run(runCtx, c.reopenLog); rerr != nil {
			c.logf(loglvl.ErrorLevel, "server: run: %v", rerr)
		}
	}()

	per := libper.NewRunner(c.log)
	for _, p := range script.Periodics() {
		if perr := per.Add(libper.Task{Name: p.Name, Interval: time.Minute, Func: p.Func}); perr != nil {
			c.logf(loglvl.WarnLevel, "config: listener: periodic task %s: %v", p.Name, perr)
		}
	}

	perDone := make(chan struct{})
	go func() {
		defer close(perDone)
		_ = per.Run(runCtx)
	}()

	c.mu.Lock()
	c.router = router
	c.srv = srv
	c.script = script
	c.periodic = per
	c.cancel = cancel
	c.done = done
	c.perDone = perDone
	c.running = true
	c.mu.Unlock()

	return nil
}

// Script returns the scripting extension host, or nil before Start.
func (c *ListenerComponent) Script() *libscr.Host {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.script
}

// reopenLog is the SIGHUP hook; update-log segment rotation happens through
// the ulog component itself, so the listener has nothing to reopen yet.
func (c *ListenerComponent) reopenLog() error {
	return nil
}

func (c *ListenerComponent) Reload() liberr.Error {
	return nil
}

func (c *ListenerComponent) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	perDone := c.perDone
	c.running = false
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
		}
	}
	if perDone != nil {
		select {
		case <-perDone:
		case <-time.After(5 * time.Second):
		}
	}
}
