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
	"path/filepath"
	"sync"

	liberr "github.com/nabbar/kvtyrant/errors"
	liblog "github.com/nabbar/kvtyrant/logger"
	librep "github.com/nabbar/kvtyrant/replication"
	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"
)

// ReplicationComponent drives a Follower against the listener's Router
// when a master is configured. Absent a master host, Start is a no-op:
// replication is opt-in per spec.md, not a mandatory subsystem.
type ReplicationComponent struct {
	key string
	ctx context.Context
	get FuncCptGet
	vpr *spfvpr.Viper
	log liblog.FuncLog

	mu       sync.RWMutex
	running  bool
	follower *librep.Follower
	cancel   context.CancelFunc
}

// NewReplicationComponent builds an unstarted replication component.
func NewReplicationComponent() *ReplicationComponent {
	return &ReplicationComponent{}
}

func (c *ReplicationComponent) Type() string { return "replication" }

func (c *ReplicationComponent) Init(key string, ctx context.Context, get FuncCptGet, vpr *spfvpr.Viper, log liblog.FuncLog) {
	c.key, c.ctx, c.get, c.vpr, c.log = key, ctx, get, vpr, log
}

func (c *ReplicationComponent) RegisterFlag(cmd *spfcbr.Command) error {
	cmd.Flags().String("repl-master-host", "", "master host to follow; empty disables replication")
	cmd.Flags().Uint32("repl-master-port", 1978, "master port to follow")
	cmd.Flags().String("repl-state-dir", "./data", "directory holding the replication checkpoint file")
	if c.vpr != nil {
		_ = c.vpr.BindPFlag("replication.master-host", cmd.Flags().Lookup("repl-master-host"))
		_ = c.vpr.BindPFlag("replication.master-port", cmd.Flags().Lookup("repl-master-port"))
		_ = c.vpr.BindPFlag("replication.state-dir", cmd.Flags().Lookup("repl-state-dir"))
	}
	return nil
}

func (c *ReplicationComponent) Dependencies() []string {
	return []string{KeyListener}
}

func (c *ReplicationComponent) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Follower returns the running follower, or nil when replication is
// disabled or not yet started. Exposed for the setmst admin command and
// for status reporting.
func (c *ReplicationComponent) Follower() *librep.Follower {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.follower
}

func (c *ReplicationComponent) Start() liberr.Error {
	host := ""
	var port uint32 = 1978
	stateDir := "./data"
	if c.vpr != nil {
		host = c.vpr.GetString("replication.master-host")
		if v := c.vpr.GetUint32("replication.master-port"); v > 0 {
			port = v
		}
		if v := c.vpr.GetString("replication.state-dir"); v != "" {
			stateDir = v
		}
	}

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	if host == "" {
		return nil
	}

	lc, _ := c.get(KeyListener).(*ListenerComponent)
	if lc == nil {
		return ErrorMissingDependency.Error(nil)
	}

	router := lc.Router()
	if router == nil {
		return ErrorMissingDependency.Error(nil)
	}

	var sid uint32 = 1
	if c.vpr != nil {
		if v := c.vpr.GetUint32("listener.server-id"); v > 0 {
			sid = v
		}
	}

	// The follower is built only when a master is configured at startup;
	// assigning it to the router lets the setmst command retarget it live.
	state := librep.NewStateFile(filepath.Join(stateDir, "replication.state"))
	follower := librep.NewFollower(sid, state, librep.NewApplier(router), c.log)
	follower.SetMaster(host, port)
	router.Repl = follower

	runCtx, cancel := context.WithCancel(c.ctx)
	go follower.Run(runCtx)

	c.mu.Lock()
	c.follower = follower
	c.cancel = cancel
	c.mu.Unlock()

	return nil
}

func (c *ReplicationComponent) Reload() liberr.Error {
	return nil
}

func (c *ReplicationComponent) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.running = false
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
