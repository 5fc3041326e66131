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

	libbck "github.com/nabbar/kvtyrant/database/backend"
	liberr "github.com/nabbar/kvtyrant/errors"
	liblog "github.com/nabbar/kvtyrant/logger"
	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"
)

// BackendComponent owns the embedded storage engine's lifecycle.
type BackendComponent struct {
	key string
	ctx context.Context
	vpr *spfvpr.Viper
	log liblog.FuncLog

	mu      sync.RWMutex
	running bool
	back    libbck.Backend
	pidFile *PIDFile
}

// NewBackendComponent builds an unstarted backend component.
func NewBackendComponent() *BackendComponent {
	return &BackendComponent{}
}

func (c *BackendComponent) Type() string { return "backend" }

func (c *BackendComponent) Init(key string, ctx context.Context, _ FuncCptGet, vpr *spfvpr.Viper, log liblog.FuncLog) {
	c.key, c.ctx, c.vpr, c.log = key, ctx, vpr, log
}

func (c *BackendComponent) RegisterFlag(cmd *spfcbr.Command) error {
	cmd.Flags().String("backend-path", "./data/kvtyrant.db", "embedded backend data path")
	cmd.Flags().String("backend-spec", "", "backend-specific tuning spec (bucket count, alignment, options)")
	if c.vpr != nil {
		_ = c.vpr.BindPFlag("backend.path", cmd.Flags().Lookup("backend-path"))
		_ = c.vpr.BindPFlag("backend.spec", cmd.Flags().Lookup("backend-spec"))
	}
	return nil
}

func (c *BackendComponent) Dependencies() []string { return nil }

func (c *BackendComponent) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Backend returns the opened storage engine, or nil before Start.
func (c *BackendComponent) Backend() libbck.Backend {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.back
}

func (c *BackendComponent) Start() liberr.Error {
	path := "./data/kvtyrant.db"
	spec := ""
	if c.vpr != nil {
		if v := c.vpr.GetString("backend.path"); v != "" {
			path = v
		}
		spec = c.vpr.GetString("backend.spec")
	}

	pidFile, err := AcquirePIDFile(filepath.Dir(path))
	if err != nil {
		return liberr.Make(err)
	}

	back := libbck.New()
	if err := back.Open(path, spec); err != nil {
		_ = pidFile.Release()
		return liberr.Make(err)
	}

	c.mu.Lock()
	c.back = back
	c.pidFile = pidFile
	c.running = true
	c.mu.Unlock()

	return nil
}

func (c *BackendComponent) Reload() liberr.Error {
	return nil
}

func (c *BackendComponent) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.back != nil {
		_ = c.back.Close()
	}
	if c.pidFile != nil {
		_ = c.pidFile.Release()
		c.pidFile = nil
	}
	c.running = false
}
