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
	"sync"

	liberr "github.com/nabbar/kvtyrant/errors"
	liblog "github.com/nabbar/kvtyrant/logger"
	libulg "github.com/nabbar/kvtyrant/ulog"
	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"
)

// ULogComponent owns the update-log writer's lifecycle.
type ULogComponent struct {
	key string
	ctx context.Context
	vpr *spfvpr.Viper
	log liblog.FuncLog

	mu      sync.RWMutex
	running bool
	dir     string
	w       libulg.Writer
}

// NewULogComponent builds an unstarted update-log component.
func NewULogComponent() *ULogComponent {
	return &ULogComponent{}
}

func (c *ULogComponent) Type() string { return "ulog" }

func (c *ULogComponent) Init(key string, ctx context.Context, _ FuncCptGet, vpr *spfvpr.Viper, log liblog.FuncLog) {
	c.key, c.ctx, c.vpr, c.log = key, ctx, vpr, log
}

func (c *ULogComponent) RegisterFlag(cmd *spfcbr.Command) error {
	cmd.Flags().String("ulog-dir", "./data/ulog", "update log segment directory")
	cmd.Flags().Int64("ulog-limit", 0, "segment rotation size in bytes, 0 = unlimited")
	cmd.Flags().Bool("ulog-async", false, "best-effort durability: report append success before fsync")
	if c.vpr != nil {
		_ = c.vpr.BindPFlag("ulog.dir", cmd.Flags().Lookup("ulog-dir"))
		_ = c.vpr.BindPFlag("ulog.limit", cmd.Flags().Lookup("ulog-limit"))
		_ = c.vpr.BindPFlag("ulog.async", cmd.Flags().Lookup("ulog-async"))
	}
	return nil
}

func (c *ULogComponent) Dependencies() []string { return nil }

func (c *ULogComponent) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Writer returns the opened update-log writer, or nil before Start.
func (c *ULogComponent) Writer() libulg.Writer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.w
}

// Dir returns the configured update-log directory, valid after Start.
func (c *ULogComponent) Dir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dir
}

func (c *ULogComponent) Start() liberr.Error {
	dir := "./data/ulog"
	var limit int64
	var async bool

	if c.vpr != nil {
		if v := c.vpr.GetString("ulog.dir"); v != "" {
			dir = v
		}
		limit = c.vpr.GetInt64("ulog.limit")
		async = c.vpr.GetBool("ulog.async")
	}

	w, err := libulg.NewWriter(libulg.WriterOptions{Dir: dir, Limit: limit, Async: async})
	if err != nil {
		return liberr.Make(err)
	}

	c.mu.Lock()
	c.w = w
	c.dir = dir
	c.running = true
	c.mu.Unlock()

	return nil
}

func (c *ULogComponent) Reload() liberr.Error {
	return nil
}

func (c *ULogComponent) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.w != nil {
		_ = c.w.Close()
	}
	c.running = false
}
