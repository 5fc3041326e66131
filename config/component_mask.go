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
	"sync/atomic"

	libcmd "github.com/nabbar/kvtyrant/command"
	liberr "github.com/nabbar/kvtyrant/errors"
	liblog "github.com/nabbar/kvtyrant/logger"
	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"
)

// MaskComponent owns the access mask's initial value and, when a mask
// file is configured, its hot-reload watch.
type MaskComponent struct {
	key string
	ctx context.Context
	vpr *spfvpr.Viper
	log liblog.FuncLog

	mu       sync.Mutex
	running  bool
	cur      atomic.Uint64
	file     string
	watchers []func(libcmd.Mask)
}

// NewMaskComponent builds an unstarted mask component.
func NewMaskComponent() *MaskComponent {
	return &MaskComponent{}
}

func (c *MaskComponent) Type() string { return "mask" }

func (c *MaskComponent) Init(key string, ctx context.Context, _ FuncCptGet, vpr *spfvpr.Viper, log liblog.FuncLog) {
	c.key, c.ctx, c.vpr, c.log = key, ctx, vpr, log
}

func (c *MaskComponent) RegisterFlag(cmd *spfcbr.Command) error {
	cmd.Flags().Uint64("mask", 0, "initial access mask, forbidden bits (0 = everything permitted)")
	cmd.Flags().String("mask-file", "", "file to watch for live mask updates; empty disables the watch")
	if c.vpr != nil {
		_ = c.vpr.BindPFlag("mask.value", cmd.Flags().Lookup("mask"))
		_ = c.vpr.BindPFlag("mask.file", cmd.Flags().Lookup("mask-file"))
	}
	return nil
}

func (c *MaskComponent) Dependencies() []string { return nil }

func (c *MaskComponent) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Current returns the mask's present value.
func (c *MaskComponent) Current() libcmd.Mask {
	return libcmd.Mask(c.cur.Load())
}

// OnChange registers fn to be called, from the watch goroutine, whenever
// the mask file changes and parses cleanly. Must be called before Start
// to see every update, though a late subscriber only misses updates that
// already happened.
func (c *MaskComponent) OnChange(fn func(libcmd.Mask)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchers = append(c.watchers, fn)
}

func (c *MaskComponent) apply(m libcmd.Mask) {
	c.cur.Store(uint64(m))

	c.mu.Lock()
	fns := append([]func(libcmd.Mask){}, c.watchers...)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(m)
	}
}

func (c *MaskComponent) Start() liberr.Error {
	var v uint64
	var file string
	if c.vpr != nil {
		v = c.vpr.GetUint64("mask.value")
		file = c.vpr.GetString("mask.file")
	}

	c.cur.Store(v)

	c.mu.Lock()
	c.file = file
	c.running = true
	c.mu.Unlock()

	if file != "" {
		if m, err := readMaskFile(file); err == nil {
			c.cur.Store(uint64(m))
		}
		if err := watchMaskFile(c.ctx, file, c.apply, c.log); err != nil {
			return liberr.Make(err)
		}
	}

	return nil
}

func (c *MaskComponent) Reload() liberr.Error {
	return nil
}

func (c *MaskComponent) Stop() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}
