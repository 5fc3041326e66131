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

package script

import (
	"context"
	"sync"
)

// Func is one invocable-by-name scripting extension function.
type Func func(ctx context.Context, key, value []byte) ([]byte, error)

// Periodic is one named periodic function, run on its own interval by
// package periodic.
type Periodic struct {
	Name string
	Func func(ctx context.Context) error
}

// Host is the scripting extension black box the command router's ext
// handler calls through. It satisfies command.ScriptHost.
type Host struct {
	mu        sync.RWMutex
	functions map[string]Func
	periodics []Periodic

	Stash *Stash
}

// NewHost builds an empty Host with a Stash of the given bucket count.
func NewHost(stashBuckets int) *Host {
	return &Host{
		functions: make(map[string]Func),
		Stash:     NewStash(stashBuckets),
	}
}

// Register adds a callable function under name. Returns
// ErrorAlreadyRegistered if name is already taken.
func (h *Host) Register(name string, fn Func) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.functions[name]; ok {
		return ErrorAlreadyRegistered.Error(nil)
	}

	h.functions[name] = fn
	return nil
}

// RegisterPeriodic adds a named periodic function for package periodic to
// drive on its own schedule.
func (h *Host) RegisterPeriodic(p Periodic) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.periodics = append(h.periodics, p)
}

// Periodics returns the registered periodic functions.
func (h *Host) Periodics() []Periodic {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Periodic(nil), h.periodics...)
}

// Invoke calls the registered function name with (key, value). This is the
// method command.Router.Ext drives; the stripe locking discipline (record
// or global) is the router's responsibility, not this package's — Invoke
// itself takes no lock.
func (h *Host) Invoke(ctx context.Context, name string, key, value []byte) ([]byte, error) {
	h.mu.RLock()
	fn, ok := h.functions[name]
	h.mu.RUnlock()

	if !ok {
		return nil, ErrorUnknownFunction.Error(nil)
	}

	return fn(ctx, key, value)
}
