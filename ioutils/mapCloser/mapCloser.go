/*
 * MIT License
 *
 * Copyright (c) 2021 Nicolas JUHEL
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

// Package mapCloser keeps a thread-safe set of io.Closer values registered
// against a context, closing them all together exactly once.
package mapCloser

import (
	"context"
	"io"
	"sync"
)

// Closer aggregates a set of io.Closer values and closes them together.
type Closer interface {
	// Add registers zero or more closers. Nil values occupy a slot (Len
	// counts them) but are skipped by Close.
	Add(c ...io.Closer)
	// Get returns a snapshot slice of the registered closers.
	Get() []io.Closer
	// Len returns the number of registered closers.
	Len() int
	// Clean discards all registered closers without closing them.
	Clean()
	// Close closes every registered closer once and returns the first error
	// encountered, if any. Subsequent calls are no-ops.
	Close() error
}

type mapCloser struct {
	mu     sync.Mutex
	ctx    context.Context
	items  []io.Closer
	closed bool
}

// New returns a new, empty Closer bound to ctx (reserved for future
// cancellation-driven auto-close; ctx is not currently read).
func New(ctx context.Context) Closer {
	if ctx == nil {
		ctx = context.Background()
	}
	return &mapCloser{ctx: ctx, items: make([]io.Closer, 0)}
}

func (m *mapCloser) Add(c ...io.Closer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, c...)
}

func (m *mapCloser) Get() []io.Closer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]io.Closer, len(m.items))
	copy(out, m.items)
	return out
}

func (m *mapCloser) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *mapCloser) Clean() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make([]io.Closer, 0)
}

func (m *mapCloser) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	items := m.items
	m.items = nil
	m.mu.Unlock()

	var first error
	for _, c := range items {
		if c == nil {
			continue
		}
		if e := c.Close(); e != nil && first == nil {
			first = e
		}
	}
	return first
}
