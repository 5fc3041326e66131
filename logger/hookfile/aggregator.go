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

// Package hookfile provides file-based logging hooks for logrus.
// This file handles log file aggregation: multiple hooks pointed at the same
// path share one open *os.File, reference-counted so the last hook to close
// also closes the file.
package hookfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	libatm "github.com/nabbar/kvtyrant/atomic"
)

// ErrClosedResources is returned by a shared file writer after its last
// reference has been closed; callers must re-acquire via setAgg.
var ErrClosedResources = errors.New("hookfile: file resources closed")

type fileAgg struct {
	mu     sync.Mutex
	refs   int
	handle *os.File
	path   string
	closed bool
}

func (f *fileAgg) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, ErrClosedResources
	}

	return f.handle.Write(p)
}

var agg = libatm.NewMapTyped[string, *fileAgg]()

func init() {
	runtime.SetFinalizer(agg, func(a libatm.MapTyped[string, *fileAgg]) {
		a.Range(func(k string, v *fileAgg) bool {
			if v != nil {
				_ = v.handle.Close()
			}
			return true
		})
	})
}

// setAgg retrieves or creates the shared writer for path, incrementing its
// reference count.
func setAgg(path string, mode os.FileMode, create bool) (io.Writer, error) {
	if i, ok := agg.Load(path); ok && i != nil {
		i.mu.Lock()
		i.refs++
		i.mu.Unlock()
		return i, nil
	}

	i, e := newAgg(path, mode, create)
	if e != nil {
		return nil, e
	}

	agg.Store(path, i)
	return i, nil
}

// delAgg decrements the reference count for path, closing the underlying
// file once it reaches zero.
func delAgg(path string) {
	i, ok := agg.Load(path)
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
		agg.Delete(path)
		_ = i.handle.Close()
	}
}

func newAgg(path string, mode os.FileMode, create bool) (*fileAgg, error) {
	flags := os.O_WRONLY | os.O_APPEND
	if create {
		flags |= os.O_CREATE
	}

	if e := os.MkdirAll(filepath.Dir(path), 0755); e != nil {
		return nil, e
	}

	h, e := os.OpenFile(path, flags, mode)
	if e != nil {
		return nil, e
	}

	if _, e = h.Seek(0, io.SeekEnd); e != nil {
		_ = h.Close()
		return nil, e
	}

	return &fileAgg{refs: 1, handle: h, path: path}, nil
}

// ResetOpenFiles closes all open file aggregators and clears the registry.
// Used by tests to reset global state between cases.
func ResetOpenFiles() {
	agg.Range(func(k string, v *fileAgg) bool {
		if v != nil {
			_ = v.handle.Close()
		}
		agg.Delete(k)
		return true
	})
}
