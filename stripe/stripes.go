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

// Package stripe implements the fixed-size array of per-key locks that
// serialises composite read-modify-write commands (putshl, addint,
// adddouble, incr/decr, ext and http handlers taking a per-record lock)
// against the storage backend and the scripting stash.
//
// Each stripe is a weighted semaphore of capacity one rather than a plain
// sync.Mutex, so acquisition honours context cancellation the same way the
// rest of the request path does. The scripting extension's global lock
// (ext with opts bit 1 set) acquires every stripe in ascending index order
// and releases them in descending order; this is the only place in the
// codebase where every stripe is held at once, and the fixed order is what
// keeps it deadlock-free against any single-stripe holder.
package stripe

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultSize is the reference stripe count (N_STRIPES). Any prime >= 16 is
// an acceptable substitute.
const DefaultSize = 31

// Stripes is the per-key lock array.
type Stripes interface {
	// Size returns the number of stripes.
	Size() int

	// Index returns the stripe index a key hashes to.
	Index(key []byte) int

	// Lock acquires the stripe guarding key, blocking until ctx is done.
	Lock(ctx context.Context, key []byte) error

	// Unlock releases the stripe guarding key.
	Unlock(key []byte)

	// LockAll acquires every stripe, ascending, for the scripting
	// extension's global-lock mode. Returns an error (without holding any
	// stripe) if ctx is done before every stripe is acquired.
	LockAll(ctx context.Context) error

	// UnlockAll releases every stripe, descending.
	UnlockAll()

	// Contention returns the number of goroutines currently blocked trying
	// to acquire any stripe.
	Contention() int64
}

type stripes struct {
	n   int
	sem []*semaphore.Weighted

	waiting  atomic.Int64
	gauge    prometheus.Gauge
}

// New builds a Stripes array of size n. n must be a positive integer; the
// reference deployment uses DefaultSize.
func New(n int) (Stripes, error) {
	if n <= 0 {
		return nil, ErrorInvalidSize.Error(nil)
	}

	s := &stripes{
		n:   n,
		sem: make([]*semaphore.Weighted, n),
		gauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kvtyrant_stripe_contention",
			Help: "Number of goroutines currently waiting to acquire a key stripe.",
		}),
	}

	for i := 0; i < n; i++ {
		s.sem[i] = semaphore.NewWeighted(1)
	}

	return s, nil
}

func (s *stripes) Size() int {
	return s.n
}

func (s *stripes) Index(key []byte) int {
	return int(rollingHash(key) % uint32(s.n))
}

func (s *stripes) Lock(ctx context.Context, key []byte) error {
	return s.lockIndex(ctx, s.Index(key))
}

func (s *stripes) Unlock(key []byte) {
	s.sem[s.Index(key)].Release(1)
}

func (s *stripes) lockIndex(ctx context.Context, idx int) error {
	s.waiting.Add(1)
	s.gauge.Set(float64(s.waiting.Load()))
	defer func() {
		s.waiting.Add(-1)
		s.gauge.Set(float64(s.waiting.Load()))
	}()

	return s.sem[idx].Acquire(ctx, 1)
}

func (s *stripes) LockAll(ctx context.Context) error {
	for i := 0; i < s.n; i++ {
		if err := s.lockIndex(ctx, i); err != nil {
			for j := i - 1; j >= 0; j-- {
				s.sem[j].Release(1)
			}
			return err
		}
	}

	return nil
}

func (s *stripes) UnlockAll() {
	for i := s.n - 1; i >= 0; i-- {
		s.sem[i].Release(1)
	}
}

func (s *stripes) Contention() int64 {
	return s.waiting.Load()
}

// Collector exposes the stripe-contention gauge for Prometheus registration.
func (s *stripes) Collector() prometheus.Collector {
	return s.gauge
}

// AsCollector type-asserts a Stripes value to its prometheus.Collector, for
// callers that only hold the interface.
func AsCollector(s Stripes) prometheus.Collector {
	if c, ok := s.(interface{ Collector() prometheus.Collector }); ok {
		return c.Collector()
	}
	return nil
}
