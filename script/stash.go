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
	"sync"
)

// DefaultStashBuckets is the reference STASH_BNUM.
const DefaultStashBuckets = 128

// Stash is the scripting extension's shared, process-global byte map. Its
// buckets exist purely to bound lock contention on the map itself; the
// record-level serialisation a script author relies on comes from the
// stripe array the core already locks around ext (see command.Router.Ext),
// hashing the same key the script was invoked with. Stash callers outside
// of an ext invocation (e.g. a periodic function) must take that stripe
// lock themselves before calling Get/Set.
type Stash struct {
	buckets []*stashBucket
	n       uint32
}

type stashBucket struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStash builds a Stash with n buckets (DefaultStashBuckets if n <= 0).
func NewStash(n int) *Stash {
	if n <= 0 {
		n = DefaultStashBuckets
	}

	s := &Stash{buckets: make([]*stashBucket, n), n: uint32(n)}
	for i := range s.buckets {
		s.buckets[i] = &stashBucket{data: make(map[string][]byte)}
	}

	return s
}

func (s *Stash) bucket(key []byte) *stashBucket {
	var h uint32
	for _, b := range key {
		h = h*31 + uint32(b)
	}
	return s.buckets[h%s.n]
}

// Get returns the stashed value for key, if any.
func (s *Stash) Get(key []byte) ([]byte, bool) {
	b := s.bucket(key)
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.data[string(key)]
	return v, ok
}

// Set stores value under key in the stash.
func (s *Stash) Set(key, value []byte) {
	b := s.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data[string(key)] = append([]byte(nil), value...)
}

// Delete removes key from the stash.
func (s *Stash) Delete(key []byte) {
	b := s.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.data, string(key))
}
