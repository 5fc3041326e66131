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

// Package replication implements the master-side repl streaming handler
// and the follower that tails a remote master's update log into the local
// backend through the command router's MUTATION WRAPPER.
package replication

import (
	"os"
	"strconv"
	"strings"
	"sync"
)

// StateFile persists the follower's last-applied timestamp as a single
// ASCII decimal, newline-terminated, per the reference layout.
type StateFile struct {
	mu   sync.Mutex
	path string
}

// NewStateFile wraps path as a StateFile. The file need not exist yet.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Load returns the persisted last-applied-ts, or 0 if the file is absent.
func (s *StateFile) Load() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, ErrorStateRead.Error(err)
	}

	ts, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, ErrorStateRead.Error(err)
	}

	return ts, nil
}

// Save atomically persists ts.
func (s *StateFile) Save(ts uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatUint(ts, 10)+"\n"), 0o640); err != nil {
		return ErrorStateWrite.Error(err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return ErrorStateWrite.Error(err)
	}

	return nil
}
