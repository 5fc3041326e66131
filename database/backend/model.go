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

package backend

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
)

// ModeTagHashMap is the mode tag reported by the in-memory hash-map engine.
const ModeTagHashMap = "hash"

// hashDB is a concurrent-reader/single-writer in-memory hash map backend,
// optionally snapshotted to a single gob-encoded file on Sync/Close.
type hashDB struct {
	mu sync.RWMutex

	open bool
	path string

	data map[string][]byte

	cursor   []string
	cursorAt int
	cursorOk bool
}

// New builds an unopened hash-map Backend.
func New() Backend {
	return &hashDB{}
}

func (b *hashDB) Open(path string, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		return ErrorAlreadyOpen.Error(nil)
	}

	b.path = path
	b.data = make(map[string][]byte)

	if path != "" {
		if f, err := os.Open(path); err == nil {
			defer func() { _ = f.Close() }()

			m := make(map[string][]byte)
			if err = gob.NewDecoder(f).Decode(&m); err == nil {
				b.data = m
			}
		}
	}

	b.open = true
	return nil
}

func (b *hashDB) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil
	}

	err := b.flush()
	b.open = false
	b.data = nil

	return err
}

// flush writes the current snapshot to b.path. Caller must hold b.mu.
func (b *hashDB) flush() error {
	if b.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0o750); err != nil {
		return err
	}

	tmp := b.path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err = gob.NewEncoder(f).Encode(b.data); err != nil {
		_ = f.Close()
		return err
	}

	if err = f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, b.path)
}

func (b *hashDB) Put(key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrorNotOpen.Error(nil)
	}

	b.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (b *hashDB) PutKeep(key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrorNotOpen.Error(nil)
	}

	if _, ok := b.data[string(key)]; ok {
		return ErrorRecordExists.Error(nil)
	}

	b.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (b *hashDB) PutCat(key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrorNotOpen.Error(nil)
	}

	k := string(key)
	if old, ok := b.data[k]; ok {
		b.data[k] = append(append([]byte(nil), old...), value...)
	} else {
		b.data[k] = append([]byte(nil), value...)
	}

	return nil
}

func (b *hashDB) Out(key []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrorNotOpen.Error(nil)
	}

	k := string(key)
	if _, ok := b.data[k]; !ok {
		return ErrorNoRecord.Error(nil)
	}

	delete(b.data, k)
	return nil
}

func (b *hashDB) Get(key []byte) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.open {
		return nil, ErrorNotOpen.Error(nil)
	}

	v, ok := b.data[string(key)]
	if !ok {
		return nil, ErrorNoRecord.Error(nil)
	}

	return append([]byte(nil), v...), nil
}

func (b *hashDB) Vsiz(key []byte) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.open {
		return 0, ErrorNotOpen.Error(nil)
	}

	v, ok := b.data[string(key)]
	if !ok {
		return 0, ErrorNoRecord.Error(nil)
	}

	return len(v), nil
}

func (b *hashDB) IterInit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrorNotOpen.Error(nil)
	}

	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.cursor = keys
	b.cursorAt = 0
	b.cursorOk = true

	return nil
}

func (b *hashDB) IterNext() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil, ErrorNotOpen.Error(nil)
	}
	if !b.cursorOk {
		return nil, ErrorIterNotInit.Error(nil)
	}
	if b.cursorAt >= len(b.cursor) {
		return nil, ErrorIterExhausted.Error(nil)
	}

	k := b.cursor[b.cursorAt]
	b.cursorAt++

	return []byte(k), nil
}

func (b *hashDB) FwmKeys(prefix []byte, max int) ([][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.open {
		return nil, ErrorNotOpen.Error(nil)
	}

	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	if max > 0 && len(keys) > max {
		keys = keys[:max]
	}

	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}

	return out, nil
}

func (b *hashDB) AddInt(key []byte, delta int64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return 0, ErrorNotOpen.Error(nil)
	}

	k := string(key)

	var cur int64
	if old, ok := b.data[k]; ok {
		v, err := strconv.ParseInt(string(old), 10, 64)
		if err != nil {
			return 0, ErrorInvalidNumber.Error(err)
		}
		cur = v
	}

	cur += delta
	b.data[k] = []byte(strconv.FormatInt(cur, 10))

	return cur, nil
}

func (b *hashDB) AddDouble(key []byte, delta float64) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return 0, ErrorNotOpen.Error(nil)
	}

	k := string(key)

	var cur float64
	if old, ok := b.data[k]; ok {
		v, err := strconv.ParseFloat(string(old), 64)
		if err != nil {
			return 0, ErrorInvalidNumber.Error(err)
		}
		cur = v
	}

	cur += delta
	b.data[k] = []byte(strconv.FormatFloat(cur, 'f', -1, 64))

	return cur, nil
}

func (b *hashDB) Sync() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrorNotOpen.Error(nil)
	}

	return b.flush()
}

func (b *hashDB) Vanish() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrorNotOpen.Error(nil)
	}

	b.data = make(map[string][]byte)
	b.cursorOk = false

	return nil
}

func (b *hashDB) Copy(dest string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.open {
		return ErrorNotOpen.Error(nil)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return ErrorCopyFailed.Error(err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return ErrorCopyFailed.Error(err)
	}
	defer func() { _ = f.Close() }()

	if err = gob.NewEncoder(f).Encode(b.data); err != nil {
		return ErrorCopyFailed.Error(err)
	}

	return nil
}

func (b *hashDB) RNum() (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.open {
		return 0, ErrorNotOpen.Error(nil)
	}

	return int64(len(b.data)), nil
}

func (b *hashDB) Size() (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.open {
		return 0, ErrorNotOpen.Error(nil)
	}

	var n int64
	for k, v := range b.data {
		n += int64(len(k) + len(v))
	}

	return n, nil
}

func (b *hashDB) Mode() string {
	return ModeTagHashMap
}

func (b *hashDB) Misc(name string, args [][]byte) ([][]byte, error) {
	switch name {
	case "getlist":
		keys, _ := b.FwmKeys(nil, 0)
		out := make([][]byte, 0, len(keys)*2)
		for _, k := range keys {
			v, err := b.Get(k)
			if err != nil {
				continue
			}
			out = append(out, k, v)
		}
		return out, nil
	default:
		_ = args
		return nil, ErrorUnknownMisc.Error(nil)
	}
}
