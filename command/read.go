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

package command

import (
	"context"
	"errors"

	libbck "github.com/nabbar/kvtyrant/database/backend"
	liberr "github.com/nabbar/kvtyrant/errors"
)

// Pair is one (key, value) result from MGet.
type Pair struct {
	Key   []byte
	Value []byte
}

// Get returns the value stored under key. Read handlers never touch the
// update log.
func (r *Router) Get(_ context.Context, dialect Mask, key []byte) ([]byte, Status, liberr.Error) {
	if st, err, done := r.checkMask(BitGet, dialect, false); done {
		return nil, st, err
	}

	v, err := r.Backend.Get(key)
	if err != nil {
		if errors.Is(err, libbck.ErrorNoRecord.Error(nil)) {
			return nil, StatusFail, nil
		}
		return nil, StatusFail, liberr.Make(err)
	}

	return v, StatusOK, nil
}

// MGet attempts Get for every key in keys, returning only those that
// existed. No locking beyond whatever Backend itself provides per record.
func (r *Router) MGet(_ context.Context, dialect Mask, keys [][]byte) ([]Pair, Status, liberr.Error) {
	if st, err, done := r.checkMask(BitMGet, dialect, false); done {
		return nil, st, err
	}

	out := make([]Pair, 0, len(keys))
	for _, k := range keys {
		v, err := r.Backend.Get(k)
		if err != nil {
			continue
		}
		out = append(out, Pair{Key: k, Value: v})
	}

	return out, StatusOK, nil
}

// Vsiz returns the size in bytes of the value stored under key.
func (r *Router) Vsiz(_ context.Context, dialect Mask, key []byte) (int, Status, liberr.Error) {
	if st, err, done := r.checkMask(BitVsiz, dialect, false); done {
		return 0, st, err
	}

	n, err := r.Backend.Vsiz(key)
	if err != nil {
		if errors.Is(err, libbck.ErrorNoRecord.Error(nil)) {
			return 0, StatusFail, nil
		}
		return 0, StatusFail, liberr.Make(err)
	}

	return n, StatusOK, nil
}

// IterInit (re)initialises the process-wide iteration cursor.
func (r *Router) IterInit(_ context.Context, dialect Mask) (Status, liberr.Error) {
	if st, err, done := r.checkMask(BitIterInit, dialect, false); done {
		return st, err
	}

	if err := r.Backend.IterInit(); err != nil {
		return StatusFail, liberr.Make(err)
	}

	return StatusOK, nil
}

// IterNext advances the process-wide iterator and returns the next key.
func (r *Router) IterNext(_ context.Context, dialect Mask) ([]byte, Status, liberr.Error) {
	if st, err, done := r.checkMask(BitIterNext, dialect, false); done {
		return nil, st, err
	}

	k, err := r.Backend.IterNext()
	if err != nil {
		return nil, StatusFail, liberr.Make(err)
	}

	return k, StatusOK, nil
}

// FwmKeys returns up to max keys sharing prefix (0 = unbounded).
func (r *Router) FwmKeys(_ context.Context, dialect Mask, prefix []byte, max int) ([][]byte, Status, liberr.Error) {
	if st, err, done := r.checkMask(BitFwmKeys, dialect, false); done {
		return nil, st, err
	}

	keys, err := r.Backend.FwmKeys(prefix, max)
	if err != nil {
		return nil, StatusFail, liberr.Make(err)
	}

	return keys, StatusOK, nil
}
