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

	liberr "github.com/nabbar/kvtyrant/errors"
)

// Ext option bits, taken from the low byte of the wire's 32-bit opts field.
const (
	ExtOptRecordLock uint8 = 1 << iota
	ExtOptGlobalLock
)

// Ext invokes the scripting extension function name with (key, value).
// Bit 0 of opts takes the per-record stripe lock for the call; bit 1 takes
// every stripe, ascending, releasing descending — the one place in the
// codebase where all stripes are held at once, which is also why the
// acquire order must never vary: it is what keeps this lock-everything
// path deadlock-free against any single-stripe holder elsewhere.
func (r *Router) Ext(ctx context.Context, dialect Mask, name string, opts uint8, key, value []byte) ([]byte, Status, liberr.Error) {
	if st, err, done := r.checkMask(BitExt, dialect, false); done {
		return nil, st, err
	}

	if r.Script == nil {
		return nil, StatusFail, ErrorNoScript.Error(nil)
	}

	switch {
	case opts&ExtOptGlobalLock != 0:
		if err := r.Stripes.LockAll(ctx); err != nil {
			return nil, StatusFail, liberr.Make(err)
		}
		defer r.Stripes.UnlockAll()

	case opts&ExtOptRecordLock != 0:
		if err := r.Stripes.Lock(ctx, key); err != nil {
			return nil, StatusFail, liberr.Make(err)
		}
		defer r.Stripes.Unlock(key)
	}

	out, err := r.Script.Invoke(ctx, name, key, value)
	if err != nil {
		return nil, StatusFail, liberr.Make(err)
	}

	return out, StatusOK, nil
}
