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

// Put unconditionally stores value under key.
func (r *Router) Put(ctx context.Context, dialect Mask, key, value []byte) (Status, liberr.Error) {
	if st, err, done := r.checkMask(BitPut, dialect, false); done {
		return st, err
	}

	return r.mutate(ctx, key, false, r.SID, func() ([]byte, Status, liberr.Error) {
		if err := r.Backend.Put(key, value); err != nil {
			return nil, StatusFail, liberr.Make(err)
		}
		return encodePut(key, value), StatusOK, nil
	})
}

// PutKeep stores value under key only if key is absent.
func (r *Router) PutKeep(ctx context.Context, dialect Mask, key, value []byte) (Status, liberr.Error) {
	if st, err, done := r.checkMask(BitPutKeep, dialect, false); done {
		return st, err
	}

	return r.mutate(ctx, key, false, r.SID, func() ([]byte, Status, liberr.Error) {
		if err := r.Backend.PutKeep(key, value); err != nil {
			if errors.Is(err, libbck.ErrorRecordExists.Error(nil)) {
				return nil, StatusFail, nil
			}
			return nil, StatusFail, liberr.Make(err)
		}
		return encodePut(key, value), StatusOK, nil
	})
}

// PutCat appends value to the existing record under key, or stores it
// verbatim if key is absent.
func (r *Router) PutCat(ctx context.Context, dialect Mask, key, value []byte) (Status, liberr.Error) {
	if st, err, done := r.checkMask(BitPutCat, dialect, false); done {
		return st, err
	}

	return r.mutate(ctx, key, false, r.SID, func() ([]byte, Status, liberr.Error) {
		if err := r.Backend.PutCat(key, value); err != nil {
			return nil, StatusFail, liberr.Make(err)
		}
		return encodePutCat(key, value), StatusOK, nil
	})
}

// PutShl concatenates value onto key's existing record, then truncates the
// result from the left so only the last width bytes survive, storing that
// as the new record. Both the read and the write happen inside a single
// stripe[h(key)] acquisition; only the final Put is logged.
func (r *Router) PutShl(ctx context.Context, dialect Mask, key, value []byte, width int) (Status, liberr.Error) {
	if st, err, done := r.checkMask(BitPutShl, dialect, false); done {
		return st, err
	}

	return r.mutate(ctx, key, false, r.SID, func() ([]byte, Status, liberr.Error) {
		old, err := r.Backend.Get(key)
		if err != nil && !errors.Is(err, libbck.ErrorNoRecord.Error(nil)) {
			return nil, StatusFail, liberr.Make(err)
		}

		merged := append(append([]byte{}, old...), value...)
		if width >= 0 && len(merged) > width {
			merged = merged[len(merged)-width:]
		}

		if err = r.Backend.Put(key, merged); err != nil {
			return nil, StatusFail, liberr.Make(err)
		}

		return encodePut(key, merged), StatusOK, nil
	})
}

// PutNr is identical to Put but the caller never reads a response: the
// connection handler invokes this and moves straight on to the next
// request without writing anything back.
func (r *Router) PutNr(ctx context.Context, dialect Mask, key, value []byte) {
	_, _ = r.Put(ctx, dialect, key, value)
}

// Out deletes the record under key.
func (r *Router) Out(ctx context.Context, dialect Mask, key []byte) (Status, liberr.Error) {
	if st, err, done := r.checkMask(BitOut, dialect, false); done {
		return st, err
	}

	return r.mutate(ctx, key, false, r.SID, func() ([]byte, Status, liberr.Error) {
		if err := r.Backend.Out(key); err != nil {
			if errors.Is(err, libbck.ErrorNoRecord.Error(nil)) {
				return nil, StatusFail, nil
			}
			return nil, StatusFail, liberr.Make(err)
		}
		return encodeOut(key), StatusOK, nil
	})
}

// AddInt adds delta to key's value, treated as a textual decimal integer
// (0 if absent), under stripe[h(key)]. Unlike the text dialect's incr/decr,
// a negative result on an absent key is never clamped.
func (r *Router) AddInt(ctx context.Context, dialect Mask, key []byte, delta int64) (int64, Status, liberr.Error) {
	if st, err, done := r.checkMask(BitAddInt, dialect, false); done {
		return 0, st, err
	}

	var result int64
	status, err := r.mutate(ctx, key, false, r.SID, func() ([]byte, Status, liberr.Error) {
		v, e := r.Backend.AddInt(key, delta)
		if e != nil {
			return nil, StatusFail, liberr.Make(e)
		}
		result = v
		return encodeAddInt(key, delta), StatusOK, nil
	})

	return result, status, err
}

// AddDouble is the floating-point equivalent of AddInt.
func (r *Router) AddDouble(ctx context.Context, dialect Mask, key []byte, delta float64) (float64, Status, liberr.Error) {
	if st, err, done := r.checkMask(BitAddDouble, dialect, false); done {
		return 0, st, err
	}

	var result float64
	status, err := r.mutate(ctx, key, false, r.SID, func() ([]byte, Status, liberr.Error) {
		v, e := r.Backend.AddDouble(key, delta)
		if e != nil {
			return nil, StatusFail, liberr.Make(e)
		}
		result = v
		return encodeAddDouble(key, delta), StatusOK, nil
	})

	return result, status, err
}
