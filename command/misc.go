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

// Misc option bits, taken from the low byte of the wire's 32-bit opts field.
const (
	// MiscOptMonoUlog suppresses the log event this call would otherwise
	// produce: the caller is taking responsibility for idempotence, e.g.
	// when replaying a batch that is already logged elsewhere.
	MiscOptMonoUlog uint8 = 1 << iota
)

// Misc dispatches a generic, backend-defined subcommand: "putlist",
// "outlist" and "getlist" are handled universally here; every other name is
// passed straight through to Backend.Misc for table-extension subcommands
// ("put", "putkeep", "putcat", "out", "get", "setindex", "genuid",
// "search", …).
func (r *Router) Misc(ctx context.Context, dialect Mask, name string, opts uint8, args [][]byte) ([][]byte, Status, liberr.Error) {
	if st, err, done := r.checkMask(BitMisc, dialect, false); done {
		return nil, st, err
	}

	switch name {
	case "putlist":
		return r.miscPutList(ctx, dialect, opts, args)
	case "outlist":
		return r.miscOutList(ctx, dialect, opts, args)
	case "getlist":
		return r.miscGetList(args)
	}

	out, err := r.Backend.Misc(name, args)
	if err != nil {
		return nil, StatusFail, nil
	}

	return out, StatusOK, nil
}

func (r *Router) miscPutList(ctx context.Context, dialect Mask, opts uint8, args [][]byte) ([][]byte, Status, liberr.Error) {
	for i := 0; i+1 < len(args); i += 2 {
		key, value := args[i], args[i+1]

		if opts&MiscOptMonoUlog != 0 {
			if err := r.Backend.Put(key, value); err != nil {
				return nil, StatusFail, liberr.Make(err)
			}
			continue
		}

		if st, err := r.Put(ctx, dialect, key, value); err != nil || st != StatusOK {
			return nil, st, err
		}
	}

	return nil, StatusOK, nil
}

func (r *Router) miscOutList(ctx context.Context, dialect Mask, opts uint8, args [][]byte) ([][]byte, Status, liberr.Error) {
	for _, key := range args {
		if opts&MiscOptMonoUlog != 0 {
			if err := r.Backend.Out(key); err != nil {
				continue
			}
			continue
		}

		_, _ = r.Out(ctx, dialect, key)
	}

	return nil, StatusOK, nil
}

func (r *Router) miscGetList(args [][]byte) ([][]byte, Status, liberr.Error) {
	out := make([][]byte, 0, len(args)*2)

	for _, key := range args {
		v, err := r.Backend.Get(key)
		if err != nil {
			continue
		}
		out = append(out, key, v)
	}

	return out, StatusOK, nil
}
