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
	liberr "github.com/nabbar/kvtyrant/errors"
)

// checkMask is called first by every handler. forManage selects the
// reference server's one genuinely ambiguous behaviour: for sync, copy,
// restore and setmst a mask denial and a real backend failure are both
// reported as plain StatusFail with no distinguishing error, exactly as a
// caller would see either case collapse into the same response byte. Every
// other command returns ErrorForbidden distinctly, so a caller closer to
// the wire (logging, metrics) can still tell denial from failure even
// though the two-dialect status byte alone cannot.
func (r *Router) checkMask(bit, dialect Mask, forManage bool) (Status, liberr.Error, bool) {
	if !r.forbidden(bit, dialect) {
		return StatusOK, nil, false
	}
	if forManage {
		return StatusFail, nil, true
	}
	return StatusFail, ErrorForbidden.Error(nil), true
}
