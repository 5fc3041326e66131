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

// Mask is a 64-bit field of FORBIDDEN command/bucket bits: a set bit denies
// the operation. This mirrors the reference server's own polarity, where an
// empty mask (0) permits everything.
type Mask uint64

// Per-command bits, plus the coarse buckets and the blanket ALL bit. Every
// command except ext and misc (whose effect depends on the function or
// operation invoked) also belongs to exactly one coarse bucket, and every
// command to one dialect bucket; the router denies a call if either its own
// bit, its bucket bit, its dialect bit, or BitAll is set in the mask.
const (
	BitPut Mask = 1 << iota
	BitPutKeep
	BitPutCat
	BitPutShl
	BitPutNr
	BitOut
	BitGet
	BitMGet
	BitVsiz
	BitIterInit
	BitIterNext
	BitFwmKeys
	BitAddInt
	BitAddDouble
	BitExt
	BitSync
	BitVanish
	BitCopy
	BitRestore
	BitSetMst
	BitRNum
	BitSize
	BitStat
	BitMisc
	BitRepl

	BitAllWrite
	BitAllRead
	BitAllManage
	BitAllBinary
	BitAllText
	BitAllHTTP
	BitAll
)

// writeBits are the per-command bits covered by the "all-write" bucket.
var writeBits = []Mask{BitPut, BitPutKeep, BitPutCat, BitPutShl, BitPutNr, BitOut, BitAddInt, BitAddDouble, BitVanish}

// readBits are the per-command bits covered by the "all-read" bucket.
var readBits = []Mask{BitGet, BitMGet, BitVsiz, BitIterInit, BitIterNext, BitFwmKeys, BitRNum, BitSize, BitStat, BitRepl}

// manageBits are the per-command bits covered by the "all-manage" bucket.
var manageBits = []Mask{BitSync, BitCopy, BitRestore, BitSetMst}

// Forbidden reports whether bit (a single command bit, e.g. BitPut) is
// denied by m: either directly, through the command's coarse bucket, through
// the given dialect bucket, or through BitAll.
func (m Mask) Forbidden(bit Mask, dialect Mask) bool {
	if m&BitAll != 0 {
		return true
	}
	if m&dialect != 0 {
		return true
	}
	if m&bit != 0 {
		return true
	}

	for _, b := range writeBits {
		if b == bit && m&BitAllWrite != 0 {
			return true
		}
	}
	for _, b := range readBits {
		if b == bit && m&BitAllRead != 0 {
			return true
		}
	}
	for _, b := range manageBits {
		if b == bit && m&BitAllManage != 0 {
			return true
		}
	}

	return false
}
