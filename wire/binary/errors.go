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

// Package binary implements the compact, authoritative binary wire
// dialect: a 1-byte magic, a 1-byte command code, then command-specific
// big-endian fields, per the opcode table. A decoder desync (malformed
// frame, unknown command code, an out-of-range length) is unrecoverable:
// the connection is closed rather than resynchronised.
package binary

import (
	"fmt"

	liberr "github.com/nabbar/kvtyrant/errors"
)

const pkgName = "kvtyrant/wire/binary"

const (
	ErrorUnknownCommand liberr.CodeError = iota + liberr.MinPkgWireBinary
	ErrorMalformedFrame
	ErrorLengthOutOfRange
)

func init() {
	if liberr.ExistInMapMessage(ErrorUnknownCommand) {
		panic(fmt.Errorf("error code collision with package %s", pkgName))
	}
	liberr.RegisterIdFctMessage(ErrorUnknownCommand, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case liberr.UnknownError:
		return liberr.NullMessage
	case ErrorUnknownCommand:
		return "unknown binary command code"
	case ErrorMalformedFrame:
		return "malformed binary frame"
	case ErrorLengthOutOfRange:
		return "length field out of range"
	}

	return liberr.NullMessage
}
