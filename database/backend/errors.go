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
	"fmt"

	liberr "github.com/nabbar/kvtyrant/errors"
)

const pkgName = "kvtyrant/database/backend"

const (
	ErrorNotOpen liberr.CodeError = iota + liberr.MinPkgBackend
	ErrorAlreadyOpen
	ErrorRecordExists
	ErrorNoRecord
	ErrorIterNotInit
	ErrorIterExhausted
	ErrorInvalidNumber
	ErrorCopyFailed
	ErrorUnknownMisc
)

func init() {
	if liberr.ExistInMapMessage(ErrorNotOpen) {
		panic(fmt.Errorf("error code collision with package %s", pkgName))
	}
	liberr.RegisterIdFctMessage(ErrorNotOpen, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case liberr.UnknownError:
		return liberr.NullMessage
	case ErrorNotOpen:
		return "backend is not open"
	case ErrorAlreadyOpen:
		return "backend is already open"
	case ErrorRecordExists:
		return "record already exists"
	case ErrorNoRecord:
		return "no record found for this key"
	case ErrorIterNotInit:
		return "iterator has not been initialised"
	case ErrorIterExhausted:
		return "iterator has no more keys"
	case ErrorInvalidNumber:
		return "stored value is not a valid number for this operation"
	case ErrorCopyFailed:
		return "unable to copy backend snapshot"
	case ErrorUnknownMisc:
		return "unknown misc subcommand"
	}

	return liberr.NullMessage
}
