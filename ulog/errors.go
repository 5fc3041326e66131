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

package ulog

import (
	"fmt"

	liberr "github.com/nabbar/kvtyrant/errors"
)

const pkgName = "kvtyrant/ulog"

const (
	ErrorDirCreate liberr.CodeError = iota + liberr.MinPkgULog
	ErrorSegmentOpen
	ErrorSegmentWrite
	ErrorSegmentRead
	ErrorPayloadTooLarge
	ErrorFrameCorrupt
	ErrorReaderClosed
)

func init() {
	if liberr.ExistInMapMessage(ErrorDirCreate) {
		panic(fmt.Errorf("error code collision with package %s", pkgName))
	}
	liberr.RegisterIdFctMessage(ErrorDirCreate, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case liberr.UnknownError:
		return liberr.NullMessage
	case ErrorDirCreate:
		return "unable to create update log directory"
	case ErrorSegmentOpen:
		return "unable to open update log segment"
	case ErrorSegmentWrite:
		return "unable to write update log frame"
	case ErrorSegmentRead:
		return "unable to read update log frame"
	case ErrorPayloadTooLarge:
		return "update log payload exceeds the maximum frame size"
	case ErrorFrameCorrupt:
		return "update log frame is truncated or malformed"
	case ErrorReaderClosed:
		return "update log reader is closed"
	}

	return liberr.NullMessage
}
