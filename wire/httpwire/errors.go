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

// Package httpwire implements the minimal HTTP/1.1 dialect by hand: the
// request line and headers are read and parsed directly off the buffered
// connection reader the dialect sniffer already committed to, rather than
// handed to net/http. That sniffer has already consumed nothing but a
// peeked byte, and the other two dialects share the same connection-level
// buffering, so a net/http.Server (which wants to own the listener) does
// not fit here the way it would for the separate admin surface.
package httpwire

import (
	"fmt"

	liberr "github.com/nabbar/kvtyrant/errors"
)

const pkgName = "kvtyrant/wire/httpwire"

const (
	ErrorMalformedRequest liberr.CodeError = iota + liberr.MinPkgWireHTTP
	ErrorUnsupportedMethod
	ErrorBadContentLength
)

func init() {
	if liberr.ExistInMapMessage(ErrorMalformedRequest) {
		panic(fmt.Errorf("error code collision with package %s", pkgName))
	}
	liberr.RegisterIdFctMessage(ErrorMalformedRequest, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case liberr.UnknownError:
		return liberr.NullMessage
	case ErrorMalformedRequest:
		return "malformed HTTP request line or headers"
	case ErrorUnsupportedMethod:
		return "unsupported HTTP method"
	case ErrorBadContentLength:
		return "invalid or out-of-range Content-Length"
	}

	return liberr.NullMessage
}
