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

package config

import (
	"fmt"

	liberr "github.com/nabbar/kvtyrant/errors"
)

const pkgName = "kvtyrant/config"

const (
	ErrorComponentUnknown liberr.CodeError = iota + liberr.MinPkgConfig
	ErrorComponentDuplicate
	ErrorComponentCycle
	ErrorComponentStart
	ErrorComponentReload
	ErrorViperMissing
	ErrorViperUnmarshal
	ErrorMissingDependency
)

func init() {
	if liberr.ExistInMapMessage(ErrorComponentUnknown) {
		panic(fmt.Errorf("error code collision with package %s", pkgName))
	}
	liberr.RegisterIdFctMessage(ErrorComponentUnknown, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case liberr.UnknownError:
		return liberr.NullMessage
	case ErrorComponentUnknown:
		return "no component registered under this key"
	case ErrorComponentDuplicate:
		return "a component is already registered under this key"
	case ErrorComponentCycle:
		return "dependency cycle detected while ordering components"
	case ErrorComponentStart:
		return "component failed to start"
	case ErrorComponentReload:
		return "component failed to reload"
	case ErrorViperMissing:
		return "no viper instance registered"
	case ErrorViperUnmarshal:
		return "unable to unmarshal component configuration"
	case ErrorMissingDependency:
		return "a required sibling component is not registered or is the wrong type"
	}

	return liberr.NullMessage
}
