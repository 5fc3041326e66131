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

import liberr "github.com/nabbar/kvtyrant/errors"

// Start brings every component up in dependency order. If a component fails
// to start, every component already started in this call is stopped again
// in reverse order before the error is returned.
func (c *configModel) Start() liberr.Error {
	order, e := c.orderedKeys()
	if e != nil {
		return e
	}

	started := make([]string, 0, len(order))

	for _, k := range order {
		cpt := c.ComponentGet(k)
		if cpt == nil {
			continue
		}

		if er := cpt.Start(); er != nil {
			for i := len(started) - 1; i >= 0; i-- {
				if sc := c.ComponentGet(started[i]); sc != nil {
					sc.Stop()
				}
			}
			return ErrorComponentStart.Error(er)
		}

		started = append(started, k)
	}

	return nil
}

// Reload re-applies configuration to every component in dependency order.
// The first failure aborts the sequence; components already reloaded keep
// running with their new configuration.
func (c *configModel) Reload() liberr.Error {
	order, e := c.orderedKeys()
	if e != nil {
		return e
	}

	for _, k := range order {
		cpt := c.ComponentGet(k)
		if cpt == nil {
			continue
		}

		if er := cpt.Reload(); er != nil {
			return ErrorComponentReload.Error(er)
		}
	}

	return nil
}

// Stop brings every component down in reverse dependency order, best effort.
func (c *configModel) Stop() {
	order, e := c.orderedKeys()
	if e != nil {
		for _, k := range c.ComponentKeys() {
			if cpt := c.ComponentGet(k); cpt != nil {
				cpt.Stop()
			}
		}
		return
	}

	for i := len(order) - 1; i >= 0; i-- {
		if cpt := c.ComponentGet(order[i]); cpt != nil {
			cpt.Stop()
		}
	}
}
