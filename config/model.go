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
	"context"
	"sort"
	"sync"

	liberr "github.com/nabbar/kvtyrant/errors"
	liblog "github.com/nabbar/kvtyrant/logger"
	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"
)

type configModel struct {
	mu  sync.RWMutex
	ctx context.Context
	vpr *spfvpr.Viper
	log liblog.FuncLog
	cpt map[string]Component
}

func (c *configModel) Context() context.Context {
	return c.ctx
}

func (c *configModel) RegisterFuncViper(vpr *spfvpr.Viper) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vpr = vpr
}

func (c *configModel) RegisterDefaultLogger(log liblog.FuncLog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = log
}

func (c *configModel) get(key string) func(key string) Component {
	return func(key string) Component {
		return c.ComponentGet(key)
	}
}

func (c *configModel) ComponentSet(key string, cpt Component) liberr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.cpt[key]; ok {
		return ErrorComponentDuplicate.Error(nil)
	}

	cpt.Init(key, c.ctx, c.get(key), c.vpr, c.log)
	c.cpt[key] = cpt

	return nil
}

func (c *configModel) ComponentGet(key string) Component {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.cpt[key]
}

func (c *configModel) ComponentKeys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	k := make([]string, 0, len(c.cpt))
	for i := range c.cpt {
		k = append(k, i)
	}

	sort.Strings(k)
	return k
}

func (c *configModel) RegisterFlags(cmd *spfcbr.Command) liberr.Error {
	for _, k := range c.ComponentKeys() {
		if e := c.ComponentGet(k).RegisterFlag(cmd); e != nil {
			return ErrorComponentStart.Error(e)
		}
	}

	return nil
}

// orderedKeys performs a deterministic topological sort of registered
// components following Dependencies(). Cycle detection returns an error
// instead of an ordering.
func (c *configModel) orderedKeys() ([]string, liberr.Error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var (
		visited = make(map[string]uint8) // 0=unvisited 1=visiting 2=done
		order   = make([]string, 0, len(c.cpt))
	)

	var visit func(key string) liberr.Error
	visit = func(key string) liberr.Error {
		switch visited[key] {
		case 2:
			return nil
		case 1:
			return ErrorComponentCycle.Error(nil)
		}

		visited[key] = 1

		cpt, ok := c.cpt[key]
		if !ok {
			return ErrorComponentUnknown.Error(nil)
		}

		deps := cpt.Dependencies()
		sort.Strings(deps)

		for _, d := range deps {
			if _, ok = c.cpt[d]; !ok {
				continue
			}
			if e := visit(d); e != nil {
				return e
			}
		}

		visited[key] = 2
		order = append(order, key)

		return nil
	}

	keys := make([]string, 0, len(c.cpt))
	for k := range c.cpt {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if e := visit(k); e != nil {
			return nil, e
		}
	}

	return order, nil
}
