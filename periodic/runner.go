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

package periodic

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	liberr "github.com/nabbar/kvtyrant/errors"
	liblog "github.com/nabbar/kvtyrant/logger"
	loglvl "github.com/nabbar/kvtyrant/logger/level"
)

// Task is one named function run on its own ticker.
type Task struct {
	Name     string
	Interval time.Duration
	Func     func(ctx context.Context) error
}

// Runner drives a set of Tasks, each on its own ticker, under a shared
// errgroup so Wait blocks until every ticker goroutine has observed ctx
// cancellation and returned.
type Runner struct {
	tasks []Task
	log   liblog.FuncLog
}

// NewRunner builds a Runner. log may be nil.
func NewRunner(log liblog.FuncLog) *Runner {
	return &Runner{log: log}
}

// Add registers a task. Returns ErrorDuplicateName if the name is already
// registered.
func (r *Runner) Add(t Task) error {
	for _, existing := range r.tasks {
		if existing.Name == t.Name {
			return ErrorDuplicateName.Error(nil)
		}
	}

	r.tasks = append(r.tasks, t)
	return nil
}

// Run starts every registered task and blocks until ctx is cancelled and
// every ticker goroutine has exited. A task function's error is logged and
// does not stop its ticker or any other task.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, t := range r.tasks {
		t := t
		g.Go(func() error {
			r.tick(gctx, t)
			return nil
		})
	}

	return g.Wait()
}

func (r *Runner) tick(ctx context.Context, t Task) {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.Func(ctx); err != nil && r.log != nil {
				r.log().Entry(loglvl.WarnLevel, "periodic task failed").ErrorAdd(true, liberr.Make(err)).Log()
			}
		}
	}
}
