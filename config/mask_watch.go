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
	"os"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"

	libcmd "github.com/nabbar/kvtyrant/command"
	liblog "github.com/nabbar/kvtyrant/logger"
	loglvl "github.com/nabbar/kvtyrant/logger/level"
)

// watchMaskFile tails path for writes, parsing its content as a decimal or
// "0x"-prefixed hex mask value and invoking apply on every change that
// parses cleanly. It runs until ctx is cancelled. A parse failure is
// logged and otherwise ignored — the previous mask stays in effect rather
// than falling back to an unexpectedly permissive or restrictive default.
func watchMaskFile(ctx context.Context, path string, apply func(libcmd.Mask), log liblog.FuncLog) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err = watcher.Add(path); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer func() { _ = watcher.Close() }()

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				m, perr := readMaskFile(path)
				if perr != nil {
					if log != nil {
						log().Entry(loglvl.WarnLevel, "config: mask file %s: %v", path, perr).Log()
					}
					continue
				}
				apply(m)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if log != nil {
					log().Entry(loglvl.WarnLevel, "config: mask watch error: %v", err).Log()
				}
			}
		}
	}()

	return nil
}

func readMaskFile(path string) (libcmd.Mask, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	s := strings.TrimSpace(string(b))
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}

	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, err
	}

	return libcmd.Mask(v), nil
}
