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
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// pidFileName is the advisory-locked, PID-stamped file kept in the
// backend data directory, preventing a second kvtyrantd from opening the
// same on-disk database concurrently.
const pidFileName = "kvtyrantd.pid"

// PIDFile is an open, exclusively flock'd pid file. Holding the file
// descriptor open for the process lifetime keeps the lock in effect;
// Release closes it.
type PIDFile struct {
	f *os.File
}

// ErrPIDFileLocked is returned by AcquirePIDFile when another process
// already holds the lock on the same data directory.
var ErrPIDFileLocked = fmt.Errorf("another kvtyrantd instance already holds the data directory lock")

// AcquirePIDFile opens (creating if needed) dir's pid file, takes a
// non-blocking exclusive flock on it, and stamps it with the current
// process id. Grounded on the pack's daemonrunner flock idiom
// (golang.org/x/sys/unix's LOCK_EX|LOCK_NB, EWOULDBLOCK meaning held).
func AcquirePIDFile(dir string) (*PIDFile, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, pidFileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o640)
	if err != nil {
		return nil, err
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, ErrPIDFileLocked
		}
		return nil, err
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &PIDFile{f: f}, nil
}

// Release closes the pid file, dropping the flock.
func (p *PIDFile) Release() error {
	return p.f.Close()
}
