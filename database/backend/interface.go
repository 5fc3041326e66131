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

// Package backend implements the embedded key/value storage engine consumed
// by the command router. It is deliberately a black box behind a narrow
// contract: open/close, keyed access, a single shared iteration cursor,
// prefix search, the two atomic numeric operations, and maintenance
// subcommands. Composite read-modify-write sequences (putshl, ext) are
// serialised by the caller through the stripe lock array, not by this
// package; Backend only guarantees that every individual call here is
// internally consistent.
package backend

// Backend is the storage engine contract described by the wire protocol's
// command set.
type Backend interface {
	// Open loads (or creates) the backend at path. spec is an opaque,
	// backend-specific tuning string, mirroring the "bucket number,
	// alignment, options" suffix accepted by the reference engine.
	Open(path string, spec string) error

	// Close flushes and releases the backend. Safe to call on an
	// already-closed backend.
	Close() error

	// Put stores value under key, overwriting any existing record.
	Put(key, value []byte) error

	// PutKeep stores value under key only if key does not already exist.
	// Returns ErrorRecordExists otherwise.
	PutKeep(key, value []byte) error

	// PutCat appends value to the existing record under key, or stores it
	// verbatim if key does not exist.
	PutCat(key, value []byte) error

	// Out deletes the record under key. Returns ErrorNoRecord if absent.
	Out(key []byte) error

	// Get returns the value stored under key. Returns ErrorNoRecord if
	// absent.
	Get(key []byte) ([]byte, error)

	// Vsiz returns the size in bytes of the value stored under key.
	// Returns ErrorNoRecord if absent.
	Vsiz(key []byte) (int, error)

	// IterInit (re)initialises the shared iteration cursor over a
	// consistent snapshot of the current key set, in ascending byte order.
	IterInit() error

	// IterNext returns the next key from the cursor opened by IterInit.
	// Returns ErrorIterNotInit if IterInit was never called, and
	// ErrorIterExhausted once every key has been returned.
	IterNext() ([]byte, error)

	// FwmKeys returns up to max keys (0 = unbounded) sharing prefix, in
	// ascending byte order.
	FwmKeys(prefix []byte, max int) ([][]byte, error)

	// AddInt treats the stored value as a textual decimal integer (or 0 if
	// absent), adds delta, stores and returns the new value as textual
	// decimal. Unlike the text dialect's incr/decr, this never clamps: a
	// negative result on an absent key is returned as-is.
	AddInt(key []byte, delta int64) (int64, error)

	// AddDouble is the floating-point equivalent of AddInt.
	AddDouble(key []byte, delta float64) (float64, error)

	// Sync flushes any buffered state to durable storage.
	Sync() error

	// Vanish removes every record, resetting the backend to empty.
	Vanish() error

	// Copy writes a consistent snapshot of the backend to dest.
	Copy(dest string) error

	// RNum returns the current record count.
	RNum() (int64, error)

	// Size returns the approximate on-disk/in-memory size in bytes.
	Size() (int64, error)

	// Mode returns the backend's mode tag, reported verbatim by the stat
	// command.
	Mode() string

	// Misc dispatches a backend-specific subcommand by name. Unknown names
	// return ErrorUnknownMisc.
	Misc(name string, args [][]byte) ([][]byte, error)
}
