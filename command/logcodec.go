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

package command

import (
	"encoding/binary"
	"math"
)

// logOp tags the operation a ulog frame's payload replays. The update log
// itself treats payload as an opaque byte string (see package ulog); this
// small TLV encoding is this package's own business, shared between the
// handlers that produce frames and the replication follower that replays
// them.
type logOp uint8

const (
	logOpPut logOp = iota + 1
	logOpPutCat
	logOpOut
	logOpAddInt
	logOpAddDouble
)

// LogEntry is a decoded ulog payload, ready to replay against a Backend.
type LogEntry struct {
	Op    logOp
	Key   []byte
	Value []byte
	Delta int64
	DeltaF float64
}

func putUint32Bytes(buf []byte, b []byte) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	buf = append(buf, n[:]...)
	return append(buf, b...)
}

func encodeKV(op logOp, key, value []byte) []byte {
	buf := make([]byte, 0, 9+len(key)+len(value))
	buf = append(buf, byte(op))
	buf = putUint32Bytes(buf, key)
	buf = putUint32Bytes(buf, value)
	return buf
}

func encodePut(key, value []byte) []byte    { return encodeKV(logOpPut, key, value) }
func encodePutCat(key, value []byte) []byte { return encodeKV(logOpPutCat, key, value) }

func encodeOut(key []byte) []byte {
	buf := make([]byte, 0, 5+len(key))
	buf = append(buf, byte(logOpOut))
	return putUint32Bytes(buf, key)
}

func encodeAddInt(key []byte, delta int64) []byte {
	buf := make([]byte, 0, 13+len(key))
	buf = append(buf, byte(logOpAddInt))
	buf = putUint32Bytes(buf, key)
	var d [8]byte
	binary.BigEndian.PutUint64(d[:], uint64(delta))
	return append(buf, d[:]...)
}

func encodeAddDouble(key []byte, delta float64) []byte {
	buf := make([]byte, 0, 13+len(key))
	buf = append(buf, byte(logOpAddDouble))
	buf = putUint32Bytes(buf, key)
	var d [8]byte
	binary.BigEndian.PutUint64(d[:], math.Float64bits(delta))
	return append(buf, d[:]...)
}

// DecodeLogEntry parses a ulog payload produced by this package back into a
// replayable LogEntry, for use by the replication follower.
func DecodeLogEntry(payload []byte) (LogEntry, bool) {
	if len(payload) < 1 {
		return LogEntry{}, false
	}

	op := logOp(payload[0])
	rest := payload[1:]

	readField := func() ([]byte, bool) {
		if len(rest) < 4 {
			return nil, false
		}
		n := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < n {
			return nil, false
		}
		v := rest[:n]
		rest = rest[n:]
		return v, true
	}

	switch op {
	case logOpPut, logOpPutCat:
		key, ok := readField()
		if !ok {
			return LogEntry{}, false
		}
		val, ok := readField()
		if !ok {
			return LogEntry{}, false
		}
		return LogEntry{Op: op, Key: key, Value: val}, true
	case logOpOut:
		key, ok := readField()
		if !ok {
			return LogEntry{}, false
		}
		return LogEntry{Op: op, Key: key}, true
	case logOpAddInt:
		key, ok := readField()
		if !ok || len(rest) < 8 {
			return LogEntry{}, false
		}
		return LogEntry{Op: op, Key: key, Delta: int64(binary.BigEndian.Uint64(rest[:8]))}, true
	case logOpAddDouble:
		key, ok := readField()
		if !ok || len(rest) < 8 {
			return LogEntry{}, false
		}
		return LogEntry{Op: op, Key: key, DeltaF: math.Float64frombits(binary.BigEndian.Uint64(rest[:8]))}, true
	}

	return LogEntry{}, false
}
