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

// Command kvtyrantctl is a thin binary-protocol admin client: one TCP
// round trip per invocation, no core command logic duplicated here. It
// speaks the same framing wire/binary decodes server-side, grounded on
// tcrmgr.c's one-shot connect/send/read/close shape (original_source).
package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	libbin "github.com/nabbar/kvtyrant/wire/binary"
)

// conn wraps one short-lived binary-dialect connection: write a single
// request frame, read its response, close.
type conn struct {
	nc net.Conn
	br *bufio.Reader
	bw *bufio.Writer
}

func dial(addr string, timeout time.Duration) (*conn, error) {
	nc, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return &conn{nc: nc, br: bufio.NewReader(nc), bw: bufio.NewWriter(nc)}, nil
}

func (c *conn) Close() error { return c.nc.Close() }

func (c *conn) writeByte(b byte) error { return c.bw.WriteByte(b) }

func (c *conn) writeU32(v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := c.bw.Write(b[:])
	return err
}

func (c *conn) writeI32(v int32) error { return c.writeU32(uint32(v)) }

func (c *conn) writeU64(v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := c.bw.Write(b[:])
	return err
}

func (c *conn) writeBytes(b []byte) error {
	_, err := c.bw.Write(b)
	return err
}

func (c *conn) writeField(b []byte) error {
	if err := c.writeU32(uint32(len(b))); err != nil {
		return err
	}
	return c.writeBytes(b)
}

// beginFrame writes the dialect magic and opcode, per every frame after
// the connection's first byte requiring its own magic prefix (see
// wire/binary/serve.go's Serve loop).
func (c *conn) beginFrame(op uint8) error {
	if err := c.writeByte(libbin.Magic); err != nil {
		return err
	}
	return c.writeByte(op)
}

func (c *conn) flush() error { return c.bw.Flush() }

func (c *conn) readU8() (uint8, error) {
	return c.br.ReadByte()
}

func (c *conn) readU32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(c.br, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func (c *conn) readI32() (int32, error) {
	v, err := c.readU32()
	return int32(v), err
}

func (c *conn) readU64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(c.br, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func (c *conn) readBytes(n uint32) ([]byte, error) {
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(c.br, buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (c *conn) readField() ([]byte, error) {
	n, err := c.readU32()
	if err != nil {
		return nil, err
	}
	return c.readBytes(n)
}

// readStatus reads the one-byte status every response starts with and
// turns a non-zero value into an error the CLI surfaces to the operator.
func (c *conn) readStatus() error {
	st, err := c.readU8()
	if err != nil {
		return err
	}
	if st != 0 {
		return errServerError
	}
	return nil
}

var errServerError = errors.New("server returned a failure status")

func ctlPut(addr string, key, value []byte, timeout time.Duration) error {
	c, err := dial(addr, timeout)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err = c.beginFrame(libbin.OpPut); err != nil {
		return err
	}
	if err = c.writeU32(uint32(len(key))); err != nil {
		return err
	}
	if err = c.writeU32(uint32(len(value))); err != nil {
		return err
	}
	if err = c.writeBytes(key); err != nil {
		return err
	}
	if err = c.writeBytes(value); err != nil {
		return err
	}
	if err = c.flush(); err != nil {
		return err
	}

	return c.readStatus()
}

func ctlOut(addr string, key []byte, timeout time.Duration) error {
	c, err := dial(addr, timeout)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err = c.beginFrame(libbin.OpOut); err != nil {
		return err
	}
	if err = c.writeU32(uint32(len(key))); err != nil {
		return err
	}
	if err = c.writeBytes(key); err != nil {
		return err
	}
	if err = c.flush(); err != nil {
		return err
	}

	return c.readStatus()
}

func ctlGet(addr string, key []byte, timeout time.Duration) ([]byte, error) {
	c, err := dial(addr, timeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()

	if err = c.beginFrame(libbin.OpGet); err != nil {
		return nil, err
	}
	if err = c.writeU32(uint32(len(key))); err != nil {
		return nil, err
	}
	if err = c.writeBytes(key); err != nil {
		return nil, err
	}
	if err = c.flush(); err != nil {
		return nil, err
	}

	if err = c.readStatus(); err != nil {
		return nil, err
	}
	return c.readField()
}

func ctlMGet(addr string, keys [][]byte, timeout time.Duration) (map[string][]byte, error) {
	c, err := dial(addr, timeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()

	if err = c.beginFrame(libbin.OpMGet); err != nil {
		return nil, err
	}
	if err = c.writeU32(uint32(len(keys))); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if err = c.writeU32(uint32(len(k))); err != nil {
			return nil, err
		}
		if err = c.writeBytes(k); err != nil {
			return nil, err
		}
	}
	if err = c.flush(); err != nil {
		return nil, err
	}

	if err = c.readStatus(); err != nil {
		return nil, err
	}

	rnum, err := c.readU32()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, rnum)
	for i := uint32(0); i < rnum; i++ {
		ksiz, err := c.readU32()
		if err != nil {
			return nil, err
		}
		vsiz, err := c.readU32()
		if err != nil {
			return nil, err
		}
		k, err := c.readBytes(ksiz)
		if err != nil {
			return nil, err
		}
		v, err := c.readBytes(vsiz)
		if err != nil {
			return nil, err
		}
		out[string(k)] = v
	}

	return out, nil
}

func ctlFwmKeys(addr string, prefix []byte, max uint32, timeout time.Duration) ([][]byte, error) {
	c, err := dial(addr, timeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()

	if err = c.beginFrame(libbin.OpFwmKeys); err != nil {
		return nil, err
	}
	if err = c.writeU32(uint32(len(prefix))); err != nil {
		return nil, err
	}
	if err = c.writeU32(max); err != nil {
		return nil, err
	}
	if err = c.writeBytes(prefix); err != nil {
		return nil, err
	}
	if err = c.flush(); err != nil {
		return nil, err
	}

	if err = c.readStatus(); err != nil {
		return nil, err
	}

	n, err := c.readU32()
	if err != nil {
		return nil, err
	}

	keys := make([][]byte, n)
	for i := range keys {
		if keys[i], err = c.readField(); err != nil {
			return nil, err
		}
	}

	return keys, nil
}

func ctlAddInt(addr string, key []byte, delta int32, timeout time.Duration) (int32, error) {
	c, err := dial(addr, timeout)
	if err != nil {
		return 0, err
	}
	defer func() { _ = c.Close() }()

	if err = c.beginFrame(libbin.OpAddInt); err != nil {
		return 0, err
	}
	if err = c.writeU32(uint32(len(key))); err != nil {
		return 0, err
	}
	if err = c.writeI32(delta); err != nil {
		return 0, err
	}
	if err = c.writeBytes(key); err != nil {
		return 0, err
	}
	if err = c.flush(); err != nil {
		return 0, err
	}

	if err = c.readStatus(); err != nil {
		return 0, err
	}
	return c.readI32()
}

func ctlSync(addr string, timeout time.Duration) error {
	c, err := dial(addr, timeout)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err = c.beginFrame(libbin.OpSync); err != nil {
		return err
	}
	if err = c.flush(); err != nil {
		return err
	}
	return c.readStatus()
}

func ctlVanish(addr string, timeout time.Duration) error {
	c, err := dial(addr, timeout)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err = c.beginFrame(libbin.OpVanish); err != nil {
		return err
	}
	if err = c.flush(); err != nil {
		return err
	}
	return c.readStatus()
}

func ctlCopy(addr, path string, timeout time.Duration) error {
	c, err := dial(addr, timeout)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err = c.beginFrame(libbin.OpCopy); err != nil {
		return err
	}
	if err = c.writeField([]byte(path)); err != nil {
		return err
	}
	if err = c.flush(); err != nil {
		return err
	}
	return c.readStatus()
}

func ctlSetMst(addr, masterHost string, masterPort uint32, timeout time.Duration) error {
	c, err := dial(addr, timeout)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err = c.beginFrame(libbin.OpSetMst); err != nil {
		return err
	}
	if err = c.writeU32(uint32(len(masterHost))); err != nil {
		return err
	}
	if err = c.writeU32(masterPort); err != nil {
		return err
	}
	if err = c.writeBytes([]byte(masterHost)); err != nil {
		return err
	}
	if err = c.flush(); err != nil {
		return err
	}
	return c.readStatus()
}

func ctlRNum(addr string, timeout time.Duration) (uint64, error) {
	c, err := dial(addr, timeout)
	if err != nil {
		return 0, err
	}
	defer func() { _ = c.Close() }()

	if err = c.beginFrame(libbin.OpRNum); err != nil {
		return 0, err
	}
	if err = c.flush(); err != nil {
		return 0, err
	}
	if err = c.readStatus(); err != nil {
		return 0, err
	}
	return c.readU64()
}

func ctlSize(addr string, timeout time.Duration) (uint64, error) {
	c, err := dial(addr, timeout)
	if err != nil {
		return 0, err
	}
	defer func() { _ = c.Close() }()

	if err = c.beginFrame(libbin.OpSize); err != nil {
		return 0, err
	}
	if err = c.flush(); err != nil {
		return 0, err
	}
	if err = c.readStatus(); err != nil {
		return 0, err
	}
	return c.readU64()
}

func ctlStat(addr string, timeout time.Duration) (string, error) {
	c, err := dial(addr, timeout)
	if err != nil {
		return "", err
	}
	defer func() { _ = c.Close() }()

	if err = c.beginFrame(libbin.OpStat); err != nil {
		return "", err
	}
	if err = c.flush(); err != nil {
		return "", err
	}
	if err = c.readStatus(); err != nil {
		return "", err
	}

	tsv, err := c.readField()
	if err != nil {
		return "", err
	}
	return string(tsv), nil
}

func ctlMisc(addr, name string, args [][]byte, timeout time.Duration) ([][]byte, error) {
	c, err := dial(addr, timeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()

	if err = c.beginFrame(libbin.OpMisc); err != nil {
		return nil, err
	}
	if err = c.writeU32(uint32(len(name))); err != nil {
		return nil, err
	}
	if err = c.writeI32(0); err != nil {
		return nil, err
	}
	if err = c.writeU32(uint32(len(args))); err != nil {
		return nil, err
	}
	if err = c.writeBytes([]byte(name)); err != nil {
		return nil, err
	}
	for _, a := range args {
		if err = c.writeField(a); err != nil {
			return nil, err
		}
	}
	if err = c.flush(); err != nil {
		return nil, err
	}

	if err = c.readStatus(); err != nil {
		return nil, fmt.Errorf("misc %s: %w", name, err)
	}

	n, err := c.readU32()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, n)
	for i := range out {
		if out[i], err = c.readField(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
