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

package binary

import (
	"bufio"
	"encoding/binary"
	"io"
)

func readU8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, ErrorMalformedFrame.Error(err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readI32(r io.Reader) (int32, error) {
	v, err := readU32(r)
	return int32(v), err
}

func readU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, ErrorMalformedFrame.Error(err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func readBytes(r io.Reader, n uint32) ([]byte, error) {
	if n > MaxFieldLen {
		return nil, ErrorLengthOutOfRange.Error(nil)
	}

	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, ErrorMalformedFrame.Error(err)
		}
	}

	return buf, nil
}

// readField reads a u32 length prefix followed by that many bytes.
func readField(r io.Reader) ([]byte, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	return readBytes(r, n)
}

func writeU8(w *bufio.Writer, v uint8) error {
	return w.WriteByte(v)
}

func writeU32(w *bufio.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeI32(w *bufio.Writer, v int32) error {
	return writeU32(w, uint32(v))
}

func writeU64(w *bufio.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeField(w *bufio.Writer, b []byte) error {
	if err := writeU32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// packedDoubleScale matches the reference server's ten-to-the-twelfth
// fractional-part scaling.
const packedDoubleScale = 1_000_000_000_000

func readPackedDouble(r io.Reader) (float64, error) {
	ip, err := readU64(r)
	if err != nil {
		return 0, err
	}
	fp, err := readU64(r)
	if err != nil {
		return 0, err
	}

	return float64(ip) + float64(fp)/packedDoubleScale, nil
}

func writePackedDouble(w *bufio.Writer, v float64) error {
	ip := uint64(v)
	fp := uint64((v - float64(ip)) * packedDoubleScale)

	if err := writeU64(w, ip); err != nil {
		return err
	}
	return writeU64(w, fp)
}
