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

package ulog

import (
	"encoding/binary"
	"io"
)

// Magic is the on-disk frame marker (u8). Every on-disk frame is an event;
// the keepalive marker used by the replication wire stream lives in the
// replication package, not here.
const Magic uint8 = 0xC8

// MaxPayload is the largest payload a single frame may carry (2^24 bytes).
const MaxPayload = 1 << 24

// frameHeaderLen is magic(1) + timestamp(8) + sid(4) + payload-len(4).
const frameHeaderLen = 1 + 8 + 4 + 4

// Frame is one update-log event: a monotonic microsecond timestamp, the
// originating server id, and an opaque payload describing the mutation in
// a form the backend can replay.
type Frame struct {
	Timestamp uint64
	SID       uint32
	Payload   []byte
}

// Encode writes the frame to w in the on-disk wire form. Returns the number
// of bytes written.
func (f Frame) Encode(w io.Writer) (int, error) {
	if len(f.Payload) > MaxPayload {
		return 0, ErrorPayloadTooLarge.Error(nil)
	}

	buf := make([]byte, frameHeaderLen+len(f.Payload))
	buf[0] = Magic
	binary.BigEndian.PutUint64(buf[1:9], f.Timestamp)
	binary.BigEndian.PutUint32(buf[9:13], f.SID)
	binary.BigEndian.PutUint32(buf[13:17], uint32(len(f.Payload)))
	copy(buf[frameHeaderLen:], f.Payload)

	return w.Write(buf)
}

// DecodeFrame reads one frame from r. Returns io.EOF only when zero bytes
// could be read for a new frame header; any partial header or payload read
// failure is reported as ErrorFrameCorrupt.
func DecodeFrame(r io.Reader) (Frame, error) {
	var hdr [frameHeaderLen]byte

	if _, err := io.ReadFull(r, hdr[:1]); err != nil {
		return Frame{}, err
	}

	if hdr[0] != Magic {
		return Frame{}, ErrorFrameCorrupt.Error(nil)
	}

	if _, err := io.ReadFull(r, hdr[1:]); err != nil {
		return Frame{}, ErrorFrameCorrupt.Error(err)
	}

	ts := binary.BigEndian.Uint64(hdr[1:9])
	sid := binary.BigEndian.Uint32(hdr[9:13])
	plen := binary.BigEndian.Uint32(hdr[13:17])

	if plen > MaxPayload {
		return Frame{}, ErrorFrameCorrupt.Error(nil)
	}

	payload := make([]byte, plen)
	if plen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, ErrorFrameCorrupt.Error(err)
		}
	}

	return Frame{Timestamp: ts, SID: sid, Payload: payload}, nil
}
