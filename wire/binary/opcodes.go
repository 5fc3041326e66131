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

// Magic is the binary dialect's frame marker, also the byte the server's
// connection sniffer checks first to pick this dialect over text/HTTP.
const Magic uint8 = 0xC8

// Command codes, exactly the opcode table.
const (
	OpPut       uint8 = 0x10
	OpPutKeep   uint8 = 0x11
	OpPutCat    uint8 = 0x12
	OpPutShl    uint8 = 0x13
	OpPutNr     uint8 = 0x18
	OpOut       uint8 = 0x20
	OpGet       uint8 = 0x30
	OpMGet      uint8 = 0x31
	OpVsiz      uint8 = 0x38
	OpIterInit  uint8 = 0x50
	OpIterNext  uint8 = 0x51
	OpFwmKeys   uint8 = 0x58
	OpAddInt    uint8 = 0x60
	OpAddDouble uint8 = 0x61
	OpExt       uint8 = 0x68
	OpSync      uint8 = 0x70
	OpVanish    uint8 = 0x71
	OpCopy      uint8 = 0x72
	OpRestore   uint8 = 0x73
	OpSetMst    uint8 = 0x78
	OpRNum      uint8 = 0x80
	OpSize      uint8 = 0x81
	OpStat      uint8 = 0x88
	OpMisc      uint8 = 0x90
	OpRepl      uint8 = 0xA0
)

// MaxFieldLen bounds any single length-prefixed field this dialect will
// accept, guarding against a hostile or corrupt u32 length driving an
// unbounded allocation.
const MaxFieldLen = 64 << 20
