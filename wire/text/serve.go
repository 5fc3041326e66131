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

package text

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	libcmd "github.com/nabbar/kvtyrant/command"
)

const dialect = libcmd.BitAllText

// ErrQuit is returned by Serve when the client sends "quit", a clean
// shutdown signal rather than a protocol error.
var ErrQuit = errors.New("text: quit")

// Serve drives one text-dialect connection. br is positioned right after
// the single byte the sniffer peeked and pushed back (br already contains
// it), so the very first read is that byte followed by the remainder of
// the command line. Unlike the binary dialect, a malformed line reports
// an error token and keeps the connection open.
func Serve(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	for {
		line, err := readLine(br)
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}

		if err = handleLine(ctx, br, bw, r, line); err != nil {
			if err == ErrQuit {
				_ = bw.Flush()
				return nil
			}
			return err
		}

		if err = bw.Flush(); err != nil {
			return err
		}
	}
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func handleLine(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return writeLine(bw, "ERROR")
	}

	switch fields[0] {
	case "set":
		return cmdStore(ctx, br, bw, r, fields, storeSet)
	case "add":
		return cmdStore(ctx, br, bw, r, fields, storeAdd)
	case "replace":
		return cmdStore(ctx, br, bw, r, fields, storeReplace)
	case "get":
		return cmdGet(ctx, bw, r, fields[1:], false)
	case "gets":
		return cmdGet(ctx, bw, r, fields[1:], true)
	case "delete":
		return cmdDelete(ctx, bw, r, fields)
	case "incr":
		return cmdIncrDecr(ctx, bw, r, fields, 1)
	case "decr":
		return cmdIncrDecr(ctx, bw, r, fields, -1)
	case "stats":
		return cmdStats(ctx, bw, r)
	case "flush_all":
		return cmdFlushAll(ctx, bw, r)
	case "version":
		return writeLine(bw, "VERSION "+libcmd.Version)
	case "quit":
		return ErrQuit
	}

	return writeLine(bw, "ERROR")
}

type storeKind int

const (
	storeSet storeKind = iota
	storeAdd
	storeReplace
)

// cmdStore handles set/add/replace, which share the header shape:
// "<verb> <key> <flags> <exptime> <bytes> [noreply]".
func cmdStore(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router, fields []string, kind storeKind) error {
	if len(fields) < 5 {
		return drainAndError(bw)
	}

	key := []byte(fields[1])
	n, err := strconv.Atoi(fields[4])
	if err != nil || n < 0 {
		return writeLine(bw, "CLIENT_ERROR bad command line format")
	}
	noreply := len(fields) >= 6 && fields[5] == "noreply"

	value := make([]byte, n)
	if n > 0 {
		if _, err = io.ReadFull(br, value); err != nil {
			return err
		}
	}
	if _, err = br.Discard(2); err != nil { // trailing CRLF after the data block
		return err
	}

	var st libcmd.Status
	switch kind {
	case storeSet:
		st, _ = r.Put(ctx, dialect, key, value)
	case storeAdd:
		st, _ = r.PutKeep(ctx, dialect, key, value)
	case storeReplace:
		if _, gst, _ := r.Get(ctx, dialect, key); gst != libcmd.StatusOK {
			st = libcmd.StatusFail
		} else {
			st, _ = r.Put(ctx, dialect, key, value)
		}
	}

	if noreply {
		return nil
	}
	if st == libcmd.StatusOK {
		return writeLine(bw, "STORED")
	}
	return writeLine(bw, "NOT_STORED")
}

func cmdGet(ctx context.Context, bw *bufio.Writer, r *libcmd.Router, keys []string, withCas bool) error {
	for _, k := range keys {
		v, st, _ := r.Get(ctx, dialect, []byte(k))
		if st != libcmd.StatusOK {
			continue
		}

		header := "VALUE " + k + " 0 " + strconv.Itoa(len(v))
		if withCas {
			header += " 0"
		}
		if err := writeLine(bw, header); err != nil {
			return err
		}
		if _, err := bw.Write(v); err != nil {
			return err
		}
		if err := writeLine(bw, ""); err != nil {
			return err
		}
	}

	return writeLine(bw, "END")
}

func cmdDelete(ctx context.Context, bw *bufio.Writer, r *libcmd.Router, fields []string) error {
	if len(fields) < 2 {
		return writeLine(bw, "CLIENT_ERROR bad command line format")
	}
	noreply := len(fields) >= 3 && fields[2] == "noreply"

	st, _ := r.Out(ctx, dialect, []byte(fields[1]))
	if noreply {
		return nil
	}
	if st == libcmd.StatusOK {
		return writeLine(bw, "DELETED")
	}
	return writeLine(bw, "NOT_FOUND")
}

// cmdIncrDecr implements memcached incr/decr on top of the shared addint
// command: unlike the binary dialect's addint, a result that would go
// negative is clamped to zero and the stored record corrected to match.
func cmdIncrDecr(ctx context.Context, bw *bufio.Writer, r *libcmd.Router, fields []string, sign int64) error {
	if len(fields) < 3 {
		return writeLine(bw, "CLIENT_ERROR bad command line format")
	}
	key := []byte(fields[1])
	n, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil || n < 0 {
		return writeLine(bw, "CLIENT_ERROR invalid numeric delta argument")
	}
	noreply := len(fields) >= 4 && fields[3] == "noreply"

	sum, st, _ := r.AddInt(ctx, dialect, key, sign*n)
	if st != libcmd.StatusOK {
		if noreply {
			return nil
		}
		return writeLine(bw, "SERVER_ERROR")
	}

	if sum < 0 {
		sum = 0
		if fst, _ := r.Put(ctx, dialect, key, []byte("0")); fst != libcmd.StatusOK {
			if noreply {
				return nil
			}
			return writeLine(bw, "SERVER_ERROR")
		}
	}

	if noreply {
		return nil
	}
	return writeLine(bw, strconv.FormatInt(sum, 10))
}

func cmdStats(ctx context.Context, bw *bufio.Writer, r *libcmd.Router) error {
	info, st, _ := r.Stat(ctx, dialect, "", 0)
	if st != libcmd.StatusOK {
		return writeLine(bw, "SERVER_ERROR")
	}

	for _, line := range strings.Split(strings.TrimRight(info.TSV(), "\n"), "\n") {
		kv := strings.SplitN(line, "\t", 2)
		if len(kv) != 2 {
			continue
		}
		if err := writeLine(bw, "STAT "+kv[0]+" "+kv[1]); err != nil {
			return err
		}
	}

	return writeLine(bw, "END")
}

func cmdFlushAll(ctx context.Context, bw *bufio.Writer, r *libcmd.Router) error {
	st, _ := r.Vanish(ctx, dialect)
	if st != libcmd.StatusOK {
		return writeLine(bw, "SERVER_ERROR")
	}
	return writeLine(bw, "OK")
}

func writeLine(bw *bufio.Writer, s string) error {
	if _, err := bw.WriteString(s); err != nil {
		return err
	}
	_, err := bw.WriteString("\r\n")
	return err
}

// drainAndError reports a malformed store header. There is no declared
// byte count to skip past, so the rest of the pipelined input (if any) is
// left for the next ReadString call to pick apart as best it can — the
// same ambiguity a real memcache server faces on a badly formed header.
func drainAndError(bw *bufio.Writer) error {
	return writeLine(bw, "ERROR")
}
