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
	"context"
	"io"

	libcmd "github.com/nabbar/kvtyrant/command"
	librep "github.com/nabbar/kvtyrant/replication"
)

const dialect = libcmd.BitAllBinary

// Serve drives one binary-dialect connection to completion: br is
// positioned right after the magic byte that selected this dialect. The
// loop runs until the peer disconnects, a transport error occurs, or a
// frame fails to parse — binary decoder desync is unrecoverable, so any
// framing error closes the connection rather than attempting resync.
func Serve(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	for {
		code, err := readU8(br)
		if err != nil {
			return err
		}

		if err = dispatch(ctx, br, bw, r, code); err != nil {
			return err
		}

		if err = bw.Flush(); err != nil {
			return err
		}

		// Every frame after the first must see its own magic byte again.
		m, err := readU8(br)
		if err != nil {
			return err
		}
		if m != Magic {
			return ErrorMalformedFrame.Error(nil)
		}
	}
}

func dispatch(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router, code uint8) error {
	switch code {
	case OpPut:
		return handlePut(ctx, br, bw, r)
	case OpPutKeep:
		return handlePutKeep(ctx, br, bw, r)
	case OpPutCat:
		return handlePutCat(ctx, br, bw, r)
	case OpPutShl:
		return handlePutShl(ctx, br, bw, r)
	case OpPutNr:
		return handlePutNr(ctx, br, r)
	case OpOut:
		return handleOut(ctx, br, bw, r)
	case OpGet:
		return handleGet(ctx, br, bw, r)
	case OpMGet:
		return handleMGet(ctx, br, bw, r)
	case OpVsiz:
		return handleVsiz(ctx, br, bw, r)
	case OpIterInit:
		return handleIterInit(ctx, bw, r)
	case OpIterNext:
		return handleIterNext(ctx, bw, r)
	case OpFwmKeys:
		return handleFwmKeys(ctx, br, bw, r)
	case OpAddInt:
		return handleAddInt(ctx, br, bw, r)
	case OpAddDouble:
		return handleAddDouble(ctx, br, bw, r)
	case OpExt:
		return handleExt(ctx, br, bw, r)
	case OpSync:
		return handleSync(ctx, bw, r)
	case OpVanish:
		return handleVanish(ctx, bw, r)
	case OpCopy:
		return handleCopy(ctx, br, bw, r)
	case OpRestore:
		return handleRestore(ctx, br, bw, r)
	case OpSetMst:
		return handleSetMst(ctx, br, bw, r)
	case OpRNum:
		return handleRNum(ctx, bw, r)
	case OpSize:
		return handleSize(ctx, bw, r)
	case OpStat:
		return handleStat(ctx, bw, r)
	case OpMisc:
		return handleMisc(ctx, br, bw, r)
	case OpRepl:
		return handleRepl(ctx, br, bw, r)
	}

	return ErrorUnknownCommand.Error(nil)
}

func writeStatus(bw *bufio.Writer, status libcmd.Status) error {
	return writeU8(bw, status)
}

func handlePut(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	key, value, err := readKV(br)
	if err != nil {
		return err
	}

	st, e := r.Put(ctx, dialect, key, value)
	_ = e
	return writeStatus(bw, st)
}

func handlePutKeep(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	key, value, err := readKV(br)
	if err != nil {
		return err
	}

	st, _ := r.PutKeep(ctx, dialect, key, value)
	return writeStatus(bw, st)
}

func handlePutCat(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	key, value, err := readKV(br)
	if err != nil {
		return err
	}

	st, _ := r.PutCat(ctx, dialect, key, value)
	return writeStatus(bw, st)
}

func handlePutShl(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	ksiz, err := readU32(br)
	if err != nil {
		return err
	}
	vsiz, err := readU32(br)
	if err != nil {
		return err
	}
	width, err := readU32(br)
	if err != nil {
		return err
	}
	key, err := readBytes(br, ksiz)
	if err != nil {
		return err
	}
	value, err := readBytes(br, vsiz)
	if err != nil {
		return err
	}

	st, _ := r.PutShl(ctx, dialect, key, value, int(width))
	return writeStatus(bw, st)
}

func handlePutNr(ctx context.Context, br *bufio.Reader, r *libcmd.Router) error {
	key, value, err := readKV(br)
	if err != nil {
		return err
	}

	r.PutNr(ctx, dialect, key, value)
	return nil
}

func handleOut(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	ksiz, err := readU32(br)
	if err != nil {
		return err
	}
	key, err := readBytes(br, ksiz)
	if err != nil {
		return err
	}

	st, _ := r.Out(ctx, dialect, key)
	return writeStatus(bw, st)
}

func handleGet(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	ksiz, err := readU32(br)
	if err != nil {
		return err
	}
	key, err := readBytes(br, ksiz)
	if err != nil {
		return err
	}

	v, st, _ := r.Get(ctx, dialect, key)
	if err = writeStatus(bw, st); err != nil {
		return err
	}
	if st != libcmd.StatusOK {
		return nil
	}

	return writeField(bw, v)
}

func handleMGet(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	rnum, err := readU32(br)
	if err != nil {
		return err
	}

	keys := make([][]byte, rnum)
	for i := range keys {
		ksiz, err := readU32(br)
		if err != nil {
			return err
		}
		keys[i], err = readBytes(br, ksiz)
		if err != nil {
			return err
		}
	}

	pairs, st, _ := r.MGet(ctx, dialect, keys)
	if err = writeStatus(bw, st); err != nil {
		return err
	}
	if st != libcmd.StatusOK {
		return nil
	}

	if err = writeU32(bw, uint32(len(pairs))); err != nil {
		return err
	}
	for _, p := range pairs {
		if err = writeU32(bw, uint32(len(p.Key))); err != nil {
			return err
		}
		if err = writeU32(bw, uint32(len(p.Value))); err != nil {
			return err
		}
		if _, err = bw.Write(p.Key); err != nil {
			return err
		}
		if _, err = bw.Write(p.Value); err != nil {
			return err
		}
	}

	return nil
}

func handleVsiz(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	ksiz, err := readU32(br)
	if err != nil {
		return err
	}
	key, err := readBytes(br, ksiz)
	if err != nil {
		return err
	}

	n, st, _ := r.Vsiz(ctx, dialect, key)
	if err = writeStatus(bw, st); err != nil {
		return err
	}
	if st != libcmd.StatusOK {
		return nil
	}

	return writeU32(bw, uint32(n))
}

func handleIterInit(ctx context.Context, bw *bufio.Writer, r *libcmd.Router) error {
	st, _ := r.IterInit(ctx, dialect)
	return writeStatus(bw, st)
}

func handleIterNext(ctx context.Context, bw *bufio.Writer, r *libcmd.Router) error {
	k, st, _ := r.IterNext(ctx, dialect)
	if err := writeStatus(bw, st); err != nil {
		return err
	}
	if st != libcmd.StatusOK {
		return nil
	}

	return writeField(bw, k)
}

func handleFwmKeys(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	psiz, err := readU32(br)
	if err != nil {
		return err
	}
	max, err := readU32(br)
	if err != nil {
		return err
	}
	prefix, err := readBytes(br, psiz)
	if err != nil {
		return err
	}

	keys, st, _ := r.FwmKeys(ctx, dialect, prefix, int(max))
	if err = writeStatus(bw, st); err != nil {
		return err
	}
	if st != libcmd.StatusOK {
		return nil
	}

	if err = writeU32(bw, uint32(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		if err = writeField(bw, k); err != nil {
			return err
		}
	}

	return nil
}

func handleAddInt(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	ksiz, err := readU32(br)
	if err != nil {
		return err
	}
	delta, err := readI32(br)
	if err != nil {
		return err
	}
	key, err := readBytes(br, ksiz)
	if err != nil {
		return err
	}

	sum, st, _ := r.AddInt(ctx, dialect, key, int64(delta))
	if err = writeStatus(bw, st); err != nil {
		return err
	}
	if st != libcmd.StatusOK {
		return nil
	}

	return writeI32(bw, int32(sum))
}

func handleAddDouble(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	ksiz, err := readU32(br)
	if err != nil {
		return err
	}
	delta, err := readPackedDouble(br)
	if err != nil {
		return err
	}
	key, err := readBytes(br, ksiz)
	if err != nil {
		return err
	}

	sum, st, _ := r.AddDouble(ctx, dialect, key, delta)
	if err = writeStatus(bw, st); err != nil {
		return err
	}
	if st != libcmd.StatusOK {
		return nil
	}

	return writePackedDouble(bw, sum)
}

func handleExt(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	nsiz, err := readU32(br)
	if err != nil {
		return err
	}
	opts, err := readI32(br)
	if err != nil {
		return err
	}
	ksiz, err := readU32(br)
	if err != nil {
		return err
	}
	vsiz, err := readU32(br)
	if err != nil {
		return err
	}
	name, err := readBytes(br, nsiz)
	if err != nil {
		return err
	}
	key, err := readBytes(br, ksiz)
	if err != nil {
		return err
	}
	value, err := readBytes(br, vsiz)
	if err != nil {
		return err
	}

	out, st, _ := r.Ext(ctx, dialect, string(name), uint8(opts), key, value)
	if err = writeStatus(bw, st); err != nil {
		return err
	}
	if st != libcmd.StatusOK {
		return nil
	}

	return writeField(bw, out)
}

func handleSync(ctx context.Context, bw *bufio.Writer, r *libcmd.Router) error {
	st, _ := r.Sync(ctx, dialect)
	return writeStatus(bw, st)
}

func handleVanish(ctx context.Context, bw *bufio.Writer, r *libcmd.Router) error {
	st, _ := r.Vanish(ctx, dialect)
	return writeStatus(bw, st)
}

func handleCopy(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	path, err := readField(br)
	if err != nil {
		return err
	}

	st, _ := r.Copy(ctx, dialect, string(path))
	return writeStatus(bw, st)
}

func handleRestore(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	psiz, err := readU32(br)
	if err != nil {
		return err
	}
	ts, err := readU64(br)
	if err != nil {
		return err
	}
	path, err := readBytes(br, psiz)
	if err != nil {
		return err
	}

	checkConsistency := true
	dir := string(path)
	if len(dir) > 0 && dir[0] == '+' {
		checkConsistency = false
		dir = dir[1:]
	}

	st, _ := r.Restore(ctx, dialect, dir, ts, checkConsistency)
	return writeStatus(bw, st)
}

func handleSetMst(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	hsiz, err := readU32(br)
	if err != nil {
		return err
	}
	port, err := readU32(br)
	if err != nil {
		return err
	}
	host, err := readBytes(br, hsiz)
	if err != nil {
		return err
	}

	st, _ := r.SetMst(ctx, dialect, string(host), port)
	return writeStatus(bw, st)
}

func handleRNum(ctx context.Context, bw *bufio.Writer, r *libcmd.Router) error {
	n, st, _ := r.RNum(ctx, dialect)
	if err := writeStatus(bw, st); err != nil {
		return err
	}
	if st != libcmd.StatusOK {
		return nil
	}
	return writeU64(bw, uint64(n))
}

func handleSize(ctx context.Context, bw *bufio.Writer, r *libcmd.Router) error {
	n, st, _ := r.Size(ctx, dialect)
	if err := writeStatus(bw, st); err != nil {
		return err
	}
	if st != libcmd.StatusOK {
		return nil
	}
	return writeU64(bw, uint64(n))
}

func handleStat(ctx context.Context, bw *bufio.Writer, r *libcmd.Router) error {
	info, st, _ := r.Stat(ctx, dialect, "", 0)
	if err := writeStatus(bw, st); err != nil {
		return err
	}
	if st != libcmd.StatusOK {
		return nil
	}

	return writeField(bw, []byte(info.TSV()))
}

func handleMisc(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	nsiz, err := readU32(br)
	if err != nil {
		return err
	}
	opts, err := readI32(br)
	if err != nil {
		return err
	}
	rnum, err := readU32(br)
	if err != nil {
		return err
	}
	name, err := readBytes(br, nsiz)
	if err != nil {
		return err
	}

	args := make([][]byte, rnum)
	for i := range args {
		n, err := readU32(br)
		if err != nil {
			return err
		}
		args[i], err = readBytes(br, n)
		if err != nil {
			return err
		}
	}

	out, st, _ := r.Misc(ctx, dialect, string(name), uint8(opts), args)
	if err = writeStatus(bw, st); err != nil {
		return err
	}
	if st != libcmd.StatusOK {
		return nil
	}

	if err = writeU32(bw, uint32(len(out))); err != nil {
		return err
	}
	for _, b := range out {
		if err = writeField(bw, b); err != nil {
			return err
		}
	}

	return nil
}

// handleRepl streams the update log from ts as the reference server's repl
// handler does: it never returns control to the request loop until the
// connection drops, since the "response" IS the rest of the connection.
func handleRepl(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	ts, err := readU64(br)
	if err != nil {
		return err
	}
	_, err = readU32(br) // follower sid, informational only on the master side
	if err != nil {
		return err
	}

	rd, err := r.ReplReader(ts)
	if err != nil {
		return err
	}
	defer func() { _ = rd.Close() }()

	if err = bw.Flush(); err != nil {
		return err
	}

	return librep.Stream(ctx, streamWriter{bw}, rd, 0)
}

// streamWriter flushes after every write so the follower sees frames as
// they are produced rather than buffered indefinitely.
type streamWriter struct {
	bw *bufio.Writer
}

func (s streamWriter) Write(p []byte) (int, error) {
	n, err := s.bw.Write(p)
	if err != nil {
		return n, err
	}
	return n, s.bw.Flush()
}

func readKV(r io.Reader) (key, value []byte, err error) {
	ksiz, err := readU32(r)
	if err != nil {
		return nil, nil, err
	}
	vsiz, err := readU32(r)
	if err != nil {
		return nil, nil, err
	}
	key, err = readBytes(r, ksiz)
	if err != nil {
		return nil, nil, err
	}
	value, err = readBytes(r, vsiz)
	if err != nil {
		return nil, nil, err
	}
	return key, value, nil
}
