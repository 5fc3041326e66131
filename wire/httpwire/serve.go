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

package httpwire

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	libcmd "github.com/nabbar/kvtyrant/command"
	liberr "github.com/nabbar/kvtyrant/errors"
)

const dialect = libcmd.BitAllHTTP

// pdMode mirrors the X-TT-PDMODE header: 0 overwrite, 1 insert-only, 2
// concatenate.
type pdMode int

const (
	pdOverwrite pdMode = 0
	pdInsert    pdMode = 1
	pdConcat    pdMode = 2
)

type request struct {
	method  string
	path    string
	headers map[string]string
	body    []byte
}

// Serve drives one HTTP-dialect connection, handling as many pipelined
// keep-alive requests as the client sends until Connection: close (the
// HTTP/1.1 default is keep-alive) or a transport/parse error ends the
// loop.
func Serve(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, r *libcmd.Router) error {
	for {
		req, err := readRequest(br)
		if err != nil {
			return err
		}

		keepAlive, err := handleRequest(ctx, bw, r, req)
		if err != nil {
			return err
		}
		if err = bw.Flush(); err != nil {
			return err
		}
		if !keepAlive {
			return nil
		}
	}
}

func readRequest(br *bufio.Reader) (request, error) {
	line, err := readLine(br)
	if err != nil {
		return request{}, err
	}

	parts := strings.Fields(line)
	if len(parts) != 3 || !strings.HasPrefix(parts[2], "HTTP/1.") {
		return request{}, ErrorMalformedRequest.Error(nil)
	}

	headers := map[string]string{}
	for {
		hl, err := readLine(br)
		if err != nil {
			return request{}, err
		}
		if hl == "" {
			break
		}
		k, v, ok := strings.Cut(hl, ":")
		if !ok {
			return request{}, ErrorMalformedRequest.Error(nil)
		}
		headers[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	var body []byte
	if cl, ok := headers["content-length"]; ok {
		n, cerr := strconv.Atoi(cl)
		if cerr != nil || n < 0 || n > 64<<20 {
			return request{}, ErrorBadContentLength.Error(cerr)
		}
		body = make([]byte, n)
		if n > 0 {
			if _, err = io.ReadFull(br, body); err != nil {
				return request{}, err
			}
		}
	}

	path, perr := url.PathUnescape(strings.TrimPrefix(parts[1], "/"))
	if perr != nil {
		return request{}, ErrorMalformedRequest.Error(perr)
	}

	return request{method: parts[0], path: path, headers: headers, body: body}, nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// handleRequest writes the response and reports whether the connection
// should stay open for another request.
func handleRequest(ctx context.Context, bw *bufio.Writer, r *libcmd.Router, req request) (bool, error) {
	keepAlive := req.headers["connection"] != "close"

	var status int
	var body []byte

	switch req.method {
	case "GET":
		status, body = doGet(ctx, r, req)
	case "HEAD":
		status, _ = doGet(ctx, r, req)
		body = nil
	case "PUT":
		status = doPut(ctx, r, req)
	case "POST":
		status, body = doPost(ctx, r, req)
	case "DELETE":
		status = doDelete(ctx, r, req)
	default:
		status = 405
	}

	return keepAlive, writeResponse(bw, status, body, keepAlive)
}

// statusFromErr maps a failed Status/liberr.Error pair to the HTTP taxonomy
// of §7: a mask denial is always 403 regardless of which command failed;
// anything else is the command-specific "failure" status the caller
// supplies (404 for a missing record, 500 for a genuine backend error).
func statusFromErr(err liberr.Error, otherwise int) int {
	if err != nil && err.IsCode(libcmd.ErrorForbidden) {
		return 403
	}
	return otherwise
}

func doGet(ctx context.Context, r *libcmd.Router, req request) (int, []byte) {
	v, st, err := r.Get(ctx, dialect, []byte(req.path))
	if st != libcmd.StatusOK {
		return statusFromErr(err, 404), nil
	}
	return 200, v
}

func doPut(ctx context.Context, r *libcmd.Router, req request) int {
	mode := pdOverwrite
	if v, ok := req.headers["x-tt-pdmode"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			mode = pdMode(n)
		}
	}

	key := []byte(req.path)
	var st libcmd.Status
	var err liberr.Error

	switch mode {
	case pdInsert:
		st, err = r.PutKeep(ctx, dialect, key, req.body)
		if st != libcmd.StatusOK {
			return statusFromErr(err, 409)
		}
		return 201
	case pdConcat:
		st, err = r.PutCat(ctx, dialect, key, req.body)
	default:
		st, err = r.Put(ctx, dialect, key, req.body)
	}

	if st != libcmd.StatusOK {
		return statusFromErr(err, 500)
	}
	return 201
}

func doDelete(ctx context.Context, r *libcmd.Router, req request) int {
	st, err := r.Out(ctx, dialect, []byte(req.path))
	if st != libcmd.StatusOK {
		return statusFromErr(err, 404)
	}
	return 200
}

// doPost invokes a scripting extension named by X-TT-XNAME, locked per
// X-TT-XOPTS.
func doPost(ctx context.Context, r *libcmd.Router, req request) (int, []byte) {
	name := req.headers["x-tt-xname"]
	if name == "" {
		return 400, nil
	}

	var opts uint8
	if v, ok := req.headers["x-tt-xopts"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			opts = uint8(n)
		}
	}

	out, st, err := r.Ext(ctx, dialect, name, opts, []byte(req.path), req.body)
	if st != libcmd.StatusOK {
		return statusFromErr(err, 500), nil
	}
	return 200, out
}

func writeResponse(bw *bufio.Writer, status int, body []byte, keepAlive bool) error {
	conn := "keep-alive"
	if !keepAlive {
		conn = "close"
	}

	if _, err := fmt.Fprintf(bw, "HTTP/1.1 %d %s\r\n", status, statusText(status)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(bw, "Content-Length: %d\r\n", len(body)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(bw, "Connection: %s\r\n\r\n", conn); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := bw.Write(body); err != nil {
			return err
		}
	}
	return nil
}

func statusText(status int) string {
	switch status {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 400:
		return "Bad Request"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 409:
		return "Conflict"
	case 500:
		return "Internal Server Error"
	}
	return "Unknown"
}
