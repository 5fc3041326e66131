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
	"encoding/binary"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// sidFileName is the ASCII-decimal server-id file kept in the state
// directory, mirroring the PID-file convention elsewhere in this
// package's sibling components.
const sidFileName = "sid"

// resolveSID returns a non-zero server id: configured if non-zero,
// otherwise the one previously persisted in dir, otherwise a freshly
// generated one written to dir for next boot to reuse. A zero-valued or
// missing configured sid must still be stable across restarts, since
// the update log stamps every frame with it and replication followers
// key reconnect state by it.
func resolveSID(dir string, configured uint32) (uint32, error) {
	if configured != 0 {
		return configured, nil
	}

	path := filepath.Join(dir, sidFileName)

	if b, err := os.ReadFile(path); err == nil {
		if sid, perr := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 32); perr == nil && sid != 0 {
			return uint32(sid), nil
		}
	}

	sid := sidFromUUID(uuid.New())

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, []byte(strconv.FormatUint(uint64(sid), 10)), 0o640); err != nil {
		return 0, err
	}

	return sid, nil
}

// sidFromUUID folds a random UUID down to a non-zero uint32 by XOR-ing its
// four 32-bit words, retrying with a fresh UUID in the vanishingly
// unlikely case that folds to zero.
func sidFromUUID(id uuid.UUID) uint32 {
	b := id[:]
	v := binary.BigEndian.Uint32(b[0:4]) ^
		binary.BigEndian.Uint32(b[4:8]) ^
		binary.BigEndian.Uint32(b[8:12]) ^
		binary.BigEndian.Uint32(b[12:16])

	if v == 0 {
		return sidFromUUID(uuid.New())
	}
	return v
}
