/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

// Package hooksyslog provides a logrus hook for writing log entries to syslog.
//
// # Overview
//
// The hook builds an RFC 5424 priority-tagged message for each logrus entry
// and writes it synchronously to a shared, reference-counted connection. When
// Host is empty, New locates the local syslog daemon's Unix domain socket
// (/dev/log, /var/run/syslog, /var/run/log, tried in order); otherwise Network
// and Host are dialed directly (tcp, udp, unix, unixgram).
//
// # Connection Sharing
//
// Multiple hooks pointed at the same network/endpoint pair share one
// net.Conn, reference-counted in aggregator.go: the last hook to Close()
// closes the connection. A write against a connection closed by another
// goroutine returns ErrClosedResources, which Write() in iowriter.go recovers
// from by re-acquiring a connection through setAgg.
//
// # Level Mapping
//
//   - logrus.PanicLevel  → SeverityAlert
//   - logrus.FatalLevel  → SeverityCrit
//   - logrus.ErrorLevel  → SeverityErr
//   - logrus.WarnLevel   → SeverityWarning
//   - logrus.InfoLevel   → SeverityInfo
//   - logrus.DebugLevel  → SeverityDebug
//
// # Field Filtering
//
//   - DisableStack: remove the "stack" field
//   - DisableTimestamp: remove the "time" field
//   - EnableTrace: keep "caller", "file", "line" fields
//
// # Access Log Mode
//
//   - EnableAccessLog: true writes entry.Message, ignoring the formatter
//   - EnableAccessLog: false writes the formatted field set, ignoring Message
package hooksyslog
