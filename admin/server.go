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

// Package admin serves the off-by-default debug/health and Prometheus
// metrics endpoints on their own listener, separate from the data-plane
// wire dialects.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	libcmd "github.com/nabbar/kvtyrant/command"
)

// HealthFunc reports whether the server considers itself healthy, and why
// not if it doesn't.
type HealthFunc func() (ok bool, detail string)

// Server is the admin HTTP surface. It is never started unless the
// operator opts in, per the reference deployment's "off by default"
// convention for anything beyond the data-plane ports.
type Server struct {
	http   *http.Server
	router *libcmd.Router
	health HealthFunc
}

// New builds an admin Server bound to addr, registering reg's collectors
// alongside the Go/process default collectors promhttp already wires up.
// A nil reg serves only the default process/Go collectors.
func New(addr string, router *libcmd.Router, reg *prometheus.Registry, health HealthFunc) *Server {
	mux := http.NewServeMux()

	s := &Server{router: router, health: health}

	gatherer := prometheus.Gatherer(prometheus.DefaultGatherer)
	if reg != nil {
		gatherer = prometheus.Gatherers{prometheus.DefaultGatherer, reg}
	}

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/health", s.serveHealth)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	ok, detail := true, ""
	if s.health != nil {
		ok, detail = s.health()
	}

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	_ = json.NewEncoder(w).Encode(struct {
		OK     bool   `json:"ok"`
		Detail string `json:"detail,omitempty"`
	}{OK: ok, Detail: detail})
}

// ListenAndServe blocks serving the admin endpoints until ctx is cancelled
// or a listener error occurs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)

	go func() {
		errc <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutCtx)
	case err := <-errc:
		return err
	}
}
