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

// Package config wires the five lifecycle components that make up a running
// kvtyrant daemon - listener, backend, ulog, replication and mask - behind a
// single Start/Reload/Stop sequence ordered by declared dependencies.
package config

import (
	"context"

	liberr "github.com/nabbar/kvtyrant/errors"
	liblog "github.com/nabbar/kvtyrant/logger"
	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"
)

// Component keys for the five kvtyrant subsystems. Order matters only for
// registration; actual start/stop order follows Dependencies().
const (
	KeyMask        = "mask"
	KeyBackend     = "backend"
	KeyULog        = "ulog"
	KeyReplication = "replication"
	KeyListener    = "listener"
)

// FuncCptGet retrieves a sibling component by key. Returns nil if absent.
type FuncCptGet func(key string) Component

// FuncEvent is a lifecycle hook called before/after Start, Reload or Stop.
type FuncEvent func() liberr.Error

// Component is the lifecycle contract every kvtyrant subsystem implements.
// A component is registered once, initialized with shared collaborators, then
// driven by Config through Start / Reload / Stop in dependency order.
type Component interface {
	// Type identifies the component for logging and dependency resolution.
	Type() string

	// Init supplies the component with its registration key, the shared
	// context, a lookup for sibling components, the shared viper instance
	// and the default logger factory.
	Init(key string, ctx context.Context, get FuncCptGet, vpr *spfvpr.Viper, log liblog.FuncLog)

	// RegisterFlag registers command-line flags bound to the viper instance.
	RegisterFlag(cmd *spfcbr.Command) error

	// Dependencies lists the component keys that must start before this one.
	Dependencies() []string

	// IsRunning reports whether the component is currently active.
	IsRunning() bool

	// Start reads configuration from viper and brings the component up.
	Start() liberr.Error

	// Reload re-reads configuration and applies changes without a full
	// restart when possible.
	Reload() liberr.Error

	// Stop releases resources. Best effort; does not return an error.
	Stop()
}

// Config owns the component registry and orchestrates its lifecycle.
type Config interface {
	// Context returns the shared application context.
	Context() context.Context

	// ComponentSet registers a component under key. Returns an error if the
	// key is already taken.
	ComponentSet(key string, cpt Component) liberr.Error

	// ComponentGet retrieves a registered component, or nil.
	ComponentGet(key string) Component

	// ComponentKeys lists every registered component key.
	ComponentKeys() []string

	// RegisterFuncViper exposes the shared viper instance to Config.
	RegisterFuncViper(vpr *spfvpr.Viper)

	// RegisterDefaultLogger exposes the default logger factory to Config.
	RegisterDefaultLogger(log liblog.FuncLog)

	// RegisterFlags asks every component to register its CLI flags.
	RegisterFlags(cmd *spfcbr.Command) liberr.Error

	// Start brings every component up in dependency order. On the first
	// failure, already-started components are stopped in reverse order.
	Start() liberr.Error

	// Reload re-applies configuration to every component in dependency
	// order.
	Reload() liberr.Error

	// Stop brings every component down in reverse dependency order.
	Stop()
}

// New creates an empty Config bound to ctx.
func New(ctx context.Context) Config {
	return &configModel{
		ctx: ctx,
		cpt: make(map[string]Component),
	}
}
