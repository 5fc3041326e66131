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

// Command kvtyrantd runs the kvtyrant daemon: the binary, memcache-text and
// minimal-HTTP dialects over one listener, the update log, and optional
// replication following, plus an off-by-default admin/metrics surface.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/prometheus/client_golang/prometheus"
	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"

	libadm "github.com/nabbar/kvtyrant/admin"
	libcmd "github.com/nabbar/kvtyrant/command"
	libcfg "github.com/nabbar/kvtyrant/config"
	liblog "github.com/nabbar/kvtyrant/logger"
	loglvl "github.com/nabbar/kvtyrant/logger/level"
	libmet "github.com/nabbar/kvtyrant/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *spfcbr.Command {
	ctx, cancel := context.WithCancel(context.Background())

	vpr := spfvpr.New()
	vpr.SetEnvPrefix("KVTYRANT")
	vpr.AutomaticEnv()

	log := liblog.New(ctx)
	logFn := func() liblog.Logger { return log }

	cfg := libcfg.New(ctx)
	cfg.RegisterFuncViper(vpr)
	cfg.RegisterDefaultLogger(logFn)

	var adminAddr string
	var configFile string
	var configFormat string

	cmd := &spfcbr.Command{
		Use:   "kvtyrantd",
		Short: "kvtyrant network key-value daemon",
		RunE: func(cmd *spfcbr.Command, args []string) error {
			defer cancel()
			return run(ctx, cfg, logFn, adminAddr)
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (yaml, json, or toml)")
	cmd.PersistentFlags().StringVar(&configFormat, "config-format", "", "force the config file's format instead of inferring it from its extension: yaml, json, or toml")

	registerComponents(cfg)

	if err := cfg.RegisterFlags(cmd); err != nil {
		fmt.Fprintln(os.Stderr, "registering component flags:", err)
		os.Exit(1)
	}

	cmd.Flags().StringVar(&adminAddr, "admin-addr", "", "admin/metrics HTTP address; empty disables the admin surface")

	cmd.PreRunE = func(c *spfcbr.Command, args []string) error {
		if configFile == "" {
			return nil
		}
		return loadConfigFile(vpr, configFile, configFormat)
	}

	return cmd
}

// loadConfigFile reads path into vpr. TOML files go through
// BurntSushi/toml directly and are merged in as a map, since that is a
// second, independent decoder from the one viper's own YAML/JSON readers
// use; any other extension is handled by viper's built-in reader.
func loadConfigFile(vpr *spfvpr.Viper, path, format string) error {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	if format == "toml" {
		var m map[string]interface{}
		if _, err := toml.DecodeFile(path, &m); err != nil {
			return err
		}
		return vpr.MergeConfigMap(m)
	}

	vpr.SetConfigFile(path)
	if format != "" {
		vpr.SetConfigType(format)
	}
	return vpr.ReadInConfig()
}

func registerComponents(cfg libcfg.Config) {
	components := map[string]libcfg.Component{
		libcfg.KeyBackend:     libcfg.NewBackendComponent(),
		libcfg.KeyULog:        libcfg.NewULogComponent(),
		libcfg.KeyMask:        libcfg.NewMaskComponent(),
		libcfg.KeyListener:    libcfg.NewListenerComponent(),
		libcfg.KeyReplication: libcfg.NewReplicationComponent(),
	}

	for key, cpt := range components {
		if err := cfg.ComponentSet(key, cpt); err != nil {
			fmt.Fprintln(os.Stderr, "registering component", key, ":", err)
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, cfg libcfg.Config, log liblog.FuncLog, adminAddr string) error {
	if err := cfg.Start(); err != nil {
		return err
	}
	defer cfg.Stop()

	log().Entry(loglvl.InfoLevel, "kvtyrantd: started").Log()

	if adminAddr != "" {
		lc, _ := cfg.ComponentGet(libcfg.KeyListener).(*libcfg.ListenerComponent)

		met := libmet.New()
		reg := prometheus.NewRegistry()
		for _, c := range met.Collectors() {
			_ = reg.Register(c)
		}
		if lc != nil {
			if router := lc.Router(); router != nil && router.Stripes != nil {
				_ = reg.Register(router.Stripes.Collector())
			}
		}

		var router *libcmd.Router
		if lc != nil {
			router = lc.Router()
		}

		admSrv := libadm.New(adminAddr, router, reg, func() (bool, string) {
			return lc != nil && lc.IsRunning(), ""
		})

		go func() {
			if err := admSrv.ListenAndServe(ctx); err != nil {
				log().Entry(loglvl.WarnLevel, "kvtyrantd: admin surface stopped: %v", err).Log()
			}
		}()
	}

	<-ctx.Done()
	log().Entry(loglvl.InfoLevel, "kvtyrantd: shutting down").Log()

	return nil
}
