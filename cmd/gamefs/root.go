// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of go-gamefs.
//
// go-gamefs is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-gamefs is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-gamefs.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mitchellh/go-homedir"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	gamefs "github.com/ZaparooProject/go-gamefs"
	"github.com/ZaparooProject/go-gamefs/config"
	"github.com/ZaparooProject/go-gamefs/metrics"
)

const appVersion = "0.1.0"

// app holds the state shared by every subcommand.
type app struct {
	cfgFile string
	verbose bool
	stats   bool
	pathID  string
	paths   []string

	v       *viper.Viper
	log     *zap.Logger
	fs      *gamefs.FileSystem
	reg     *prometheus.Registry
	metrics *metrics.Prometheus
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "gamefs",
		Short: "Inspect layered game content",
		Long: `gamefs mounts directories, pack files and chunked archives into one
case-insensitive namespace and resolves names the way the game does.

Search paths come from the config file and from --path flags, in that order.`,
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Root().PersistentFlags())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is $HOME/.config/gamefs/config.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVar(&a.stats, "stats", false, "print I/O statistics when done")
	flags.StringVar(&a.pathID, "path-id", "GAME", "path ID for lookups and --path mounts")
	flags.StringArrayVarP(&a.paths, "path", "p", nil, "extra search path mounted at the tail (repeatable)")
	flags.String("platform", config.PlatformDefault, "platform: pc or console")
	flags.String("dvd-mode", config.DVDModeDefault, "console developer fallback: off or dev")

	root.AddCommand(
		newPathsCmd(a),
		newCatCmd(a),
		newFindCmd(a),
		newLsCmd(a),
		newPackCmd(a),
		newPlanCmd(a),
		newInstallCmd(a),
		newManifestCmd(a),
		newVerifyCmd(a),
	)
	return root
}

func (a *app) init(flags *pflag.FlagSet) error {
	log, err := newLogger(a.verbose)
	if err != nil {
		return err
	}
	a.log = log

	file, err := a.configFile()
	if err != nil {
		return err
	}
	if a.v, err = config.New(file); err != nil {
		return err
	}
	for key, name := range map[string]string{"platform": "platform", "dvd_mode": "dvd-mode"} {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	if file != "" {
		a.log.Debug("using config file", zap.String("file", a.v.ConfigFileUsed()))
	}
	return nil
}

// configFile returns the --config value, or the default file when it exists.
func (a *app) configFile() (string, error) {
	if a.cfgFile != "" {
		return a.cfgFile, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", nil //nolint:nilerr // No home directory means no default config
	}
	def := filepath.Join(home, ".config", "gamefs", "config.yaml")
	if _, err := os.Stat(def); err != nil {
		return "", nil //nolint:nilerr // The default config is optional
	}
	return def, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}

// filesystem builds the configured filesystem on first use.
func (a *app) filesystem() (*gamefs.FileSystem, error) {
	if a.fs != nil {
		return a.fs, nil
	}
	c, err := config.Load(a.v)
	if err != nil {
		return nil, err
	}
	for _, p := range a.paths {
		c.SearchPaths = append(c.SearchPaths, config.SearchPath{Path: p, PathID: a.pathID, Mode: "tail"})
	}

	opts, err := c.Options(a.log)
	if err != nil {
		return nil, err
	}
	a.reg = prometheus.NewRegistry()
	a.metrics = metrics.NewPrometheus("")
	if err := a.metrics.Register(a.reg); err != nil {
		return nil, err
	}
	opts = append(opts, gamefs.WithMetrics(a.metrics))

	fsys, err := gamefs.New(opts...)
	if err != nil {
		return nil, err
	}
	a.fs = fsys
	if err := c.Mount(fsys, a.log); err != nil {
		a.log.Warn("some search paths failed to mount", zap.Error(err))
	}
	return fsys, nil
}

func (a *app) close(cmd *cobra.Command) error {
	var errs []error
	if a.fs != nil {
		if a.stats {
			errs = append(errs, a.printStats(cmd))
		}
		if err := a.fs.Shutdown(cmd.Context()); err != nil && !errors.Is(err, gamefs.ErrShutdown) {
			errs = append(errs, err)
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return errors.Join(errs...)
}

// printStats writes every non-zero counter to stderr.
func (a *app) printStats(cmd *cobra.Command) error {
	families, err := a.reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, l := range m.GetLabel() {
				name += fmt.Sprintf("{%s=%s}", l.GetName(), l.GetValue())
			}
			switch {
			case m.GetCounter() != nil && m.GetCounter().GetValue() > 0:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil && m.GetHistogram().GetSampleCount() > 0:
				lines = append(lines, fmt.Sprintf("%s_count %d", name, m.GetHistogram().GetSampleCount()))
			}
		}
	}
	sort.Strings(lines)
	w := cmd.ErrOrStderr()
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	return nil
}
