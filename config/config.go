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

// Package config loads filesystem settings through viper and turns them into
// gamefs options and mounts.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	gamefs "github.com/ZaparooProject/go-gamefs"
	"github.com/ZaparooProject/go-gamefs/integrity"
	"github.com/ZaparooProject/go-gamefs/mount"
	"github.com/ZaparooProject/go-gamefs/packfile"
	"github.com/ZaparooProject/go-gamefs/prefetch"
	"github.com/ZaparooProject/go-gamefs/searchpath"
)

// EnvPrefix prefixes environment overrides, e.g. GAMEFS_PLATFORM.
const EnvPrefix = "GAMEFS"

// Defaults.
const (
	PlatformDefault         = "pc"
	DVDModeDefault          = "off"
	LanguageDefault         = "english"
	MissingCacheSizeDefault = 4096
)

// ErrInvalidConfig indicates a setting outside its accepted values.
var ErrInvalidConfig = errors.New("invalid configuration")

// SearchPath is one configured mount.
type SearchPath struct {
	Path     string `mapstructure:"path"`
	PathID   string `mapstructure:"path_id"`
	Mode     string `mapstructure:"mode"`
	Chunked  bool   `mapstructure:"chunked"`
	Fallback bool   `mapstructure:"fallback"`
}

// Config contains the filesystem settings.
type Config struct {
	Platform         string `mapstructure:"platform"`
	DVDMode          string `mapstructure:"dvd_mode"`
	ExcludeList      string `mapstructure:"exclude_list"`
	WritePathID      string `mapstructure:"write_path_id"`
	Language         string `mapstructure:"language"`
	TrustMissing     bool   `mapstructure:"trust_missing"`
	MissingCacheSize int    `mapstructure:"missing_cache_size"`
	PreloadBudget    int64  `mapstructure:"preload_budget"`
	PrefetchWorkers  int    `mapstructure:"prefetch_workers"`

	Whitelist struct {
		Hashed  []string `mapstructure:"hashed"`
		Trusted []string `mapstructure:"trusted"`
	} `mapstructure:"whitelist"`

	SearchPaths []SearchPath         `mapstructure:"search_paths"`
	ContentRoot string               `mapstructure:"content_root"`
	Symlinks    []gamefs.SymlinkRule `mapstructure:"symlinks"`
}

// New returns a viper instance reading environment overrides and, when file
// is set, the YAML file at file.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Defaults(v)

	if file == "" {
		return v, nil
	}
	path, err := homedir.Expand(file)
	if err != nil {
		return nil, fmt.Errorf("expand config path: %w", err)
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// Defaults sets the default value of every key.
func Defaults(v *viper.Viper) {
	v.SetDefault("platform", PlatformDefault)
	v.SetDefault("dvd_mode", DVDModeDefault)
	v.SetDefault("write_path_id", gamefs.DefaultWritePathID)
	v.SetDefault("language", LanguageDefault)
	v.SetDefault("trust_missing", false)
	v.SetDefault("missing_cache_size", MissingCacheSizeDefault)
	v.SetDefault("preload_budget", packfile.DefaultPreloadBudget)
	v.SetDefault("prefetch_workers", 0)
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks enumerated settings and search path modes.
func (c *Config) Validate() error {
	if _, err := c.platform(); err != nil {
		return err
	}
	if c.MissingCacheSize < 0 {
		return fmt.Errorf("%w: missing_cache_size %d", ErrInvalidConfig, c.MissingCacheSize)
	}
	if c.PreloadBudget < 0 {
		return fmt.Errorf("%w: preload_budget %d", ErrInvalidConfig, c.PreloadBudget)
	}
	for i, sp := range c.SearchPaths {
		if sp.Path == "" {
			return fmt.Errorf("%w: search_paths[%d] has no path", ErrInvalidConfig, i)
		}
		if _, err := searchpath.ParseInsertMode(sp.Mode); err != nil {
			return fmt.Errorf("%w: search_paths[%d]: %w", ErrInvalidConfig, i, err)
		}
	}
	return nil
}

func (c *Config) platform() (gamefs.Platform, error) {
	dvd := false
	switch strings.ToLower(c.DVDMode) {
	case "", "off":
	case "dev":
		dvd = true
	default:
		return nil, fmt.Errorf("%w: dvd_mode %q", ErrInvalidConfig, c.DVDMode)
	}

	switch strings.ToLower(c.Platform) {
	case "", "pc":
		if dvd {
			return nil, fmt.Errorf("%w: dvd_mode requires the console platform", ErrInvalidConfig)
		}
		return gamefs.PC(), nil
	case "console":
		return gamefs.Console(dvd), nil
	default:
		return nil, fmt.Errorf("%w: platform %q", ErrInvalidConfig, c.Platform)
	}
}

// Options builds the filesystem options. A prefetcher created here is
// released by FileSystem.Shutdown.
func (c *Config) Options(log *zap.Logger) ([]gamefs.Option, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p, err := c.platform()
	if err != nil {
		return nil, err
	}

	opts := []gamefs.Option{
		gamefs.WithLogger(log),
		gamefs.WithPlatform(p),
		gamefs.WithLanguage(c.Language),
		gamefs.WithPreloadBudget(c.PreloadBudget),
		gamefs.WithSymlinks(c.Symlinks...),
	}
	if c.WritePathID != "" {
		opts = append(opts, gamefs.WithWritePathID(c.WritePathID))
	}
	if c.TrustMissing && c.MissingCacheSize > 0 {
		opts = append(opts, gamefs.WithTrustMissing(c.MissingCacheSize))
	}
	if len(c.Whitelist.Hashed) > 0 || len(c.Whitelist.Trusted) > 0 {
		opts = append(opts, gamefs.WithWhitelist(
			integrity.NewStaticWhitelist(c.Whitelist.Hashed, c.Whitelist.Trusted)))
	}

	if c.ExcludeList != "" {
		l, err := loadExcludeList(c.ExcludeList)
		if err != nil {
			return nil, err
		}
		opts = append(opts, gamefs.WithExcludeList(l))
	}

	if c.PrefetchWorkers > 0 {
		pf, err := prefetch.New(prefetch.WithLogger(log), prefetch.WithWorkers(c.PrefetchWorkers))
		if err != nil {
			return nil, err
		}
		opts = append(opts, gamefs.WithPrefetcher(pf))
	}
	return opts, nil
}

func loadExcludeList(file string) (*searchpath.ExcludeList, error) {
	path, err := homedir.Expand(file)
	if err != nil {
		return nil, fmt.Errorf("expand exclude list path: %w", err)
	}
	f, err := os.Open(path) //nolint:gosec // Path comes from the operator's config
	if err != nil {
		return nil, fmt.Errorf("open exclude list: %w", err)
	}
	defer func() { _ = f.Close() }()
	return searchpath.ParseExcludeList(f)
}

// Mount adds the configured search paths in order and then applies the mount
// plan of the content root, if any. Every failure is reported; none stops
// the remaining mounts.
func (c *Config) Mount(fsys *gamefs.FileSystem, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	var errs []error
	for _, sp := range c.SearchPaths {
		if err := mountOne(fsys, sp); err != nil {
			errs = append(errs, err)
		}
	}

	if c.ContentRoot != "" {
		root, err := homedir.Expand(c.ContentRoot)
		if err != nil {
			return errors.Join(append(errs, fmt.Errorf("expand content root: %w", err))...)
		}
		plan, err := mount.Discover(root, mount.Capabilities{}, mount.WithLogger(log))
		if err != nil {
			return errors.Join(append(errs, err)...)
		}
		if _, err := plan.Apply(fsys); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func mountOne(fsys *gamefs.FileSystem, sp SearchPath) error {
	path, err := homedir.Expand(sp.Path)
	if err != nil {
		return fmt.Errorf("expand search path: %w", err)
	}
	mode, err := searchpath.ParseInsertMode(sp.Mode)
	if err != nil {
		return err
	}
	pathID := sp.PathID
	if pathID == "" {
		pathID = mount.DefaultPathID
	}

	switch {
	case sp.Chunked:
		return fsys.AddChunkedArchive(path, pathID, mode)
	case sp.Fallback:
		return fsys.AddFallbackPath(path, pathID, mode)
	default:
		return fsys.AddSearchPath(path, pathID, mode)
	}
}
