// Package config loads project settings from auriga.toml. Every
// field has a default; a missing file is not an error.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"
)

const FileName = "auriga.toml"

type Config struct {
	// Project metadata.
	Name  string `toml:"name"`
	Entry string `toml:"entry"`

	Build Build `toml:"build"`
	Cache Cache `toml:"cache"`

	// Imports points at a project-local strategy table merged over
	// the built-in one.
	Imports string `toml:"imports"`

	// Root is the directory the config was loaded from. Not part of
	// the file.
	Root string `toml:"-"`
}

type Build struct {
	// Out is the output directory for generated source and binaries.
	Out string `toml:"out"`
	// Workers bounds parallel per-file compilation. Zero means one
	// per CPU.
	Workers int `toml:"workers"`
	// KeepGenerated leaves the generated Go source next to the
	// binary for inspection.
	KeepGenerated bool `toml:"keep_generated"`
}

type Cache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Default returns the configuration used when no file is present.
func Default(root string) *Config {
	return &Config{
		Name:  filepath.Base(root),
		Entry: "main.py",
		Build: Build{Out: "build", Workers: runtime.NumCPU()},
		Cache: Cache{Enabled: true, Dir: filepath.Join("build", "cache")},
		Root:  root,
	}
}

// Load reads the config from root, falling back to defaults when the
// file does not exist.
func Load(root string) (*Config, error) {
	cfg := Default(root)
	data, err := os.ReadFile(filepath.Join(root, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", FileName, err)
	}
	cfg.Root = root
	if cfg.Build.Workers <= 0 {
		cfg.Build.Workers = runtime.NumCPU()
	}
	if cfg.Name == "" {
		cfg.Name = filepath.Base(root)
	}
	return cfg, nil
}

// EntryPath returns the absolute path of the entry file.
func (c *Config) EntryPath() string {
	if filepath.IsAbs(c.Entry) {
		return c.Entry
	}
	return filepath.Join(c.Root, c.Entry)
}

// OutDir returns the absolute output directory.
func (c *Config) OutDir() string {
	if filepath.IsAbs(c.Build.Out) {
		return c.Build.Out
	}
	return filepath.Join(c.Root, c.Build.Out)
}

// CacheDir returns the absolute cache directory.
func (c *Config) CacheDir() string {
	if filepath.IsAbs(c.Cache.Dir) {
		return c.Cache.Dir
	}
	return filepath.Join(c.Root, c.Cache.Dir)
}
