// Copyright 2016 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pycore

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

const (
	// AllocatorDefault selects plain reference counting.
	AllocatorDefault = "default"
	// AllocatorDebug additionally counts allocations and deallocations per
	// type.
	AllocatorDebug = "debug"
)

// PreConfig is applied before the main interpreter is created.
type PreConfig struct {
	Allocator string `toml:"allocator" yaml:"allocator" msgpack:"allocator"`
	DevMode   bool   `toml:"dev_mode" yaml:"dev_mode" msgpack:"dev_mode"`
	UTF8Mode  bool   `toml:"utf8_mode" yaml:"utf8_mode" msgpack:"utf8_mode"`
}

// DefaultPreConfig returns the pre-configuration used when none is given.
func DefaultPreConfig() *PreConfig {
	return &PreConfig{Allocator: AllocatorDefault, UTF8Mode: true}
}

// ApplyEnv applies the PYCOREDEVMODE and PYCOREMALLOC environment overrides.
func (c *PreConfig) ApplyEnv() {
	if os.Getenv("PYCOREDEVMODE") != "" {
		c.DevMode = true
	}
	if a := os.Getenv("PYCOREMALLOC"); a != "" {
		c.Allocator = a
	}
}

func (c *PreConfig) validate() error {
	switch c.Allocator {
	case "", AllocatorDefault, AllocatorDebug:
		return nil
	}
	return fmt.Errorf("unknown allocator %q", c.Allocator)
}

// Clone returns a deep copy of c.
func (c *PreConfig) Clone() *PreConfig {
	clone := &PreConfig{}
	mustCloneConfig(c, clone)
	return clone
}

// Config is the configuration of an interpreter.
type Config struct {
	ProgramName string   `toml:"program_name" yaml:"program_name" msgpack:"program_name"`
	SearchPath  []string `toml:"search_path" yaml:"search_path" msgpack:"search_path"`
	Argv        []string `toml:"argv" yaml:"argv" msgpack:"argv"`
	// Verbose > 0 traces imports to the error stream.
	Verbose               int      `toml:"verbose" yaml:"verbose" msgpack:"verbose"`
	Inspect               bool     `toml:"inspect" yaml:"inspect" msgpack:"inspect"`
	InstallSignalHandlers bool     `toml:"install_signal_handlers" yaml:"install_signal_handlers" msgpack:"install_signal_handlers"`
	Color                 bool     `toml:"color" yaml:"color" msgpack:"color"`
	WarnOptions           []string `toml:"warn_options" yaml:"warn_options" msgpack:"warn_options"`

	ErrStream io.Writer `toml:"-" yaml:"-" msgpack:"-"`
	Stdout    io.Writer `toml:"-" yaml:"-" msgpack:"-"`
}

// DefaultConfig returns the configuration used when none is given. Colour is
// enabled only when stderr is a terminal and NO_COLOR is unset.
func DefaultConfig() *Config {
	return &Config{
		ProgramName:           "pycore",
		InstallSignalHandlers: true,
		Color:                 term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "",
		ErrStream:             os.Stderr,
		Stdout:                os.Stdout,
	}
}

// ApplyEnv applies the PYCOREPATH, PYCOREVERBOSE and NO_COLOR environment
// overrides. PYCOREPATH entries are searched before the configured path.
func (c *Config) ApplyEnv() error {
	if p := os.Getenv("PYCOREPATH"); p != "" {
		var dirs []string
		for _, d := range filepath.SplitList(p) {
			if d != "" {
				dirs = append(dirs, d)
			}
		}
		c.SearchPath = append(dirs, c.SearchPath...)
	}
	if v := os.Getenv("PYCOREVERBOSE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PYCOREVERBOSE: %w", err)
		}
		c.Verbose = n
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.Color = false
	}
	return nil
}

// Clone returns a deep copy of c. The output streams are shared.
func (c *Config) Clone() *Config {
	clone := &Config{}
	mustCloneConfig(c, clone)
	clone.ErrStream, clone.Stdout = c.ErrStream, c.Stdout
	if clone.ErrStream == nil {
		clone.ErrStream = os.Stderr
	}
	if clone.Stdout == nil {
		clone.Stdout = os.Stdout
	}
	return clone
}

func mustCloneConfig(src, dst interface{}) {
	b, err := msgpack.Marshal(src)
	if err == nil {
		err = msgpack.Unmarshal(b, dst)
	}
	if err != nil {
		logFatal(fmt.Sprintf("cloning configuration: %v", err))
	}
}

// configFile is the on-disk layout: interpreter settings at the top level
// and an optional preconfig table.
type configFile struct {
	Config    `yaml:",inline"`
	PreConfig *PreConfig `toml:"preconfig" yaml:"preconfig"`
}

// LoadConfig reads a TOML (.toml) or YAML (.yaml, .yml) configuration file.
// Settings missing from the file keep their defaults and the environment
// overrides are applied last.
func LoadConfig(path string) (*PreConfig, *Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	file := configFile{Config: *DefaultConfig(), PreConfig: DefaultPreConfig()}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&file); err != nil {
			return nil, nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, nil, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
		}
	default:
		return nil, nil, fmt.Errorf("%s: unsupported config format %q", path, ext)
	}
	if err := file.PreConfig.validate(); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	file.PreConfig.ApplyEnv()
	cfg := file.Config
	if err := cfg.ApplyEnv(); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return file.PreConfig, &cfg, nil
}
