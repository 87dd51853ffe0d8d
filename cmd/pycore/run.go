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

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	pycore "github.com/pycore/pycore/runtime"
)

// finalizeFailedStatus is the exit status used when the program succeeded
// but the runtime could not be torn down cleanly.
const finalizeFailedStatus = 120

var runCmd = &cobra.Command{
	Use:   "run [flags] [file [arg...]]",
	Short: "Run a Python source file or command",
	Long: `Run executes a Python source file, or the program given with -c, as the
__main__ module. Uncaught exceptions are printed to stderr and SystemExit
sets the exit status.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

func init() {
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("command", "c", "", "program passed in as a string")
	flags.String("config", "", "TOML or YAML configuration file")
	flags.CountP("verbose", "v", "trace imports (repeat for more detail)")
	flags.StringArray("path", nil, "directory to add to the module search path")
	flags.BoolP("inspect", "i", false, "leave SystemExit to the caller instead of exiting")
	flags.StringArrayP("warn", "W", nil, "warning control (action:message:category:module:lineno)")
	flags.Bool("no-signals", false, "do not install the SIGINT handler")
}

func runRun(cmd *cobra.Command, args []string) error {
	command, err := cmd.Flags().GetString("command")
	if err != nil {
		return err
	}
	if command == "" && len(args) == 0 {
		return errors.New("run: a file or -c is required")
	}
	preCfg, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	src, filename := command, "<string>"
	if command != "" {
		cfg.Argv = append([]string{"-c"}, args...)
		cfg.SearchPath = append([]string{""}, cfg.SearchPath...)
	} else {
		filename = args[0]
		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		src = string(data)
		cfg.Argv = args
		cfg.SearchPath = append([]string{filepath.Dir(filename)}, cfg.SearchPath...)
	}
	if err := pycore.PreInitialize(preCfg); err != nil {
		return err
	}
	if _, err := pycore.Initialize(cfg); err != nil {
		return err
	}
	status := 0
	f := pycore.NewRootFrame()
	if raised := pycore.RunMain(f, src, filename); raised != nil {
		if code, handled := pycore.HandleSystemExit(f); handled {
			status = code
		} else {
			pycore.PrintException(f)
			status = 1
		}
	}
	if pycore.Finalize() < 0 && status == 0 {
		status = finalizeFailedStatus
	}
	if status != 0 {
		return &exitError{status}
	}
	return nil
}

// loadConfig builds the runtime configuration from the optional config file,
// the environment and the command line flags, in increasing precedence.
func loadConfig(cmd *cobra.Command) (*pycore.PreConfig, *pycore.Config, error) {
	flags := cmd.Flags()
	var preCfg *pycore.PreConfig
	var cfg *pycore.Config
	path, _ := flags.GetString("config")
	if path != "" {
		var err error
		if preCfg, cfg, err = pycore.LoadConfig(path); err != nil {
			return nil, nil, err
		}
	} else {
		preCfg = pycore.DefaultPreConfig()
		preCfg.ApplyEnv()
		cfg = pycore.DefaultConfig()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, nil, err
		}
	}
	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetCount("verbose")
	}
	dirs, _ := flags.GetStringArray("path")
	cfg.SearchPath = append(cfg.SearchPath, dirs...)
	if inspect, _ := flags.GetBool("inspect"); inspect {
		cfg.Inspect = true
	}
	warn, _ := flags.GetStringArray("warn")
	cfg.WarnOptions = append(cfg.WarnOptions, warn...)
	if noSignals, _ := flags.GetBool("no-signals"); noSignals {
		cfg.InstallSignalHandlers = false
	}
	if noColor, _ := flags.GetBool("no-color"); noColor {
		cfg.Color = false
	}
	return preCfg, cfg, nil
}
