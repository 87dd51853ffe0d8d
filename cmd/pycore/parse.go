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
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pycore/pycore/parser"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] file...",
	Short: "Parse Python source files and print their syntax trees",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().IntP("jobs", "j", 0, "files parsed concurrently (0 means GOMAXPROCS)")
}

type parseResult struct {
	dump string
	err  error
}

func runParse(cmd *cobra.Command, args []string) error {
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]parseResult, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(min(jobs, len(args)))
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}
			mod, err := parser.ParseFile(path, string(data))
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].dump = parser.Dump(mod)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	failed := false
	red := color.New(color.FgRed, color.Bold)
	for i, r := range results {
		if len(args) > 1 {
			fmt.Printf("==> %s <==\n", args[i])
		}
		if r.err == nil {
			fmt.Println(r.dump)
			continue
		}
		failed = true
		var se *parser.SyntaxError
		if errors.As(r.err, &se) {
			red.Fprint(os.Stderr, se.Kind.String())
			fmt.Fprintf(os.Stderr, ": %s (%s, line %d)\n", se.Msg, se.Filename, se.Lineno)
			continue
		}
		fmt.Fprintln(os.Stderr, r.err)
	}
	if failed {
		return &exitError{1}
	}
	return nil
}
