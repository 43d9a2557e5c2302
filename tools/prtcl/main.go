// Copyright 2025 Google LLC
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

// Command prtcl compiles particle simulation schemes and runs them.
//
// Usage:
//
//	prtcl [-log_level level] [-log_format format] <command> [flags]
//
// The commands are:
//
//	list          list the schemes and their procedures
//	source        print schemes in the textual grammar
//	latex         print schemes as LaTeX
//	requirements  print the fields required by schemes as YAML
//	gosrc         generate Go packages running schemes
//	run           run procedures on a scene
//
// Built-in schemes are always available. Schemes in the textual grammar
// are added with the -file flag of each command.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/gx-org/prtcl/internal/ctxlog"
	"github.com/pkg/errors"
)

var (
	logLevel  = flag.String("log_level", "info", "log level: debug, info, warn, or error")
	logFormat = flag.String("log_format", "text", "log format: text or json")
)

type command struct {
	name string
	doc  string
	run  func(ctx context.Context, env *env, args []string) error
}

var commands = []command{
	{name: "list", doc: "list the schemes and their procedures", run: cmdList},
	{name: "source", doc: "print schemes in the textual grammar", run: cmdSource},
	{name: "latex", doc: "print schemes as LaTeX", run: cmdLatex},
	{name: "requirements", doc: "print the fields required by schemes as YAML", run: cmdRequirements},
	{name: "gosrc", doc: "generate Go packages running schemes", run: cmdGoSource},
	{name: "run", doc: "run procedures on a scene", run: cmdRun},
}

// env is the environment in which commands run.
type env struct {
	stdout io.Writer
	stderr io.Writer
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: %s [flags] <command> [command flags]\n\nCommands:\n", os.Args[0])
	for _, cmd := range commands {
		fmt.Fprintf(out, "  %-14s%s\n", cmd.name, cmd.doc)
	}
	fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
}

func exit(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintln(os.Stderr)
	os.Exit(1)
}

// runCommand runs the command named by the first argument.
func runCommand(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errors.Errorf("no command specified")
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(ctx, e, args[1:])
		}
	}
	return errors.Errorf("unknown command %q", args[0])
}

func main() {
	flag.Usage = usage
	flag.Parse()
	logger, err := ctxlog.New(*logLevel, *logFormat, os.Stderr)
	if err != nil {
		exit("%v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = ctxlog.WithLogger(ctx, logger)
	if err := runCommand(ctx, &env{stdout: os.Stdout, stderr: os.Stderr}, flag.Args()); err != nil {
		stop()
		exit("%+v", err)
	}
}
