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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irsrc"
	"github.com/gx-org/prtcl/build/parser"
	"github.com/gx-org/prtcl/build/registry"
	"github.com/gx-org/prtcl/codegen/gosrc"
	"github.com/gx-org/prtcl/codegen/latex"
	"github.com/gx-org/prtcl/internal/ctxlog"
	"github.com/gx-org/prtcl/schemes"
	"github.com/gx-org/prtcl/tools/prtclflag"
	"github.com/pkg/errors"
)

func newFlagSet(e *env, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

// schemeFlags selects the schemes processed by a command.
type schemeFlags struct {
	files   *[]string
	schemes *[]string
}

func addSchemeFlags(fs *flag.FlagSet) *schemeFlags {
	return &schemeFlags{
		files:   prtclflag.StringList(fs, "file", "comma separated files of schemes in the textual grammar"),
		schemes: prtclflag.StringList(fs, "scheme", "comma separated names of the schemes to process (all schemes if empty)"),
	}
}

// registry returns a registry with the built-in schemes and the schemes
// parsed from files.
func (sf *schemeFlags) registry(ctx context.Context) (*registry.Registry, error) {
	reg := registry.New()
	if err := schemes.RegisterAll(reg); err != nil {
		return nil, err
	}
	for _, path := range *sf.files {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		parsed, err := parser.ParseFile(os.DirFS(filepath.Dir(abs)), filepath.Base(abs))
		if err != nil {
			return nil, err
		}
		for _, s := range parsed {
			if err := reg.Add(s); err != nil {
				return nil, errors.WithMessagef(err, "file %s", path)
			}
		}
		ctxlog.FromContext(ctx).Debug("schemes parsed", "path", path, "count", len(parsed))
	}
	return reg, nil
}

// selected returns the schemes selected on the command line.
func (sf *schemeFlags) selected(ctx context.Context) ([]*ir.Scheme, error) {
	reg, err := sf.registry(ctx)
	if err != nil {
		return nil, err
	}
	if len(*sf.schemes) == 0 {
		return slices.Collect(reg.Schemes()), nil
	}
	var selected []*ir.Scheme
	for _, name := range *sf.schemes {
		s, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		selected = append(selected, s)
	}
	return selected, nil
}

func parseSchemes(ctx context.Context, e *env, name string, args []string) ([]*ir.Scheme, error) {
	fs := newFlagSet(e, name)
	sf := addSchemeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return sf.selected(ctx)
}

func cmdList(ctx context.Context, e *env, args []string) error {
	selected, err := parseSchemes(ctx, e, "list", args)
	if err != nil {
		return err
	}
	for _, s := range selected {
		fmt.Fprintln(e.stdout, s.Name)
		for _, proc := range s.Procedures() {
			fmt.Fprintf(e.stdout, "\t%s\n", proc.Name)
		}
	}
	return nil
}

func printAll(e *env, selected []*ir.Scheme, print func(*ir.Scheme) (string, error)) error {
	outs := make([]string, len(selected))
	for i, s := range selected {
		out, err := print(s)
		if err != nil {
			return errors.WithMessagef(err, "scheme %s", s.Name)
		}
		outs[i] = strings.TrimSpace(out)
	}
	_, err := fmt.Fprintln(e.stdout, strings.Join(outs, "\n\n"))
	return err
}

func cmdSource(ctx context.Context, e *env, args []string) error {
	selected, err := parseSchemes(ctx, e, "source", args)
	if err != nil {
		return err
	}
	return printAll(e, selected, func(s *ir.Scheme) (string, error) {
		return irsrc.Format(s)
	})
}

func cmdLatex(ctx context.Context, e *env, args []string) error {
	selected, err := parseSchemes(ctx, e, "latex", args)
	if err != nil {
		return err
	}
	return printAll(e, selected, func(s *ir.Scheme) (string, error) {
		return latex.Render(s, nil)
	})
}

// packageName returns the Go package name of a scheme.
func packageName(scheme string) string {
	return strings.ReplaceAll(strings.ToLower(scheme), "_", "")
}

func cmdGoSource(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "gosrc")
	sf := addSchemeFlags(fs)
	dims := fs.Int("dims", 3, "spatial dimensionality of the models")
	out := fs.String("out", "", "output folder: one package per scheme is written in a subfolder (standard output if empty)")
	module := fs.String("module", "", "module path of the output folder: a go.mod file is written if not empty")
	goVersion := fs.String("go_version", "1.24", "go version of the go.mod file")
	prtclVersion := fs.String("prtcl_version", "v0.1.0", "version of the prtcl runtime required by the go.mod file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	selected, err := sf.selected(ctx)
	if err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx)
	for _, s := range selected {
		pkg := packageName(s.Name)
		src, err := gosrc.Generate(s, nil, gosrc.Options{Package: pkg, Dims: *dims})
		if err != nil {
			return err
		}
		if *out == "" {
			if _, err := e.stdout.Write(src); err != nil {
				return err
			}
			continue
		}
		path := filepath.Join(*out, pkg, pkg+".go")
		if err := writeFile(path, src); err != nil {
			return err
		}
		logger.Info("Go source generated", "scheme", s.Name, "path", path)
	}
	if *out == "" || *module == "" {
		return nil
	}
	mod, err := gosrc.ModFile(*module, *goVersion, *prtclVersion)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(*out, "go.mod"), mod)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Errorf("cannot create folder for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Errorf("cannot write %s: %v", path, err)
	}
	return nil
}
