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

// Package exec compiles schemes into procedures running on a particle model.
// Loops and reductions are run by [github.com/gx-org/prtcl/rt/loop].
package exec

import (
	"context"
	"runtime"
	"slices"
	"time"

	"github.com/gx-org/prtcl/base/ordered"
	"github.com/gx-org/prtcl/base/stringseq"
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/resolver"
	"github.com/gx-org/prtcl/codegen/lower"
	"github.com/gx-org/prtcl/internal/ctxlog"
	"github.com/gx-org/prtcl/rt/kernel"
	"github.com/gx-org/prtcl/rt/loop"
	"github.com/gx-org/prtcl/rt/nhood"
	"github.com/gx-org/prtcl/rt/store"
)

// Options to compile a scheme.
type Options struct {
	// Dims is the spatial dimensionality of the models the program runs on.
	Dims int
	// Workers is the number of goroutines running particle loops.
	// Defaults to GOMAXPROCS.
	Workers int
	// Kernel is the smoothing kernel. Defaults to a cubic spline.
	Kernel kernel.Kernel
}

// Program is a compiled scheme.
type Program struct {
	name  string
	reqs  *resolver.FieldRequirements
	opts  Options
	procs *ordered.Map[string, *Procedure]

	reductions int
}

// Compile a scheme into a program.
// Requirements are resolved from the scheme if reqs is nil.
func Compile(scheme *ir.Scheme, reqs *resolver.FieldRequirements, opts Options) (*Program, error) {
	if opts.Dims < 1 || opts.Dims > 3 {
		return nil, fmterr.Errorf(fmterr.ShapeError, "cannot compile scheme %s: unsupported spatial dimensionality %d", scheme.Name, opts.Dims)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Kernel == nil {
		k, err := kernel.NewCubicSpline(opts.Dims)
		if err != nil {
			return nil, err
		}
		opts.Kernel = k
	}
	if opts.Kernel.Dims() != opts.Dims {
		return nil, fmterr.Errorf(fmterr.ShapeError, "kernel %s is defined in %d dimensions but the program runs in %d", opts.Kernel.Name(), opts.Kernel.Dims(), opts.Dims)
	}
	if reqs == nil {
		var err error
		if reqs, err = resolver.Resolve(scheme); err != nil {
			return nil, err
		}
	}
	prog := &Program{
		name:  scheme.Name,
		reqs:  reqs,
		opts:  opts,
		procs: ordered.NewMap[string, *Procedure](),
	}
	if _, err := lower.Lower[stmt, expr](scheme, reqs, opts.Dims, &backend{prog: prog}); err != nil {
		return nil, err
	}
	return prog, nil
}

// Name of the compiled scheme.
func (prog *Program) Name() string {
	return prog.name
}

// Requirements returns the fields a model needs to run the program.
func (prog *Program) Requirements() *resolver.FieldRequirements {
	return prog.reqs
}

// Procedures returns the names of the procedures in declaration order.
func (prog *Program) Procedures() []string {
	return slices.Collect(prog.procs.Keys())
}

// Procedure returns a procedure given its name.
func (prog *Program) Procedure(name string) (*Procedure, error) {
	proc, ok := prog.procs.Load(name)
	if !ok {
		return nil, fmterr.Errorf(fmterr.UnknownProcedure, "scheme %s has no procedure %s: available procedures are %s", prog.name, name, stringseq.Join(prog.procs.Keys(), ", "))
	}
	return proc, nil
}

// Procedure is a compiled procedure.
type Procedure struct {
	prog *Program
	name string
	body []stmt
}

// Name of the procedure.
func (proc *Procedure) Name() string {
	return proc.name
}

// Run the procedure on a model.
// The neighborhood can be nil if the procedure does not iterate over neighbors.
// Cancelling the context stops the workers between chunks of particles.
func (proc *Procedure) Run(ctx context.Context, m *store.Model, nh nhood.Neighborhood) error {
	if m.Dims() != proc.prog.opts.Dims {
		return fmterr.Errorf(fmterr.ShapeError, "cannot run %s.%s compiled for %d dimensions on a model with %d dimensions", proc.prog.name, proc.name, proc.prog.opts.Dims, m.Dims())
	}
	if err := m.Check(proc.prog.reqs); err != nil {
		return err
	}
	start := time.Now()
	fr, err := loop.New(ctx, m, nh, proc.prog.opts.Workers, proc.prog.opts.Kernel)
	if err != nil {
		return err
	}
	if err := fr.Run(proc.body...); err != nil {
		return fmterr.PrefixWith("%s.%s: ", proc.prog.name, proc.name)(err)
	}
	ctxlog.FromContext(ctx).Debug("procedure done",
		"scheme", proc.prog.name,
		"procedure", proc.name,
		"particles", m.ParticleCount(),
		"workers", fr.Workers(),
		"elapsed", time.Since(start),
	)
	return nil
}
