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
	"fmt"
	"strings"

	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/resolver"
	"github.com/gx-org/prtcl/codegen/exec"
	"github.com/gx-org/prtcl/internal/ctxlog"
	"github.com/gx-org/prtcl/rt/archive"
	"github.com/gx-org/prtcl/rt/kernel"
	"github.com/gx-org/prtcl/rt/nhood"
	"github.com/gx-org/prtcl/rt/scene"
	"github.com/gx-org/prtcl/rt/store"
	"github.com/gx-org/prtcl/tools/prtclflag"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

type runner struct {
	progs   []*exec.Program
	m       *store.Model
	grid    *nhood.Grid
	archive *archive.Archive
}

// procedure finds a procedure given its name, either qualified by the name
// of its scheme (scheme.procedure) or not.
func (r *runner) procedure(name string) (*exec.Procedure, error) {
	scheme, procName, qualified := strings.Cut(name, ".")
	if !qualified {
		procName = name
	}
	var found []*exec.Procedure
	for _, prog := range r.progs {
		if qualified && prog.Name() != scheme {
			continue
		}
		if proc, err := prog.Procedure(procName); err == nil {
			found = append(found, proc)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmterr.Errorf(fmterr.UnknownProcedure, "procedure %s not found", name)
	case 1:
		return found[0], nil
	}
	return nil, fmterr.Errorf(fmterr.UnknownProcedure, "procedure %s is ambiguous: qualify it with the name of its scheme", name)
}

func (r *runner) procedures(names []string) ([]*exec.Procedure, error) {
	var errs error
	procs := make([]*exec.Procedure, len(names))
	for i, name := range names {
		var err error
		procs[i], err = r.procedure(name)
		errs = multierr.Append(errs, err)
	}
	return procs, errs
}

// neighborhood creates the grid finding neighbors. If the radius is zero,
// the radius is the support of the kernel for the smoothing scale of the
// model. No grid is created if the model has no smoothing scale.
func (r *runner) neighborhood(radius float64) error {
	if radius == 0 {
		h, ok := r.m.Global(resolver.SmoothingScale.Name)
		if !ok {
			return nil
		}
		k, err := kernel.NewCubicSpline(r.m.Dims())
		if err != nil {
			return err
		}
		radius = k.SupportRadius(h.Load(0).Float())
	}
	var err error
	r.grid, err = nhood.NewGrid(radius)
	return err
}

func (r *runner) run(ctx context.Context, procs []*exec.Procedure) error {
	var nh nhood.Neighborhood
	if r.grid != nil {
		if err := r.grid.Update(r.m); err != nil {
			return err
		}
		nh = r.grid
	}
	for _, proc := range procs {
		if err := proc.Run(ctx, r.m, nh); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) save(ctx context.Context, name string) error {
	if r.archive == nil {
		return nil
	}
	_, err := r.archive.Save(ctx, name, r.m)
	return err
}

func loadModel(ctx context.Context, a *archive.Archive, scenePath string, reqs *resolver.FieldRequirements) (*store.Model, error) {
	if a != nil && scenePath == "" {
		seq, ok, err := a.Latest()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Errorf("archive has no snapshot to resume from")
		}
		m, err := a.Load(ctx, seq)
		if err != nil {
			return nil, err
		}
		return m, m.Require(reqs)
	}
	if scenePath == "" {
		return nil, errors.Errorf("no scene specified: please use -scene to specify a scene or -archive to resume from a snapshot")
	}
	sc, err := scene.ParseFile(ctx, scenePath)
	if err != nil {
		return nil, err
	}
	return sc.Build(ctx, reqs)
}

func cmdRun(ctx context.Context, e *env, args []string) (err error) {
	fs := newFlagSet(e, "run")
	sf := addSchemeFlags(fs)
	scenePath := fs.String("scene", "", "HCL scene description (resume from the last snapshot of the archive if empty)")
	archivePath := fs.String("archive", "", "archive where snapshots of the model are saved")
	initProcs := prtclflag.StringList(fs, "init", "comma separated procedures run once before the first step")
	stepProcs := prtclflag.StringList(fs, "procedures", "comma separated procedures run at each step")
	steps := fs.Int("steps", 1, "number of steps")
	saveEvery := fs.Int("save_every", 0, "save a snapshot every n steps (only after the last step if 0)")
	workers := fs.Int("workers", 0, "number of goroutines running particle loops (GOMAXPROCS if 0)")
	radius := fs.Float64("radius", 0, "neighbor search radius (kernel support for the smoothing scale if 0)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	selected, err := sf.selected(ctx)
	if err != nil {
		return err
	}
	_, reqs, err := resolveAll(selected)
	if err != nil {
		return err
	}
	r := &runner{}
	if *archivePath != "" {
		if r.archive, err = archive.Open(*archivePath); err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, r.archive.Close())
		}()
	}
	if r.m, err = loadModel(ctx, r.archive, *scenePath, reqs); err != nil {
		return err
	}
	if r.progs, err = compileAll(selected, reqs, exec.Options{Dims: r.m.Dims(), Workers: *workers}); err != nil {
		return err
	}
	inits, err := r.procedures(*initProcs)
	if err != nil {
		return err
	}
	procs, err := r.procedures(*stepProcs)
	if err != nil {
		return err
	}
	if err := r.neighborhood(*radius); err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx)
	if err := r.run(ctx, inits); err != nil {
		return err
	}
	for step := range *steps {
		if err := r.run(ctx, procs); err != nil {
			return errors.WithMessagef(err, "step %d", step)
		}
		last := step == *steps-1
		logger.Debug("step done", "step", step)
		if last || (*saveEvery > 0 && (step+1)%*saveEvery == 0) {
			if err := r.save(ctx, fmt.Sprintf("step %d", step+1)); err != nil {
				return err
			}
		}
	}
	logger.Info("run done", "steps", *steps, "particles", r.m.ParticleCount())
	return nil
}

func compileAll(selected []*ir.Scheme, reqs *resolver.FieldRequirements, opts exec.Options) ([]*exec.Program, error) {
	progs := make([]*exec.Program, len(selected))
	for i, s := range selected {
		var err error
		if progs[i], err = exec.Compile(s, reqs, opts); err != nil {
			return nil, err
		}
	}
	return progs, nil
}
