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

// Package scene builds particle models from HCL scene descriptions.
//
// A scene declares the spatial dimensionality, the values of global fields,
// and groups of particles:
//
//	dimensions = 2
//
//	global {
//	  smoothing_scale = 0.025
//	  gravity         = [0, -9.81]
//	}
//
//	group "water" {
//	  type = "fluid"
//	  tags = ["dynamic"]
//
//	  uniform {
//	    rest_density = 1000
//	  }
//
//	  lattice {
//	    origin  = [0, 0]
//	    count   = [10, 20]
//	    spacing = 0.025
//	  }
//
//	  varying {
//	    mass = 0.625
//	  }
//	}
//
// Values of fields not required by any procedure are stored as real fields
// with a shape inferred from the value.
package scene

import (
	"context"
	"os"

	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
	"github.com/gx-org/prtcl/build/resolver"
	"github.com/gx-org/prtcl/internal/ctxlog"
	"github.com/gx-org/prtcl/rt/nhood"
	"github.com/gx-org/prtcl/rt/store"
	"github.com/gx-org/prtcl/rt/tensor"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

type (
	valuesBlock struct {
		Body hcl.Body `hcl:",remain"`
	}

	latticeBlock struct {
		Origin  []float64 `hcl:"origin"`
		Count   []int     `hcl:"count"`
		Spacing float64   `hcl:"spacing"`
	}

	groupBlock struct {
		Name      string          `hcl:"name,label"`
		Type      string          `hcl:"type"`
		Tags      []string        `hcl:"tags,optional"`
		Positions [][]float64     `hcl:"positions,optional"`
		Uniform   *valuesBlock    `hcl:"uniform,block"`
		Varying   *valuesBlock    `hcl:"varying,block"`
		Lattices  []*latticeBlock `hcl:"lattice,block"`
	}

	sceneFile struct {
		Dims   int           `hcl:"dimensions"`
		Global *valuesBlock  `hcl:"global,block"`
		Groups []*groupBlock `hcl:"group,block"`
	}
)

// Scene is a decoded scene description.
type Scene struct {
	filename string
	file     sceneFile
}

// Parse a scene description.
func Parse(filename string, src []byte) (*Scene, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "cannot parse scene %s", filename)
	}
	s := &Scene{filename: filename}
	if diags := gohcl.DecodeBody(f.Body, nil, &s.file); diags.HasErrors() {
		return nil, errors.Wrapf(diags, "cannot decode scene %s", filename)
	}
	return s, nil
}

// ParseFile reads and parses a scene description from a file.
func ParseFile(ctx context.Context, path string) (*Scene, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	s, err := Parse(path, src)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("scene parsed", "path", path, "dimensions", s.Dims(), "groups", len(s.file.Groups))
	return s, nil
}

// Dims returns the spatial dimensionality of the scene.
func (s *Scene) Dims() int {
	return s.file.Dims
}

// Build a model from the scene.
// All the fields required by reqs are added to the model before the values
// of the scene are stored.
func (s *Scene) Build(ctx context.Context, reqs *resolver.FieldRequirements) (*store.Model, error) {
	m, err := store.NewModel(s.file.Dims)
	if err != nil {
		return nil, errors.WithMessagef(err, "scene %s", s.filename)
	}
	for _, gb := range s.file.Groups {
		if err := s.addGroup(m, gb); err != nil {
			return nil, errors.WithMessagef(err, "scene %s: group %s", s.filename, gb.Name)
		}
	}
	if reqs != nil {
		if err := m.Require(reqs); err != nil {
			return nil, err
		}
	}
	var errs error
	if s.file.Global != nil {
		errs = multierr.Append(errs, setValues(s.file.Global.Body, func(name string, val []float64) error {
			return setGlobal(m, name, val)
		}))
	}
	for _, gb := range s.file.Groups {
		g, _ := m.Group(gb.Name)
		if gb.Uniform != nil {
			errs = multierr.Append(errs, setValues(gb.Uniform.Body, func(name string, val []float64) error {
				return setGroupValue(g, irkind.Uniform, name, val)
			}))
		}
		if gb.Varying != nil {
			errs = multierr.Append(errs, setValues(gb.Varying.Body, func(name string, val []float64) error {
				return setGroupValue(g, irkind.Varying, name, val)
			}))
		}
	}
	if errs != nil {
		return nil, errors.WithMessagef(errs, "scene %s", s.filename)
	}
	ctxlog.FromContext(ctx).Info("model built", "scene", s.filename, "groups", len(m.Groups()), "particles", m.ParticleCount())
	return m, nil
}

func (s *Scene) addGroup(m *store.Model, gb *groupBlock) error {
	g, err := m.AddGroup(gb.Name, gb.Type)
	if err != nil {
		return err
	}
	for _, tag := range gb.Tags {
		g.AddTag(tag)
	}
	positions, err := s.positions(gb)
	if err != nil {
		return err
	}
	if err := g.Resize(len(positions)); err != nil {
		return err
	}
	if len(positions) == 0 {
		return nil
	}
	x, err := g.Add(nhood.Position)
	if err != nil {
		return err
	}
	for i, pos := range positions {
		if err := x.Store(i, tensor.Vector(pos...)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scene) positions(gb *groupBlock) ([][]float64, error) {
	dims := s.file.Dims
	var positions [][]float64
	for i, pos := range gb.Positions {
		if len(pos) != dims {
			return nil, fmterr.Errorf(fmterr.ShapeError, "position %d has %d components but the scene has %d dimensions", i, len(pos), dims)
		}
		positions = append(positions, pos)
	}
	for _, l := range gb.Lattices {
		lattice, err := l.positions(dims)
		if err != nil {
			return nil, err
		}
		positions = append(positions, lattice...)
	}
	return positions, nil
}

// positions returns the positions of the nodes of the lattice.
// The last axis varies the fastest.
func (l *latticeBlock) positions(dims int) ([][]float64, error) {
	if len(l.Origin) != dims || len(l.Count) != dims {
		return nil, fmterr.Errorf(fmterr.ShapeError, "lattice origin and count must have %d components", dims)
	}
	total := 1
	for _, c := range l.Count {
		if c < 0 {
			return nil, fmterr.Errorf(fmterr.ShapeError, "invalid negative lattice count %v", l.Count)
		}
		total *= c
	}
	positions := make([][]float64, total)
	for n := range positions {
		pos := make([]float64, dims)
		rem := n
		for k := dims - 1; k >= 0; k-- {
			pos[k] = l.Origin[k] + l.Spacing*float64(rem%l.Count[k])
			rem /= l.Count[k]
		}
		positions[n] = pos
	}
	return positions, nil
}

func setValues(body hcl.Body, set func(string, []float64) error) error {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return diags
	}
	var errs error
	for _, name := range sortedNames(attrs) {
		attr := attrs[name]
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			errs = multierr.Append(errs, diags)
			continue
		}
		flat, err := flatten(val)
		if err != nil {
			errs = multierr.Append(errs, errors.WithMessagef(err, "%s", attr.NameRange))
			continue
		}
		if err := set(name, flat); err != nil {
			errs = multierr.Append(errs, errors.WithMessagef(err, "%s", attr.NameRange))
		}
	}
	return errs
}

func setGlobal(m *store.Model, name string, val []float64) error {
	t, ok := m.Global(name)
	if !ok {
		f, err := inferField(irkind.Global, name, len(val))
		if err != nil {
			return err
		}
		if t, err = m.AddGlobal(f); err != nil {
			return err
		}
	}
	return storeAll(t, val)
}

func setGroupValue(g *store.Group, kind irkind.Kind, name string, val []float64) error {
	t, ok := g.Field(name)
	if !ok {
		// A varying value whose length is a multiple of the group size
		// provides one item per particle.
		itemSize := len(val)
		if kind == irkind.Varying && g.Size() > 0 && len(val)%g.Size() == 0 {
			itemSize = len(val) / g.Size()
		}
		f, err := inferField(kind, name, itemSize)
		if err != nil {
			return err
		}
		if t, err = g.Add(f); err != nil {
			return err
		}
	}
	if t.Field().Kind != kind {
		return fmterr.Errorf(fmterr.FieldKindMismatch, "field %s is %s but set in a %s block", name, t.Field().Kind, kind)
	}
	return storeAll(t, val)
}

// inferField returns a real field given the number of components of its value:
// a scalar for one component, a vector otherwise.
func inferField(kind irkind.Kind, name string, size int) (ir.Field, error) {
	shape := ir.Scalar()
	if size > 1 {
		shape = ir.Vector(size)
	}
	return ir.NewField(kind, irkind.Real, shape, name)
}

// storeAll stores a value in all the items of a tensor
// or one value per item if val has the size of the whole tensor.
func storeAll(t store.Tensor, val []float64) error {
	item := t.ItemShape()
	switch len(val) {
	case item.Size():
		v, err := tensor.New(item, val)
		if err != nil {
			return err
		}
		for i := range t.Len() {
			if err := t.Store(i, v); err != nil {
				return err
			}
		}
		return nil
	case item.Size() * t.Len():
		for i := range t.Len() {
			v, err := tensor.New(item, val[i*item.Size():(i+1)*item.Size()])
			if err != nil {
				return err
			}
			if err := t.Store(i, v); err != nil {
				return err
			}
		}
		return nil
	}
	return fmterr.Errorf(fmterr.ShapeError, "field %s: cannot store %d values in %d items of shape %s", t.Field().Name, len(val), t.Len(), item)
}
