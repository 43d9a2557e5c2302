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

// Package nhood finds the neighbors of particles.
package nhood

import (
	"iter"
	"math"

	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
	"github.com/gx-org/prtcl/rt/store"
)

// Position is the field storing the position of particles.
var Position = ir.Field{
	Kind:  irkind.Varying,
	Type:  irkind.Real,
	Shape: ir.Vector(0),
	Name:  "position",
}

// Neighborhood iterates over the neighbors of particles.
type Neighborhood interface {
	// Neighbors iterates over the group and particle indices of the neighbors
	// of a particle, including the particle itself.
	Neighbors(group, index int) iter.Seq2[int, int]
}

type (
	cell [3]int64

	particle struct {
		group, index int
	}

	// Grid finds neighbors by hashing particle positions into a uniform grid
	// of cells of the size of the search radius.
	Grid struct {
		radius    float64
		dims      int
		positions [][]float64
		cells     map[cell][]particle
	}
)

var _ Neighborhood = (*Grid)(nil)

// NewGrid returns an empty grid for a given search radius.
func NewGrid(radius float64) (*Grid, error) {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return nil, fmterr.Errorf(fmterr.ShapeError, "invalid search radius %v", radius)
	}
	return &Grid{radius: radius}, nil
}

// Radius returns the search radius.
func (g *Grid) Radius() float64 {
	return g.radius
}

// Update the grid with the current positions of all the particles of a model.
// Groups without a position field have no neighbors.
func (g *Grid) Update(m *store.Model) error {
	g.dims = m.Dims()
	g.positions = make([][]float64, len(m.Groups()))
	g.cells = make(map[cell][]particle)
	for gi, grp := range m.Groups() {
		t, ok := grp.Field(Position.Name)
		if !ok {
			continue
		}
		if t.Field() != Position {
			return fmterr.Errorf(fmterr.FieldKindMismatch, "group %s: position field is %s but want %s", grp.Name(), t.Field(), Position)
		}
		data, err := store.Slice[float64](t)
		if err != nil {
			return err
		}
		g.positions[gi] = append([]float64{}, data...)
		for i := range grp.Size() {
			c := g.cellOf(g.position(gi, i))
			g.cells[c] = append(g.cells[c], particle{group: gi, index: i})
		}
	}
	return nil
}

func (g *Grid) position(group, index int) []float64 {
	return g.positions[group][index*g.dims : (index+1)*g.dims]
}

func (g *Grid) cellOf(x []float64) cell {
	var c cell
	for k, xk := range x {
		c[k] = int64(math.Floor(xk / g.radius))
	}
	return c
}

// Neighbors iterates over the particles closer than the search radius of a particle.
func (g *Grid) Neighbors(group, index int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		if group >= len(g.positions) || g.positions[group] == nil {
			return
		}
		x := g.position(group, index)
		center := g.cellOf(x)
		r2 := g.radius * g.radius
		var offsets [3]int64
		lo := int64(-1)
		var visit func(axis int) bool
		visit = func(axis int) bool {
			if axis == g.dims {
				c := center
				for k := range g.dims {
					c[k] += offsets[k]
				}
				for _, p := range g.cells[c] {
					if distanceSquared(x, g.position(p.group, p.index)) > r2 {
						continue
					}
					if !yield(p.group, p.index) {
						return false
					}
				}
				return true
			}
			for offsets[axis] = lo; offsets[axis] <= 1; offsets[axis]++ {
				if !visit(axis + 1) {
					return false
				}
			}
			return true
		}
		visit(0)
	}
}

func distanceSquared(x, y []float64) float64 {
	var d2 float64
	for k, xk := range x {
		d := xk - y[k]
		d2 += d * d
	}
	return d2
}

// All is a neighborhood where all particles of a model are neighbors of each other.
type All struct {
	sizes []int
}

var _ Neighborhood = (*All)(nil)

// NewAll returns a neighborhood where all particles of a model are neighbors.
func NewAll(m *store.Model) *All {
	all := &All{}
	for _, grp := range m.Groups() {
		all.sizes = append(all.sizes, grp.Size())
	}
	return all
}

// Neighbors iterates over all the particles of the model.
func (a *All) Neighbors(int, int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for group, size := range a.sizes {
			for index := range size {
				if !yield(group, index) {
					return
				}
			}
		}
	}
}
