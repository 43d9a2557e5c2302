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

package nhood_test

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/prtcl/rt/nhood"
	"github.com/gx-org/prtcl/rt/store"
	"github.com/gx-org/prtcl/rt/tensor"
)

type pair struct{ Group, Index int }

func collect(nh nhood.Neighborhood, group, index int) []pair {
	var ps []pair
	for g, i := range nh.Neighbors(group, index) {
		ps = append(ps, pair{g, i})
	}
	slices.SortFunc(ps, func(a, b pair) int {
		if a.Group != b.Group {
			return a.Group - b.Group
		}
		return a.Index - b.Index
	})
	return ps
}

func randomModel(t *testing.T, dims int, sizes ...int) *store.Model {
	m, err := store.NewModel(dims)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewPCG(1, 2))
	for gi, size := range sizes {
		g, err := m.AddGroup(string(rune('a'+gi)), "fluid")
		if err != nil {
			t.Fatal(err)
		}
		if err := g.Resize(size); err != nil {
			t.Fatal(err)
		}
		x, err := g.Add(nhood.Position)
		if err != nil {
			t.Fatal(err)
		}
		for i := range size {
			pos := make([]float64, dims)
			for k := range pos {
				pos[k] = rng.Float64()*4 - 2
			}
			if err := x.Store(i, tensor.Vector(pos...)); err != nil {
				t.Fatal(err)
			}
		}
	}
	return m
}

func bruteForce(t *testing.T, m *store.Model, radius float64, group, index int) []pair {
	x, _ := m.Groups()[group].Field("position")
	xi := x.Load(index)
	var ps []pair
	for gj, g := range m.Groups() {
		y, _ := g.Field("position")
		for j := range g.Size() {
			d, err := tensor.Sub(xi, y.Load(j))
			if err != nil {
				t.Fatal(err)
			}
			if n2, _ := tensor.NormSquared(d); n2 <= radius*radius {
				ps = append(ps, pair{gj, j})
			}
		}
	}
	return ps
}

func TestGrid(t *testing.T) {
	const radius = 0.5
	for dims := 1; dims <= 3; dims++ {
		m := randomModel(t, dims, 40, 30)
		grid, err := nhood.NewGrid(radius)
		if err != nil {
			t.Fatal(err)
		}
		if err := grid.Update(m); err != nil {
			t.Fatal(err)
		}
		for gi, g := range m.Groups() {
			for i := range g.Size() {
				got := collect(grid, gi, i)
				if !slices.Contains(got, pair{gi, i}) {
					t.Errorf("%dD: particle (%d, %d) is not its own neighbor", dims, gi, i)
				}
				if diff := cmp.Diff(bruteForce(t, m, radius, gi, i), got); diff != "" {
					t.Errorf("%dD: unexpected neighbors of (%d, %d) (-want +got):\n%s", dims, gi, i, diff)
				}
			}
		}
	}
}

func TestAll(t *testing.T) {
	m := randomModel(t, 2, 2, 3)
	got := collect(nhood.NewAll(m), 0, 0)
	want := []pair{{0, 0}, {0, 1}, {1, 0}, {1, 1}, {1, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected neighbors (-want +got):\n%s", diff)
	}
}

func TestNewGridError(t *testing.T) {
	if _, err := nhood.NewGrid(0); err == nil {
		t.Errorf("expected an error for a zero radius")
	}
}
