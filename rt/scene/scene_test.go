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

package scene_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/resolver"
	"github.com/gx-org/prtcl/rt/scene"
	"github.com/gx-org/prtcl/rt/store"
)

const src = `
dimensions = 2

global {
  smoothing_scale = 0.5
  gravity         = [0, -9.81]
}

group "water" {
  type = "fluid"
  tags = ["dynamic"]

  uniform {
    rest_density = 1000
  }

  lattice {
    origin  = [0, 1]
    count   = [2, 3]
    spacing = 0.5
  }

  varying {
    mass = 0.25
  }
}

group "walls" {
  type      = "boundary"
  positions = [[-1, 0], [1, 0]]

  varying {
    volume = [1, 2]
  }
}
`

func floats(t *testing.T, tn store.Tensor) []float64 {
	data, err := store.Slice[float64](tn)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestBuild(t *testing.T) {
	s, err := scene.Parse("test.hcl", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if s.Dims() != 2 {
		t.Errorf("got %d dimensions but want 2", s.Dims())
	}
	reqs := resolver.New()
	density, err := ir.FieldFromSuffix("vrs", "density")
	if err != nil {
		t.Fatal(err)
	}
	if err := reqs.AddRequirement("fluid", density); err != nil {
		t.Fatal(err)
	}
	m, err := s.Build(context.Background(), reqs)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	water, ok := m.Group("water")
	if !ok {
		t.Fatal("group water not found")
	}
	if water.Size() != 6 || !water.HasTag("dynamic") {
		t.Errorf("unexpected group water: size %d, tags %v", water.Size(), water.Tags())
	}
	x, _ := water.Field("position")
	want := []float64{0, 1, 0, 1.5, 0, 2, 0.5, 1, 0.5, 1.5, 0.5, 2}
	if diff := cmp.Diff(want, floats(t, x)); diff != "" {
		t.Errorf("unexpected positions (-want +got):\n%s", diff)
	}
	mass, _ := water.Field("mass")
	if diff := cmp.Diff([]float64{0.25, 0.25, 0.25, 0.25, 0.25, 0.25}, floats(t, mass)); diff != "" {
		t.Errorf("unexpected masses (-want +got):\n%s", diff)
	}
	if _, ok := water.Field("density"); !ok {
		t.Errorf("required field density has not been added")
	}
	rho0, _ := water.Field("rest_density")
	if diff := cmp.Diff([]float64{1000}, floats(t, rho0)); diff != "" {
		t.Errorf("unexpected rest density (-want +got):\n%s", diff)
	}
	walls, _ := m.Group("walls")
	volume, _ := walls.Field("volume")
	if diff := cmp.Diff([]float64{1, 2}, floats(t, volume)); diff != "" {
		t.Errorf("unexpected volumes (-want +got):\n%s", diff)
	}
	g, _ := m.Global("gravity")
	if got, want := g.Field().Shape, ir.Vector(2); got != want {
		t.Errorf("got gravity shape %s but want %s", got, want)
	}
	if diff := cmp.Diff([]float64{0, -9.81}, floats(t, g)); diff != "" {
		t.Errorf("unexpected gravity (-want +got):\n%s", diff)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		desc string
		src  string
		code fmterr.Code
	}{
		{
			desc: "wrong position dimensions",
			src: `
dimensions = 3
group "a" {
  type      = "fluid"
  positions = [[0, 0]]
}`,
			code: fmterr.ShapeError,
		},
		{
			desc: "wrong number of values",
			src: `
dimensions = 1
group "a" {
  type      = "fluid"
  positions = [[0], [1], [2]]
  varying {
    mass = [1, 2]
  }
}`,
			code: fmterr.ShapeError,
		},
		{
			desc: "invalid dimensionality",
			src:  `dimensions = 4`,
			code: fmterr.ShapeError,
		},
	}
	reqs := resolver.New()
	mass, err := ir.FieldFromSuffix("vrs", "mass")
	if err != nil {
		t.Fatal(err)
	}
	if err := reqs.AddRequirement("fluid", mass); err != nil {
		t.Fatal(err)
	}
	for _, test := range tests {
		s, err := scene.Parse("test.hcl", []byte(test.src))
		if err != nil {
			t.Errorf("%s: %v", test.desc, err)
			continue
		}
		_, err = s.Build(context.Background(), reqs)
		if !fmterr.Is(err, test.code) {
			t.Errorf("%s: got error %v but want code %s", test.desc, err, test.code)
		}
	}
}

func TestParseError(t *testing.T) {
	if _, err := scene.Parse("test.hcl", []byte(`group "a" {`)); err == nil {
		t.Errorf("expected a syntax error")
	}
}
