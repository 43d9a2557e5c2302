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

package parser_test

import (
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/gx-org/prtcl/build/builder"
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
	"github.com/gx-org/prtcl/build/ir/irsrc"
	"github.com/gx-org/prtcl/build/parser"
)

const sesphSrc = `
// Density and pressure.
scheme sesph {
	global {
		h = grs("smoothing_scale")
	}

	groups "fluid" {
		x = vrv("position")
		m = vrs("mass")
		rho = vrs("density")
		p = vrs("pressure")
		k = urs("compressibility")
		rho0 = urs("rest_density")
	}

	procedure compute_density_and_pressure() {
		foreach_particle(
			if_group_type("fluid",
				rho[i] = 0.0,
				foreach_neighbor(
					if_group_type("fluid",
						rho[i] += m[j] * kernel(x[i] - x[j]),
					),
				),
				p[i] = k[i] * max(0.0, rho[i] / rho0[i] - 1.0),
			),
		)
	}
}
`

func TestParse(t *testing.T) {
	scheme, err := parser.Parse("sesph.prtcl", sesphSrc)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	proc, err := scheme.Procedure("compute_density_and_pressure")
	if err != nil {
		t.Fatal(err)
	}
	var eqs []*ir.Equation
	ir.Walk(proc, func(n ir.Node) bool {
		if eq, ok := n.(*ir.Equation); ok {
			eqs = append(eqs, eq)
		}
		return true
	})
	if len(eqs) != 3 {
		t.Fatalf("got %d equations but want 3", len(eqs))
	}
	mass := eqs[1].Value.(*ir.Binary).X.(*ir.FieldRef)
	if mass.Role != irkind.Neighbor || mass.Field.Name != "mass" || mass.Field.Kind != irkind.Varying {
		t.Errorf("unexpected reference %v (%v)", mass, mass.Field)
	}
	if eqs[1].Op != irkind.Add {
		t.Errorf("got op %v but want %v", eqs[1].Op, irkind.Add)
	}
	// Printing and parsing again gives the same tree.
	src, err := irsrc.Format(scheme)
	if err != nil {
		t.Fatal(err)
	}
	again, err := parser.Parse("again.prtcl", src)
	if err != nil {
		t.Fatalf("cannot parse:\n%s\nerror: %+v", src, err)
	}
	if diff := cmp.Diff(scheme, again, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripFromBuilder(t *testing.T) {
	b := builder.New()
	dt := b.Field("grs", "time_step").As("dt")
	maxSpeed := b.Field("grs", "maximum_speed")
	x := b.Field("vrv", "position").As("x")
	v := b.Field("vrv", "velocity").As("v")
	a := b.Field("vrv", "acceleration").As("a")
	count := b.Field("gis", "count")
	want, err := b.Scheme("symplectic_euler",
		b.Procedure("advect",
			maxSpeed.G().Assign(b.NegativeInfinity()),
			b.ForeachParticle(
				b.IfGroupType("fluid",
					v.I().AddAssign(dt.G().Mul(a.I())),
					x.I().AddAssign(dt.G().Mul(v.I())),
					maxSpeed.G().MaxAssign(b.Norm(v.I())),
					x.I().SubAssign(b.Real(-0.5).Mul(v.I().Neg()).Sub(b.Real(-1))),
					count.G().AddAssign(b.Index(1)),
				).Else(
					v.I().Assign(b.ZeroVector()),
				),
			),
		),
	)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	src, err := irsrc.Format(want)
	if err != nil {
		t.Fatal(err)
	}
	got, err := parser.Parse("se.prtcl", src)
	if err != nil {
		t.Fatalf("cannot parse:\n%s\nerror: %+v", src, err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s\nsource:\n%s", diff, src)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		desc string
		src  string
		code fmterr.Code
	}{
		{
			desc: "undeclared alias",
			src:  `scheme s { procedure p() { foreach_particle(y[i] = 1.0) } }`,
			code: fmterr.UnknownField,
		},
		{
			desc: "indexed global",
			src:  `scheme s { global { g = grs("g") } procedure p() { foreach_particle(g[i] = 1.0) } }`,
			code: fmterr.InvalidIndexRole,
		},
		{
			desc: "varying without index",
			src:  `scheme s { fields { x = vrs("x") } procedure p() { foreach_particle(x = 1.0) } }`,
			code: fmterr.InvalidIndexRole,
		},
		{
			desc: "missing parenthesis",
			src:  `scheme s { procedure p() { foreach_particle( }`,
			code: fmterr.SyntaxError,
		},
		{
			desc: "unknown operator",
			src:  `scheme s { fields { x = vrs("x") } procedure p() { foreach_particle(x[i] %= 1.0) } }`,
			code: fmterr.SyntaxError,
		},
		{
			desc: "else not last",
			src: `scheme s { fields { x = vrs("x") } procedure p() { foreach_particle(
				if_group_type("a", else(x[i] = 1.0), x[i] = 2.0)) } }`,
			code: fmterr.SyntaxError,
		},
		{
			desc: "unknown function",
			src:  `scheme s { fields { x = vrs("x") } procedure p() { foreach_particle(x[i] = sqrt(2.0)) } }`,
			code: fmterr.InvalidEnumerator,
		},
		{
			desc: "invalid suffix",
			src:  `scheme s { fields { x = vrq("x") } }`,
			code: fmterr.InvalidEnumerator,
		},
		{
			desc: "kind mismatch",
			src:  `scheme s { fields { x = vrs("x") y = urs("x") } }`,
			code: fmterr.FieldKindMismatch,
		},
		{
			desc: "global in groups",
			src:  `scheme s { groups "fluid" { g = grs("g") } }`,
			code: fmterr.InvalidFieldKind,
		},
		{
			desc: "misplaced neighbor loop",
			src:  `scheme s { fields { x = vrs("x") } procedure p() { foreach_neighbor(x[i] = 1.0) } }`,
			code: fmterr.InvalidNode,
		},
	}
	for _, test := range tests {
		_, err := parser.Parse(test.desc, test.src)
		if !fmterr.Is(err, test.code) {
			t.Errorf("%s: got error %v but want code %v", test.desc, err, test.code)
		}
	}
}

func TestParseFile(t *testing.T) {
	fsys := fstest.MapFS{
		"schemes.prtcl": &fstest.MapFile{Data: []byte(`
scheme a { procedure p() {} }
scheme b { procedure q() {} }
`)},
	}
	schemes, err := parser.ParseFile(fsys, "schemes.prtcl")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, s := range schemes {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
		t.Errorf("scheme names mismatch (-want +got):\n%s", diff)
	}
	if _, err := parser.Parse("two", `scheme a {} scheme b {}`); !fmterr.Is(err, fmterr.SyntaxError) {
		t.Errorf("got error %v but want a syntax error", err)
	}
}
