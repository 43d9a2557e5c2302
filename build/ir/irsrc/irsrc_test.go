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

package irsrc_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
	"github.com/gx-org/prtcl/build/ir/irsrc"
)

func must[T any](t *testing.T) func(T, error) T {
	return func(v T, err error) T {
		t.Helper()
		if err != nil {
			t.Fatalf("%+v", err)
		}
		return v
	}
}

func decl(t *testing.T, alias, suffix, name string) ir.FieldDecl {
	return ir.FieldDecl{Alias: alias, Field: must[ir.Field](t)(ir.FieldFromSuffix(suffix, name))}
}

func ref(t *testing.T, d ir.FieldDecl, role irkind.Role) *ir.FieldRef {
	return must[*ir.FieldRef](t)(ir.NewFieldRef(d.Alias, d.Field, role))
}

func TestFormat(t *testing.T) {
	dt := decl(t, "dt", "grs", "time_step")
	maxSpeed := decl(t, "max_speed", "grs", "maximum_speed")
	v := decl(t, "v", "vrv", "velocity")
	a := decl(t, "a", "vrv", "acceleration")
	x := decl(t, "x", "vrv", "position")
	scheme := must[*ir.Scheme](t)(ir.NewScheme("se",
		must[*ir.Global](t)(ir.NewGlobal(dt, maxSpeed)),
		must[*ir.Groups](t)(ir.NewGroups("fluid", v, a)),
		must[*ir.Procedure](t)(ir.NewProcedure("advect",
			must[*ir.Equation](t)(ir.NewEquation(irkind.Assign, ref(t, maxSpeed, irkind.Active),
				must[*ir.Call](t)(ir.NewCall(irkind.NegativeInfinity)))),
			must[*ir.ForeachParticle](t)(ir.NewForeachParticle(
				must[*ir.IfGroupType](t)(ir.NewIfGroupType("fluid", []ir.Node{
					must[*ir.Equation](t)(ir.NewEquation(irkind.Add, ref(t, v, irkind.Active),
						must[*ir.Binary](t)(ir.NewBinary(irkind.Times, ref(t, dt, irkind.Active), ref(t, a, irkind.Active))))),
					must[*ir.Equation](t)(ir.NewEquation(irkind.Add, ref(t, x, irkind.Active),
						must[*ir.Binary](t)(ir.NewBinary(irkind.Times, ref(t, dt, irkind.Active), ref(t, v, irkind.Active))))),
					must[*ir.Equation](t)(ir.NewEquation(irkind.Max, ref(t, maxSpeed, irkind.Active),
						must[*ir.Call](t)(ir.NewCall(irkind.Norm, ref(t, v, irkind.Active))))),
				}, []ir.Node{
					must[*ir.Equation](t)(ir.NewEquation(irkind.Assign, ref(t, v, irkind.Active),
						must[*ir.Call](t)(ir.NewCall(irkind.ZeroVector)))),
				})),
			)),
		)),
	))
	got, err := irsrc.Format(scheme)
	if err != nil {
		t.Fatal(err)
	}
	want := `
scheme se {
	fields {
		x = vrv("position")
	}

	global {
		dt = grs("time_step")
		max_speed = grs("maximum_speed")
	}

	groups "fluid" {
		v = vrv("velocity")
		a = vrv("acceleration")
	}

	procedure advect() {
		max_speed = negative_infinity()
		foreach_particle(
			if_group_type("fluid",
				v[i] += dt * a[i],
				x[i] += dt * v[i],
				max_speed max= norm(v[i]),
				else(
					v[i] = zero_vector(),
				),
			),
		)
	}
}
`
	if diff := cmp.Diff(strings.TrimLeft(want, "\n"), got); diff != "" {
		t.Errorf("source mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatEmpty(t *testing.T) {
	scheme := must[*ir.Scheme](t)(ir.NewScheme("empty",
		must[*ir.Procedure](t)(ir.NewProcedure("nothing")),
	))
	got, err := irsrc.Format(scheme)
	if err != nil {
		t.Fatal(err)
	}
	want := "scheme empty {\n\tprocedure nothing() {}\n}\n"
	if got != want {
		t.Errorf("got %q but want %q", got, want)
	}
}
