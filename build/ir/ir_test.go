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

package ir_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
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

func field(t *testing.T, suffix, name string) ir.Field {
	return must[ir.Field](t)(ir.FieldFromSuffix(suffix, name))
}

func ref(t *testing.T, f ir.Field, role irkind.Role) *ir.FieldRef {
	return must[*ir.FieldRef](t)(ir.NewFieldRef(f.Name, f, role))
}

func boundaryScheme(t *testing.T) *ir.Scheme {
	x := field(t, "vrv", "position")
	vol := field(t, "vrs", "volume")
	diff := must[*ir.Binary](t)(ir.NewBinary(irkind.Minus, ref(t, x, irkind.Active), ref(t, x, irkind.Neighbor)))
	kernel := must[*ir.Call](t)(ir.NewCall(irkind.Kernel, diff))
	inner := must[*ir.IfGroupType](t)(ir.NewIfGroupType("boundary", []ir.Node{
		must[*ir.Equation](t)(ir.NewEquation(irkind.Add, ref(t, vol, irkind.Active), kernel)),
	}, nil))
	inv := must[*ir.Binary](t)(ir.NewBinary(irkind.Divide, ir.IndexLiteral(1), ref(t, vol, irkind.Active)))
	outer := must[*ir.IfGroupType](t)(ir.NewIfGroupType("boundary", []ir.Node{
		must[*ir.Equation](t)(ir.NewEquation(irkind.Assign, ref(t, vol, irkind.Active), ir.RealLiteral(0))),
		must[*ir.ForeachNeighbor](t)(ir.NewForeachNeighbor(inner)),
		must[*ir.Equation](t)(ir.NewEquation(irkind.Assign, ref(t, vol, irkind.Active), inv)),
	}, nil))
	proc := must[*ir.Procedure](t)(ir.NewProcedure("compute_volume",
		must[*ir.ForeachParticle](t)(ir.NewForeachParticle(outer)),
	))
	groups := must[*ir.Groups](t)(ir.NewGroups("boundary",
		ir.FieldDecl{Alias: "x", Field: x},
		ir.FieldDecl{Alias: "V", Field: vol},
	))
	return must[*ir.Scheme](t)(ir.NewScheme("boundary", groups, proc))
}

func TestShape(t *testing.T) {
	s := ir.Matrix(0, 2)
	if s.IsComplete() {
		t.Errorf("%s: IsComplete() = true, want false", s)
	}
	c := s.Complete(3)
	if !c.IsComplete() {
		t.Errorf("%s: IsComplete() = false, want true", c)
	}
	if got, want := c.Extents(), []int{3, 2}; !cmp.Equal(got, want) {
		t.Errorf("got extents %v but want %v", got, want)
	}
	if got, want := c.Size(), 6; got != want {
		t.Errorf("got size %d but want %d", got, want)
	}
	if got, want := s.String(), "[D,2]"; got != want {
		t.Errorf("got %q but want %q", got, want)
	}
	if got, want := ir.Scalar().Complete(3), ir.Scalar(); got != want {
		t.Errorf("got %v but want %v", got, want)
	}
	if _, err := ir.NewShape(1, 2, 3); !fmterr.Is(err, fmterr.ShapeError) {
		t.Errorf("got error %v but want a shape error", err)
	}
	if _, err := ir.NewShape(-1); !fmterr.Is(err, fmterr.ShapeError) {
		t.Errorf("got error %v but want a shape error", err)
	}
	v := must[ir.Shape](t)(ir.NewShape(0))
	if v != ir.Vector(0) {
		t.Errorf("got %v but want %v", v, ir.Vector(0))
	}
}

func TestFieldAsKey(t *testing.T) {
	a := field(t, "vrv", "velocity")
	b := must[ir.Field](t)(ir.NewField(irkind.Varying, irkind.Real, ir.Vector(0), "velocity"))
	set := map[ir.Field]bool{a: true}
	if !set[b] {
		t.Errorf("%v and %v should be the same key", a, b)
	}
	if ir.CompareFields(a, b) != 0 {
		t.Errorf("CompareFields(%v, %v) != 0", a, b)
	}
	g := field(t, "grs", "velocity")
	if ir.CompareFields(g, a) >= 0 {
		t.Errorf("global field %v should be ordered before %v", g, a)
	}
	if _, err := ir.NewField(irkind.Kind(9), irkind.Real, ir.Scalar(), "x"); !fmterr.Is(err, fmterr.InvalidEnumerator) {
		t.Errorf("got error %v but want an invalid enumerator error", err)
	}
	if _, err := ir.NewField(irkind.Global, irkind.Real, ir.Scalar(), ""); err == nil {
		t.Errorf("expected an error for an empty name")
	}
	if got, want := a.Decl(), `vrv("velocity")`; got != want {
		t.Errorf("got %q but want %q", got, want)
	}
}

func TestNamespace(t *testing.T) {
	tests := []struct {
		desc  string
		decls []ir.FieldDecl
		code  fmterr.Code
	}{
		{
			desc: "consistent",
			decls: []ir.FieldDecl{
				{Alias: "x", Field: field(t, "vrv", "position")},
				{Alias: "pos", Field: field(t, "vrv", "position")},
				{Alias: "x", Field: field(t, "vrv", "position")},
			},
		},
		{
			desc: "kind mismatch",
			decls: []ir.FieldDecl{
				{Alias: "m", Field: field(t, "vrs", "mass")},
				{Alias: "m", Field: field(t, "urs", "mass")},
			},
			code: fmterr.FieldKindMismatch,
		},
		{
			desc: "rank mismatch",
			decls: []ir.FieldDecl{
				{Alias: "a", Field: field(t, "vrs", "f")},
				{Alias: "b", Field: field(t, "vrv", "f")},
			},
			code: fmterr.ShapeError,
		},
		{
			desc: "duplicate alias",
			decls: []ir.FieldDecl{
				{Alias: "x", Field: field(t, "vrv", "position")},
				{Alias: "x", Field: field(t, "vrv", "velocity")},
			},
			code: fmterr.DuplicateFieldAlias,
		},
	}
	for _, test := range tests {
		ns := ir.NewNamespace()
		var err error
		for _, decl := range test.decls {
			if err = ns.Declare(decl); err != nil {
				break
			}
		}
		if test.code == fmterr.Unknown {
			if err != nil {
				t.Errorf("%s: unexpected error: %v", test.desc, err)
			}
			continue
		}
		if !fmterr.Is(err, test.code) {
			t.Errorf("%s: got error %v but want code %v", test.desc, err, test.code)
		}
	}
	ns := ir.NewNamespace()
	x := field(t, "vrv", "position")
	if err := ns.Declare(ir.FieldDecl{Alias: "x", Field: x}); err != nil {
		t.Fatal(err)
	}
	if got, ok := ns.Lookup("x"); !ok || got != x {
		t.Errorf("Lookup(x) = %v, %v but want %v, true", got, ok, x)
	}
}

func TestConstructors(t *testing.T) {
	x := field(t, "vrv", "position")
	tests := []struct {
		desc string
		err  error
		code fmterr.Code
	}{
		{
			desc: "equation without target",
			err:  func() error { _, err := ir.NewEquation(irkind.Assign, nil, ir.RealLiteral(0)); return err }(),
			code: fmterr.InvalidNode,
		},
		{
			desc: "equation with invalid op",
			err: func() error {
				_, err := ir.NewEquation(irkind.Op(99), ref(t, x, irkind.Active), ir.RealLiteral(0))
				return err
			}(),
			code: fmterr.InvalidEnumerator,
		},
		{
			desc: "global block with varying field",
			err:  func() error { _, err := ir.NewGlobal(ir.FieldDecl{Alias: "x", Field: x}); return err }(),
			code: fmterr.InvalidFieldKind,
		},
		{
			desc: "groups block with global field",
			err: func() error {
				_, err := ir.NewGroups("fluid", ir.FieldDecl{Alias: "g", Field: field(t, "grv", "gravity")})
				return err
			}(),
			code: fmterr.InvalidFieldKind,
		},
		{
			desc: "empty group type",
			err:  func() error { _, err := ir.NewIfGroupType("", nil, nil); return err }(),
			code: fmterr.UnknownGroupType,
		},
		{
			desc: "nil child",
			err:  func() error { _, err := ir.NewForeachParticle(nil); return err }(),
			code: fmterr.InvalidNode,
		},
		{
			desc: "unary plus",
			err:  func() error { _, err := ir.NewUnary(irkind.Plus, ir.RealLiteral(1)); return err }(),
			code: fmterr.InvalidEnumerator,
		},
	}
	for _, test := range tests {
		if !fmterr.Is(test.err, test.code) {
			t.Errorf("%s: got error %v but want code %v", test.desc, test.err, test.code)
		}
	}
}

func TestClone(t *testing.T) {
	scheme := boundaryScheme(t)
	clone := ir.Clone(scheme)
	if diff := cmp.Diff(scheme, clone); diff != "" {
		t.Fatalf("clone mismatch (-want +got):\n%s", diff)
	}
	// Mutating the clone leaves the original unchanged.
	proc := clone.Procedures()[0]
	loop := proc.Statements[0].(*ir.ForeachParticle)
	cond := loop.Body[0].(*ir.IfGroupType)
	eq := cond.Then[0].(*ir.Equation)
	eq.Value.(*ir.Literal).Value = 42
	eq.Target.Alias = "W"
	orig := scheme.Procedures()[0].Statements[0].(*ir.ForeachParticle).Body[0].(*ir.IfGroupType).Then[0].(*ir.Equation)
	if got := orig.Value.(*ir.Literal).Value; got != 0 {
		t.Errorf("original literal changed to %v", got)
	}
	if got := orig.Target.Alias; got != "volume" {
		t.Errorf("original alias changed to %q", got)
	}
}

type nodeCounter struct {
	counts map[string]int
}

func (c *nodeCounter) count(name string, children []ir.Node) (int, error) {
	c.counts[name]++
	total := 1
	for _, child := range children {
		n, err := ir.Transform[int](child, c)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (c *nodeCounter) Scheme(n *ir.Scheme) (int, error) { return c.count("scheme", n.Statements) }
func (c *nodeCounter) Procedure(n *ir.Procedure) (int, error) {
	return c.count("procedure", n.Statements)
}
func (c *nodeCounter) Global(*ir.Global) (int, error) { return c.count("global", nil) }
func (c *nodeCounter) Groups(*ir.Groups) (int, error) { return c.count("groups", nil) }
func (c *nodeCounter) ForeachParticle(n *ir.ForeachParticle) (int, error) {
	return c.count("foreach_particle", n.Body)
}
func (c *nodeCounter) ForeachNeighbor(n *ir.ForeachNeighbor) (int, error) {
	return c.count("foreach_neighbor", n.Body)
}
func (c *nodeCounter) IfGroupType(n *ir.IfGroupType) (int, error) {
	return c.count("if_group_type", append(append([]ir.Node{}, n.Then...), n.Else...))
}
func (c *nodeCounter) Equation(*ir.Equation) (int, error) { return c.count("equation", nil) }

func TestTransform(t *testing.T) {
	scheme := boundaryScheme(t)
	c := &nodeCounter{counts: make(map[string]int)}
	total, err := ir.Transform[int](scheme, c)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]int{
		"scheme":           1,
		"groups":           1,
		"procedure":        1,
		"foreach_particle": 1,
		"foreach_neighbor": 1,
		"if_group_type":    2,
		"equation":         3,
	}
	if diff := cmp.Diff(want, c.counts); diff != "" {
		t.Errorf("count mismatch (-want +got):\n%s", diff)
	}
	if total != 10 {
		t.Errorf("got %d nodes but want 10", total)
	}
	walked := 0
	ir.Walk(scheme, func(ir.Node) bool {
		walked++
		return true
	})
	if walked != total {
		t.Errorf("Walk visited %d nodes but want %d", walked, total)
	}
}

func TestRewrite(t *testing.T) {
	scheme := boundaryScheme(t)
	var renamed func(ir.Node) (ir.Node, error)
	renamed = func(n ir.Node) (ir.Node, error) {
		if cond, ok := n.(*ir.IfGroupType); ok && cond.GroupType == "boundary" {
			n = &ir.IfGroupType{GroupType: "rigid", Then: cond.Then, Else: cond.Else}
		}
		return ir.Rewrite(n, renamed)
	}
	out, err := renamed(scheme)
	if err != nil {
		t.Fatal(err)
	}
	var types []string
	ir.Walk(out, func(n ir.Node) bool {
		if cond, ok := n.(*ir.IfGroupType); ok {
			types = append(types, cond.GroupType)
		}
		return true
	})
	if diff := cmp.Diff([]string{"rigid", "rigid"}, types); diff != "" {
		t.Errorf("group types mismatch (-want +got):\n%s", diff)
	}
	if _, ok := out.(*ir.Scheme); !ok {
		t.Errorf("rewrite returned %T but want *ir.Scheme", out)
	}
}

func TestValidate(t *testing.T) {
	if err := ir.Validate(boundaryScheme(t)); err != nil {
		t.Fatalf("%+v", err)
	}
	x := field(t, "vrv", "position")
	eq := must[*ir.Equation](t)(ir.NewEquation(irkind.Assign, ref(t, x, irkind.Active), ref(t, x, irkind.Active)))
	nb := must[*ir.ForeachNeighbor](t)(ir.NewForeachNeighbor(eq))
	tests := []struct {
		desc string
		node ir.Node
	}{
		{
			desc: "neighbor loop in procedure",
			node: must[*ir.Procedure](t)(ir.NewProcedure("p", nb)),
		},
		{
			desc: "condition in procedure",
			node: must[*ir.Procedure](t)(ir.NewProcedure("p",
				must[*ir.IfGroupType](t)(ir.NewIfGroupType("fluid", []ir.Node{eq}, nil)))),
		},
		{
			desc: "nested particle loop",
			node: must[*ir.Procedure](t)(ir.NewProcedure("p",
				must[*ir.ForeachParticle](t)(ir.NewForeachParticle(
					must[*ir.ForeachParticle](t)(ir.NewForeachParticle(eq)))))),
		},
		{
			desc: "equation in scheme",
			node: must[*ir.Scheme](t)(ir.NewScheme("s", eq)),
		},
		{
			desc: "nested neighbor loop",
			node: must[*ir.ForeachParticle](t)(ir.NewForeachParticle(
				must[*ir.ForeachNeighbor](t)(ir.NewForeachNeighbor(nb)))),
		},
	}
	for _, test := range tests {
		err := ir.Validate(test.node)
		if !fmterr.Is(err, fmterr.InvalidNode) {
			t.Errorf("%s: got error %v but want an invalid node error", test.desc, err)
		}
	}
}

func TestExprString(t *testing.T) {
	x := field(t, "vrv", "position")
	h := field(t, "grs", "smoothing_scale")
	xi, xj := ref(t, x, irkind.Active), ref(t, x, irkind.Neighbor)
	diff := must[*ir.Binary](t)(ir.NewBinary(irkind.Minus, xi, xj))
	tests := []struct {
		expr ir.Expr
		want string
	}{
		{expr: diff, want: "position[i] - position[j]"},
		{
			expr: must[*ir.Binary](t)(ir.NewBinary(irkind.Times, diff, ref(t, h, irkind.Neighbor))),
			want: "(position[i] - position[j]) * smoothing_scale",
		},
		{
			expr: must[*ir.Binary](t)(ir.NewBinary(irkind.Minus, xi, diff)),
			want: "position[i] - (position[i] - position[j])",
		},
		{
			expr: must[*ir.Call](t)(ir.NewCall(irkind.Kernel, diff)),
			want: "kernel(position[i] - position[j])",
		},
		{expr: ir.RealLiteral(2), want: "2.0"},
		{expr: ir.RealLiteral(-0.5), want: "-0.5"},
		{expr: ir.IndexLiteral(7), want: "7"},
		{expr: ir.BoolLiteral(true), want: "true"},
		{expr: must[*ir.Unary](t)(ir.NewUnary(irkind.Minus, ir.RealLiteral(1))), want: "-(1.0)"},
		{expr: must[*ir.Unary](t)(ir.NewUnary(irkind.Minus, xi)), want: "-position[i]"},
	}
	for _, test := range tests {
		if got := test.expr.String(); got != test.want {
			t.Errorf("got %q but want %q", got, test.want)
		}
	}
	if got := len(ir.FieldRefs(tests[1].expr)); got != 3 {
		t.Errorf("got %d field references but want 3", got)
	}
}
