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

package store_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/resolver"
	"github.com/gx-org/prtcl/rt/store"
	"github.com/gx-org/prtcl/rt/tensor"
)

func field(t *testing.T, suffix, name string) ir.Field {
	f, err := ir.FieldFromSuffix(suffix, name)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func newModel(t *testing.T, dims int) *store.Model {
	m, err := store.NewModel(dims)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestGroups(t *testing.T) {
	m := newModel(t, 2)
	fluid, err := m.AddGroup("water", "fluid")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddGroup("walls", "boundary"); err != nil {
		t.Fatal(err)
	}
	again, err := m.AddGroup("water", "fluid")
	if err != nil {
		t.Fatal(err)
	}
	if again != fluid {
		t.Errorf("adding a group twice should return the existing group")
	}
	if _, err := m.AddGroup("water", "boundary"); !fmterr.Is(err, fmterr.GroupTypeMismatch) {
		t.Errorf("got error %v but want a group type mismatch error", err)
	}
	var names []string
	for _, g := range m.Groups() {
		names = append(names, g.Name())
	}
	if diff := cmp.Diff([]string{"water", "walls"}, names); diff != "" {
		t.Errorf("unexpected groups (-want +got):\n%s", diff)
	}
	if got := m.GroupsOfType("boundary"); len(got) != 1 || got[0].Name() != "walls" || got[0].Index() != 1 {
		t.Errorf("unexpected boundary groups: %v", got)
	}
	fluid.AddTag("visible")
	fluid.AddTag("dynamic")
	if diff := cmp.Diff([]string{"dynamic", "visible"}, fluid.Tags()); diff != "" {
		t.Errorf("unexpected tags (-want +got):\n%s", diff)
	}
}

func TestFields(t *testing.T) {
	m := newModel(t, 3)
	g, err := m.AddGroup("water", "fluid")
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Resize(4); err != nil {
		t.Fatal(err)
	}
	x, err := g.Add(field(t, "vrv", "position"))
	if err != nil {
		t.Fatal(err)
	}
	// Adding a field twice is idempotent.
	again, err := g.Add(field(t, "vrv", "position"))
	if err != nil {
		t.Fatal(err)
	}
	if again != x {
		t.Errorf("adding a field twice should return the existing tensor")
	}
	if _, err := g.Add(field(t, "urv", "position")); !fmterr.Is(err, fmterr.FieldKindMismatch) {
		t.Errorf("got error %v but want a field kind mismatch error", err)
	}
	if _, err := g.Add(field(t, "grs", "time_step")); !fmterr.Is(err, fmterr.InvalidFieldKind) {
		t.Errorf("got error %v but want an invalid field kind error", err)
	}
	if _, err := m.AddGlobal(field(t, "vrs", "mass")); !fmterr.Is(err, fmterr.InvalidFieldKind) {
		t.Errorf("got error %v but want an invalid field kind error", err)
	}
	if diff := cmp.Diff([]int{4, 3}, x.Shape().AxisLengths); diff != "" {
		t.Errorf("unexpected shape (-want +got):\n%s", diff)
	}
	if err := x.Store(2, tensor.Vector(1, 2, 3)); err != nil {
		t.Fatal(err)
	}
	if err := x.Store(2, tensor.Vector(1, 2)); !fmterr.Is(err, fmterr.ShapeError) {
		t.Errorf("got error %v but want a shape error", err)
	}
	if err := g.Resize(5); err != nil {
		t.Fatal(err)
	}
	data, err := store.Slice[float64](x)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0, 0, 0, 0, 0, 1, 2, 3, 0, 0, 0, 0, 0, 0}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("unexpected data after resizing (-want +got):\n%s", diff)
	}
	if _, err := store.Slice[int64](x); !fmterr.Is(err, fmterr.FieldKindMismatch) {
		t.Errorf("got error %v but want a field kind mismatch error", err)
	}
}

func TestIndexAndBoolFields(t *testing.T) {
	m := newModel(t, 2)
	n, err := m.AddGlobal(field(t, "gis", "count"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := n.Shape().DType, dtype.Int64; got != want {
		t.Errorf("got data type %s but want %s", got, want)
	}
	if err := n.Store(0, tensor.Scalar(42)); err != nil {
		t.Fatal(err)
	}
	if got := n.Load(0).Float(); got != 42 {
		t.Errorf("got %f but want 42", got)
	}
	b, err := m.AddGlobal(field(t, "gbs", "flag"))
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Store(0, tensor.Scalar(1)); err != nil {
		t.Fatal(err)
	}
	flags, err := store.Slice[bool](b)
	if err != nil {
		t.Fatal(err)
	}
	if !flags[0] {
		t.Errorf("boolean field has not been set")
	}
}

func TestVaryingIndexAndRealFields(t *testing.T) {
	m := newModel(t, 2)
	g, err := m.AddGroup("water", "fluid")
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Resize(3); err != nil {
		t.Fatal(err)
	}
	cell, err := g.Add(field(t, "vis", "cell"))
	if err != nil {
		t.Fatal(err)
	}
	velocity, err := g.Add(field(t, "vrv", "velocity"))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		tensor store.Tensor
		dtype  dtype.DataType
		axes   []int
	}{
		{tensor: cell, dtype: dtype.Int64, axes: []int{3}},
		{tensor: velocity, dtype: dtype.Float64, axes: []int{3, 2}},
	}
	for _, test := range tests {
		name := test.tensor.Field().Name
		sh := test.tensor.Shape()
		if sh.DType != test.dtype {
			t.Errorf("%s: got data type %s but want %s", name, sh.DType, test.dtype)
		}
		if diff := cmp.Diff(test.axes, sh.AxisLengths); diff != "" {
			t.Errorf("%s: unexpected axes (-want +got):\n%s", name, diff)
		}
	}
	// Index values are truncated when stored.
	if err := cell.Store(1, tensor.Scalar(2.9)); err != nil {
		t.Fatal(err)
	}
	if err := velocity.Store(1, tensor.Vector(0.5, -1.5)); err != nil {
		t.Fatal(err)
	}
	cells, err := store.Slice[int64](cell)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{0, 2, 0}, cells); diff != "" {
		t.Errorf("unexpected index data (-want +got):\n%s", diff)
	}
	velocities, err := store.Slice[float64](velocity)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{0, 0, 0.5, -1.5, 0, 0}, velocities); diff != "" {
		t.Errorf("unexpected real data (-want +got):\n%s", diff)
	}
	if got, want := velocity.Load(1).Shape(), ir.Vector(2); got != want {
		t.Errorf("got loaded shape %s but want %s", got, want)
	}
}

func TestRequire(t *testing.T) {
	reqs := resolver.New()
	for _, err := range []error{
		reqs.AddGlobal(resolver.SmoothingScale),
		reqs.AddRequirement("fluid", field(t, "vrs", "density")),
		reqs.AddRequirement(ir.AllGroupTypes, field(t, "vrv", "position")),
		reqs.AddRequirement("boundary", field(t, "vrs", "volume")),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}
	m := newModel(t, 2)
	fluid, err := m.AddGroup("water", "fluid")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Check(reqs); !fmterr.Is(err, fmterr.UnresolvedFieldReference) {
		t.Errorf("got error %v but want an unresolved field reference error", err)
	}
	if err := m.Require(reqs); err != nil {
		t.Fatal(err)
	}
	if err := m.Check(reqs); err != nil {
		t.Errorf("unexpected error after requiring fields: %v", err)
	}
	var names []string
	for _, f := range fluid.Fields() {
		names = append(names, f.Field().Name)
	}
	if diff := cmp.Diff([]string{"density", "position"}, names); diff != "" {
		t.Errorf("unexpected fields (-want +got):\n%s", diff)
	}
	if _, ok := fluid.Field("volume"); ok {
		t.Errorf("fluid groups do not require a volume")
	}
}
