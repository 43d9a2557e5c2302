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

package archive_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/rt/archive"
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

func buildModel(t *testing.T) *store.Model {
	m, err := store.NewModel(2)
	if err != nil {
		t.Fatal(err)
	}
	h, err := m.AddGlobal(field(t, "grs", "smoothing_scale"))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Store(0, tensor.Scalar(0.025)); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddGlobal(field(t, "gis", "count")); err != nil {
		t.Fatal(err)
	}
	water, err := m.AddGroup("water", "fluid")
	if err != nil {
		t.Fatal(err)
	}
	water.AddTag("dynamic")
	if err := water.Resize(3); err != nil {
		t.Fatal(err)
	}
	x, err := water.Add(field(t, "vrv", "position"))
	if err != nil {
		t.Fatal(err)
	}
	for i := range 3 {
		if err := x.Store(i, tensor.Vector(float64(i), -float64(i))); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := water.Add(field(t, "urm", "stress")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddGroup("walls", "boundary"); err != nil {
		t.Fatal(err)
	}
	return m
}

type groupSummary struct {
	Name, Type string
	Size       int
	Tags       []string
	Fields     map[string][]float64
}

func summarize(t *testing.T, m *store.Model) (map[string][]float64, []groupSummary) {
	values := func(tensors []store.Tensor) map[string][]float64 {
		vals := make(map[string][]float64)
		for _, tn := range tensors {
			var all []float64
			for i := range tn.Len() {
				all = append(all, tn.Load(i).Data()...)
			}
			vals[tn.Field().String()] = all
		}
		return vals
	}
	var groups []groupSummary
	for _, g := range m.Groups() {
		groups = append(groups, groupSummary{
			Name:   g.Name(),
			Type:   g.Type(),
			Size:   g.Size(),
			Tags:   g.Tags(),
			Fields: values(g.Fields()),
		})
	}
	return values(m.Globals()), groups
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	a, err := archive.Open(filepath.Join(t.TempDir(), "models.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	m := buildModel(t)
	seq, err := a.Save(ctx, "initial", m)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if _, err := a.Save(ctx, "second", m); err != nil {
		t.Fatalf("%+v", err)
	}
	got, err := a.Load(ctx, seq)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if got.Dims() != m.Dims() {
		t.Errorf("got dimensionality %d but want %d", got.Dims(), m.Dims())
	}
	wantGlobals, wantGroups := summarize(t, m)
	gotGlobals, gotGroups := summarize(t, got)
	if diff := cmp.Diff(wantGlobals, gotGlobals); diff != "" {
		t.Errorf("unexpected global fields (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantGroups, gotGroups); diff != "" {
		t.Errorf("unexpected groups (-want +got):\n%s", diff)
	}

	snapshots, err := a.Snapshots()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, s := range snapshots {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff([]string{"initial", "second"}, names); diff != "" {
		t.Errorf("unexpected snapshots (-want +got):\n%s", diff)
	}
	latest, ok, err := a.Latest()
	if err != nil || !ok || latest != snapshots[1].Seq {
		t.Errorf("got latest snapshot %d, %v, %v but want %d", latest, ok, err, snapshots[1].Seq)
	}
	if _, err := a.Load(ctx, latest+1); err == nil {
		t.Errorf("expected an error when loading a missing snapshot")
	}
}
