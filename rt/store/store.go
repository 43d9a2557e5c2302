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

// Package store provides the particle model: named groups of particles
// and the tensors storing their fields.
package store

import (
	"slices"

	"github.com/gx-org/prtcl/base/ordered"
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
	"github.com/gx-org/prtcl/build/resolver"
)

type fields struct {
	dims    int
	tensors *ordered.Map[string, Tensor]
}

func newFields(dims int) fields {
	return fields{dims: dims, tensors: ordered.NewMap[string, Tensor]()}
}

func (fs fields) add(f ir.Field, n int) (Tensor, error) {
	if prev, ok := fs.tensors.Load(f.Name); ok {
		if prev.Field() != f {
			return nil, fmterr.Errorf(fmterr.FieldKindMismatch, "cannot add %s: field %s already exists", f, prev.Field())
		}
		return prev, nil
	}
	t, err := newTensor(f, fs.dims, n)
	if err != nil {
		return nil, err
	}
	fs.tensors.Store(f.Name, t)
	return t, nil
}

func (fs fields) get(name string) (Tensor, bool) {
	return fs.tensors.Load(name)
}

func (fs fields) all() []Tensor {
	return slices.Collect(fs.tensors.Values())
}

// Model stores global fields and groups of particles.
type Model struct {
	dims   int
	global fields
	groups *ordered.Map[string, *Group]
}

// NewModel returns an empty model for a spatial dimensionality.
func NewModel(dims int) (*Model, error) {
	if dims < 1 || dims > 3 {
		return nil, fmterr.Errorf(fmterr.ShapeError, "invalid spatial dimensionality %d", dims)
	}
	return &Model{
		dims:   dims,
		global: newFields(dims),
		groups: ordered.NewMap[string, *Group](),
	}, nil
}

// Dims returns the spatial dimensionality of the model.
func (m *Model) Dims() int {
	return m.dims
}

// AddGlobal adds a global field to the model.
// The existing tensor is returned if the field has already been added.
func (m *Model) AddGlobal(f ir.Field) (Tensor, error) {
	if f.Kind != irkind.Global {
		return nil, fmterr.Errorf(fmterr.InvalidFieldKind, "cannot add %s field %s to the global fields", f.Kind, f.Name)
	}
	return m.global.add(f, 1)
}

// Global returns a global field given its name.
func (m *Model) Global(name string) (Tensor, bool) {
	return m.global.get(name)
}

// Globals returns all the global fields in the order in which they were added.
func (m *Model) Globals() []Tensor {
	return m.global.all()
}

// AddGroup adds a group of particles to the model.
// The existing group is returned if a group with the same name and type exists.
func (m *Model) AddGroup(name, groupType string) (*Group, error) {
	if !ir.IsIdentifier(name) {
		return nil, fmterr.Errorf(fmterr.UnknownGroupType, "invalid group name %q", name)
	}
	if groupType == "" || groupType == ir.AllGroupTypes {
		return nil, fmterr.Errorf(fmterr.UnknownGroupType, "invalid type %q for group %s", groupType, name)
	}
	if prev, ok := m.groups.Load(name); ok {
		if prev.typ != groupType {
			return nil, fmterr.Errorf(fmterr.GroupTypeMismatch, "cannot add group %s of type %s: a group of type %s already exists", name, groupType, prev.typ)
		}
		return prev, nil
	}
	g := &Group{
		model:  m,
		name:   name,
		typ:    groupType,
		index:  m.groups.Len(),
		tags:   make(map[string]bool),
		fields: newFields(m.dims),
	}
	m.groups.Store(name, g)
	return g, nil
}

// Group returns a group given its name.
func (m *Model) Group(name string) (*Group, bool) {
	return m.groups.Load(name)
}

// Groups returns all the groups in the order in which they were added.
func (m *Model) Groups() []*Group {
	return slices.Collect(m.groups.Values())
}

// GroupsOfType returns the groups of a given type.
func (m *Model) GroupsOfType(groupType string) []*Group {
	var groups []*Group
	for g := range m.groups.Values() {
		if g.typ == groupType {
			groups = append(groups, g)
		}
	}
	return groups
}

// ParticleCount returns the total number of particles in the model.
func (m *Model) ParticleCount() int {
	n := 0
	for g := range m.groups.Values() {
		n += g.size
	}
	return n
}

// Require adds all the fields required to run procedures to the model:
// the global fields and, for each group, the fields required by its type.
func (m *Model) Require(reqs *resolver.FieldRequirements) error {
	errs := fmterr.NewAppender()
	for _, f := range reqs.GlobalFields() {
		_, err := m.AddGlobal(f)
		errs.Append(err)
	}
	for g := range m.groups.Values() {
		errs.PushPath("group " + g.name)
		for _, f := range reqs.FieldsOf(g.typ) {
			_, err := g.Add(f)
			errs.Append(err)
		}
		errs.Pop()
	}
	return errs.ToError()
}

// Check returns an error if a field required to run procedures is missing.
func (m *Model) Check(reqs *resolver.FieldRequirements) error {
	errs := fmterr.NewAppender()
	for _, f := range reqs.GlobalFields() {
		if t, ok := m.global.get(f.Name); !ok || t.Field() != f {
			errs.Appendf(fmterr.UnresolvedFieldReference, "missing global field %s", f)
		}
	}
	for g := range m.groups.Values() {
		for _, f := range reqs.FieldsOf(g.typ) {
			if t, ok := g.fields.get(f.Name); !ok || t.Field() != f {
				errs.Appendf(fmterr.UnresolvedFieldReference, "group %s of type %s: missing field %s", g.name, g.typ, f)
			}
		}
	}
	return errs.ToError()
}

// Group of particles sharing a type.
type Group struct {
	model     *Model
	name, typ string
	index     int
	size      int
	tags      map[string]bool
	fields    fields
}

// Name returns the name of the group.
func (g *Group) Name() string { return g.name }

// Type returns the type of the group.
func (g *Group) Type() string { return g.typ }

// Index returns the position of the group in the model.
func (g *Group) Index() int { return g.index }

// Size returns the number of particles in the group.
func (g *Group) Size() int { return g.size }

// Resize changes the number of particles in the group.
// Existing values are kept and new values are zero.
func (g *Group) Resize(n int) error {
	if n < 0 {
		return fmterr.Errorf(fmterr.ShapeError, "invalid negative size %d for group %s", n, g.name)
	}
	g.size = n
	for t := range g.fields.tensors.Values() {
		if t.Field().Kind == irkind.Varying {
			t.resize(n)
		}
	}
	return nil
}

// AddTag adds a tag to the group.
func (g *Group) AddTag(tag string) {
	g.tags[tag] = true
}

// HasTag returns true if the group has a tag.
func (g *Group) HasTag(tag string) bool {
	return g.tags[tag]
}

// Tags returns the tags of the group, sorted.
func (g *Group) Tags() []string {
	var tags []string
	for tag := range g.tags {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// Add a uniform or varying field to the group.
// The existing tensor is returned if the field has already been added.
func (g *Group) Add(f ir.Field) (Tensor, error) {
	n := 1
	switch f.Kind {
	case irkind.Uniform:
	case irkind.Varying:
		n = g.size
	default:
		return nil, fmterr.Errorf(fmterr.InvalidFieldKind, "cannot add %s field %s to group %s", f.Kind, f.Name, g.name)
	}
	return g.fields.add(f, n)
}

// Field returns a field of the group given its name.
func (g *Group) Field(name string) (Tensor, bool) {
	return g.fields.get(name)
}

// Fields returns all the fields of the group in the order in which they were added.
func (g *Group) Fields() []Tensor {
	return g.fields.all()
}
