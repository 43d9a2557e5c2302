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

// Package resolver computes the fields that particle groups must provide
// to run the procedures of a scheme.
package resolver

import (
	"maps"
	"slices"

	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
)

type fieldSet map[ir.Field]bool

func (s fieldSet) sorted() []ir.Field {
	return slices.SortedFunc(maps.Keys(s), ir.CompareFields)
}

// FieldRequirements stores the global fields of a scheme and,
// for each group type, the uniform and varying fields a group must provide.
//
// Requirements registered for [ir.AllGroupTypes] apply to all group types.
type FieldRequirements struct {
	globals fieldSet
	groups  map[string]fieldSet
}

// New returns an empty set of requirements.
func New() *FieldRequirements {
	return &FieldRequirements{
		globals: make(fieldSet),
		groups:  make(map[string]fieldSet),
	}
}

// AddGlobal adds a global field.
// Adding the same field more than once has no effect.
func (r *FieldRequirements) AddGlobal(f ir.Field) error {
	if f.Kind != irkind.Global {
		return fmterr.Errorf(fmterr.InvalidFieldKind, "cannot add %s field %s to the global fields", f.Kind, f.Name)
	}
	r.globals[f] = true
	return nil
}

// AddRequirement adds a uniform or varying field required by groups of a given type.
// Adding the same field more than once has no effect.
func (r *FieldRequirements) AddRequirement(groupType string, f ir.Field) error {
	if f.Kind == irkind.Global {
		return fmterr.Errorf(fmterr.InvalidFieldKind, "global field %s cannot be required by groups of type %s", f.Name, groupType)
	}
	if groupType == "" {
		return fmterr.Errorf(fmterr.UnknownGroupType, "empty group type for field %s", f.Name)
	}
	set := r.groups[groupType]
	if set == nil {
		set = make(fieldSet)
		r.groups[groupType] = set
	}
	set[f] = true
	return nil
}

// GlobalFields returns the global fields, sorted.
func (r *FieldRequirements) GlobalFields() []ir.Field {
	return r.globals.sorted()
}

// FieldsOf returns the uniform and varying fields required by groups of a given type, sorted.
// This includes the fields required by all group types.
func (r *FieldRequirements) FieldsOf(groupType string) []ir.Field {
	all := make(fieldSet)
	maps.Copy(all, r.groups[groupType])
	maps.Copy(all, r.groups[ir.AllGroupTypes])
	return all.sorted()
}

func (r *FieldRequirements) fieldsOfKind(groupType string, kind irkind.Kind) []ir.Field {
	var fields []ir.Field
	for _, f := range r.FieldsOf(groupType) {
		if f.Kind == kind {
			fields = append(fields, f)
		}
	}
	return fields
}

// UniformFieldsOf returns the uniform fields required by groups of a given type, sorted.
func (r *FieldRequirements) UniformFieldsOf(groupType string) []ir.Field {
	return r.fieldsOfKind(groupType, irkind.Uniform)
}

// VaryingFieldsOf returns the varying fields required by groups of a given type, sorted.
func (r *FieldRequirements) VaryingFieldsOf(groupType string) []ir.Field {
	return r.fieldsOfKind(groupType, irkind.Varying)
}

// GroupsRequiring returns the group types requiring a field, sorted.
// [ir.AllGroupTypes] is included if the field is required by all group types.
func (r *FieldRequirements) GroupsRequiring(f ir.Field) ([]string, error) {
	if f.Kind == irkind.Global {
		return nil, fmterr.Errorf(fmterr.InvalidFieldKind, "global field %s is not required by groups", f.Name)
	}
	var types []string
	for groupType, set := range r.groups {
		if set[f] {
			types = append(types, groupType)
		}
	}
	slices.Sort(types)
	return types, nil
}

// GroupTypes returns the group types with requirements, sorted.
// [ir.AllGroupTypes] is not included.
func (r *FieldRequirements) GroupTypes() []string {
	var types []string
	for groupType := range r.groups {
		if groupType != ir.AllGroupTypes {
			types = append(types, groupType)
		}
	}
	slices.Sort(types)
	return types
}

// Has returns true if a field is available to groups of a given type.
// Global fields are available to all groups.
func (r *FieldRequirements) Has(groupType string, f ir.Field) bool {
	if f.Kind == irkind.Global {
		return r.globals[f]
	}
	return r.groups[groupType][f] || r.groups[ir.AllGroupTypes][f]
}

// HasAnywhere returns true if a field is required by at least one group type.
func (r *FieldRequirements) HasAnywhere(f ir.Field) bool {
	if f.Kind == irkind.Global {
		return r.globals[f]
	}
	for _, set := range r.groups {
		if set[f] {
			return true
		}
	}
	return false
}

// Merge adds all the requirements of other.
func (r *FieldRequirements) Merge(other *FieldRequirements) {
	maps.Copy(r.globals, other.globals)
	for groupType, set := range other.groups {
		for f := range set {
			// Fields in other have already been checked.
			_ = r.AddRequirement(groupType, f)
		}
	}
}
