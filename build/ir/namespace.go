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

package ir

import (
	"maps"
	"slices"

	"github.com/gx-org/prtcl/build/fmterr"
)

// Namespace checks the consistency of the fields used in a scheme.
//
// A field name refers to the same kind, type, and shape everywhere in a scheme
// and an alias refers to a single field.
type Namespace struct {
	byName  map[string]Field
	byAlias map[string]Field
}

// NewNamespace returns an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{
		byName:  make(map[string]Field),
		byAlias: make(map[string]Field),
	}
}

// Check that a field is consistent with all the fields previously declared
// or checked with the same name. The field is registered if it is consistent.
func (ns *Namespace) Check(f Field) error {
	prev, ok := ns.byName[f.Name]
	if !ok {
		ns.byName[f.Name] = f
		return nil
	}
	if prev == f {
		return nil
	}
	if prev.Shape.Rank() != f.Shape.Rank() {
		return fmterr.Errorf(fmterr.ShapeError, "field %q used with shape %s but previously declared with shape %s", f.Name, f.Shape, prev.Shape)
	}
	return fmterr.Errorf(fmterr.FieldKindMismatch, "field %q used as %s %s%s but previously declared as %s %s%s", f.Name, f.Kind, f.Type, f.Shape, prev.Kind, prev.Type, prev.Shape)
}

// Declare binds an alias to a field after checking the field.
func (ns *Namespace) Declare(decl FieldDecl) error {
	if err := decl.Field.Validate(); err != nil {
		return err
	}
	if !IsIdentifier(decl.Alias) {
		return fmterr.Errorf(fmterr.UnknownField, "%q is not a valid alias", decl.Alias)
	}
	if err := ns.Check(decl.Field); err != nil {
		return err
	}
	prev, ok := ns.byAlias[decl.Alias]
	if ok && prev != decl.Field {
		return fmterr.Errorf(fmterr.DuplicateFieldAlias, "alias %s refers to %s and cannot be bound to %s", decl.Alias, prev, decl.Field)
	}
	ns.byAlias[decl.Alias] = decl.Field
	return nil
}

// Lookup returns the field bound to an alias.
func (ns *Namespace) Lookup(alias string) (Field, bool) {
	f, ok := ns.byAlias[alias]
	return f, ok
}

// Fields returns all the fields of the namespace, sorted.
func (ns *Namespace) Fields() []Field {
	return slices.SortedFunc(maps.Values(ns.byName), CompareFields)
}
