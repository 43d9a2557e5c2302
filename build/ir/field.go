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
	"cmp"
	"fmt"
	"strconv"

	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir/irkind"
)

type (
	// Field is a named quantity stored for the particles of a simulation.
	//
	// Fields are values: two fields are the same field if all their
	// members are equal. They can be used as map keys.
	Field struct {
		Kind  irkind.Kind
		Type  irkind.Type
		Shape Shape
		Name  string
	}

	// FieldDecl binds a local alias to a field.
	FieldDecl struct {
		Alias string
		Field Field
	}
)

// NewField returns a new field after checking its members.
func NewField(kind irkind.Kind, typ irkind.Type, shape Shape, name string) (Field, error) {
	f := Field{Kind: kind, Type: typ, Shape: shape, Name: name}
	return f, f.Validate()
}

// FieldFromSuffix returns a field given a declaration suffix (for example vrv)
// and a name. All the extents of the field are the spatial dimensionality.
func FieldFromSuffix(suffix, name string) (Field, error) {
	kind, typ, rank, err := irkind.ParseSuffix(suffix)
	if err != nil {
		return Field{}, err
	}
	shape, err := ShapeOfRank(rank)
	if err != nil {
		return Field{}, err
	}
	return NewField(kind, typ, shape, name)
}

// Validate checks that all the members of the field are valid.
func (f Field) Validate() error {
	if _, err := f.Kind.Name(); err != nil {
		return err
	}
	if _, err := f.Type.Name(); err != nil {
		return err
	}
	if f.Shape.Rank() > MaxRank {
		return fmterr.Errorf(fmterr.ShapeError, "field %q has rank %d > %d", f.Name, f.Shape.Rank(), MaxRank)
	}
	if !IsIdentifier(f.Name) {
		return fmterr.Errorf(fmterr.UnknownField, "%q is not a valid field name", f.Name)
	}
	return nil
}

// Suffix returns the declaration suffix of the field.
func (f Field) Suffix() string {
	s, err := irkind.Suffix(f.Kind, f.Type, f.Shape.Rank())
	if err != nil {
		return "???"
	}
	return s
}

// Decl returns the declaration of the field in the textual grammar.
func (f Field) Decl() string {
	return f.Suffix() + "(" + strconv.Quote(f.Name) + ")"
}

// String representation of the field.
func (f Field) String() string {
	return fmt.Sprintf("%s %s %s%s", f.Kind, f.Type, f.Name, f.Shape)
}

// CompareFields orders fields by kind, type, shape, and then name.
func CompareFields(a, b Field) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Type, b.Type); c != 0 {
		return c
	}
	if c := a.Shape.Compare(b.Shape); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

// IsIdentifier returns true if s is a valid identifier:
// a letter or an underscore followed by letters, digits, or underscores.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case i > 0 && '0' <= r && r <= '9':
		default:
			return false
		}
	}
	return true
}
