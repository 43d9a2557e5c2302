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

package builder

import (
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
)

// Field is a handle to a field declared in a build session.
type Field struct {
	b     *Builder
	alias string
	field ir.Field
	valid bool
}

// Field declares a field given a declaration suffix (for example vrv for a
// varying real vector) and a name. All the extents of the field are the
// spatial dimensionality.
func (b *Builder) Field(suffix, name string) Field {
	f, err := ir.FieldFromSuffix(suffix, name)
	return b.declare(f, err)
}

// FieldWithShape declares a field with an explicit shape.
func (b *Builder) FieldWithShape(kind irkind.Kind, typ irkind.Type, shape ir.Shape, name string) Field {
	f, err := ir.NewField(kind, typ, shape, name)
	return b.declare(f, err)
}

func (b *Builder) declare(f ir.Field, err error) Field {
	if !b.check(err) {
		return Field{b: b}
	}
	if !b.check(b.ns.Check(f)) {
		return Field{b: b}
	}
	return Field{b: b, alias: f.Name, field: f, valid: true}
}

// As returns a handle to the same field referred to by another alias.
func (f Field) As(alias string) Field {
	if !f.valid {
		return f
	}
	if !ir.IsIdentifier(alias) {
		f.b.errs.Appendf(fmterr.UnknownField, "%q is not a valid alias", alias)
		return Field{b: f.b}
	}
	f.alias = alias
	return f
}

// IR returns the field.
func (f Field) IR() ir.Field {
	return f.field
}

// Decl returns the declaration of the field.
func (f Field) Decl() ir.FieldDecl {
	return ir.FieldDecl{Alias: f.alias, Field: f.field}
}

func (f Field) ref(role irkind.Role) Ref {
	if !f.valid {
		return Ref{Expr{b: f.b}}
	}
	ref, err := ir.NewFieldRef(f.alias, f.field, role)
	if !f.b.check(err) {
		return Ref{Expr{b: f.b}}
	}
	return Ref{Expr{b: f.b, e: ref}}
}

// I refers to the field of the active particle.
func (f Field) I() Ref {
	return f.ref(irkind.Active)
}

// J refers to the field of the neighbor particle.
func (f Field) J() Ref {
	return f.ref(irkind.Neighbor)
}

// G refers to a global field.
func (f Field) G() Ref {
	if f.valid && f.field.Kind != irkind.Global {
		f.b.errs.Appendf(fmterr.InvalidIndexRole, "%s field %s needs to be indexed by i or j", f.field.Kind, f.field.Name)
		return Ref{Expr{b: f.b}}
	}
	return f.ref(irkind.Active)
}

// Global declares global fields.
func (b *Builder) Global(fields ...Field) Stmt {
	decls, ok := b.decls(fields)
	if !ok {
		return Stmt{}
	}
	n, err := ir.NewGlobal(decls...)
	if !b.check(err) {
		return Stmt{}
	}
	return Stmt{n: n}
}

// Groups declares the fields required by the groups of a given type.
func (b *Builder) Groups(groupType string, fields ...Field) Stmt {
	decls, ok := b.decls(fields)
	if !ok {
		return Stmt{}
	}
	n, err := ir.NewGroups(groupType, decls...)
	if !b.check(err) {
		return Stmt{}
	}
	return Stmt{n: n}
}

func (b *Builder) decls(fields []Field) ([]ir.FieldDecl, bool) {
	decls := make([]ir.FieldDecl, 0, len(fields))
	ok := true
	for _, f := range fields {
		if !f.valid {
			ok = false
			continue
		}
		decl := f.Decl()
		if !b.check(b.ns.Declare(decl)) {
			ok = false
			continue
		}
		decls = append(decls, decl)
	}
	return decls, ok
}
