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

// Package builder builds scheme intermediate representation (IR) trees from Go code.
//
// A builder session creates field handles, expressions, and statements.
// Errors are accumulated during the session and reported when a scheme or
// a set of procedures is built:
//
//	b := builder.New()
//	x := b.Field("vrv", "position")
//	V := b.Field("vrs", "volume")
//	proc := b.Procedure("compute_volume",
//		b.ForeachParticle(
//			b.IfGroupType("boundary",
//				V.I().Assign(b.Real(0)),
//				b.ForeachNeighbor(
//					b.IfGroupType("boundary",
//						V.I().AddAssign(b.W(x.I().Sub(x.J()))),
//					),
//				),
//				V.I().Assign(b.Real(1).Div(V.I())),
//			),
//		),
//	)
//	scheme, err := b.Scheme("boundary", proc)
package builder

import (
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
)

// Builder represents a build session from Go code to the intermediate representation.
type Builder struct {
	errs *fmterr.Appender
	ns   *ir.Namespace
}

var _ fmterr.ErrAppender = (*Builder)(nil)

// New returns a new build session.
func New() *Builder {
	return &Builder{
		errs: fmterr.NewAppender(),
		ns:   ir.NewNamespace(),
	}
}

// Err returns the error accumulator of the session.
func (b *Builder) Err() *fmterr.Appender {
	return b.errs
}

// check appends an error if not nil and returns true if there was no error.
func (b *Builder) check(err error) bool {
	if err == nil {
		return true
	}
	return b.errs.Append(err)
}

// Scheme builds a scheme from declaration blocks and procedures.
// It returns all the errors accumulated during the session.
func (b *Builder) Scheme(name string, stmts ...Statement) (*ir.Scheme, error) {
	nodes, ok := b.nodes(stmts)
	if !ok {
		return nil, b.errs.ToError()
	}
	scheme, err := ir.NewScheme(name, nodes...)
	b.check(err)
	if err := b.errs.ToError(); err != nil {
		return nil, err
	}
	if err := ir.Validate(scheme); err != nil {
		return nil, err
	}
	return scheme, nil
}

// Procedures returns the procedures built by the session.
// It returns all the errors accumulated during the session.
func (b *Builder) Procedures(stmts ...Statement) ([]*ir.Procedure, error) {
	var procs []*ir.Procedure
	for _, stmt := range stmts {
		n := stmt.irNode()
		if n == nil {
			continue
		}
		proc, ok := n.(*ir.Procedure)
		if !ok {
			b.errs.Appendf(fmterr.InvalidNode, "%T is not a procedure", n)
			continue
		}
		if b.check(ir.Validate(proc)) {
			procs = append(procs, proc)
		}
	}
	if err := b.errs.ToError(); err != nil {
		return nil, err
	}
	return procs, nil
}

// Declarations returns the declaration blocks built by the session.
func (b *Builder) Declarations(stmts ...Statement) ([]ir.Node, error) {
	var decls []ir.Node
	for _, stmt := range stmts {
		n := stmt.irNode()
		switch n.(type) {
		case nil:
			continue
		case *ir.Global, *ir.Groups:
			decls = append(decls, n)
		default:
			b.errs.Appendf(fmterr.InvalidNode, "%T is not a declaration block", n)
		}
	}
	if err := b.errs.ToError(); err != nil {
		return nil, err
	}
	return decls, nil
}
