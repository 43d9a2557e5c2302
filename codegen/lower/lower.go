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

// Package lower lowers scheme trees to backend-specific representations.
//
// The lowering walks a tree once, tracks the loop and group type context of
// every node, and checks field references, assignment targets, and the shapes
// and types of expressions before calling the backend.
package lower

import (
	"errors"
	"fmt"

	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
	"github.com/gx-org/prtcl/build/resolver"
)

// Loop is the innermost loop enclosing a node.
type Loop int

// Loops.
const (
	NoLoop Loop = iota
	ParticleLoop
	NeighborLoop
)

func (l Loop) String() string {
	switch l {
	case NoLoop:
		return "procedure body"
	case ParticleLoop:
		return "particle loop"
	case NeighborLoop:
		return "neighbor loop"
	}
	return fmt.Sprintf("loop(%d)", int(l))
}

// Scope is the context in which a node is lowered.
type Scope struct {
	// Loop is the innermost enclosing loop.
	Loop Loop
	// ParticleGroup is the group type of the active particle,
	// or ir.AllGroupTypes if no condition restricts it.
	ParticleGroup string
	// NeighborGroup is the group type of the neighbor particle,
	// or ir.AllGroupTypes if no condition restricts it.
	NeighborGroup string
}

// GroupOf returns the group type context of a particle role.
func (s Scope) GroupOf(role irkind.Role) string {
	if role == irkind.Neighbor {
		return s.NeighborGroup
	}
	return s.ParticleGroup
}

// ExprInfo is the static information of an expression.
type ExprInfo struct {
	Expr  ir.Expr
	Scope Scope
	Type  irkind.Type
	// Shape of the value. Extents are complete if the lowering has a dimensionality.
	Shape ir.Shape
}

// EquationInfo is the static information of an equation.
type EquationInfo struct {
	Equation *ir.Equation
	Scope    Scope
	// Target is the assigned field with a complete shape
	// if the lowering has a dimensionality.
	Target ir.Field
	// Reduction is true if the equation combines values
	// from many particles into a global or uniform field.
	Reduction bool
	// Value is the information of the right-hand side expression.
	Value ExprInfo
}

// Backend builds a representation of statements (S) and expressions (E).
type Backend[S, E any] interface {
	Scheme(name string, decls []S, procs []S) (S, error)
	Procedure(name string, body []S) (S, error)
	Global(fields []ir.Field) (S, error)
	Groups(groupType string, fields []ir.Field) (S, error)
	ForeachParticle(scope Scope, body []S) (S, error)
	ForeachNeighbor(scope Scope, body []S) (S, error)
	IfGroupType(scope Scope, groupType string, then, els []S) (S, error)
	Equation(info EquationInfo, target, value E) (S, error)

	FieldRef(info ExprInfo, ref *ir.FieldRef) (E, error)
	Literal(info ExprInfo, lit *ir.Literal) (E, error)
	Unary(info ExprInfo, op irkind.Operator, x E) (E, error)
	Binary(info ExprInfo, op irkind.Operator, x, y E) (E, error)
	Call(info ExprInfo, f irkind.Func, args []E) (E, error)
}

type lowerer[S, E any] struct {
	b Backend[S, E]
	// reqs is nil when field references are not checked.
	reqs  *resolver.FieldRequirements
	dims  int
	errs  *fmterr.Appender
	scope Scope
}

// Lower a scheme or a procedure with a backend.
//
// The tree is first checked with ir.Validate: misplaced nodes, such as a
// particle loop nested in another loop, are reported before any lowering.
// Field references are checked against reqs. A nil reqs disables that check.
// Shapes are completed with the spatial dimensionality dims.
// A dimensionality of zero lowers shapes symbolically.
// All the errors found in the tree are returned together.
func Lower[S, E any](n ir.Node, reqs *resolver.FieldRequirements, dims int, b Backend[S, E]) (S, error) {
	var zero S
	if dims < 0 {
		return zero, fmterr.Errorf(fmterr.ShapeError, "invalid spatial dimensionality %d", dims)
	}
	if err := ir.Validate(n); err != nil {
		return zero, err
	}
	l := &lowerer[S, E]{
		b:    b,
		reqs: reqs,
		dims: dims,
		errs: fmterr.NewAppender(),
		scope: Scope{
			ParticleGroup: ir.AllGroupTypes,
			NeighborGroup: ir.AllGroupTypes,
		},
	}
	out, ok := l.lower(n)
	if err := l.errs.ToError(); err != nil {
		return zero, err
	}
	if !ok {
		return zero, fmterr.Internalf("lowering failed without error")
	}
	return out, nil
}

func (l *lowerer[S, E]) complete(s ir.Shape) ir.Shape {
	if l.dims == 0 {
		return s
	}
	return s.Complete(l.dims)
}

func (l *lowerer[S, E]) lower(n ir.Node) (S, bool) {
	out, err := ir.Transform[S](n, l)
	if err == errSkip {
		return out, false
	}
	return out, l.errs.Append(err)
}

func (l *lowerer[S, E]) lowerAll(path string, nodes []ir.Node) ([]S, bool) {
	l.errs.PushPath(path)
	defer l.errs.Pop()
	outs := make([]S, 0, len(nodes))
	ok := true
	for _, n := range nodes {
		out, nodeOK := l.lower(n)
		if !nodeOK {
			ok = false
			continue
		}
		outs = append(outs, out)
	}
	return outs, ok
}

func (l *lowerer[S, E]) inScope(scope Scope, path string, nodes []ir.Node) ([]S, bool) {
	prev := l.scope
	l.scope = scope
	defer func() { l.scope = prev }()
	return l.lowerAll(path, nodes)
}

// errSkip is returned by handlers when errors have already been appended.
var errSkip = errors.New("node skipped")

func (l *lowerer[S, E]) Scheme(n *ir.Scheme) (S, error) {
	var decls, procs []ir.Node
	for _, stmt := range n.Statements {
		switch stmt.(type) {
		case *ir.Procedure:
			procs = append(procs, stmt)
		default:
			decls = append(decls, stmt)
		}
	}
	path := "scheme " + n.Name
	declsS, declsOK := l.lowerAll(path, decls)
	procsS, procsOK := l.lowerAll(path, procs)
	if !declsOK || !procsOK {
		var zero S
		return zero, errSkip
	}
	return l.b.Scheme(n.Name, declsS, procsS)
}

func (l *lowerer[S, E]) Procedure(n *ir.Procedure) (S, error) {
	body, ok := l.inScope(Scope{
		Loop:          NoLoop,
		ParticleGroup: ir.AllGroupTypes,
		NeighborGroup: ir.AllGroupTypes,
	}, "procedure "+n.Name, n.Statements)
	if !ok {
		var zero S
		return zero, errSkip
	}
	return l.b.Procedure(n.Name, body)
}

func (l *lowerer[S, E]) completeDecls(decls []ir.FieldDecl) []ir.Field {
	fields := make([]ir.Field, len(decls))
	for i, decl := range decls {
		fields[i] = decl.Field
		fields[i].Shape = l.complete(decl.Field.Shape)
	}
	return fields
}

func (l *lowerer[S, E]) Global(n *ir.Global) (S, error) {
	return l.b.Global(l.completeDecls(n.Decls))
}

func (l *lowerer[S, E]) Groups(n *ir.Groups) (S, error) {
	return l.b.Groups(n.GroupType, l.completeDecls(n.Decls))
}

func (l *lowerer[S, E]) ForeachParticle(n *ir.ForeachParticle) (S, error) {
	scope := Scope{Loop: ParticleLoop, ParticleGroup: ir.AllGroupTypes, NeighborGroup: ir.AllGroupTypes}
	body, ok := l.inScope(scope, "foreach_particle", n.Body)
	if !ok {
		var zero S
		return zero, errSkip
	}
	return l.b.ForeachParticle(scope, body)
}

func (l *lowerer[S, E]) ForeachNeighbor(n *ir.ForeachNeighbor) (S, error) {
	scope := l.scope
	scope.Loop = NeighborLoop
	scope.NeighborGroup = ir.AllGroupTypes
	body, ok := l.inScope(scope, "foreach_neighbor", n.Body)
	if !ok {
		var zero S
		return zero, errSkip
	}
	return l.b.ForeachNeighbor(scope, body)
}

func (l *lowerer[S, E]) IfGroupType(n *ir.IfGroupType) (S, error) {
	var zero S
	if l.scope.Loop == NoLoop {
		return zero, fmterr.Errorf(fmterr.InvalidNode, "group type condition outside of a loop")
	}
	if n.GroupType == "" || n.GroupType == ir.AllGroupTypes {
		return zero, fmterr.Errorf(fmterr.UnknownGroupType, "invalid group type %q in condition", n.GroupType)
	}
	thenScope := l.scope
	if thenScope.Loop == NeighborLoop {
		thenScope.NeighborGroup = n.GroupType
	} else {
		thenScope.ParticleGroup = n.GroupType
	}
	path := fmt.Sprintf("if_group_type(%q)", n.GroupType)
	then, thenOK := l.inScope(thenScope, path, n.Then)
	// Statements in the else branch run for groups of any other type.
	els, elsOK := l.inScope(l.scope, path+" else", n.Else)
	if !thenOK || !elsOK {
		return zero, errSkip
	}
	return l.b.IfGroupType(l.scope, n.GroupType, then, els)
}
