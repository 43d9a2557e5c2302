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

type (
	// Statement is a node being built.
	Statement interface {
		irNode() ir.Node
	}

	// Stmt is a statement. Its node is nil if an error occurred while building it.
	Stmt struct {
		n ir.Node
	}

	// IfStmt is a group type condition which can be completed by an else branch.
	IfStmt struct {
		b *Builder
		n *ir.IfGroupType
	}
)

var (
	_ Statement = Stmt{}
	_ Statement = IfStmt{}
)

func (s Stmt) irNode() ir.Node {
	return s.n
}

// IR returns the node of the statement.
func (s Stmt) IR() ir.Node {
	return s.n
}

func (s IfStmt) irNode() ir.Node {
	if s.n == nil {
		return nil
	}
	return s.n
}

// nodes returns copies of the nodes of a list of statements.
// It returns false if a statement failed to build.
func (b *Builder) nodes(stmts []Statement) ([]ir.Node, bool) {
	nodes := make([]ir.Node, 0, len(stmts))
	ok := true
	for _, stmt := range stmts {
		n := stmt.irNode()
		if n == nil {
			ok = false
			continue
		}
		nodes = append(nodes, ir.Clone(n))
	}
	return nodes, ok
}

func (r Ref) equation(op irkind.Op, value Operand) Stmt {
	target, ok := r.e.(*ir.FieldRef)
	if !ok {
		return Stmt{}
	}
	v := value.irExpr()
	if v == nil {
		return Stmt{}
	}
	eq, err := ir.NewEquation(op, ir.CloneExpr(target), ir.CloneExpr(v))
	if !r.b.check(err) {
		return Stmt{}
	}
	return Stmt{n: eq}
}

// Assign returns the equation r = value.
func (r Ref) Assign(value Operand) Stmt { return r.equation(irkind.Assign, value) }

// AddAssign returns the equation r += value.
func (r Ref) AddAssign(value Operand) Stmt { return r.equation(irkind.Add, value) }

// SubAssign returns the equation r -= value.
func (r Ref) SubAssign(value Operand) Stmt { return r.equation(irkind.Sub, value) }

// MulAssign returns the equation r *= value.
func (r Ref) MulAssign(value Operand) Stmt { return r.equation(irkind.Mul, value) }

// DivAssign returns the equation r /= value.
func (r Ref) DivAssign(value Operand) Stmt { return r.equation(irkind.Div, value) }

// MaxAssign returns the equation r max= value.
// On a global or a uniform field, this is a maximum reduction over particles.
func (r Ref) MaxAssign(value Operand) Stmt { return r.equation(irkind.Max, value) }

// MinAssign returns the equation r min= value.
// On a global or a uniform field, this is a minimum reduction over particles.
func (r Ref) MinAssign(value Operand) Stmt { return r.equation(irkind.Min, value) }

// Update returns an equation given an operator.
func (r Ref) Update(op irkind.Op, value Operand) Stmt { return r.equation(op, value) }

// ForeachParticle returns a loop over all particles.
func (b *Builder) ForeachParticle(stmts ...Statement) Stmt {
	nodes, ok := b.nodes(stmts)
	if !ok {
		return Stmt{}
	}
	n, err := ir.NewForeachParticle(nodes...)
	if !b.check(err) {
		return Stmt{}
	}
	return Stmt{n: n}
}

// ForeachNeighbor returns a loop over all neighbors of the active particle.
func (b *Builder) ForeachNeighbor(stmts ...Statement) Stmt {
	nodes, ok := b.nodes(stmts)
	if !ok {
		return Stmt{}
	}
	n, err := ir.NewForeachNeighbor(nodes...)
	if !b.check(err) {
		return Stmt{}
	}
	return Stmt{n: n}
}

// IfGroupType returns a condition on the type of the group of the current particle.
func (b *Builder) IfGroupType(groupType string, stmts ...Statement) IfStmt {
	nodes, ok := b.nodes(stmts)
	if !ok {
		return IfStmt{b: b}
	}
	n, err := ir.NewIfGroupType(groupType, nodes, nil)
	if !b.check(err) {
		return IfStmt{b: b}
	}
	return IfStmt{b: b, n: n}
}

// Else returns the condition with an else branch.
func (s IfStmt) Else(stmts ...Statement) Stmt {
	if s.n == nil {
		return Stmt{}
	}
	nodes, ok := s.b.nodes(stmts)
	if !ok {
		return Stmt{}
	}
	if len(s.n.Else) > 0 {
		s.b.errs.Appendf(fmterr.InvalidNode, "if_group_type(%q) already has an else branch", s.n.GroupType)
		return Stmt{}
	}
	n, err := ir.NewIfGroupType(s.n.GroupType, s.n.Then, nodes)
	if !s.b.check(err) {
		return Stmt{}
	}
	return Stmt{n: n}
}

// Procedure returns a named procedure.
func (b *Builder) Procedure(name string, stmts ...Statement) Stmt {
	nodes, ok := b.nodes(stmts)
	if !ok {
		return Stmt{}
	}
	n, err := ir.NewProcedure(name, nodes...)
	if !b.check(err) {
		return Stmt{}
	}
	return Stmt{n: n}
}
