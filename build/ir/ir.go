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

// Package ir is the intermediate representation (IR) tree of particle simulation schemes.
//
// A scheme is a tree of nodes. The tree is built either with the builder
// [github.com/gx-org/prtcl/build/builder] or parsed from its textual grammar
// by [github.com/gx-org/prtcl/build/parser].
//
// A tree owns all its nodes: nodes are never shared between trees.
// Transformations produce new trees. Use [Clone] for deep copies.
package ir

import (
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir/irkind"
)

// AllGroupTypes is the group type under which requirements are recorded
// when no group type condition applies.
const AllGroupTypes = "*"

// Node in the tree.
type Node interface {
	// node marks a structure as a node structure.
	// It prevents external implementations of the interface.
	node()

	// Accept calls the method of the visitor matching the type of the node.
	Accept(Visitor) error
}

type (
	// Scheme is the root of a tree: a named collection of field declarations
	// and procedures.
	Scheme struct {
		Name       string
		Statements []Node
	}

	// Procedure is a named sequence of statements executed as a simulation step.
	Procedure struct {
		Name       string
		Statements []Node
	}

	// Global declares the fields of a scheme shared by all particles.
	Global struct {
		Decls []FieldDecl
	}

	// Groups declares the fields required by all the groups of a given type.
	Groups struct {
		GroupType string
		Decls     []FieldDecl
	}

	// ForeachParticle executes its body once for every particle of every group.
	ForeachParticle struct {
		Body []Node
	}

	// ForeachNeighbor executes its body once for every neighbor of the active particle.
	ForeachNeighbor struct {
		Body []Node
	}

	// IfGroupType executes Then when the group of the current particle has
	// the given type and Else otherwise.
	// The current particle is the neighbor inside a neighbor loop and
	// the active particle otherwise.
	IfGroupType struct {
		GroupType string
		Then      []Node
		Else      []Node
	}

	// Equation updates a field.
	Equation struct {
		Op     irkind.Op
		Target *FieldRef
		Value  Expr
	}
)

var (
	_ Node = (*Scheme)(nil)
	_ Node = (*Procedure)(nil)
	_ Node = (*Global)(nil)
	_ Node = (*Groups)(nil)
	_ Node = (*ForeachParticle)(nil)
	_ Node = (*ForeachNeighbor)(nil)
	_ Node = (*IfGroupType)(nil)
	_ Node = (*Equation)(nil)
)

func checkChildren(parent string, nodes []Node) error {
	for i, n := range nodes {
		if n == nil {
			return fmterr.Errorf(fmterr.InvalidNode, "%s: child %d is nil", parent, i)
		}
	}
	return nil
}

// NewScheme returns a new scheme.
func NewScheme(name string, stmts ...Node) (*Scheme, error) {
	if !IsIdentifier(name) {
		return nil, fmterr.Errorf(fmterr.InvalidNode, "%q is not a valid scheme name", name)
	}
	if err := checkChildren("scheme "+name, stmts); err != nil {
		return nil, err
	}
	return &Scheme{Name: name, Statements: stmts}, nil
}

func (*Scheme) node() {}

// Accept calls VisitScheme.
func (n *Scheme) Accept(v Visitor) error { return v.VisitScheme(n) }

// Procedures returns the procedures of the scheme in declaration order.
func (n *Scheme) Procedures() []*Procedure {
	return statementsOf[*Procedure](n.Statements)
}

// Procedure returns a procedure given its name.
func (n *Scheme) Procedure(name string) (*Procedure, error) {
	for _, proc := range n.Procedures() {
		if proc.Name == name {
			return proc, nil
		}
	}
	return nil, fmterr.Errorf(fmterr.UnknownProcedure, "scheme %s has no procedure %q", n.Name, name)
}

// GlobalBlocks returns all the global declaration blocks of the scheme.
func (n *Scheme) GlobalBlocks() []*Global {
	return statementsOf[*Global](n.Statements)
}

// GroupsBlocks returns all the group declaration blocks of the scheme.
func (n *Scheme) GroupsBlocks() []*Groups {
	return statementsOf[*Groups](n.Statements)
}

func statementsOf[T Node](stmts []Node) []T {
	var r []T
	for _, stmt := range stmts {
		if t, ok := stmt.(T); ok {
			r = append(r, t)
		}
	}
	return r
}

// NewProcedure returns a new procedure.
func NewProcedure(name string, stmts ...Node) (*Procedure, error) {
	if !IsIdentifier(name) {
		return nil, fmterr.Errorf(fmterr.InvalidNode, "%q is not a valid procedure name", name)
	}
	if err := checkChildren("procedure "+name, stmts); err != nil {
		return nil, err
	}
	return &Procedure{Name: name, Statements: stmts}, nil
}

func (*Procedure) node() {}

// Accept calls VisitProcedure.
func (n *Procedure) Accept(v Visitor) error { return v.VisitProcedure(n) }

// NewGlobal returns a new global declaration block.
func NewGlobal(decls ...FieldDecl) (*Global, error) {
	for _, decl := range decls {
		if err := decl.Field.Validate(); err != nil {
			return nil, err
		}
		if decl.Field.Kind != irkind.Global {
			return nil, fmterr.Errorf(fmterr.InvalidFieldKind, "cannot declare %s field %s in a global block", decl.Field.Kind, decl.Field.Name)
		}
	}
	return &Global{Decls: decls}, nil
}

func (*Global) node() {}

// Accept calls VisitGlobal.
func (n *Global) Accept(v Visitor) error { return v.VisitGlobal(n) }

// NewGroups returns a new group declaration block.
func NewGroups(groupType string, decls ...FieldDecl) (*Groups, error) {
	if err := checkGroupType(groupType); err != nil {
		return nil, err
	}
	for _, decl := range decls {
		if err := decl.Field.Validate(); err != nil {
			return nil, err
		}
		if decl.Field.Kind == irkind.Global {
			return nil, fmterr.Errorf(fmterr.InvalidFieldKind, "cannot declare global field %s for groups of type %s", decl.Field.Name, groupType)
		}
	}
	return &Groups{GroupType: groupType, Decls: decls}, nil
}

func (*Groups) node() {}

// Accept calls VisitGroups.
func (n *Groups) Accept(v Visitor) error { return v.VisitGroups(n) }

// NewForeachParticle returns a new particle loop.
func NewForeachParticle(body ...Node) (*ForeachParticle, error) {
	if err := checkChildren("foreach_particle", body); err != nil {
		return nil, err
	}
	return &ForeachParticle{Body: body}, nil
}

func (*ForeachParticle) node() {}

// Accept calls VisitForeachParticle.
func (n *ForeachParticle) Accept(v Visitor) error { return v.VisitForeachParticle(n) }

// NewForeachNeighbor returns a new neighbor loop.
func NewForeachNeighbor(body ...Node) (*ForeachNeighbor, error) {
	if err := checkChildren("foreach_neighbor", body); err != nil {
		return nil, err
	}
	return &ForeachNeighbor{Body: body}, nil
}

func (*ForeachNeighbor) node() {}

// Accept calls VisitForeachNeighbor.
func (n *ForeachNeighbor) Accept(v Visitor) error { return v.VisitForeachNeighbor(n) }

func checkGroupType(groupType string) error {
	if groupType == "" || groupType == AllGroupTypes {
		return fmterr.Errorf(fmterr.UnknownGroupType, "%q is not a valid group type", groupType)
	}
	return nil
}

// NewIfGroupType returns a new group type condition.
func NewIfGroupType(groupType string, then []Node, els []Node) (*IfGroupType, error) {
	if err := checkGroupType(groupType); err != nil {
		return nil, err
	}
	if err := checkChildren("if_group_type", then); err != nil {
		return nil, err
	}
	if err := checkChildren("else", els); err != nil {
		return nil, err
	}
	return &IfGroupType{GroupType: groupType, Then: then, Else: els}, nil
}

func (*IfGroupType) node() {}

// Accept calls VisitIfGroupType.
func (n *IfGroupType) Accept(v Visitor) error { return v.VisitIfGroupType(n) }

// NewEquation returns a new equation.
func NewEquation(op irkind.Op, target *FieldRef, value Expr) (*Equation, error) {
	if _, err := op.Name(); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmterr.Errorf(fmterr.InvalidNode, "equation has no target")
	}
	if value == nil {
		return nil, fmterr.Errorf(fmterr.InvalidNode, "equation for %s has no value", target.Field.Name)
	}
	return &Equation{Op: op, Target: target, Value: value}, nil
}

func (*Equation) node() {}

// Accept calls VisitEquation.
func (n *Equation) Accept(v Visitor) error { return v.VisitEquation(n) }

// IsReduction returns true if the equation combines values computed by
// different particles into a single value.
func (n *Equation) IsReduction() bool {
	return n.Op != irkind.Assign && n.Target.Field.Kind != irkind.Varying
}

// FieldRefs returns the target and all the fields referenced by the value.
func (n *Equation) FieldRefs() []*FieldRef {
	return append([]*FieldRef{n.Target}, FieldRefs(n.Value)...)
}
