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
	"fmt"

	"github.com/gx-org/prtcl/build/fmterr"
)

type (
	scope int

	validator struct {
		err    *fmterr.Appender
		scopes []scope
	}
)

const (
	rootScope scope = iota
	schemeScope
	procedureScope
	particleScope
	neighborScope
)

var _ Visitor = (*validator)(nil)

// Validate checks that all nodes of a tree are placed where they can be
// executed: procedures and declarations in schemes, particle loops in
// procedures, neighbor loops in particle loops, and group type conditions in loops.
// Validate also checks that all expressions are complete.
func Validate(n Node) error {
	v := &validator{err: fmterr.NewAppender(), scopes: []scope{rootScope}}
	v.visit(n)
	return v.err.ToError()
}

func (v *validator) current() scope {
	return v.scopes[len(v.scopes)-1]
}

func (v *validator) loop() scope {
	for i := len(v.scopes) - 1; i >= 0; i-- {
		if s := v.scopes[i]; s == particleScope || s == neighborScope {
			return s
		}
	}
	return rootScope
}

func (v *validator) visit(n Node) {
	if n == nil {
		v.err.Appendf(fmterr.InvalidNode, "nil node")
		return
	}
	if err := n.Accept(v); err != nil {
		v.err.Append(err)
	}
}

func (v *validator) visitAll(s scope, path string, nodes []Node) {
	v.scopes = append(v.scopes, s)
	v.err.PushPath(path)
	for _, n := range nodes {
		v.visit(n)
	}
	v.err.Pop()
	v.scopes = v.scopes[:len(v.scopes)-1]
}

func (v *validator) misplaced(what string) error {
	return fmterr.Errorf(fmterr.InvalidNode, "%s cannot be placed in %s", what, v.scopeName())
}

func (v *validator) scopeName() string {
	switch v.current() {
	case schemeScope:
		return "a scheme"
	case procedureScope:
		return "a procedure"
	case particleScope:
		return "a particle loop"
	case neighborScope:
		return "a neighbor loop"
	}
	return "the root of a tree"
}

func (v *validator) VisitScheme(n *Scheme) error {
	if v.current() != rootScope {
		return v.misplaced("a scheme")
	}
	if !IsIdentifier(n.Name) {
		v.err.Appendf(fmterr.InvalidNode, "%q is not a valid scheme name", n.Name)
	}
	v.visitAll(schemeScope, "scheme "+n.Name, n.Statements)
	return nil
}

func (v *validator) VisitProcedure(n *Procedure) error {
	if s := v.current(); s != rootScope && s != schemeScope {
		return v.misplaced("a procedure")
	}
	if !IsIdentifier(n.Name) {
		v.err.Appendf(fmterr.InvalidNode, "%q is not a valid procedure name", n.Name)
	}
	v.visitAll(procedureScope, "procedure "+n.Name, n.Statements)
	return nil
}

func (v *validator) checkDecls(decls []FieldDecl) {
	for _, decl := range decls {
		if err := decl.Field.Validate(); err != nil {
			v.err.Append(err)
		}
		if !IsIdentifier(decl.Alias) {
			v.err.Appendf(fmterr.UnknownField, "%q is not a valid alias", decl.Alias)
		}
	}
}

func (v *validator) VisitGlobal(n *Global) error {
	if s := v.current(); s != rootScope && s != schemeScope {
		return v.misplaced("a global block")
	}
	v.checkDecls(n.Decls)
	return nil
}

func (v *validator) VisitGroups(n *Groups) error {
	if s := v.current(); s != rootScope && s != schemeScope {
		return v.misplaced("a groups block")
	}
	if err := checkGroupType(n.GroupType); err != nil {
		v.err.Append(err)
	}
	v.checkDecls(n.Decls)
	return nil
}

func (v *validator) VisitForeachParticle(n *ForeachParticle) error {
	if s := v.current(); s != rootScope && s != procedureScope {
		return v.misplaced("a particle loop")
	}
	v.visitAll(particleScope, "foreach_particle", n.Body)
	return nil
}

func (v *validator) VisitForeachNeighbor(n *ForeachNeighbor) error {
	if v.loop() != particleScope {
		return v.misplaced("a neighbor loop")
	}
	v.visitAll(neighborScope, "foreach_neighbor", n.Body)
	return nil
}

func (v *validator) VisitIfGroupType(n *IfGroupType) error {
	loop := v.loop()
	if loop == rootScope {
		return v.misplaced("a group type condition")
	}
	if err := checkGroupType(n.GroupType); err != nil {
		v.err.Append(err)
	}
	path := fmt.Sprintf("if_group_type(%q)", n.GroupType)
	v.visitAll(loop, path, n.Then)
	v.visitAll(loop, path+" else", n.Else)
	return nil
}

func (v *validator) VisitEquation(n *Equation) error {
	switch v.current() {
	case procedureScope, particleScope, neighborScope, rootScope:
	default:
		return v.misplaced("an equation")
	}
	if _, err := n.Op.Name(); err != nil {
		return err
	}
	if n.Target == nil {
		return fmterr.Errorf(fmterr.InvalidNode, "equation has no target")
	}
	if n.Value == nil {
		return fmterr.Errorf(fmterr.InvalidNode, "equation for %s has no value", n.Target.Field.Name)
	}
	v.checkExpr(n.Target)
	v.checkExpr(n.Value)
	return nil
}

func (v *validator) checkExpr(e Expr) {
	WalkExpr(e, func(e Expr) bool {
		for _, op := range Operands(e) {
			if op == nil {
				v.err.Appendf(fmterr.InvalidNode, "%T has a nil operand", e)
				return false
			}
		}
		ref, ok := e.(*FieldRef)
		if !ok {
			return true
		}
		if err := ref.Field.Validate(); err != nil {
			v.err.Append(err)
		}
		if _, err := ref.Role.Name(); err != nil {
			v.err.Append(err)
		}
		return true
	})
}
