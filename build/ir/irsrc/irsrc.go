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

// Package irsrc prints an IR tree in the textual grammar read by
// [github.com/gx-org/prtcl/build/parser].
package irsrc

import (
	"strconv"
	"strings"

	pfmt "github.com/gx-org/prtcl/base/fmt"
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
)

type printer struct{}

var _ ir.Transformer[string] = printer{}

// Format returns the source of a node in the textual grammar.
//
// When formatting a scheme, the fields referenced by equations but not
// declared by a global or a groups block are declared in a fields block.
func Format(n ir.Node) (string, error) {
	return ir.Transform[string](n, printer{})
}

func (p printer) list(nodes []ir.Node, sep string) (string, error) {
	var b strings.Builder
	for _, n := range nodes {
		s, err := ir.Transform[string](n, p)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
		b.WriteString(sep)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (p printer) block(header string, nodes []ir.Node) (string, error) {
	body, err := p.list(nodes, "")
	if err != nil {
		return "", err
	}
	if body == "" {
		return header + " {}", nil
	}
	return header + " {\n" + pfmt.Indent(body) + "}", nil
}

func (p printer) call(name string, args []string, nodes []ir.Node) (string, error) {
	body, err := p.list(nodes, ",")
	if err != nil {
		return "", err
	}
	head := name + "(" + strings.Join(args, ", ")
	if body == "" {
		return head + ")", nil
	}
	if len(args) > 0 {
		head += ","
	}
	return head + "\n" + pfmt.Indent(body) + ")", nil
}

func declsString(header string, decls []ir.FieldDecl) string {
	if len(decls) == 0 {
		return header + " {}"
	}
	var b strings.Builder
	b.WriteString(header + " {\n")
	for _, decl := range decls {
		b.WriteString("\t" + decl.Alias + " = " + decl.Field.Decl() + "\n")
	}
	b.WriteString("}")
	return b.String()
}

// undeclared returns the fields referenced by the equations of a scheme
// which have not been bound to an alias by a declaration block.
func undeclared(n *ir.Scheme) ([]ir.FieldDecl, error) {
	aliases := make(map[string]ir.Field)
	for _, g := range n.GlobalBlocks() {
		for _, decl := range g.Decls {
			aliases[decl.Alias] = decl.Field
		}
	}
	for _, g := range n.GroupsBlocks() {
		for _, decl := range g.Decls {
			aliases[decl.Alias] = decl.Field
		}
	}
	var decls []ir.FieldDecl
	var err error
	ir.Walk(n, func(node ir.Node) bool {
		eq, ok := node.(*ir.Equation)
		if !ok {
			return true
		}
		for _, ref := range eq.FieldRefs() {
			prev, ok := aliases[ref.Alias]
			if !ok {
				aliases[ref.Alias] = ref.Field
				decls = append(decls, ir.FieldDecl{Alias: ref.Alias, Field: ref.Field})
				continue
			}
			if prev != ref.Field && err == nil {
				err = fmterr.Errorf(fmterr.DuplicateFieldAlias, "alias %s refers to both %s and %s", ref.Alias, prev, ref.Field)
			}
		}
		return true
	})
	return decls, err
}

func (p printer) Scheme(n *ir.Scheme) (string, error) {
	fields, err := undeclared(n)
	if err != nil {
		return "", err
	}
	var parts []string
	if len(fields) > 0 {
		parts = append(parts, declsString("fields", fields))
	}
	for _, stmt := range n.Statements {
		s, err := ir.Transform[string](stmt, p)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "scheme " + n.Name + " {}\n", nil
	}
	return "scheme " + n.Name + " {\n" + pfmt.IndentWith("\t", strings.Join(parts, "\n\n")+"\n") + "}\n", nil
}

func (p printer) Procedure(n *ir.Procedure) (string, error) {
	return p.block("procedure "+n.Name+"()", n.Statements)
}

func (p printer) Global(n *ir.Global) (string, error) {
	return declsString("global", n.Decls), nil
}

func (p printer) Groups(n *ir.Groups) (string, error) {
	return declsString("groups "+strconv.Quote(n.GroupType), n.Decls), nil
}

func (p printer) ForeachParticle(n *ir.ForeachParticle) (string, error) {
	return p.call("foreach_particle", nil, n.Body)
}

func (p printer) ForeachNeighbor(n *ir.ForeachNeighbor) (string, error) {
	return p.call("foreach_neighbor", nil, n.Body)
}

func (p printer) IfGroupType(n *ir.IfGroupType) (string, error) {
	then, err := p.list(n.Then, ",")
	if err != nil {
		return "", err
	}
	if len(n.Else) > 0 {
		els, err := p.call("else", nil, n.Else)
		if err != nil {
			return "", err
		}
		then += els + ",\n"
	}
	head := "if_group_type(" + strconv.Quote(n.GroupType)
	if then == "" {
		return head + ")", nil
	}
	return head + ",\n" + pfmt.Indent(then) + ")", nil
}

func (p printer) Equation(n *ir.Equation) (string, error) {
	tok, err := n.Op.Token()
	if err != nil {
		return "", err
	}
	return n.Target.String() + " " + tok + " " + n.Value.String(), nil
}
