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

import "slices"

type rewriter struct {
	f func(Node) (Node, error)
}

var _ Transformer[Node] = rewriter{}

// Rewrite returns a new node of the same type as n where every child has been
// replaced by the result of f. Field declarations and expressions are copied.
func Rewrite(n Node, f func(Node) (Node, error)) (Node, error) {
	return Transform[Node](n, rewriter{f: f})
}

func (r rewriter) children(nodes []Node) ([]Node, error) {
	if nodes == nil {
		return nil, nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		var err error
		if out[i], err = r.f(n); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r rewriter) Scheme(n *Scheme) (Node, error) {
	stmts, err := r.children(n.Statements)
	if err != nil {
		return nil, err
	}
	return &Scheme{Name: n.Name, Statements: stmts}, nil
}

func (r rewriter) Procedure(n *Procedure) (Node, error) {
	stmts, err := r.children(n.Statements)
	if err != nil {
		return nil, err
	}
	return &Procedure{Name: n.Name, Statements: stmts}, nil
}

func (r rewriter) Global(n *Global) (Node, error) {
	return &Global{Decls: slices.Clone(n.Decls)}, nil
}

func (r rewriter) Groups(n *Groups) (Node, error) {
	return &Groups{GroupType: n.GroupType, Decls: slices.Clone(n.Decls)}, nil
}

func (r rewriter) ForeachParticle(n *ForeachParticle) (Node, error) {
	body, err := r.children(n.Body)
	if err != nil {
		return nil, err
	}
	return &ForeachParticle{Body: body}, nil
}

func (r rewriter) ForeachNeighbor(n *ForeachNeighbor) (Node, error) {
	body, err := r.children(n.Body)
	if err != nil {
		return nil, err
	}
	return &ForeachNeighbor{Body: body}, nil
}

func (r rewriter) IfGroupType(n *IfGroupType) (Node, error) {
	then, err := r.children(n.Then)
	if err != nil {
		return nil, err
	}
	els, err := r.children(n.Else)
	if err != nil {
		return nil, err
	}
	return &IfGroupType{GroupType: n.GroupType, Then: then, Else: els}, nil
}

func (r rewriter) Equation(n *Equation) (Node, error) {
	return &Equation{Op: n.Op, Target: CloneExpr(n.Target), Value: CloneExpr(n.Value)}, nil
}

func cloneNode(n Node) (Node, error) {
	return Rewrite(n, cloneNode)
}

// Clone returns a deep copy of a node. The node must not be nil.
func Clone[N Node](n N) N {
	out, err := cloneNode(n)
	if err != nil {
		// Cloning only fails on nil nodes, which constructors reject.
		panic(err)
	}
	return out.(N)
}

// CloneAll returns a deep copy of a slice of nodes.
// A nil slice stays nil.
func CloneAll[N Node](nodes []N) []N {
	if nodes == nil {
		return nil
	}
	out := make([]N, len(nodes))
	for i, n := range nodes {
		out[i] = Clone(n)
	}
	return out
}

type exprRewriter struct {
	f func(Expr) (Expr, error)
}

var _ ExprTransformer[Expr] = exprRewriter{}

// RewriteExpr returns a new expression of the same type as e where every
// operand has been replaced by the result of f.
func RewriteExpr(e Expr, f func(Expr) (Expr, error)) (Expr, error) {
	return TransformExpr[Expr](e, exprRewriter{f: f})
}

func (r exprRewriter) FieldRef(e *FieldRef) (Expr, error) {
	ref := *e
	return &ref, nil
}

func (r exprRewriter) Literal(e *Literal) (Expr, error) {
	lit := *e
	return &lit, nil
}

func (r exprRewriter) Unary(e *Unary) (Expr, error) {
	x, err := r.f(e.X)
	if err != nil {
		return nil, err
	}
	return &Unary{Op: e.Op, X: x}, nil
}

func (r exprRewriter) Binary(e *Binary) (Expr, error) {
	x, err := r.f(e.X)
	if err != nil {
		return nil, err
	}
	y, err := r.f(e.Y)
	if err != nil {
		return nil, err
	}
	return &Binary{Op: e.Op, X: x, Y: y}, nil
}

func (r exprRewriter) Call(e *Call) (Expr, error) {
	var args []Expr
	if e.Args != nil {
		args = make([]Expr, len(e.Args))
	}
	for i, arg := range e.Args {
		var err error
		if args[i], err = r.f(arg); err != nil {
			return nil, err
		}
	}
	return &Call{Func: e.Func, Args: args}, nil
}

func cloneExpr(e Expr) (Expr, error) {
	return RewriteExpr(e, cloneExpr)
}

// CloneExpr returns a deep copy of an expression. The expression must not be nil.
func CloneExpr[E Expr](e E) E {
	out, err := cloneExpr(e)
	if err != nil {
		panic(err)
	}
	return out.(E)
}
