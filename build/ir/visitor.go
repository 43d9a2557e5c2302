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

import "github.com/gx-org/prtcl/build/fmterr"

type (
	// Visitor has one method per type of node.
	// Adding a type of node adds a method to the interface so that
	// all visitors are updated.
	Visitor interface {
		VisitScheme(*Scheme) error
		VisitProcedure(*Procedure) error
		VisitGlobal(*Global) error
		VisitGroups(*Groups) error
		VisitForeachParticle(*ForeachParticle) error
		VisitForeachNeighbor(*ForeachNeighbor) error
		VisitIfGroupType(*IfGroupType) error
		VisitEquation(*Equation) error
	}

	// ExprVisitor has one method per type of expression.
	ExprVisitor interface {
		VisitFieldRef(*FieldRef) error
		VisitLiteral(*Literal) error
		VisitUnary(*Unary) error
		VisitBinary(*Binary) error
		VisitCall(*Call) error
	}
)

type (
	// Transformer computes a value of type T from a node.
	// It has one handler per type of node.
	Transformer[T any] interface {
		Scheme(*Scheme) (T, error)
		Procedure(*Procedure) (T, error)
		Global(*Global) (T, error)
		Groups(*Groups) (T, error)
		ForeachParticle(*ForeachParticle) (T, error)
		ForeachNeighbor(*ForeachNeighbor) (T, error)
		IfGroupType(*IfGroupType) (T, error)
		Equation(*Equation) (T, error)
	}

	// ExprTransformer computes a value of type T from an expression.
	ExprTransformer[T any] interface {
		FieldRef(*FieldRef) (T, error)
		Literal(*Literal) (T, error)
		Unary(*Unary) (T, error)
		Binary(*Binary) (T, error)
		Call(*Call) (T, error)
	}

	dispatcher[T any] struct {
		t   Transformer[T]
		out T
	}

	exprDispatcher[T any] struct {
		t   ExprTransformer[T]
		out T
	}
)

var (
	_ Visitor     = (*dispatcher[int])(nil)
	_ ExprVisitor = (*exprDispatcher[int])(nil)
)

// Transform calls the handler of the transformer matching the type of the node.
func Transform[T any](n Node, t Transformer[T]) (T, error) {
	if n == nil {
		var zero T
		return zero, fmterr.Errorf(fmterr.InvalidNode, "cannot transform a nil node")
	}
	d := &dispatcher[T]{t: t}
	err := n.Accept(d)
	return d.out, err
}

// TransformAll transforms a list of nodes.
// It stops at the first error.
func TransformAll[T any](nodes []Node, t Transformer[T]) ([]T, error) {
	outs := make([]T, len(nodes))
	for i, n := range nodes {
		var err error
		if outs[i], err = Transform(n, t); err != nil {
			return nil, err
		}
	}
	return outs, nil
}

func (d *dispatcher[T]) VisitScheme(n *Scheme) (err error) {
	d.out, err = d.t.Scheme(n)
	return
}

func (d *dispatcher[T]) VisitProcedure(n *Procedure) (err error) {
	d.out, err = d.t.Procedure(n)
	return
}

func (d *dispatcher[T]) VisitGlobal(n *Global) (err error) {
	d.out, err = d.t.Global(n)
	return
}

func (d *dispatcher[T]) VisitGroups(n *Groups) (err error) {
	d.out, err = d.t.Groups(n)
	return
}

func (d *dispatcher[T]) VisitForeachParticle(n *ForeachParticle) (err error) {
	d.out, err = d.t.ForeachParticle(n)
	return
}

func (d *dispatcher[T]) VisitForeachNeighbor(n *ForeachNeighbor) (err error) {
	d.out, err = d.t.ForeachNeighbor(n)
	return
}

func (d *dispatcher[T]) VisitIfGroupType(n *IfGroupType) (err error) {
	d.out, err = d.t.IfGroupType(n)
	return
}

func (d *dispatcher[T]) VisitEquation(n *Equation) (err error) {
	d.out, err = d.t.Equation(n)
	return
}

// TransformExpr calls the handler of the transformer matching the type of the expression.
func TransformExpr[T any](e Expr, t ExprTransformer[T]) (T, error) {
	if e == nil {
		var zero T
		return zero, fmterr.Errorf(fmterr.InvalidNode, "cannot transform a nil expression")
	}
	d := &exprDispatcher[T]{t: t}
	err := e.AcceptExpr(d)
	return d.out, err
}

// TransformExprs transforms a list of expressions.
func TransformExprs[T any](exprs []Expr, t ExprTransformer[T]) ([]T, error) {
	outs := make([]T, len(exprs))
	for i, e := range exprs {
		var err error
		if outs[i], err = TransformExpr(e, t); err != nil {
			return nil, err
		}
	}
	return outs, nil
}

func (d *exprDispatcher[T]) VisitFieldRef(e *FieldRef) (err error) {
	d.out, err = d.t.FieldRef(e)
	return
}

func (d *exprDispatcher[T]) VisitLiteral(e *Literal) (err error) {
	d.out, err = d.t.Literal(e)
	return
}

func (d *exprDispatcher[T]) VisitUnary(e *Unary) (err error) {
	d.out, err = d.t.Unary(e)
	return
}

func (d *exprDispatcher[T]) VisitBinary(e *Binary) (err error) {
	d.out, err = d.t.Binary(e)
	return
}

func (d *exprDispatcher[T]) VisitCall(e *Call) (err error) {
	d.out, err = d.t.Call(e)
	return
}
