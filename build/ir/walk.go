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

type childrenOf struct{}

var _ Transformer[[]Node] = childrenOf{}

// Children returns the statements directly under a node.
// For a group type condition, the statements of both branches are returned.
func Children(n Node) []Node {
	children, _ := Transform[[]Node](n, childrenOf{})
	return children
}

func (childrenOf) Scheme(n *Scheme) ([]Node, error)       { return n.Statements, nil }
func (childrenOf) Procedure(n *Procedure) ([]Node, error) { return n.Statements, nil }
func (childrenOf) Global(*Global) ([]Node, error)         { return nil, nil }
func (childrenOf) Groups(*Groups) ([]Node, error)         { return nil, nil }
func (childrenOf) ForeachParticle(n *ForeachParticle) ([]Node, error) {
	return n.Body, nil
}
func (childrenOf) ForeachNeighbor(n *ForeachNeighbor) ([]Node, error) {
	return n.Body, nil
}
func (childrenOf) IfGroupType(n *IfGroupType) ([]Node, error) {
	return append(append([]Node{}, n.Then...), n.Else...), nil
}
func (childrenOf) Equation(*Equation) ([]Node, error) { return nil, nil }

// Walk traverses a tree in pre-order.
// The children of a node are not visited if f returns false.
func Walk(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, child := range Children(n) {
		Walk(child, f)
	}
}

type operandsOf struct{}

var _ ExprTransformer[[]Expr] = operandsOf{}

// Operands returns the expressions directly under an expression.
func Operands(e Expr) []Expr {
	operands, _ := TransformExpr[[]Expr](e, operandsOf{})
	return operands
}

func (operandsOf) FieldRef(*FieldRef) ([]Expr, error) { return nil, nil }
func (operandsOf) Literal(*Literal) ([]Expr, error)   { return nil, nil }
func (operandsOf) Unary(e *Unary) ([]Expr, error)     { return []Expr{e.X}, nil }
func (operandsOf) Binary(e *Binary) ([]Expr, error)   { return []Expr{e.X, e.Y}, nil }
func (operandsOf) Call(e *Call) ([]Expr, error)       { return e.Args, nil }

// WalkExpr traverses an expression in pre-order.
// The operands of an expression are not visited if f returns false.
func WalkExpr(e Expr, f func(Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	for _, op := range Operands(e) {
		WalkExpr(op, f)
	}
}

// FieldRefs returns all the field references of an expression, in pre-order.
func FieldRefs(e Expr) []*FieldRef {
	return collect[*FieldRef](e)
}

// Calls returns all the function calls of an expression, in pre-order.
func Calls(e Expr) []*Call {
	return collect[*Call](e)
}

func collect[T Expr](e Expr) []T {
	var all []T
	WalkExpr(e, func(e Expr) bool {
		if t, ok := e.(T); ok {
			all = append(all, t)
		}
		return true
	})
	return all
}
