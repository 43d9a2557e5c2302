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
	"strconv"
	"strings"

	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir/irkind"
)

// Expr is an expression computing a value for the active particle or
// for a pair of active and neighbor particles.
type Expr interface {
	// expr marks a structure as an expression structure.
	expr()

	// AcceptExpr calls the method of the visitor matching the type of the expression.
	AcceptExpr(ExprVisitor) error

	// String returns the expression in the textual grammar.
	String() string
}

type (
	// FieldRef refers to the value of a field for a particle.
	// Role is ignored for global fields.
	FieldRef struct {
		Alias string
		Field Field
		Role  irkind.Role
	}

	// Literal is a constant.
	Literal struct {
		Type  irkind.Type
		Value float64
	}

	// Unary is a unary arithmetic operation. Only negation is supported.
	Unary struct {
		Op irkind.Operator
		X  Expr
	}

	// Binary is a binary arithmetic operation.
	Binary struct {
		Op   irkind.Operator
		X, Y Expr
	}

	// Call is a call to a builtin function.
	// Calls are not interpreted by the IR: their meaning is given by the backends.
	Call struct {
		Func irkind.Func
		Args []Expr
	}
)

var (
	_ Expr = (*FieldRef)(nil)
	_ Expr = (*Literal)(nil)
	_ Expr = (*Unary)(nil)
	_ Expr = (*Binary)(nil)
	_ Expr = (*Call)(nil)
)

// NewFieldRef returns a reference to a field through an index role.
func NewFieldRef(alias string, field Field, role irkind.Role) (*FieldRef, error) {
	if err := field.Validate(); err != nil {
		return nil, err
	}
	if _, err := role.Name(); err != nil {
		return nil, err
	}
	if alias == "" {
		alias = field.Name
	}
	if field.Kind == irkind.Global {
		role = irkind.Active
	}
	return &FieldRef{Alias: alias, Field: field, Role: role}, nil
}

func (*FieldRef) expr() {}

// AcceptExpr calls VisitFieldRef.
func (e *FieldRef) AcceptExpr(v ExprVisitor) error { return v.VisitFieldRef(e) }

// String returns the reference in the textual grammar.
func (e *FieldRef) String() string {
	if e.Field.Kind == irkind.Global {
		return e.Alias
	}
	index, err := e.Role.Index()
	if err != nil {
		index = "?"
	}
	return e.Alias + "[" + index + "]"
}

// RealLiteral returns a real constant.
func RealLiteral(v float64) *Literal {
	return &Literal{Type: irkind.Real, Value: v}
}

// IndexLiteral returns an index constant.
func IndexLiteral(v int64) *Literal {
	return &Literal{Type: irkind.Index, Value: float64(v)}
}

// BoolLiteral returns a boolean constant.
func BoolLiteral(v bool) *Literal {
	lit := &Literal{Type: irkind.Boolean}
	if v {
		lit.Value = 1
	}
	return lit
}

func (*Literal) expr() {}

// AcceptExpr calls VisitLiteral.
func (e *Literal) AcceptExpr(v ExprVisitor) error { return v.VisitLiteral(e) }

// String returns the literal in the textual grammar.
func (e *Literal) String() string {
	switch e.Type {
	case irkind.Boolean:
		return strconv.FormatBool(e.Value != 0)
	case irkind.Index:
		return strconv.FormatInt(int64(e.Value), 10)
	}
	s := strconv.FormatFloat(e.Value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}

// NewUnary returns a unary operation.
func NewUnary(op irkind.Operator, x Expr) (*Unary, error) {
	if op != irkind.Minus {
		return nil, fmterr.Errorf(fmterr.InvalidEnumerator, "%s is not a unary operator", op)
	}
	if x == nil {
		return nil, fmterr.Errorf(fmterr.InvalidNode, "unary %s has no operand", op)
	}
	return &Unary{Op: op, X: x}, nil
}

func (*Unary) expr() {}

// AcceptExpr calls VisitUnary.
func (e *Unary) AcceptExpr(v ExprVisitor) error { return v.VisitUnary(e) }

// String returns the operation in the textual grammar.
func (e *Unary) String() string {
	switch e.X.(type) {
	case *Binary, *Literal, *Unary:
		return e.Op.String() + "(" + e.X.String() + ")"
	}
	return e.Op.String() + e.X.String()
}

// NewBinary returns a binary operation.
func NewBinary(op irkind.Operator, x, y Expr) (*Binary, error) {
	if _, err := op.Name(); err != nil {
		return nil, err
	}
	if x == nil || y == nil {
		return nil, fmterr.Errorf(fmterr.InvalidNode, "binary %s is missing an operand", op)
	}
	return &Binary{Op: op, X: x, Y: y}, nil
}

func (*Binary) expr() {}

// AcceptExpr calls VisitBinary.
func (e *Binary) AcceptExpr(v ExprVisitor) error { return v.VisitBinary(e) }

// String returns the operation in the textual grammar.
// Parentheses are only added when required by the precedence of the operators.
func (e *Binary) String() string {
	x := e.X.String()
	if bx, ok := e.X.(*Binary); ok && bx.Op.Precedence() < e.Op.Precedence() {
		x = "(" + x + ")"
	}
	y := e.Y.String()
	if by, ok := e.Y.(*Binary); ok && by.Op.Precedence() <= e.Op.Precedence() {
		y = "(" + y + ")"
	}
	return x + " " + e.Op.String() + " " + y
}

// NewCall returns a call to a function.
func NewCall(f irkind.Func, args ...Expr) (*Call, error) {
	if _, err := f.Name(); err != nil {
		return nil, err
	}
	for i, arg := range args {
		if arg == nil {
			return nil, fmterr.Errorf(fmterr.InvalidNode, "argument %d of %s is nil", i, f)
		}
	}
	return &Call{Func: f, Args: args}, nil
}

func (*Call) expr() {}

// AcceptExpr calls VisitCall.
func (e *Call) AcceptExpr(v ExprVisitor) error { return v.VisitCall(e) }

// String returns the call in the textual grammar.
func (e *Call) String() string {
	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		args[i] = arg.String()
	}
	return e.Func.String() + "(" + strings.Join(args, ", ") + ")"
}
