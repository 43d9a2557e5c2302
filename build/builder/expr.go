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
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
)

type (
	// Operand is a value that can be used in an expression.
	Operand interface {
		irExpr() ir.Expr
	}

	// Expr is an expression being built.
	Expr struct {
		b *Builder
		e ir.Expr
	}

	// Ref is a reference to a field. It can be used as an operand or as
	// the target of an equation.
	Ref struct {
		Expr
	}
)

var (
	_ Operand = Expr{}
	_ Operand = Ref{}
)

func (x Expr) irExpr() ir.Expr {
	return x.e
}

// IR returns the expression.
func (x Expr) IR() ir.Expr {
	return x.e
}

// String returns the expression in the textual grammar.
func (x Expr) String() string {
	if x.e == nil {
		return "<invalid>"
	}
	return x.e.String()
}

// exprs returns copies of the expressions of operands so that an operand
// used more than once does not share nodes in a tree.
func (b *Builder) exprs(ops []Operand) ([]ir.Expr, bool) {
	exprs := make([]ir.Expr, len(ops))
	for i, op := range ops {
		e := op.irExpr()
		if e == nil {
			return nil, false
		}
		exprs[i] = ir.CloneExpr(e)
	}
	return exprs, true
}

func (x Expr) binary(op irkind.Operator, y Operand) Expr {
	xy, ok := x.b.exprs([]Operand{x, y})
	if !ok {
		return Expr{b: x.b}
	}
	e, err := ir.NewBinary(op, xy[0], xy[1])
	if !x.b.check(err) {
		return Expr{b: x.b}
	}
	return Expr{b: x.b, e: e}
}

// Add returns x + y.
func (x Expr) Add(y Operand) Expr { return x.binary(irkind.Plus, y) }

// Sub returns x - y.
func (x Expr) Sub(y Operand) Expr { return x.binary(irkind.Minus, y) }

// Mul returns x * y.
func (x Expr) Mul(y Operand) Expr { return x.binary(irkind.Times, y) }

// Div returns x / y.
func (x Expr) Div(y Operand) Expr { return x.binary(irkind.Divide, y) }

// Neg returns -x.
func (x Expr) Neg() Expr {
	if x.e == nil {
		return x
	}
	e, err := ir.NewUnary(irkind.Minus, x.e)
	if !x.b.check(err) {
		return Expr{b: x.b}
	}
	return Expr{b: x.b, e: e}
}

// Real returns a real constant.
func (b *Builder) Real(v float64) Expr {
	return Expr{b: b, e: ir.RealLiteral(v)}
}

// Index returns an index constant.
func (b *Builder) Index(v int64) Expr {
	return Expr{b: b, e: ir.IndexLiteral(v)}
}

// Bool returns a boolean constant.
func (b *Builder) Bool(v bool) Expr {
	return Expr{b: b, e: ir.BoolLiteral(v)}
}

// Call returns a call to a builtin function.
func (b *Builder) Call(f irkind.Func, args ...Operand) Expr {
	exprs, ok := b.exprs(args)
	if !ok {
		return Expr{b: b}
	}
	e, err := ir.NewCall(f, exprs...)
	if !b.check(err) {
		return Expr{b: b}
	}
	return Expr{b: b, e: e}
}

// Dot returns the dot product of two vectors.
func (b *Builder) Dot(x, y Operand) Expr { return b.Call(irkind.Dot, x, y) }

// Norm returns the Euclidean norm of a vector.
func (b *Builder) Norm(x Operand) Expr { return b.Call(irkind.Norm, x) }

// NormSquared returns the squared Euclidean norm of a vector.
func (b *Builder) NormSquared(x Operand) Expr { return b.Call(irkind.NormSquared, x) }

// Normalized returns a vector divided by its norm.
func (b *Builder) Normalized(x Operand) Expr { return b.Call(irkind.Normalized, x) }

// Min returns the component-wise minimum of two values.
func (b *Builder) Min(x, y Operand) Expr { return b.Call(irkind.MinFunc, x, y) }

// Max returns the component-wise maximum of two values.
func (b *Builder) Max(x, y Operand) Expr { return b.Call(irkind.MaxFunc, x, y) }

// W returns the kernel evaluated at a distance vector
// using the global smoothing scale.
func (b *Builder) W(x Operand) Expr { return b.Call(irkind.Kernel, x) }

// DW returns the gradient of the kernel evaluated at a distance vector
// using the global smoothing scale.
func (b *Builder) DW(x Operand) Expr { return b.Call(irkind.KernelGradient, x) }

// WH returns the kernel evaluated at a distance vector with a smoothing scale.
func (b *Builder) WH(x, h Operand) Expr { return b.Call(irkind.KernelH, x, h) }

// DWH returns the gradient of the kernel evaluated at a distance vector with a smoothing scale.
func (b *Builder) DWH(x, h Operand) Expr { return b.Call(irkind.KernelGradientH, x, h) }

// ParticleCount returns the number of particles in the group of the active particle.
func (b *Builder) ParticleCount() Expr { return b.Call(irkind.ParticleCount) }

// NeighbourCount returns the number of neighbors of the active particle
// in the group of the current neighbor loop.
func (b *Builder) NeighbourCount() Expr { return b.Call(irkind.NeighbourCount) }

// ZeroVector returns a real vector with all components equal to zero.
func (b *Builder) ZeroVector() Expr { return b.Call(irkind.ZeroVector) }

// Identity returns the identity matrix.
func (b *Builder) Identity() Expr { return b.Call(irkind.Identity) }

// NegativeInfinity returns the smallest real value.
func (b *Builder) NegativeInfinity() Expr { return b.Call(irkind.NegativeInfinity) }

// PositiveInfinity returns the largest real value.
func (b *Builder) PositiveInfinity() Expr { return b.Call(irkind.PositiveInfinity) }
