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

package lower

import (
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
	"github.com/gx-org/prtcl/build/resolver"
	"github.com/gx-org/prtcl/rt/tensor"
)

func invalidTarget(format string, a ...any) error {
	return fmterr.Errorf(fmterr.InvalidAssignmentTarget, format, a...)
}

func (l *lowerer[S, E]) checkTarget(n *ir.Equation) error {
	target := n.Target
	f := target.Field
	switch f.Kind {
	case irkind.Varying:
		if target.Role == irkind.Neighbor {
			return invalidTarget("varying field %s cannot be written through the neighbor particle", target.Alias)
		}
		if l.scope.Loop == NoLoop {
			return invalidTarget("varying field %s written outside of a particle loop", target.Alias)
		}
	case irkind.Uniform:
		if l.scope.Loop == NoLoop {
			return invalidTarget("uniform field %s written outside of a particle loop", target.Alias)
		}
		if n.Op == irkind.Assign {
			return invalidTarget("uniform field %s can only be reduced in a loop", target.Alias)
		}
	case irkind.Global:
		if n.Op == irkind.Assign && l.scope.Loop != NoLoop {
			return invalidTarget("global field %s can only be reduced in a loop", target.Alias)
		}
	}
	if f.Type == irkind.Boolean && n.Op != irkind.Assign {
		return invalidTarget("boolean field %s can only be assigned", target.Alias)
	}
	return nil
}

func (l *lowerer[S, E]) Equation(n *ir.Equation) (S, error) {
	var zero S
	if n.Target == nil || n.Value == nil {
		return zero, fmterr.Errorf(fmterr.InvalidNode, "incomplete equation")
	}
	if _, err := n.Op.Name(); err != nil {
		return zero, err
	}
	if err := l.checkTarget(n); err != nil {
		return zero, err
	}
	target, err := ir.TransformExpr[lowered[E]](n.Target, l.exprs())
	if err != nil {
		return zero, err
	}
	value, err := ir.TransformExpr[lowered[E]](n.Value, l.exprs())
	if err != nil {
		return zero, err
	}
	if err := checkTypes(n, target.info.Type, value.info.Type); err != nil {
		return zero, err
	}
	if err := tensor.UpdateShape(n.Op, target.info.Shape, value.info.Shape); err != nil {
		return zero, err
	}
	targetField := n.Target.Field
	targetField.Shape = target.info.Shape
	return l.b.Equation(EquationInfo{
		Equation:  n,
		Scope:     l.scope,
		Target:    targetField,
		Reduction: n.IsReduction(),
		Value:     value.info,
	}, target.out, value.out)
}

func checkTypes(n *ir.Equation, target, value irkind.Type) error {
	if (target == irkind.Boolean) != (value == irkind.Boolean) {
		return fmterr.Errorf(fmterr.FieldKindMismatch, "cannot %s a %s value to %s field %s", n.Op, value, target, n.Target.Alias)
	}
	return nil
}

type lowered[E any] struct {
	info ExprInfo
	out  E
}

type exprLowerer[S, E any] struct {
	*lowerer[S, E]
}

func (l *lowerer[S, E]) exprs() exprLowerer[S, E] {
	return exprLowerer[S, E]{l}
}

func (l exprLowerer[S, E]) info(e ir.Expr, typ irkind.Type, shape ir.Shape) ExprInfo {
	return ExprInfo{Expr: e, Scope: l.scope, Type: typ, Shape: shape}
}

func (l exprLowerer[S, E]) operands(exprs []ir.Expr) ([]lowered[E], error) {
	return ir.TransformExprs[lowered[E]](exprs, l)
}

func (l exprLowerer[S, E]) requireField(f ir.Field, groupType string) error {
	if l.reqs == nil || l.reqs.Has(groupType, f) {
		return nil
	}
	if f.Kind == irkind.Global {
		return fmterr.Errorf(fmterr.UnresolvedFieldReference, "global field %s is not in the requirements", f)
	}
	return fmterr.Errorf(fmterr.UnresolvedFieldReference, "field %s is not required by groups of type %s", f, groupType)
}

func (l exprLowerer[S, E]) FieldRef(e *ir.FieldRef) (lowered[E], error) {
	f := e.Field
	if err := f.Validate(); err != nil {
		return lowered[E]{}, err
	}
	if f.Kind != irkind.Global {
		switch e.Role {
		case irkind.Active:
			if l.scope.Loop == NoLoop {
				return lowered[E]{}, fmterr.Errorf(fmterr.InvalidIndexRole, "%s referenced through the active particle outside of a particle loop", e.Alias)
			}
		case irkind.Neighbor:
			if l.scope.Loop != NeighborLoop {
				return lowered[E]{}, fmterr.Errorf(fmterr.InvalidIndexRole, "%s referenced through the neighbor particle outside of a neighbor loop", e.Alias)
			}
		default:
			_, err := e.Role.Name()
			return lowered[E]{}, err
		}
	}
	if err := l.requireField(f, l.scope.GroupOf(e.Role)); err != nil {
		return lowered[E]{}, err
	}
	info := l.info(e, f.Type, l.complete(f.Shape))
	out, err := l.b.FieldRef(info, e)
	return lowered[E]{info: info, out: out}, err
}

func (l exprLowerer[S, E]) Literal(e *ir.Literal) (lowered[E], error) {
	if _, err := e.Type.Name(); err != nil {
		return lowered[E]{}, err
	}
	info := l.info(e, e.Type, ir.Scalar())
	out, err := l.b.Literal(info, e)
	return lowered[E]{info: info, out: out}, err
}

func arithmeticType(what string, types ...irkind.Type) (irkind.Type, error) {
	typ := irkind.Index
	for _, t := range types {
		switch t {
		case irkind.Boolean:
			return 0, fmterr.Errorf(fmterr.FieldKindMismatch, "boolean operand in %s", what)
		case irkind.Real:
			typ = irkind.Real
		}
	}
	return typ, nil
}

func (l exprLowerer[S, E]) Unary(e *ir.Unary) (lowered[E], error) {
	x, err := ir.TransformExpr[lowered[E]](e.X, l)
	if err != nil {
		return lowered[E]{}, err
	}
	typ, err := arithmeticType(e.String(), x.info.Type)
	if err != nil {
		return lowered[E]{}, err
	}
	info := l.info(e, typ, x.info.Shape)
	out, err := l.b.Unary(info, e.Op, x.out)
	return lowered[E]{info: info, out: out}, err
}

func (l exprLowerer[S, E]) Binary(e *ir.Binary) (lowered[E], error) {
	ops, err := l.operands([]ir.Expr{e.X, e.Y})
	if err != nil {
		return lowered[E]{}, err
	}
	x, y := ops[0], ops[1]
	typ, err := arithmeticType(e.String(), x.info.Type, y.info.Type)
	if err != nil {
		return lowered[E]{}, err
	}
	shape, err := tensor.BinaryShape(e.Op, x.info.Shape, y.info.Shape)
	if err != nil {
		return lowered[E]{}, fmterr.PrefixWith("%s: ", e)(err)
	}
	info := l.info(e, typ, shape)
	out, err := l.b.Binary(info, e.Op, x.out, y.out)
	return lowered[E]{info: info, out: out}, err
}

func (l exprLowerer[S, E]) Call(e *ir.Call) (lowered[E], error) {
	if _, err := e.Func.Name(); err != nil {
		return lowered[E]{}, err
	}
	args, err := l.operands(e.Args)
	if err != nil {
		return lowered[E]{}, err
	}
	shapes := make([]ir.Shape, len(args))
	types := make([]irkind.Type, len(args))
	outs := make([]E, len(args))
	for i, arg := range args {
		shapes[i], types[i], outs[i] = arg.info.Shape, arg.info.Type, arg.out
	}
	if _, err := arithmeticType(e.String(), types...); err != nil {
		return lowered[E]{}, err
	}
	shape, err := tensor.CallShape(e.Func, l.dims, shapes...)
	if err != nil {
		return lowered[E]{}, fmterr.PrefixWith("%s: ", e)(err)
	}
	if e.Func.UsesSmoothingScale() {
		if err := l.requireField(resolver.SmoothingScale, ir.AllGroupTypes); err != nil {
			return lowered[E]{}, err
		}
	}
	switch {
	case e.Func == irkind.ParticleCount && l.scope.Loop == NoLoop:
		return lowered[E]{}, fmterr.Errorf(fmterr.InvalidIndexRole, "%s called outside of a particle loop", e.Func)
	case e.Func == irkind.NeighbourCount && l.scope.Loop != NeighborLoop:
		return lowered[E]{}, fmterr.Errorf(fmterr.InvalidIndexRole, "%s called outside of a neighbor loop", e.Func)
	}
	info := l.info(e, tensor.CallType(e.Func), shape)
	out, err := l.b.Call(info, e.Func, outs)
	return lowered[E]{info: info, out: out}, err
}
