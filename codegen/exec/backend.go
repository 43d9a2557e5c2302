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

package exec

import (
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
	"github.com/gx-org/prtcl/codegen/lower"
	"github.com/gx-org/prtcl/rt/loop"
	"github.com/gx-org/prtcl/rt/tensor"
)

type (
	stmt = func(*loop.Frame) error
	expr = func(*loop.Frame) (tensor.Value, error)
)

type backend struct {
	prog *Program
}

var _ lower.Backend[stmt, expr] = (*backend)(nil)

func nop(*loop.Frame) error { return nil }

func (b *backend) Scheme(name string, decls, procs []stmt) (stmt, error) {
	return nop, nil
}

func (b *backend) Procedure(name string, body []stmt) (stmt, error) {
	if _, ok := b.prog.procs.Load(name); ok {
		return nil, fmterr.Errorf(fmterr.DuplicateProcedure, "procedure %s already defined in scheme %s", name, b.prog.name)
	}
	b.prog.procs.Store(name, &Procedure{prog: b.prog, name: name, body: body})
	return func(fr *loop.Frame) error { return fr.Run(body...) }, nil
}

func (b *backend) Global(fields []ir.Field) (stmt, error) {
	return nop, nil
}

func (b *backend) Groups(groupType string, fields []ir.Field) (stmt, error) {
	return nop, nil
}

func (b *backend) ForeachParticle(scope lower.Scope, body []stmt) (stmt, error) {
	run := func(fr *loop.Frame) error { return fr.Run(body...) }
	return func(fr *loop.Frame) error { return fr.ForeachParticle(run) }, nil
}

func (b *backend) ForeachNeighbor(scope lower.Scope, body []stmt) (stmt, error) {
	run := func(fr *loop.Frame) error { return fr.Run(body...) }
	return func(fr *loop.Frame) error { return fr.ForeachNeighbor(run) }, nil
}

func (b *backend) IfGroupType(scope lower.Scope, groupType string, then, els []stmt) (stmt, error) {
	role := irkind.Active
	if scope.Loop == lower.NeighborLoop {
		role = irkind.Neighbor
	}
	return func(fr *loop.Frame) error {
		ok, err := fr.IsGroupType(role, groupType)
		if err != nil {
			return err
		}
		if ok {
			return fr.Run(then...)
		}
		return fr.Run(els...)
	}, nil
}

func (b *backend) Equation(info lower.EquationInfo, _, value expr) (stmt, error) {
	target := info.Equation.Target
	op := info.Equation.Op
	if !info.Reduction {
		return func(fr *loop.Frame) error {
			x, err := value(fr)
			if err != nil {
				return err
			}
			return fr.Update(op, target.Field, target.Role, x)
		}, nil
	}
	id := b.prog.reductions
	b.prog.reductions++
	return func(fr *loop.Frame) error {
		x, err := value(fr)
		if err != nil {
			return err
		}
		return fr.Reduce(id, op, target.Field, target.Role, x)
	}, nil
}

func (b *backend) FieldRef(info lower.ExprInfo, ref *ir.FieldRef) (expr, error) {
	return func(fr *loop.Frame) (tensor.Value, error) {
		return fr.Load(ref.Field, ref.Role)
	}, nil
}

func (b *backend) Literal(info lower.ExprInfo, lit *ir.Literal) (expr, error) {
	v := tensor.Scalar(lit.Value)
	return func(*loop.Frame) (tensor.Value, error) { return v, nil }, nil
}

func (b *backend) Unary(info lower.ExprInfo, op irkind.Operator, x expr) (expr, error) {
	return func(fr *loop.Frame) (tensor.Value, error) {
		v, err := x(fr)
		if err != nil {
			return tensor.Value{}, err
		}
		return tensor.Neg(v), nil
	}, nil
}

func (b *backend) Binary(info lower.ExprInfo, op irkind.Operator, x, y expr) (expr, error) {
	return func(fr *loop.Frame) (tensor.Value, error) {
		xv, err := x(fr)
		if err != nil {
			return tensor.Value{}, err
		}
		yv, err := y(fr)
		if err != nil {
			return tensor.Value{}, err
		}
		return tensor.Binary(op, xv, yv)
	}, nil
}

func (b *backend) Call(info lower.ExprInfo, f irkind.Func, args []expr) (expr, error) {
	return func(fr *loop.Frame) (tensor.Value, error) {
		x := make([]tensor.Value, len(args))
		for i, arg := range args {
			var err error
			if x[i], err = arg(fr); err != nil {
				return tensor.Value{}, err
			}
		}
		return fr.Call(f, x...)
	}, nil
}
