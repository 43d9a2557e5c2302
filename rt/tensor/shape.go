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

package tensor

import (
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
)

func shapeError(format string, a ...any) error {
	return fmterr.Errorf(fmterr.ShapeError, format, a...)
}

// BinaryShape returns the shape of the result of an arithmetic operator.
//
// Addition and subtraction require operands of the same shape.
// Multiplication scales by a scalar, or multiplies a matrix by a vector or by a matrix.
// Division only divides by a scalar.
func BinaryShape(op irkind.Operator, x, y ir.Shape) (ir.Shape, error) {
	switch op {
	case irkind.Plus, irkind.Minus:
		if x != y {
			return ir.Shape{}, shapeError("mismatched shapes %s %s %s", x, op, y)
		}
		return x, nil
	case irkind.Times:
		switch {
		case x.Rank() == 0:
			return y, nil
		case y.Rank() == 0:
			return x, nil
		case x.Rank() == 2 && x.Extent(1) == y.Extent(0):
			if y.Rank() == 1 {
				return ir.Vector(x.Extent(0)), nil
			}
			return ir.Matrix(x.Extent(0), y.Extent(1)), nil
		}
		return ir.Shape{}, shapeError("cannot multiply %s by %s", x, y)
	case irkind.Divide:
		if y.Rank() != 0 {
			return ir.Shape{}, shapeError("cannot divide %s by non-scalar %s", x, y)
		}
		return x, nil
	}
	return ir.Shape{}, fmterr.Errorf(fmterr.InvalidEnumerator, "invalid %s", op)
}

// CallShape returns the shape of the result of a function call
// given the shapes of its arguments and the spatial dimensionality.
func CallShape(f irkind.Func, dims int, args ...ir.Shape) (ir.Shape, error) {
	if want := f.Arity(); want < 0 {
		return ir.Shape{}, fmterr.Errorf(fmterr.InvalidEnumerator, "invalid %s", f)
	} else if len(args) != want {
		return ir.Shape{}, shapeError("%s expects %d arguments but got %d", f, want, len(args))
	}
	vector := func(i int) error {
		if args[i].Rank() != 1 {
			return shapeError("argument %d of %s must be a vector but got %s", i, f, args[i])
		}
		return nil
	}
	scalar := func(i int) error {
		if args[i].Rank() != 0 {
			return shapeError("argument %d of %s must be a scalar but got %s", i, f, args[i])
		}
		return nil
	}
	switch f {
	case irkind.Dot:
		if err := vector(0); err != nil {
			return ir.Shape{}, err
		}
		if args[0] != args[1] {
			return ir.Shape{}, shapeError("mismatched shapes %s and %s in %s", args[0], args[1], f)
		}
		return ir.Scalar(), nil
	case irkind.Norm, irkind.NormSquared, irkind.Kernel:
		return ir.Scalar(), vector(0)
	case irkind.Normalized, irkind.KernelGradient:
		return args[0], vector(0)
	case irkind.KernelH:
		if err := vector(0); err != nil {
			return ir.Shape{}, err
		}
		return ir.Scalar(), scalar(1)
	case irkind.KernelGradientH:
		if err := vector(0); err != nil {
			return ir.Shape{}, err
		}
		return args[0], scalar(1)
	case irkind.MinFunc, irkind.MaxFunc:
		if args[0] != args[1] {
			return ir.Shape{}, shapeError("mismatched shapes %s and %s in %s", args[0], args[1], f)
		}
		return args[0], nil
	case irkind.ParticleCount, irkind.NeighbourCount, irkind.NegativeInfinity, irkind.PositiveInfinity:
		return ir.Scalar(), nil
	case irkind.ZeroVector:
		return ir.Vector(dims), nil
	case irkind.Identity:
		return ir.Matrix(dims, dims), nil
	}
	return ir.Shape{}, fmterr.Errorf(fmterr.InvalidEnumerator, "invalid %s", f)
}

// CallType returns the type of the result of a function call.
func CallType(f irkind.Func) irkind.Type {
	switch f {
	case irkind.ParticleCount, irkind.NeighbourCount:
		return irkind.Index
	}
	return irkind.Real
}
