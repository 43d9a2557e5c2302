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

// Package tensor implements the arithmetic of small real scalars, vectors, and matrices.
package tensor

import (
	"fmt"
	"math"
	"strings"

	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
)

// Value is a real scalar, vector, or matrix.
// Matrices are stored in row-major order.
//
// Operations never modify their operands.
type Value struct {
	shape ir.Shape
	data  []float64
}

// Scalar returns a scalar value.
func Scalar(x float64) Value {
	return Value{shape: ir.Scalar(), data: []float64{x}}
}

// Vector returns a vector value.
func Vector(xs ...float64) Value {
	return Value{shape: ir.Vector(len(xs)), data: append([]float64{}, xs...)}
}

// New returns a value given a complete shape and its elements in row-major order.
func New(shape ir.Shape, data []float64) (Value, error) {
	if !shape.IsComplete() {
		return Value{}, shapeError("shape %s is not complete", shape)
	}
	if len(data) != shape.Size() {
		return Value{}, shapeError("shape %s requires %d elements but got %d", shape, shape.Size(), len(data))
	}
	return Value{shape: shape, data: data}, nil
}

// Full returns a value of a complete shape where all elements are x.
func Full(shape ir.Shape, x float64) (Value, error) {
	if !shape.IsComplete() {
		return Value{}, shapeError("shape %s is not complete", shape)
	}
	data := make([]float64, shape.Size())
	for i := range data {
		data[i] = x
	}
	return Value{shape: shape, data: data}, nil
}

// Zero returns a value of a complete shape where all elements are zero.
func Zero(shape ir.Shape) (Value, error) {
	return Full(shape, 0)
}

// Identity returns the identity matrix of size dims x dims.
func Identity(dims int) Value {
	v := Value{shape: ir.Matrix(dims, dims), data: make([]float64, dims*dims)}
	for i := range dims {
		v.data[i*dims+i] = 1
	}
	return v
}

// Shape returns the shape of the value.
func (v Value) Shape() ir.Shape {
	return v.shape
}

// Data returns the elements of the value in row-major order.
// The returned slice must not be modified.
func (v Value) Data() []float64 {
	return v.data
}

// Float returns the first element of the value.
// This is the value itself for a scalar.
func (v Value) Float() float64 {
	if len(v.data) == 0 {
		return 0
	}
	return v.data[0]
}

// Equal returns true if both values have the same shape and the same elements.
func (v Value) Equal(other Value) bool {
	if v.shape != other.shape || len(v.data) != len(other.data) {
		return false
	}
	for i, x := range v.data {
		if x != other.data[i] {
			return false
		}
	}
	return true
}

// String representation of the value.
func (v Value) String() string {
	switch v.shape.Rank() {
	case 0:
		return fmt.Sprint(v.Float())
	case 1:
		return fmt.Sprint(v.data)
	}
	cols := v.shape.Extent(1)
	rows := make([]string, v.shape.Extent(0))
	for i := range rows {
		rows[i] = fmt.Sprint(v.data[i*cols : (i+1)*cols])
	}
	return "[" + strings.Join(rows, " ") + "]"
}

func (v Value) mapped(f func(float64) float64) Value {
	out := Value{shape: v.shape, data: make([]float64, len(v.data))}
	for i, x := range v.data {
		out.data[i] = f(x)
	}
	return out
}

func zipped(x, y Value, f func(float64, float64) float64) Value {
	out := Value{shape: x.shape, data: make([]float64, len(x.data))}
	for i := range out.data {
		out.data[i] = f(x.data[i], y.data[i])
	}
	return out
}

// Neg returns -x.
func Neg(x Value) Value {
	return x.mapped(func(a float64) float64 { return -a })
}

// Binary applies an arithmetic operator.
func Binary(op irkind.Operator, x, y Value) (Value, error) {
	shape, err := BinaryShape(op, x.shape, y.shape)
	if err != nil {
		return Value{}, err
	}
	switch op {
	case irkind.Plus:
		return zipped(x, y, func(a, b float64) float64 { return a + b }), nil
	case irkind.Minus:
		return zipped(x, y, func(a, b float64) float64 { return a - b }), nil
	case irkind.Divide:
		s := y.Float()
		return x.mapped(func(a float64) float64 { return a / s }), nil
	}
	switch {
	case x.shape.Rank() == 0:
		s := x.Float()
		return y.mapped(func(a float64) float64 { return s * a }), nil
	case y.shape.Rank() == 0:
		s := y.Float()
		return x.mapped(func(a float64) float64 { return a * s }), nil
	}
	return matmul(shape, x, y), nil
}

func matmul(shape ir.Shape, x, y Value) Value {
	rows, inner := x.shape.Extent(0), x.shape.Extent(1)
	cols := 1
	if y.shape.Rank() == 2 {
		cols = y.shape.Extent(1)
	}
	out := Value{shape: shape, data: make([]float64, rows*cols)}
	for i := range rows {
		for j := range cols {
			var sum float64
			for k := range inner {
				sum += x.data[i*inner+k] * y.data[k*cols+j]
			}
			out.data[i*cols+j] = sum
		}
	}
	return out
}

// Add returns x + y.
func Add(x, y Value) (Value, error) { return Binary(irkind.Plus, x, y) }

// Sub returns x - y.
func Sub(x, y Value) (Value, error) { return Binary(irkind.Minus, x, y) }

// Mul returns x * y.
func Mul(x, y Value) (Value, error) { return Binary(irkind.Times, x, y) }

// Div returns x / y.
func Div(x, y Value) (Value, error) { return Binary(irkind.Divide, x, y) }

func checkVector(x Value) error {
	if x.shape.Rank() != 1 {
		return shapeError("expected a vector but got %s", x.shape)
	}
	return nil
}

// Dot returns the dot product of two vectors.
func Dot(x, y Value) (float64, error) {
	if _, err := CallShape(irkind.Dot, 0, x.shape, y.shape); err != nil {
		return 0, err
	}
	var sum float64
	for i, a := range x.data {
		sum += a * y.data[i]
	}
	return sum, nil
}

// NormSquared returns the squared euclidean norm of a vector.
func NormSquared(x Value) (float64, error) {
	return Dot(x, x)
}

// Norm returns the euclidean norm of a vector.
func Norm(x Value) (float64, error) {
	n2, err := NormSquared(x)
	return math.Sqrt(n2), err
}

// Normalized returns x divided by its norm.
// The zero vector is returned unchanged.
func Normalized(x Value) (Value, error) {
	n, err := Norm(x)
	if err != nil {
		return Value{}, err
	}
	if n == 0 {
		return x, nil
	}
	return x.mapped(func(a float64) float64 { return a / n }), nil
}

// Min returns the componentwise minimum of two values.
func Min(x, y Value) (Value, error) {
	if x.shape != y.shape {
		return Value{}, shapeError("mismatched shapes %s and %s in min", x.shape, y.shape)
	}
	return zipped(x, y, math.Min), nil
}

// Max returns the componentwise maximum of two values.
func Max(x, y Value) (Value, error) {
	if x.shape != y.shape {
		return Value{}, shapeError("mismatched shapes %s and %s in max", x.shape, y.shape)
	}
	return zipped(x, y, math.Max), nil
}

// Update returns the value of a field after the equation operator op
// has been applied with the current value cur and the right-hand side x.
func Update(op irkind.Op, cur, x Value) (Value, error) {
	switch op {
	case irkind.Assign:
		if cur.shape != x.shape {
			return Value{}, shapeError("cannot assign %s to %s", x.shape, cur.shape)
		}
		return x, nil
	case irkind.Add:
		return Add(cur, x)
	case irkind.Sub:
		return Sub(cur, x)
	case irkind.Mul:
		if cur.shape != x.shape && x.shape.Rank() != 0 {
			return Value{}, shapeError("cannot scale %s by %s", cur.shape, x.shape)
		}
		if x.shape.Rank() != 0 {
			return zipped(cur, x, func(a, b float64) float64 { return a * b }), nil
		}
		return Mul(cur, x)
	case irkind.Div:
		if cur.shape != x.shape && x.shape.Rank() != 0 {
			return Value{}, shapeError("cannot divide %s by %s", cur.shape, x.shape)
		}
		if x.shape.Rank() != 0 {
			return zipped(cur, x, func(a, b float64) float64 { return a / b }), nil
		}
		return Div(cur, x)
	case irkind.Max:
		return Max(cur, x)
	case irkind.Min:
		return Min(cur, x)
	}
	return Value{}, fmterr.Errorf(fmterr.InvalidEnumerator, "invalid %s", op)
}

// UpdateShape checks that an equation operator can update a field of shape target
// with a value of shape value.
func UpdateShape(op irkind.Op, target, value ir.Shape) error {
	switch op {
	case irkind.Mul, irkind.Div:
		if value.Rank() == 0 || value == target {
			return nil
		}
	default:
		if value == target {
			return nil
		}
	}
	return shapeError("cannot apply %s to a field of shape %s with a value of shape %s", op, target, value)
}

// IdentityOf returns the identity element of the reduction of an equation operator
// for a given complete shape: 0 for additions and subtractions, 1 for
// multiplications and divisions, and -inf (resp. +inf) for max (resp. min).
func IdentityOf(op irkind.Op, shape ir.Shape) (Value, error) {
	switch op {
	case irkind.Add, irkind.Sub:
		return Zero(shape)
	case irkind.Mul, irkind.Div:
		return Full(shape, 1)
	case irkind.Max:
		return Full(shape, math.Inf(-1))
	case irkind.Min:
		return Full(shape, math.Inf(1))
	}
	return Value{}, fmterr.Errorf(fmterr.InvalidEnumerator, "%s has no reduction identity", op)
}

// Combine merges two partial reductions of an equation operator.
// Partial subtractions (resp. divisions) accumulate the sum (resp. product)
// of the operands.
func Combine(op irkind.Op, x, y Value) (Value, error) {
	switch op {
	case irkind.Add, irkind.Sub:
		return Add(x, y)
	case irkind.Mul, irkind.Div:
		return Update(irkind.Mul, x, y)
	case irkind.Max:
		return Max(x, y)
	case irkind.Min:
		return Min(x, y)
	}
	return Value{}, fmterr.Errorf(fmterr.InvalidEnumerator, "%s cannot be combined", op)
}
