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

package store

import (
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/backend/shape"
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
	"github.com/gx-org/prtcl/rt/tensor"
	"golang.org/x/exp/constraints"
)

// Number is the Go type of the elements of real and index fields:
// a numeric type that can also be stored in a backend array.
type Number interface {
	dtype.GoDataType
	constraints.Float | constraints.Integer
}

// Tensor stores the values of a field.
// Global and uniform fields store one item.
// Varying fields store one item per particle of their group.
type Tensor interface {
	// Field returns the field stored by the tensor.
	Field() ir.Field
	// ItemShape returns the complete shape of one item.
	ItemShape() ir.Shape
	// Shape returns the shape of the whole tensor.
	// Varying fields have a leading axis for particles.
	Shape() *shape.Shape
	// Len returns the number of items.
	Len() int
	// Load returns the value of an item.
	Load(i int) tensor.Value
	// Store sets the value of an item.
	Store(i int, v tensor.Value) error

	resize(n int)
}

type array[T dtype.GoDataType] struct {
	field     ir.Field
	item      ir.Shape
	data      []T
	toFloat   func(T) float64
	fromFloat func(float64) T
}

func numberToFloat[T Number](x T) float64 { return float64(x) }

func numberFromFloat[T Number](x float64) T { return T(x) }

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func boolFromFloat(x float64) bool { return x != 0 }

func newNumberArray[T Number](f ir.Field, item ir.Shape, n int) *array[T] {
	return &array[T]{
		field:     f,
		item:      item,
		data:      make([]T, n*item.Size()),
		toFloat:   numberToFloat[T],
		fromFloat: numberFromFloat[T],
	}
}

func newTensor(f ir.Field, dims, n int) (Tensor, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	item := f.Shape.Complete(dims)
	switch f.Type.DType() {
	case dtype.Float64:
		return newNumberArray[float64](f, item, n), nil
	case dtype.Int64:
		return newNumberArray[int64](f, item, n), nil
	case dtype.Bool:
		return &array[bool]{
			field:     f,
			item:      item,
			data:      make([]bool, n*item.Size()),
			toFloat:   boolToFloat,
			fromFloat: boolFromFloat,
		}, nil
	}
	return nil, fmterr.Errorf(fmterr.InvalidEnumerator, "cannot store a field of type %s", f.Type)
}

func (a *array[T]) Field() ir.Field { return a.field }

func (a *array[T]) ItemShape() ir.Shape { return a.item }

func (a *array[T]) Shape() *shape.Shape {
	axes := a.item.Extents()
	if a.field.Kind == irkind.Varying {
		axes = append([]int{a.Len()}, axes...)
	}
	return &shape.Shape{DType: dtype.Generic[T](), AxisLengths: axes}
}

func (a *array[T]) Len() int {
	return len(a.data) / a.item.Size()
}

func (a *array[T]) Load(i int) tensor.Value {
	size := a.item.Size()
	data := make([]float64, size)
	for k, x := range a.data[i*size : (i+1)*size] {
		data[k] = a.toFloat(x)
	}
	v, _ := tensor.New(a.item, data)
	return v
}

func (a *array[T]) Store(i int, v tensor.Value) error {
	if v.Shape() != a.item {
		return fmterr.Errorf(fmterr.ShapeError, "cannot store a value of shape %s in field %s of shape %s", v.Shape(), a.field.Name, a.item)
	}
	size := a.item.Size()
	dst := a.data[i*size : (i+1)*size]
	for k, x := range v.Data() {
		dst[k] = a.fromFloat(x)
	}
	return nil
}

func (a *array[T]) resize(n int) {
	size := n * a.item.Size()
	if size <= cap(a.data) {
		prev := len(a.data)
		a.data = a.data[:size]
		if size > prev {
			clear(a.data[prev:])
		}
		return
	}
	data := make([]T, size)
	copy(data, a.data)
	a.data = data
}

// Slice returns the elements of a tensor in row-major order.
// The slice is shared with the tensor.
func Slice[T dtype.GoDataType](t Tensor) ([]T, error) {
	a, ok := t.(*array[T])
	if !ok {
		return nil, fmterr.Errorf(fmterr.FieldKindMismatch, "field %s of type %s cannot be accessed as %s", t.Field().Name, t.Field().Type, dtype.Generic[T]())
	}
	return a.data, nil
}
