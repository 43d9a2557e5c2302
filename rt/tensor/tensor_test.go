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

package tensor_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
	"github.com/gx-org/prtcl/rt/tensor"
)

func matrix(t *testing.T, rows, cols int, data ...float64) tensor.Value {
	v, err := tensor.New(ir.Matrix(rows, cols), data)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestBinary(t *testing.T) {
	m := matrix(t, 2, 2, 1, 2, 3, 4)
	tests := []struct {
		op   irkind.Operator
		x, y tensor.Value
		want tensor.Value
	}{
		{op: irkind.Plus, x: tensor.Vector(1, 2), y: tensor.Vector(3, 4), want: tensor.Vector(4, 6)},
		{op: irkind.Minus, x: tensor.Scalar(1), y: tensor.Scalar(3), want: tensor.Scalar(-2)},
		{op: irkind.Times, x: tensor.Scalar(2), y: tensor.Vector(3, 4), want: tensor.Vector(6, 8)},
		{op: irkind.Times, x: tensor.Vector(3, 4), y: tensor.Scalar(2), want: tensor.Vector(6, 8)},
		{op: irkind.Times, x: m, y: tensor.Vector(1, 1), want: tensor.Vector(3, 7)},
		{op: irkind.Times, x: m, y: tensor.Identity(2), want: m},
		{op: irkind.Times, x: m, y: m, want: matrix(t, 2, 2, 7, 10, 15, 22)},
		{op: irkind.Divide, x: tensor.Vector(2, 4), y: tensor.Scalar(2), want: tensor.Vector(1, 2)},
	}
	for i, test := range tests {
		got, err := tensor.Binary(test.op, test.x, test.y)
		if err != nil {
			t.Errorf("test %d: %v", i, err)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("test %d: %v %s %v: unexpected result (-want +got):\n%s", i, test.x, test.op, test.y, diff)
		}
	}
}

func TestBinaryErrors(t *testing.T) {
	tests := []struct {
		op   irkind.Operator
		x, y tensor.Value
	}{
		{op: irkind.Plus, x: tensor.Vector(1, 2), y: tensor.Scalar(1)},
		{op: irkind.Times, x: tensor.Vector(1, 2), y: tensor.Vector(1, 2)},
		{op: irkind.Times, x: tensor.Identity(3), y: tensor.Vector(1, 2)},
		{op: irkind.Divide, x: tensor.Scalar(1), y: tensor.Vector(1, 2)},
	}
	for i, test := range tests {
		_, err := tensor.Binary(test.op, test.x, test.y)
		if !fmterr.Is(err, fmterr.ShapeError) {
			t.Errorf("test %d: got error %v but want a shape error", i, err)
		}
	}
}

func TestVectorFunctions(t *testing.T) {
	x := tensor.Vector(3, 4)
	dot, err := tensor.Dot(x, tensor.Vector(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if dot != 11 {
		t.Errorf("dot: got %f but want 11", dot)
	}
	norm, err := tensor.Norm(x)
	if err != nil {
		t.Fatal(err)
	}
	if norm != 5 {
		t.Errorf("norm: got %f but want 5", norm)
	}
	n, err := tensor.Normalized(x)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(tensor.Vector(0.6, 0.8), n); diff != "" {
		t.Errorf("normalized: unexpected result (-want +got):\n%s", diff)
	}
	zero := tensor.Vector(0, 0)
	if n, err = tensor.Normalized(zero); err != nil || !n.Equal(zero) {
		t.Errorf("normalized zero vector: got %v, %v", n, err)
	}
	if _, err := tensor.Norm(tensor.Scalar(1)); !fmterr.Is(err, fmterr.ShapeError) {
		t.Errorf("got error %v but want a shape error", err)
	}
	lo, err := tensor.Min(tensor.Vector(1, 5), tensor.Vector(3, 2))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(tensor.Vector(1, 2), lo); diff != "" {
		t.Errorf("min: unexpected result (-want +got):\n%s", diff)
	}
}

func TestReduction(t *testing.T) {
	ops := []irkind.Op{irkind.Add, irkind.Sub, irkind.Mul, irkind.Div, irkind.Max, irkind.Min}
	operands := []float64{2, -1, 4}
	for _, op := range ops {
		// Sequential updates.
		want := tensor.Scalar(3)
		for _, x := range operands {
			var err error
			if want, err = tensor.Update(op, want, tensor.Scalar(x)); err != nil {
				t.Fatal(err)
			}
		}
		// Two partials merged, then applied once.
		var partials []tensor.Value
		for _, xs := range [][]float64{operands[:1], operands[1:]} {
			p, err := tensor.IdentityOf(op, ir.Scalar())
			if err != nil {
				t.Fatal(err)
			}
			for _, x := range xs {
				if p, err = tensor.Combine(op, p, tensor.Scalar(x)); err != nil {
					t.Fatal(err)
				}
			}
			partials = append(partials, p)
		}
		merged, err := tensor.Combine(op, partials[0], partials[1])
		if err != nil {
			t.Fatal(err)
		}
		got, err := tensor.Update(op, tensor.Scalar(3), merged)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got.Float()-want.Float()) > 1e-12 {
			t.Errorf("%s: got %v but want %v", op, got, want)
		}
	}
}

func TestCallShape(t *testing.T) {
	vec := ir.Vector(3)
	tests := []struct {
		f    irkind.Func
		args []ir.Shape
		want ir.Shape
		err  bool
	}{
		{f: irkind.Dot, args: []ir.Shape{vec, vec}, want: ir.Scalar()},
		{f: irkind.KernelGradient, args: []ir.Shape{vec}, want: vec},
		{f: irkind.KernelH, args: []ir.Shape{vec, ir.Scalar()}, want: ir.Scalar()},
		{f: irkind.ZeroVector, want: vec},
		{f: irkind.Identity, want: ir.Matrix(3, 3)},
		{f: irkind.Dot, args: []ir.Shape{vec}, err: true},
		{f: irkind.Kernel, args: []ir.Shape{ir.Scalar()}, err: true},
		{f: irkind.MaxFunc, args: []ir.Shape{vec, ir.Scalar()}, err: true},
	}
	for _, test := range tests {
		got, err := tensor.CallShape(test.f, 3, test.args...)
		if test.err {
			if !fmterr.Is(err, fmterr.ShapeError) {
				t.Errorf("%s%v: got error %v but want a shape error", test.f, test.args, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s%v: %v", test.f, test.args, err)
			continue
		}
		if got != test.want {
			t.Errorf("%s%v: got shape %s but want %s", test.f, test.args, got, test.want)
		}
	}
}
