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

package kernel_test

import (
	"math"
	"testing"

	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/rt/kernel"
	"github.com/gx-org/prtcl/rt/tensor"
)

func newKernel(t *testing.T, dims int) *kernel.CubicSpline {
	k, err := kernel.NewCubicSpline(dims)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func full(t *testing.T, dims int, x float64) tensor.Value {
	v, err := tensor.Full(ir.Vector(dims), x)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func eval(t *testing.T, k kernel.Kernel, v tensor.Value, h float64) float64 {
	w, err := k.Eval(v, h)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestCubicSpline(t *testing.T) {
	const h = 1
	var atZero []float64
	for dims := 1; dims <= 3; dims++ {
		k := newKernel(t, dims)
		if got := k.SupportRadius(h); got != 2 {
			t.Errorf("%dD: support radius %f but want 2", dims, got)
		}
		w0 := eval(t, k, full(t, dims, 0), h)
		atZero = append(atZero, w0)
		wp := eval(t, k, full(t, dims, 1), h)
		wn := eval(t, k, full(t, dims, -1), h)
		if wp >= w0 {
			t.Errorf("%dD: W(1) = %f should be smaller than W(0) = %f", dims, wp, w0)
		}
		if wp != wn {
			t.Errorf("%dD: W(1) = %f and W(-1) = %f should be equal", dims, wp, wn)
		}
		if got := eval(t, k, full(t, dims, 3), h); got != 0 {
			t.Errorf("%dD: W outside of the support is %f but want 0", dims, got)
		}
		grad, err := k.Gradient(full(t, dims, 0), h)
		if err != nil {
			t.Fatal(err)
		}
		if n, _ := tensor.Norm(grad); n != 0 {
			t.Errorf("%dD: gradient at zero has norm %f but want 0", dims, n)
		}
		// The gradient points towards the origin.
		v := full(t, dims, 0.5)
		grad, err = k.Gradient(v, h)
		if err != nil {
			t.Fatal(err)
		}
		if dot, _ := tensor.Dot(grad, v); dot >= 0 {
			t.Errorf("%dD: gradient %v does not point towards the origin", dims, grad)
		}
	}
	if !(atZero[0] > atZero[1] && atZero[1] > atZero[2]) {
		t.Errorf("W(0) should decrease with the dimensionality but got %v", atZero)
	}
}

func TestCubicSplineValues(t *testing.T) {
	k := newKernel(t, 1)
	// alpha (2^3 - 4) / h with alpha = 1/6.
	if got, want := eval(t, k, tensor.Vector(0), 2), 4.0/6.0/2.0; math.Abs(got-want) > 1e-15 {
		t.Errorf("W(0) = %f but want %f", got, want)
	}
	// Numerical derivative.
	const h, r, eps = 1.0, 0.7, 1e-6
	grad, err := k.Gradient(tensor.Vector(r), h)
	if err != nil {
		t.Fatal(err)
	}
	want := (eval(t, k, tensor.Vector(r+eps), h) - eval(t, k, tensor.Vector(r-eps), h)) / (2 * eps)
	if math.Abs(grad.Float()-want) > 1e-6 {
		t.Errorf("gradient %f but want %f", grad.Float(), want)
	}
}

func TestCubicSplineErrors(t *testing.T) {
	if _, err := kernel.NewCubicSpline(4); !fmterr.Is(err, fmterr.ShapeError) {
		t.Errorf("got error %v but want a shape error", err)
	}
	k := newKernel(t, 2)
	if _, err := k.Eval(tensor.Vector(1, 2, 3), 1); !fmterr.Is(err, fmterr.ShapeError) {
		t.Errorf("got error %v but want a shape error", err)
	}
}
