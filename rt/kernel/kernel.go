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

// Package kernel implements SPH smoothing kernels.
package kernel

import (
	"math"

	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/rt/tensor"
)

// Kernel is a smoothing kernel evaluated on the difference vector
// between two particle positions.
type Kernel interface {
	// Name of the kernel.
	Name() string
	// Dims returns the spatial dimensionality of the kernel.
	Dims() int
	// SupportRadius returns the radius beyond which the kernel is zero.
	SupportRadius(h float64) float64
	// Eval evaluates the kernel.
	Eval(v tensor.Value, h float64) (float64, error)
	// Gradient evaluates the gradient of the kernel.
	Gradient(v tensor.Value, h float64) (tensor.Value, error)
}

// CubicSpline is the cubic spline kernel with a normalized support radius of 2
// (Monaghan 1992, Smoothed Particle Hydrodynamics).
type CubicSpline struct {
	dims  int
	alpha float64
}

var _ Kernel = (*CubicSpline)(nil)

// NewCubicSpline returns a cubic spline kernel in 1, 2, or 3 dimensions.
func NewCubicSpline(dims int) (*CubicSpline, error) {
	var alpha float64
	switch dims {
	case 1:
		alpha = 1.0 / 6.0
	case 2:
		alpha = 5.0 / (14.0 * math.Pi)
	case 3:
		alpha = 1.0 / (4.0 * math.Pi)
	default:
		return nil, fmterr.Errorf(fmterr.ShapeError, "cubic spline kernel not implemented in %d dimensions", dims)
	}
	return &CubicSpline{dims: dims, alpha: alpha}, nil
}

// Name of the kernel.
func (k *CubicSpline) Name() string { return "Cubic Spline" }

// Dims returns the spatial dimensionality of the kernel.
func (k *CubicSpline) Dims() int { return k.dims }

// SupportRadius returns 2h.
func (k *CubicSpline) SupportRadius(h float64) float64 { return 2 * h }

func (k *CubicSpline) evalq(q float64) float64 {
	var r float64
	if q < 1 {
		r -= 4 * math.Pow(1-q, 3)
	}
	if q < 2 {
		r += math.Pow(2-q, 3)
	}
	return k.alpha * r
}

func (k *CubicSpline) evaldq(q float64) float64 {
	var r float64
	if q < 1 {
		r += 12 * math.Pow(1-q, 2)
	}
	if q < 2 {
		r -= 3 * math.Pow(2-q, 2)
	}
	return k.alpha * r
}

func (k *CubicSpline) evaldr(r, h float64) float64 {
	return -math.Copysign(k.evaldq(math.Abs(r)/h)/math.Pow(h, float64(k.dims+1)), r)
}

func (k *CubicSpline) checkVector(v tensor.Value) error {
	if v.Shape().Rank() != 1 || v.Shape().Extent(0) != k.dims {
		return fmterr.Errorf(fmterr.ShapeError, "%dD kernel evaluated on a value of shape %s", k.dims, v.Shape())
	}
	return nil
}

// Eval evaluates the kernel on a vector for a smoothing scale h.
func (k *CubicSpline) Eval(v tensor.Value, h float64) (float64, error) {
	if err := k.checkVector(v); err != nil {
		return 0, err
	}
	r, err := tensor.Norm(v)
	if err != nil {
		return 0, err
	}
	return k.evalq(math.Abs(r)/h) / math.Pow(h, float64(k.dims)), nil
}

// Gradient evaluates the gradient of the kernel on a vector for a smoothing scale h.
// The gradient is zero for vectors shorter than the machine epsilon.
func (k *CubicSpline) Gradient(v tensor.Value, h float64) (tensor.Value, error) {
	if err := k.checkVector(v); err != nil {
		return tensor.Value{}, err
	}
	r, err := tensor.Norm(v)
	if err != nil {
		return tensor.Value{}, err
	}
	if r < epsilon {
		return tensor.Zero(v.Shape())
	}
	return tensor.Mul(tensor.Scalar(k.evaldr(r, h)/r), v)
}

const epsilon = 0x1p-52
