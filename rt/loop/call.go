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

package loop

import (
	"math"

	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
	"github.com/gx-org/prtcl/rt/tensor"
)

func scalarOf(x float64, err error) (tensor.Value, error) {
	if err != nil {
		return tensor.Value{}, err
	}
	return tensor.Scalar(x), nil
}

func countOf(n int, err error) (tensor.Value, error) {
	return scalarOf(float64(n), err)
}

func (fr *Frame) checkArity(f irkind.Func, args []tensor.Value) error {
	if want := f.Arity(); want < 0 {
		return fmterr.Errorf(fmterr.InvalidEnumerator, "invalid %s", f)
	} else if len(args) != want {
		return fmterr.Errorf(fmterr.ShapeError, "%s expects %d arguments but got %d", f, want, len(args))
	}
	return nil
}

// Call a builtin function in the current frame.
// Kernel functions without an explicit smoothing scale read the smoothing
// scale global field.
func (fr *Frame) Call(f irkind.Func, args ...tensor.Value) (tensor.Value, error) {
	if err := fr.checkArity(f, args); err != nil {
		return tensor.Value{}, err
	}
	switch f {
	case irkind.Dot:
		return scalarOf(tensor.Dot(args[0], args[1]))
	case irkind.Norm:
		return scalarOf(tensor.Norm(args[0]))
	case irkind.NormSquared:
		return scalarOf(tensor.NormSquared(args[0]))
	case irkind.Normalized:
		return tensor.Normalized(args[0])
	case irkind.MinFunc:
		return tensor.Min(args[0], args[1])
	case irkind.MaxFunc:
		return tensor.Max(args[0], args[1])
	case irkind.Kernel:
		h, err := fr.SmoothingScale()
		if err != nil {
			return tensor.Value{}, err
		}
		return scalarOf(fr.kernel.Eval(args[0], h))
	case irkind.KernelGradient:
		h, err := fr.SmoothingScale()
		if err != nil {
			return tensor.Value{}, err
		}
		return fr.kernel.Gradient(args[0], h)
	case irkind.KernelH:
		return scalarOf(fr.kernel.Eval(args[0], args[1].Float()))
	case irkind.KernelGradientH:
		return fr.kernel.Gradient(args[0], args[1].Float())
	case irkind.ParticleCount:
		return countOf(fr.ParticleCount())
	case irkind.NeighbourCount:
		return countOf(fr.NeighbourCount())
	case irkind.ZeroVector:
		return tensor.Zero(ir.Vector(fr.model.Dims()))
	case irkind.Identity:
		return tensor.Identity(fr.model.Dims()), nil
	case irkind.NegativeInfinity:
		return tensor.Scalar(math.Inf(-1)), nil
	case irkind.PositiveInfinity:
		return tensor.Scalar(math.Inf(1)), nil
	}
	return tensor.Value{}, fmterr.Errorf(fmterr.InvalidEnumerator, "invalid %s", f)
}
