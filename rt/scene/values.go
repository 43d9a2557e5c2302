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

package scene

import (
	"maps"
	"slices"

	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

func sortedNames(attrs hcl.Attributes) []string {
	return slices.Sorted(maps.Keys(attrs))
}

// flatten returns the numbers of a value in row-major order.
// The value is a number, a boolean, or a (nested) list or tuple of those.
func flatten(val cty.Value) ([]float64, error) {
	if val.IsNull() || !val.IsWhollyKnown() {
		return nil, fmterr.Errorf(fmterr.ShapeError, "unknown or null value")
	}
	typ := val.Type()
	switch {
	case typ == cty.Number:
		var x float64
		if err := gocty.FromCtyValue(val, &x); err != nil {
			return nil, err
		}
		return []float64{x}, nil
	case typ == cty.Bool:
		if val.True() {
			return []float64{1}, nil
		}
		return []float64{0}, nil
	case typ.IsListType() || typ.IsTupleType() || typ.IsSetType():
		var all []float64
		for it := val.ElementIterator(); it.Next(); {
			_, el := it.Element()
			xs, err := flatten(el)
			if err != nil {
				return nil, err
			}
			all = append(all, xs...)
		}
		return all, nil
	}
	return nil, fmterr.Errorf(fmterr.ShapeError, "cannot convert a value of type %s to numbers", typ.FriendlyName())
}
