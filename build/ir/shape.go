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

package ir

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/gx-org/prtcl/build/fmterr"
)

// MaxRank is the maximum rank of a field.
const MaxRank = 2

// Shape of the value of a field for one particle.
//
// An extent of zero stands for the spatial dimensionality of the simulation.
// Shapes are comparable and can be used as map keys.
type Shape struct {
	rank    int
	extents [MaxRank]int
}

// NewShape returns a shape given the list of its extents.
func NewShape(extents ...int) (Shape, error) {
	if len(extents) > MaxRank {
		return Shape{}, fmterr.Errorf(fmterr.ShapeError, "rank %d exceeds the maximum rank %d", len(extents), MaxRank)
	}
	s := Shape{rank: len(extents)}
	for i, ext := range extents {
		if ext < 0 {
			return Shape{}, fmterr.Errorf(fmterr.ShapeError, "invalid negative extent %d in %v", ext, extents)
		}
		s.extents[i] = ext
	}
	return s, nil
}

// Scalar returns the shape of a scalar.
func Scalar() Shape {
	return Shape{}
}

// Vector returns the shape of a vector with n components.
// Use 0 for the spatial dimensionality.
func Vector(n int) Shape {
	return Shape{rank: 1, extents: [MaxRank]int{n}}
}

// Matrix returns the shape of a n x m matrix.
// Use 0 for the spatial dimensionality.
func Matrix(n, m int) Shape {
	return Shape{rank: 2, extents: [MaxRank]int{n, m}}
}

// ShapeOfRank returns a shape of a given rank where all extents are the spatial dimensionality.
func ShapeOfRank(rank int) (Shape, error) {
	return NewShape(make([]int, rank)...)
}

// Rank returns the number of axes.
func (s Shape) Rank() int {
	return s.rank
}

// Extents returns a copy of the extents of the shape.
func (s Shape) Extents() []int {
	return append([]int{}, s.extents[:s.rank]...)
}

// Extent returns the extent of an axis.
func (s Shape) Extent(axis int) int {
	return s.extents[axis]
}

// IsComplete returns true if no extent refers to the spatial dimensionality.
func (s Shape) IsComplete() bool {
	for _, ext := range s.extents[:s.rank] {
		if ext == 0 {
			return false
		}
	}
	return true
}

// Complete returns a shape where all zero extents have been replaced by dims.
func (s Shape) Complete(dims int) Shape {
	for i := range s.rank {
		if s.extents[i] == 0 {
			s.extents[i] = dims
		}
	}
	return s
}

// Size returns the number of components of a complete shape.
func (s Shape) Size() int {
	size := 1
	for _, ext := range s.extents[:s.rank] {
		size *= ext
	}
	return size
}

// Compare two shapes first by rank, then by extents.
func (s Shape) Compare(other Shape) int {
	if c := cmp.Compare(s.rank, other.rank); c != 0 {
		return c
	}
	for i := range s.rank {
		if c := cmp.Compare(s.extents[i], other.extents[i]); c != 0 {
			return c
		}
	}
	return 0
}

// String representation of the shape. D denotes the spatial dimensionality.
func (s Shape) String() string {
	exts := make([]string, s.rank)
	for i, ext := range s.extents[:s.rank] {
		if ext == 0 {
			exts[i] = "D"
		} else {
			exts[i] = strconv.Itoa(ext)
		}
	}
	return fmt.Sprintf("[%s]", strings.Join(exts, ","))
}

// Equal returns true if both shapes are the same.
func (s Shape) Equal(other Shape) bool {
	return s == other
}
