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

// Package irkind defines the enumerations of the scheme intermediate representation (IR).
//
// Every enumeration can be converted to its name and back.
// Converting a value outside of the enumeration fails with an InvalidEnumerator error.
package irkind

import (
	"fmt"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/prtcl/build/fmterr"
)

func nameOf[E ~uint8](what string, names []string, e E) (string, error) {
	if int(e) >= len(names) {
		return "", fmterr.Errorf(fmterr.InvalidEnumerator, "%d is not a valid %s", int(e), what)
	}
	return names[e], nil
}

func fromName[E ~uint8](what string, names []string, name string) (E, error) {
	for i, n := range names {
		if n == name {
			return E(i), nil
		}
	}
	return 0, fmterr.Errorf(fmterr.InvalidEnumerator, "%q is not a valid %s", name, what)
}

func stringOf[E ~uint8](what string, names []string, e E) string {
	s, err := nameOf(what, names, e)
	if err != nil {
		return fmt.Sprintf("%s(%d)", what, int(e))
	}
	return s
}

// Kind of a field: where its values are stored.
type Kind uint8

// Field kinds.
const (
	// Global fields have a single value shared by all particles.
	Global Kind = iota
	// Uniform fields have one value per particle group.
	Uniform
	// Varying fields have one value per particle.
	Varying
)

var kindNames = []string{"global", "uniform", "varying"}

// Name returns the name of the kind.
func (k Kind) Name() (string, error) { return nameOf("field kind", kindNames, k) }

// String representation of the kind.
func (k Kind) String() string { return stringOf("field kind", kindNames, k) }

// Letter returns the letter used in field declaration suffixes.
func (k Kind) Letter() byte { return "guv"[k%3] }

// KindFromName returns the kind given its name.
func KindFromName(name string) (Kind, error) { return fromName[Kind]("field kind", kindNames, name) }

// Kinds returns all the field kinds.
func Kinds() []Kind { return []Kind{Global, Uniform, Varying} }

// Type of the elements of a field.
type Type uint8

// Field element types.
const (
	Real Type = iota
	Index
	Boolean
)

var typeNames = []string{"real", "index", "boolean"}

// Name returns the name of the type.
func (t Type) Name() (string, error) { return nameOf("field type", typeNames, t) }

// String representation of the type.
func (t Type) String() string { return stringOf("field type", typeNames, t) }

// Letter returns the letter used in field declaration suffixes.
func (t Type) Letter() byte { return "rib"[t%3] }

// DType returns the data type used to store values of the type.
func (t Type) DType() dtype.DataType {
	switch t {
	case Real:
		return dtype.Float64
	case Index:
		return dtype.Int64
	case Boolean:
		return dtype.Bool
	}
	return dtype.Invalid
}

// TypeFromName returns the type given its name.
func TypeFromName(name string) (Type, error) { return fromName[Type]("field type", typeNames, name) }

// Types returns all the field types.
func Types() []Type { return []Type{Real, Index, Boolean} }

// Op is the operator of an equation.
type Op uint8

// Equation operators.
const (
	Assign Op = iota
	Add
	Sub
	Mul
	Div
	Max
	Min
)

var (
	opNames  = []string{"assign", "add", "sub", "mul", "div", "max", "min"}
	opTokens = []string{"=", "+=", "-=", "*=", "/=", "max=", "min="}
)

// Name returns the name of the operator.
func (op Op) Name() (string, error) { return nameOf("equation operator", opNames, op) }

// String representation of the operator.
func (op Op) String() string { return stringOf("equation operator", opNames, op) }

// Token returns the token of the operator in the textual grammar.
func (op Op) Token() (string, error) { return nameOf("equation operator", opTokens, op) }

// OpFromName returns an operator given its name.
func OpFromName(name string) (Op, error) { return fromName[Op]("equation operator", opNames, name) }

// OpFromToken returns an operator given its token in the textual grammar.
func OpFromToken(tok string) (Op, error) {
	return fromName[Op]("equation operator", opTokens, tok)
}

// Ops returns all the equation operators.
func Ops() []Op { return []Op{Assign, Add, Sub, Mul, Div, Max, Min} }

// Role of the particle through which a field is accessed.
type Role uint8

// Index roles.
const (
	// Active is the particle being updated by a particle loop.
	Active Role = iota
	// Neighbor is the particle visited by a neighbor loop.
	Neighbor
)

var (
	roleNames   = []string{"active", "neighbor"}
	roleIndices = []string{"i", "j"}
)

// Name returns the name of the role.
func (r Role) Name() (string, error) { return nameOf("index role", roleNames, r) }

// String representation of the role.
func (r Role) String() string { return stringOf("index role", roleNames, r) }

// Index returns the index variable of the role in the textual grammar.
func (r Role) Index() (string, error) { return nameOf("index role", roleIndices, r) }

// RoleFromName returns a role given its name.
func RoleFromName(name string) (Role, error) { return fromName[Role]("index role", roleNames, name) }

// RoleFromIndex returns a role given its index variable.
func RoleFromIndex(index string) (Role, error) {
	return fromName[Role]("index role", roleIndices, index)
}

// Operator is an arithmetic operator of an expression.
type Operator uint8

// Arithmetic operators.
const (
	Plus Operator = iota
	Minus
	Times
	Divide
)

var operatorSymbols = []string{"+", "-", "*", "/"}

// Name returns the symbol of the operator.
func (op Operator) Name() (string, error) {
	return nameOf("arithmetic operator", operatorSymbols, op)
}

// String representation of the operator.
func (op Operator) String() string { return stringOf("arithmetic operator", operatorSymbols, op) }

// Precedence of the operator when printed.
func (op Operator) Precedence() int {
	switch op {
	case Times, Divide:
		return 2
	}
	return 1
}

// OperatorFromName returns an operator given its symbol.
func OperatorFromName(sym string) (Operator, error) {
	return fromName[Operator]("arithmetic operator", operatorSymbols, sym)
}

// Func is a function that can be called in an expression.
type Func uint8

// Functions.
const (
	Dot Func = iota
	Norm
	NormSquared
	Normalized
	MinFunc
	MaxFunc
	Kernel
	KernelGradient
	KernelH
	KernelGradientH
	ParticleCount
	NeighbourCount
	ZeroVector
	Identity
	NegativeInfinity
	PositiveInfinity
)

var (
	funcNames = []string{
		"dot", "norm", "norm_squared", "normalized", "min", "max",
		"kernel", "kernel_gradient", "kernel_h", "kernel_gradient_h",
		"particle_count", "neighbour_count",
		"zero_vector", "identity", "negative_infinity", "positive_infinity",
	}
	funcArities = []int{
		2, 1, 1, 1, 2, 2,
		1, 1, 2, 2,
		0, 0,
		0, 0, 0, 0,
	}
)

// Name returns the name of the function.
func (f Func) Name() (string, error) { return nameOf("function", funcNames, f) }

// String representation of the function.
func (f Func) String() string { return stringOf("function", funcNames, f) }

// Arity returns the number of arguments of the function.
func (f Func) Arity() int {
	if int(f) >= len(funcArities) {
		return -1
	}
	return funcArities[f]
}

// UsesSmoothingScale returns true if the function reads the global smoothing scale.
func (f Func) UsesSmoothingScale() bool {
	return f == Kernel || f == KernelGradient
}

// FuncFromName returns a function given its name.
func FuncFromName(name string) (Func, error) { return fromName[Func]("function", funcNames, name) }

// ParseSuffix parses a field declaration suffix, for example vrv for a
// varying real vector. It returns the kind, the type and the rank of the field.
func ParseSuffix(suffix string) (Kind, Type, int, error) {
	if len(suffix) != 3 {
		return 0, 0, 0, fmterr.Errorf(fmterr.InvalidEnumerator, "invalid field suffix %q: want 3 letters", suffix)
	}
	var kind Kind
	switch suffix[0] {
	case 'g':
		kind = Global
	case 'u':
		kind = Uniform
	case 'v':
		kind = Varying
	default:
		return 0, 0, 0, fmterr.Errorf(fmterr.InvalidEnumerator, "invalid field kind %q in suffix %q", suffix[0], suffix)
	}
	var typ Type
	switch suffix[1] {
	case 'r':
		typ = Real
	case 'i':
		typ = Index
	case 'b':
		typ = Boolean
	default:
		return 0, 0, 0, fmterr.Errorf(fmterr.InvalidEnumerator, "invalid field type %q in suffix %q", suffix[1], suffix)
	}
	var rank int
	switch suffix[2] {
	case 's':
		rank = 0
	case 'v':
		rank = 1
	case 'm':
		rank = 2
	default:
		return 0, 0, 0, fmterr.Errorf(fmterr.InvalidEnumerator, "invalid field rank %q in suffix %q", suffix[2], suffix)
	}
	return kind, typ, rank, nil
}

// Suffix returns the field declaration suffix of a kind, a type and a rank.
func Suffix(kind Kind, typ Type, rank int) (string, error) {
	if _, err := kind.Name(); err != nil {
		return "", err
	}
	if _, err := typ.Name(); err != nil {
		return "", err
	}
	if rank < 0 || rank > 2 {
		return "", fmterr.Errorf(fmterr.ShapeError, "invalid rank %d: rank must be between 0 and 2", rank)
	}
	return string([]byte{kind.Letter(), typ.Letter(), "svm"[rank]}), nil
}
