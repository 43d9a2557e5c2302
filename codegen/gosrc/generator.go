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

package gosrc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gx-org/prtcl/base/ordered"
	"github.com/gx-org/prtcl/base/uname"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
	"github.com/gx-org/prtcl/codegen/lower"
)

// value is the source computing an expression into a variable.
type value struct {
	code []string
	name string
}

type generator struct {
	typ        string
	names      *uname.Unique
	fields     *ordered.Map[ir.Field, string]
	procs      []*procedure
	reductions int
}

var _ lower.Backend[string, value] = (*generator)(nil)

const checkErr = "if err != nil {\nreturn err\n}"

func block(stmts []string) string {
	return strings.Join(stmts, "\n")
}

func (g *generator) Scheme(name string, decls, procs []string) (string, error) {
	return "", nil
}

func (g *generator) Procedure(name string, body []string) (string, error) {
	g.procs = append(g.procs, &procedure{
		Type:   g.typ,
		Name:   name,
		Method: exported(name),
		Body:   block(body),
	})
	return "", nil
}

func (g *generator) Global(fields []ir.Field) (string, error) {
	return "", nil
}

func (g *generator) Groups(groupType string, fields []ir.Field) (string, error) {
	return "", nil
}

func (g *generator) loop(method string, body []string) string {
	return "if err := fr." + method + "(func(fr *loop.Frame) error {\n" +
		block(body) +
		"\nreturn nil\n}); err != nil {\nreturn err\n}"
}

func (g *generator) ForeachParticle(scope lower.Scope, body []string) (string, error) {
	return g.loop("ForeachParticle", body), nil
}

func (g *generator) ForeachNeighbor(scope lower.Scope, body []string) (string, error) {
	return g.loop("ForeachNeighbor", body), nil
}

func roleSource(role irkind.Role) string {
	if role == irkind.Neighbor {
		return "irkind.Neighbor"
	}
	return "irkind.Active"
}

func (g *generator) IfGroupType(scope lower.Scope, groupType string, then, els []string) (string, error) {
	role := irkind.Active
	if scope.Loop == lower.NeighborLoop {
		role = irkind.Neighbor
	}
	ok := g.names.Name("is" + exported(groupType))
	s := fmt.Sprintf("{\n%s, err := fr.IsGroupType(%s, %q)\n%s\nif %s {\n%s\n}", ok, roleSource(role), groupType, checkErr, ok, block(then))
	if len(els) > 0 {
		s += " else {\n" + block(els) + "\n}"
	}
	return s + "\n}", nil
}

// field returns the name of the variable declaring a field.
func (g *generator) field(f ir.Field) string {
	name, _ := g.fields.LoadOrStore(f, func() string {
		return g.names.Name("field" + exported(f.Name))
	})
	return name
}

func opSource(op irkind.Op) string {
	return "irkind." + exported(op.String())
}

func (g *generator) Equation(info lower.EquationInfo, _, val value) (string, error) {
	ref := info.Equation.Target
	f := g.field(info.Target)
	var call string
	if info.Reduction {
		call = fmt.Sprintf("fr.Reduce(%d, %s, %s, %s, %s)", g.reductions, opSource(info.Equation.Op), f, roleSource(ref.Role), val.name)
		g.reductions++
	} else {
		call = fmt.Sprintf("fr.Update(%s, %s, %s, %s)", opSource(info.Equation.Op), f, roleSource(ref.Role), val.name)
	}
	code := append([]string{"{", "// " + ref.String() + " " + info.Equation.Op.String() + " " + info.Equation.Value.String()}, val.code...)
	code = append(code, "if err := "+call+"; err != nil {\nreturn err\n}", "}")
	return block(code), nil
}

func (g *generator) assign(code []string, format string, a ...any) value {
	name := g.names.Name("v")
	return value{
		code: append(code, name+" := "+fmt.Sprintf(format, a...)),
		name: name,
	}
}

func (g *generator) assignErr(code []string, format string, a ...any) value {
	name := g.names.Name("v")
	return value{
		code: append(code, name+", err := "+fmt.Sprintf(format, a...), checkErr),
		name: name,
	}
}

func (g *generator) FieldRef(info lower.ExprInfo, ref *ir.FieldRef) (value, error) {
	f := ref.Field
	f.Shape = info.Shape
	return g.assignErr(nil, "fr.Load(%s, %s)", g.field(f), roleSource(ref.Role)), nil
}

func (g *generator) Literal(info lower.ExprInfo, lit *ir.Literal) (value, error) {
	return g.assign(nil, "tensor.Scalar(%s)", strconv.FormatFloat(lit.Value, 'g', -1, 64)), nil
}

func (g *generator) Unary(info lower.ExprInfo, op irkind.Operator, x value) (value, error) {
	return g.assign(x.code, "tensor.Neg(%s)", x.name), nil
}

var operatorNames = map[irkind.Operator]string{
	irkind.Plus:   "irkind.Plus",
	irkind.Minus:  "irkind.Minus",
	irkind.Times:  "irkind.Times",
	irkind.Divide: "irkind.Divide",
}

func (g *generator) Binary(info lower.ExprInfo, op irkind.Operator, x, y value) (value, error) {
	code := append(append([]string{}, x.code...), y.code...)
	return g.assignErr(code, "tensor.Binary(%s, %s, %s)", operatorNames[op], x.name, y.name), nil
}

func (g *generator) Call(info lower.ExprInfo, f irkind.Func, args []value) (value, error) {
	var code []string
	call := []string{"irkind." + funcNames[f]}
	for _, arg := range args {
		code = append(code, arg.code...)
		call = append(call, arg.name)
	}
	return g.assignErr(code, "fr.Call(%s)", strings.Join(call, ", ")), nil
}

var funcNames = map[irkind.Func]string{
	irkind.Dot:              "Dot",
	irkind.Norm:             "Norm",
	irkind.NormSquared:      "NormSquared",
	irkind.Normalized:       "Normalized",
	irkind.MinFunc:          "MinFunc",
	irkind.MaxFunc:          "MaxFunc",
	irkind.Kernel:           "Kernel",
	irkind.KernelGradient:   "KernelGradient",
	irkind.KernelH:          "KernelH",
	irkind.KernelGradientH:  "KernelGradientH",
	irkind.ParticleCount:    "ParticleCount",
	irkind.NeighbourCount:   "NeighbourCount",
	irkind.ZeroVector:       "ZeroVector",
	irkind.Identity:         "Identity",
	irkind.NegativeInfinity: "NegativeInfinity",
	irkind.PositiveInfinity: "PositiveInfinity",
}
