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

// Package latex renders schemes as LaTeX documentation.
//
// The output uses environments and macros prefixed by Prtcl that documents
// are expected to define, for example:
//
//	\newenvironment{PrtclProcedure}[1]{\paragraph{#1}}{}
//	\newcommand{\PrtclVaryingFieldRealVector}[1]{\mathbf{#1}}
package latex

import (
	"strings"

	pfmt "github.com/gx-org/prtcl/base/fmt"
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
	"github.com/gx-org/prtcl/build/resolver"
	"github.com/gx-org/prtcl/codegen/lower"
)

const indent = "  "

var escaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	"_", `\_`,
	"&", `\&`,
	"%", `\%`,
	"$", `\$`,
	"#", `\#`,
	"{", `\{`,
	"}", `\}`,
)

// Render a scheme in LaTeX.
// Requirements are resolved from the scheme if reqs is nil.
// The output only depends on the scheme and the requirements.
func Render(scheme *ir.Scheme, reqs *resolver.FieldRequirements) (string, error) {
	if reqs == nil {
		var err error
		if reqs, err = resolver.Resolve(scheme); err != nil {
			return "", err
		}
	}
	return lower.Lower[string, string](scheme, reqs, 0, renderer{reqs: reqs})
}

type renderer struct {
	reqs *resolver.FieldRequirements
}

var _ lower.Backend[string, string] = renderer{}

func env(name, arg string, body ...string) string {
	var s strings.Builder
	s.WriteString(`\begin{` + name + "}")
	if arg != "" {
		s.WriteString("{" + escaper.Replace(arg) + "}")
	}
	s.WriteString("\n")
	for _, b := range body {
		s.WriteString(pfmt.IndentWith(indent, b))
	}
	s.WriteString(`\end{` + name + "}\n")
	return s.String()
}

func (r renderer) requirements() []string {
	var blocks []string
	if globals := r.reqs.GlobalFields(); len(globals) > 0 {
		blocks = append(blocks, env("PrtclRequirements", "global", fieldLines(globals)...))
	}
	if all := r.reqs.FieldsOf(ir.AllGroupTypes); len(all) > 0 {
		blocks = append(blocks, env("PrtclRequirements", ir.AllGroupTypes, fieldLines(all)...))
	}
	for _, gt := range r.reqs.GroupTypes() {
		blocks = append(blocks, env("PrtclRequirements", gt, fieldLines(r.reqs.FieldsOf(gt))...))
	}
	return blocks
}

func (r renderer) Scheme(name string, decls, procs []string) (string, error) {
	body := append(r.requirements(), decls...)
	return env("PrtclScheme", name, append(body, procs...)...), nil
}

func (r renderer) Procedure(name string, body []string) (string, error) {
	return env("PrtclProcedure", name, body...), nil
}

func fieldLines(fields []ir.Field) []string {
	lines := make([]string, len(fields))
	for i, f := range fields {
		lines[i] = fieldMacro(f) + "\n"
	}
	return lines
}

func (r renderer) Global(fields []ir.Field) (string, error) {
	return env("PrtclGlobal", "", fieldLines(fields)...), nil
}

func (r renderer) Groups(groupType string, fields []ir.Field) (string, error) {
	return env("PrtclGroups", groupType, fieldLines(fields)...), nil
}

func (r renderer) ForeachParticle(scope lower.Scope, body []string) (string, error) {
	return env("PrtclForeachParticle", "", body...), nil
}

func (r renderer) ForeachNeighbor(scope lower.Scope, body []string) (string, error) {
	return env("PrtclForeachNeighbor", "", body...), nil
}

func (r renderer) IfGroupType(scope lower.Scope, groupType string, then, els []string) (string, error) {
	s := env("PrtclIfGroupType", groupType, then...)
	if len(els) > 0 {
		s += env("PrtclElse", "", els...)
	}
	return s, nil
}

var opSymbols = map[irkind.Op]string{
	irkind.Assign: "=",
	irkind.Add:    `\mathrel{+}=`,
	irkind.Sub:    `\mathrel{-}=`,
	irkind.Mul:    `\mathrel{\cdot}=`,
	irkind.Div:    `\mathrel{/}=`,
	irkind.Max:    `\mathrel{\max}=`,
	irkind.Min:    `\mathrel{\min}=`,
}

func (r renderer) Equation(info lower.EquationInfo, target, value string) (string, error) {
	op, ok := opSymbols[info.Equation.Op]
	if !ok {
		return "", fmterr.Errorf(fmterr.InvalidEnumerator, "invalid %s", info.Equation.Op)
	}
	name := "PrtclEquation"
	if info.Reduction {
		name = "PrtclReduction"
	}
	return env(name, "", target+" "+op+" "+value+"\n"), nil
}

var (
	kindNames = []string{"Global", "Uniform", "Varying"}
	typeNames = []string{"Real", "Integer", "Boolean"}
	rankNames = []string{"Scalar", "Vector", "Matrix"}
)

func fieldMacro(f ir.Field) string {
	rank := "Block"
	if r := f.Shape.Rank(); r < len(rankNames) {
		rank = rankNames[r]
	}
	return `\Prtcl` + kindNames[f.Kind%3] + "Field" + typeNames[f.Type%3] + rank + "{" + escaper.Replace(f.Name) + "}"
}

func (r renderer) FieldRef(info lower.ExprInfo, ref *ir.FieldRef) (string, error) {
	s := fieldMacro(ref.Field)
	if ref.Field.Kind == irkind.Global {
		return s, nil
	}
	index, err := ref.Role.Index()
	if err != nil {
		return "", err
	}
	return "{" + s + "}_" + index, nil
}

func (r renderer) Literal(info lower.ExprInfo, lit *ir.Literal) (string, error) {
	switch lit.Type {
	case irkind.Boolean:
		if lit.Value != 0 {
			return `\top`, nil
		}
		return `\bot`, nil
	}
	return lit.String(), nil
}

func paren(s string) string {
	return `\left( ` + s + ` \right)`
}

func (r renderer) Unary(info lower.ExprInfo, op irkind.Operator, x string) (string, error) {
	if u, ok := info.Expr.(*ir.Unary); ok {
		if _, ok := u.X.(*ir.Binary); ok {
			x = paren(x)
		}
	}
	return op.String() + x, nil
}

func (r renderer) Binary(info lower.ExprInfo, op irkind.Operator, x, y string) (string, error) {
	if op == irkind.Divide {
		return `\frac{` + x + "}{" + y + "}", nil
	}
	if b, ok := info.Expr.(*ir.Binary); ok {
		if bx, ok := b.X.(*ir.Binary); ok && bx.Op != irkind.Divide && bx.Op.Precedence() < op.Precedence() {
			x = paren(x)
		}
		if by, ok := b.Y.(*ir.Binary); ok && by.Op != irkind.Divide && by.Op.Precedence() <= op.Precedence() {
			y = paren(y)
		}
	}
	sym := op.String()
	if op == irkind.Times {
		sym = `\cdot`
	}
	return x + " " + sym + " " + y, nil
}

func (r renderer) Call(info lower.ExprInfo, f irkind.Func, args []string) (string, error) {
	h := fieldMacro(resolver.SmoothingScale)
	switch f {
	case irkind.Dot:
		return `\left\langle ` + args[0] + ", " + args[1] + ` \right\rangle`, nil
	case irkind.Norm:
		return `\left\lVert ` + args[0] + ` \right\rVert`, nil
	case irkind.NormSquared:
		return `\left\lVert ` + args[0] + ` \right\rVert^2`, nil
	case irkind.Normalized:
		return `\operatorname{normalized}` + paren(args[0]), nil
	case irkind.MinFunc:
		return `\min` + paren(args[0]+", "+args[1]), nil
	case irkind.MaxFunc:
		return `\max` + paren(args[0]+", "+args[1]), nil
	case irkind.Kernel:
		return "W" + paren(args[0]+", "+h), nil
	case irkind.KernelGradient:
		return `\nabla W` + paren(args[0]+", "+h), nil
	case irkind.KernelH:
		return "W" + paren(args[0]+", "+args[1]), nil
	case irkind.KernelGradientH:
		return `\nabla W` + paren(args[0]+", "+args[1]), nil
	case irkind.ParticleCount:
		return "N", nil
	case irkind.NeighbourCount:
		return "N_j", nil
	case irkind.ZeroVector:
		return `\mathbf{0}`, nil
	case irkind.Identity:
		return `\mathbf{I}`, nil
	case irkind.NegativeInfinity:
		return `-\infty`, nil
	case irkind.PositiveInfinity:
		return `+\infty`, nil
	}
	return "", fmterr.Errorf(fmterr.InvalidEnumerator, "invalid %s", f)
}
