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

// Package gosrc generates the Go source of a package running a scheme.
//
// The generated package has one type per scheme and one method per procedure.
// Loops and reductions run with [github.com/gx-org/prtcl/rt/loop].
package gosrc

import (
	"fmt"
	"strings"
	"text/template"

	pfmt "github.com/gx-org/prtcl/base/fmt"
	"github.com/gx-org/prtcl/base/ordered"
	"github.com/gx-org/prtcl/base/tmpl"
	"github.com/gx-org/prtcl/base/uname"
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/resolver"
	"github.com/gx-org/prtcl/codegen/lower"
	"github.com/pkg/errors"
	"golang.org/x/tools/imports"
)

// Options of the generator.
type Options struct {
	// Package is the name of the generated Go package.
	Package string
	// Dims is the spatial dimensionality of the models.
	Dims int
}

var fileTmpl = template.Must(template.New("fileTMPL").Parse(`// Code generated by prtcl from scheme {{.Scheme}}. DO NOT EDIT.

package {{.Package}}

import (
	"context"

	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
	"github.com/gx-org/prtcl/rt/kernel"
	"github.com/gx-org/prtcl/rt/loop"
	"github.com/gx-org/prtcl/rt/nhood"
	"github.com/gx-org/prtcl/rt/store"
	"github.com/gx-org/prtcl/rt/tensor"
)

// Dims is the spatial dimensionality of the models on which the procedures run.
const Dims = {{.Dims}}

var (
{{.Fields}}
)

// {{.Type}} runs the procedures of scheme {{.Scheme}}.
type {{.Type}} struct {
	// Workers is the number of goroutines running particle loops.
	// Defaults to GOMAXPROCS.
	Workers int
	// Kernel is the smoothing kernel. Defaults to a cubic spline.
	Kernel kernel.Kernel
}

// Procedures returns the names of the procedures of the scheme.
func (*{{.Type}}) Procedures() []string {
	return []string{ {{- range .Procedures}}{{printf "%q" .Name}}, {{end -}} }
}

{{.Methods}}
`))

var methodTmpl = template.Must(template.New("methodTMPL").Parse(`
// {{.Method}} runs procedure {{.Name}}.
func (s *{{.Type}}) {{.Method}}(ctx context.Context, m *store.Model, nh nhood.Neighborhood) error {
	fr, err := loop.New(ctx, m, nh, s.Workers, s.Kernel)
	if err != nil {
		return err
	}
{{- if .Body}}
{{.Body}}
{{- else}}
	_ = fr
{{- end}}
	return nil
}
`))

// reserved are the identifiers declared by the generated methods.
var reserved = []string{"ctx", "err", "fr", "m", "nh", "s"}

type (
	file struct {
		Scheme     string
		Package    string
		Type       string
		Dims       int
		Fields     string
		Procedures []*procedure
		Methods    string
	}

	procedure struct {
		Type   string
		Name   string
		Method string
		Body   string
	}
)

// Generate the Go source of a package running a scheme.
// Requirements are resolved from the scheme if reqs is nil.
// The source is formatted and its imports are cleaned up.
func Generate(scheme *ir.Scheme, reqs *resolver.FieldRequirements, opts Options) ([]byte, error) {
	if opts.Package == "" {
		opts.Package = "schemes"
	}
	if !ir.IsIdentifier(opts.Package) {
		return nil, errors.Errorf("invalid package name %q", opts.Package)
	}
	if opts.Dims < 1 || opts.Dims > 3 {
		return nil, fmterr.Errorf(fmterr.ShapeError, "cannot generate scheme %s: unsupported spatial dimensionality %d", scheme.Name, opts.Dims)
	}
	if reqs == nil {
		var err error
		if reqs, err = resolver.Resolve(scheme); err != nil {
			return nil, err
		}
	}
	g := &generator{
		typ:    exported(scheme.Name),
		names:  uname.New(reserved...),
		fields: ordered.NewMap[ir.Field, string](),
	}
	f := &file{
		Scheme:  scheme.Name,
		Package: opts.Package,
		Type:    g.typ,
		Dims:    opts.Dims,
	}
	if _, err := lower.Lower[string, value](scheme, reqs, opts.Dims, g); err != nil {
		return nil, err
	}
	f.Procedures = g.procs
	var err error
	if f.Fields, err = tmpl.IterateFunc(g.fieldDecls(), func(_ int, s string) (string, error) {
		return "\t" + s, nil
	}); err != nil {
		return nil, err
	}
	if f.Methods, err = tmpl.IterateTmpl(f.Procedures, methodTmpl); err != nil {
		return nil, err
	}
	var src strings.Builder
	if err := fileTmpl.Execute(&src, f); err != nil {
		return nil, errors.Errorf("cannot generate the source of scheme %s: %v", scheme.Name, err)
	}
	out, err := imports.Process(strings.ToLower(g.typ)+".go", []byte(src.String()), nil)
	if err != nil {
		return nil, errors.Errorf("invalid source generated for scheme %s: %v\n%s", scheme.Name, err, pfmt.Number(src.String()))
	}
	return out, nil
}

// exported returns an exported Go identifier from a snake case name.
// Characters other than ASCII letters and digits separate words.
func exported(name string) string {
	var s strings.Builder
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	})
	for _, word := range words {
		s.WriteString(strings.ToUpper(word[:1]) + word[1:])
	}
	if s.Len() == 0 || ('0' <= s.String()[0] && s.String()[0] <= '9') {
		return "X" + s.String()
	}
	return s.String()
}

func shapeSource(s ir.Shape) string {
	switch s.Rank() {
	case 0:
		return "ir.Scalar()"
	case 1:
		return fmt.Sprintf("ir.Vector(%d)", s.Extent(0))
	}
	return fmt.Sprintf("ir.Matrix(%d, %d)", s.Extent(0), s.Extent(1))
}

func (g *generator) fieldDecls() []string {
	var decls []string
	for f, name := range g.fields.All() {
		decls = append(decls, fmt.Sprintf("%s = ir.Field{Kind: irkind.%s, Type: irkind.%s, Shape: %s, Name: %q}",
			name, exported(f.Kind.String()), exported(f.Type.String()), shapeSource(f.Shape), f.Name))
	}
	return decls
}
