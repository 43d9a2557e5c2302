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

// Package registry stores named collections of procedures and field declarations.
package registry

import (
	"iter"
	"slices"
	"sync"

	"github.com/gx-org/prtcl/base/ordered"
	"github.com/gx-org/prtcl/base/stringseq"
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
)

type entry struct {
	decls []ir.Node
	procs *ordered.Map[string, *ir.Procedure]
}

func (e *entry) scheme(name string) *ir.Scheme {
	stmts := ir.CloneAll(e.decls)
	for proc := range e.procs.Values() {
		stmts = append(stmts, ir.Clone(proc))
	}
	return &ir.Scheme{Name: name, Statements: stmts}
}

// Registry maps scheme names to their declarations and procedures.
//
// Registration is safe for concurrent use.
// Nodes are cloned when registered and when returned.
type Registry struct {
	mu      sync.Mutex
	schemes *ordered.Map[string, *entry]
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{schemes: ordered.NewMap[string, *entry]()}
}

func (r *Registry) entry(name string) *entry {
	e, _ := r.schemes.LoadOrStore(name, func() *entry {
		return &entry{procs: ordered.NewMap[string, *ir.Procedure]()}
	})
	return e
}

// Register adds procedures to the scheme called name.
// The scheme is created if it does not exist.
// No procedure is added if one of them is invalid (see ir.Validate)
// or already registered in the scheme.
func (r *Registry) Register(name string, procs ...*ir.Procedure) error {
	for _, proc := range procs {
		if proc == nil {
			return fmterr.Errorf(fmterr.InvalidNode, "nil procedure registered in scheme %s", name)
		}
		if err := ir.Validate(proc); err != nil {
			return fmterr.PrefixWith("cannot register in scheme %s: ", name)(err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entry(name)
	seen := make(map[string]bool)
	for _, proc := range procs {
		if _, exists := e.procs.Load(proc.Name); exists || seen[proc.Name] {
			return fmterr.Errorf(fmterr.DuplicateProcedure, "procedure %s already registered in scheme %s", proc.Name, name)
		}
		seen[proc.Name] = true
	}
	for _, proc := range procs {
		e.procs.Store(proc.Name, ir.Clone(proc))
	}
	return nil
}

// Declare adds global and groups blocks to the scheme called name.
// The scheme is created if it does not exist.
func (r *Registry) Declare(name string, decls ...ir.Node) error {
	for _, decl := range decls {
		switch decl.(type) {
		case *ir.Global, *ir.Groups:
		default:
			return fmterr.Errorf(fmterr.InvalidNode, "cannot declare %T in scheme %s: only global and groups blocks can be declared", decl, name)
		}
		if err := ir.Validate(decl); err != nil {
			return fmterr.PrefixWith("cannot declare in scheme %s: ", name)(err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entry(name)
	e.decls = append(e.decls, ir.CloneAll(decls)...)
	return nil
}

// Add registers all the declarations and procedures of a scheme.
func (r *Registry) Add(scheme *ir.Scheme) error {
	var decls []ir.Node
	for _, stmt := range scheme.Statements {
		switch stmt.(type) {
		case *ir.Global, *ir.Groups:
			decls = append(decls, stmt)
		}
	}
	if err := r.Declare(scheme.Name, decls...); err != nil {
		return err
	}
	return r.Register(scheme.Name, scheme.Procedures()...)
}

// Get returns a scheme given its name.
// Declarations come first, followed by the procedures in registration order.
func (r *Registry) Get(name string) (*ir.Scheme, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.schemes.Load(name)
	if !ok {
		return nil, fmterr.Errorf(fmterr.UnknownScheme, "scheme %q not found: registered schemes are %s", name, stringseq.Join(stringseq.Quoted(r.schemes.Keys()), ", "))
	}
	return e.scheme(name), nil
}

// Names returns the names of all the registered schemes, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(r.schemes.Keys())
}

// Schemes iterates over all the schemes in the order in which they were first registered.
func (r *Registry) Schemes() iter.Seq[*ir.Scheme] {
	r.mu.Lock()
	var schemes []*ir.Scheme
	for name, e := range r.schemes.All() {
		schemes = append(schemes, e.scheme(name))
	}
	r.mu.Unlock()
	return slices.Values(schemes)
}
