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

package main

import (
	"context"

	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/resolver"
	"gopkg.in/yaml.v3"
)

type (
	fieldManifest struct {
		Name  string `yaml:"name"`
		Decl  string `yaml:"decl"`
		Kind  string `yaml:"kind"`
		Type  string `yaml:"type"`
		Shape string `yaml:"shape"`
	}

	groupManifest struct {
		Type   string          `yaml:"type"`
		Fields []fieldManifest `yaml:"fields"`
	}

	// manifest lists the fields a model needs to run some schemes.
	manifest struct {
		Schemes []string        `yaml:"schemes"`
		Global  []fieldManifest `yaml:"global,omitempty"`
		Groups  []groupManifest `yaml:"groups,omitempty"`
	}
)

func fieldsManifest(fields []ir.Field) []fieldManifest {
	var ms []fieldManifest
	for _, f := range fields {
		ms = append(ms, fieldManifest{
			Name:  f.Name,
			Decl:  f.Suffix(),
			Kind:  f.Kind.String(),
			Type:  f.Type.String(),
			Shape: f.Shape.String(),
		})
	}
	return ms
}

func newManifest(names []string, reqs *resolver.FieldRequirements) *manifest {
	m := &manifest{
		Schemes: names,
		Global:  fieldsManifest(reqs.GlobalFields()),
	}
	groupTypes := reqs.GroupTypes()
	if len(reqs.FieldsOf(ir.AllGroupTypes)) > 0 {
		groupTypes = append([]string{ir.AllGroupTypes}, groupTypes...)
	}
	for _, gt := range groupTypes {
		m.Groups = append(m.Groups, groupManifest{
			Type:   gt,
			Fields: fieldsManifest(reqs.FieldsOf(gt)),
		})
	}
	return m
}

// resolveAll returns the requirements of a set of schemes.
func resolveAll(selected []*ir.Scheme) ([]string, *resolver.FieldRequirements, error) {
	reqs := resolver.New()
	var names []string
	for _, s := range selected {
		sreqs, err := resolver.Resolve(s)
		if err != nil {
			return nil, nil, err
		}
		reqs.Merge(sreqs)
		names = append(names, s.Name)
	}
	return names, reqs, nil
}

func cmdRequirements(ctx context.Context, e *env, args []string) error {
	selected, err := parseSchemes(ctx, e, "requirements", args)
	if err != nil {
		return err
	}
	names, reqs, err := resolveAll(selected)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(e.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(newManifest(names, reqs)); err != nil {
		return err
	}
	return enc.Close()
}
