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

package resolver

import (
	"fmt"

	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
)

// SmoothingScale is the global field read by kernel functions without
// an explicit smoothing scale.
var SmoothingScale = ir.Field{
	Kind:  irkind.Global,
	Type:  irkind.Real,
	Shape: ir.Scalar(),
	Name:  "smoothing_scale",
}

type resolver struct {
	reqs *FieldRequirements
	errs *fmterr.Appender
	ns   *ir.Namespace

	globalBlocks int

	inParticle, inNeighbor       bool
	particleGroup, neighborGroup string
}

var _ ir.Visitor = (*resolver)(nil)

// Resolve walks a scheme (or a single procedure) and returns the fields
// required by each group type.
//
// Fields referenced through the active particle are required by the group
// type of the nearest group type condition of the particle loop. Fields
// referenced through the neighbor particle are required by the group type
// of the nearest group type condition of the neighbor loop. Without a
// condition, fields are required by all group types.
//
// All errors found in the tree are returned together.
func Resolve(n ir.Node) (*FieldRequirements, error) {
	r := &resolver{
		reqs:          New(),
		errs:          fmterr.NewAppender(),
		ns:            ir.NewNamespace(),
		particleGroup: ir.AllGroupTypes,
		neighborGroup: ir.AllGroupTypes,
	}
	r.visit(n)
	if err := r.errs.ToError(); err != nil {
		return nil, err
	}
	return r.reqs, nil
}

func (r *resolver) visit(n ir.Node) {
	if n == nil {
		r.errs.Appendf(fmterr.InvalidNode, "nil node")
		return
	}
	r.errs.Append(n.Accept(r))
}

func (r *resolver) visitAll(path string, nodes []ir.Node) {
	r.errs.PushPath(path)
	defer r.errs.Pop()
	for _, n := range nodes {
		r.visit(n)
	}
}

func (r *resolver) VisitScheme(n *ir.Scheme) error {
	r.visitAll("scheme "+n.Name, n.Statements)
	return nil
}

func (r *resolver) VisitProcedure(n *ir.Procedure) error {
	r.visitAll("procedure "+n.Name, n.Statements)
	return nil
}

func (r *resolver) declare(decl ir.FieldDecl) bool {
	return r.errs.Append(r.ns.Declare(decl))
}

func (r *resolver) VisitGlobal(n *ir.Global) error {
	r.globalBlocks++
	if r.globalBlocks > 1 {
		return fmterr.Errorf(fmterr.DuplicateGlobalBlock, "a scheme can only have one global block")
	}
	for _, decl := range n.Decls {
		if !r.declare(decl) {
			continue
		}
		r.errs.Append(r.reqs.AddGlobal(decl.Field))
	}
	return nil
}

func (r *resolver) VisitGroups(n *ir.Groups) error {
	for _, decl := range n.Decls {
		if !r.declare(decl) {
			continue
		}
		r.errs.Append(r.reqs.AddRequirement(n.GroupType, decl.Field))
	}
	return nil
}

func (r *resolver) VisitForeachParticle(n *ir.ForeachParticle) error {
	inParticle, particleGroup := r.inParticle, r.particleGroup
	r.inParticle, r.particleGroup = true, ir.AllGroupTypes
	r.visitAll("foreach_particle", n.Body)
	r.inParticle, r.particleGroup = inParticle, particleGroup
	return nil
}

func (r *resolver) VisitForeachNeighbor(n *ir.ForeachNeighbor) error {
	inNeighbor, neighborGroup := r.inNeighbor, r.neighborGroup
	r.inNeighbor, r.neighborGroup = true, ir.AllGroupTypes
	r.visitAll("foreach_neighbor", n.Body)
	r.inNeighbor, r.neighborGroup = inNeighbor, neighborGroup
	return nil
}

func (r *resolver) VisitIfGroupType(n *ir.IfGroupType) error {
	path := fmt.Sprintf("if_group_type(%q)", n.GroupType)
	// Statements in the else branch run for groups of any other type:
	// their requirements stay with the enclosing condition.
	if r.inNeighbor {
		prev := r.neighborGroup
		r.neighborGroup = n.GroupType
		r.visitAll(path, n.Then)
		r.neighborGroup = prev
	} else {
		prev := r.particleGroup
		r.particleGroup = n.GroupType
		r.visitAll(path, n.Then)
		r.particleGroup = prev
	}
	r.visitAll(path+" else", n.Else)
	return nil
}

func (r *resolver) VisitEquation(n *ir.Equation) error {
	for _, ref := range n.FieldRefs() {
		r.require(ref)
	}
	for _, call := range ir.Calls(n.Value) {
		if call.Func.UsesSmoothingScale() {
			r.require(&ir.FieldRef{Alias: SmoothingScale.Name, Field: SmoothingScale})
		}
	}
	return nil
}

func (r *resolver) require(ref *ir.FieldRef) {
	f := ref.Field
	if !r.errs.Append(r.ns.Check(f)) {
		return
	}
	if f.Kind == irkind.Global {
		r.errs.Append(r.reqs.AddGlobal(f))
		return
	}
	switch ref.Role {
	case irkind.Active:
		if !r.inParticle {
			r.errs.Appendf(fmterr.InvalidIndexRole, "%s field %s is referenced through the active particle outside of a particle loop", f.Kind, ref.Alias)
			return
		}
		r.errs.Append(r.reqs.AddRequirement(r.particleGroup, f))
	case irkind.Neighbor:
		if !r.inNeighbor {
			r.errs.Appendf(fmterr.InvalidIndexRole, "%s field %s is referenced through the neighbor particle outside of a neighbor loop", f.Kind, ref.Alias)
			return
		}
		r.errs.Append(r.reqs.AddRequirement(r.neighborGroup, f))
	default:
		_, err := ref.Role.Name()
		r.errs.Append(err)
	}
}
