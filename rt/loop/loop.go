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

// Package loop runs particle and neighbor loops over a model.
//
// Particle loops are split into static chunks executed in parallel by a fixed
// number of workers: worker w processes chunks w, w+workers, w+2*workers...
// Reductions into global and uniform fields accumulate in private per-worker
// partials. Partials are merged in worker order once all the workers are done
// and the merged values are applied to the fields. A reduction target read
// within the loop computing it has the value it had before the loop.
package loop

import (
	"cmp"
	"context"
	"runtime"
	"slices"

	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
	"github.com/gx-org/prtcl/build/resolver"
	"github.com/gx-org/prtcl/rt/kernel"
	"github.com/gx-org/prtcl/rt/nhood"
	"github.com/gx-org/prtcl/rt/store"
	"github.com/gx-org/prtcl/rt/tensor"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// chunksPerWorker is the number of chunks of particles each worker processes
// in a particle loop. The context is checked between chunks.
const chunksPerWorker = 4

// Frame is the state of a procedure running on a model.
// A frame is not safe for concurrent use: each worker of a particle loop
// has its own.
type Frame struct {
	ctx     context.Context
	model   *store.Model
	groups  []*store.Group
	nh      nhood.Neighborhood
	kernel  kernel.Kernel
	workers int

	// Active particle.
	group *store.Group
	i     int
	// Neighbor particle.
	neighbor *store.Group
	j        int

	// Reductions of the enclosing particle loop. Nil outside of particle loops.
	red *partials
}

// New returns the frame of a procedure running on a model.
// The number of workers defaults to GOMAXPROCS and the kernel to a cubic spline.
// The neighborhood can be nil if the procedure does not iterate over neighbors.
func New(ctx context.Context, m *store.Model, nh nhood.Neighborhood, workers int, k kernel.Kernel) (*Frame, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if k == nil {
		var err error
		if k, err = kernel.NewCubicSpline(m.Dims()); err != nil {
			return nil, err
		}
	}
	if k.Dims() != m.Dims() {
		return nil, fmterr.Errorf(fmterr.ShapeError, "kernel %s is defined in %d dimensions but the model has %d", k.Name(), k.Dims(), m.Dims())
	}
	return &Frame{
		ctx:     ctx,
		model:   m,
		groups:  m.Groups(),
		nh:      nh,
		kernel:  k,
		workers: workers,
	}, nil
}

// Model on which the procedure runs.
func (fr *Frame) Model() *store.Model {
	return fr.model
}

// Workers returns the number of workers running particle loops.
func (fr *Frame) Workers() int {
	return fr.workers
}

// Run a sequence of statements until one fails.
func (fr *Frame) Run(body ...func(*Frame) error) error {
	for _, s := range body {
		if err := s(fr); err != nil {
			return err
		}
	}
	return nil
}

// Particle returns the group and the index of the particle of a role.
func (fr *Frame) Particle(role irkind.Role) (*store.Group, int, error) {
	grp, index := fr.group, fr.i
	if role == irkind.Neighbor {
		grp, index = fr.neighbor, fr.j
	}
	if grp == nil {
		return nil, 0, fmterr.Internalf("no %s particle in the current frame", role)
	}
	return grp, index, nil
}

// IsGroupType returns true if the particle of a role belongs to a group of a given type.
func (fr *Frame) IsGroupType(role irkind.Role, groupType string) (bool, error) {
	grp, _, err := fr.Particle(role)
	if err != nil {
		return false, err
	}
	return grp.Type() == groupType, nil
}

// Tensor returns the storage of a field and the index of the item
// referenced by a role in the current frame.
func (fr *Frame) Tensor(f ir.Field, role irkind.Role) (store.Tensor, int, error) {
	if f.Kind == irkind.Global {
		t, ok := fr.model.Global(f.Name)
		if !ok {
			return nil, 0, fmterr.Errorf(fmterr.UnresolvedFieldReference, "missing global field %s", f)
		}
		return t, 0, nil
	}
	grp, index, err := fr.Particle(role)
	if err != nil {
		return nil, 0, err
	}
	t, ok := grp.Field(f.Name)
	if !ok {
		return nil, 0, fmterr.Errorf(fmterr.UnresolvedFieldReference, "group %s of type %s has no field %s", grp.Name(), grp.Type(), f)
	}
	if f.Kind == irkind.Uniform {
		index = 0
	}
	return t, index, nil
}

// Load the value of a field for the particle of a role.
func (fr *Frame) Load(f ir.Field, role irkind.Role) (tensor.Value, error) {
	t, index, err := fr.Tensor(f, role)
	if err != nil {
		return tensor.Value{}, err
	}
	return t.Load(index), nil
}

// Update the value of a field for the particle of a role.
func (fr *Frame) Update(op irkind.Op, f ir.Field, role irkind.Role, x tensor.Value) error {
	t, index, err := fr.Tensor(f, role)
	if err != nil {
		return err
	}
	next, err := tensor.Update(op, t.Load(index), x)
	if err != nil {
		return err
	}
	return t.Store(index, next)
}

// Reduce combines a value into the partial of reduction id.
// Outside of particle loops, the field is updated directly.
func (fr *Frame) Reduce(id int, op irkind.Op, f ir.Field, role irkind.Role, x tensor.Value) error {
	if fr.red == nil {
		return fr.Update(op, f, role, x)
	}
	s := slot{id: id, group: -1}
	if f.Kind != irkind.Global {
		grp, _, err := fr.Particle(role)
		if err != nil {
			return err
		}
		s.group = grp.Index()
	}
	return fr.red.combine(s, op, f, x)
}

// ParticleCount returns the number of particles in the group of the active particle.
func (fr *Frame) ParticleCount() (int, error) {
	grp, _, err := fr.Particle(irkind.Active)
	if err != nil {
		return 0, err
	}
	return grp.Size(), nil
}

// NeighbourCount returns the number of neighbors of the active particle
// in the group of the current neighbor.
func (fr *Frame) NeighbourCount() (int, error) {
	if fr.nh == nil || fr.group == nil || fr.neighbor == nil {
		return 0, fmterr.Internalf("neighbour count outside of a neighbor loop")
	}
	n := 0
	for group := range fr.nh.Neighbors(fr.group.Index(), fr.i) {
		if group == fr.neighbor.Index() {
			n++
		}
	}
	return n, nil
}

// SmoothingScale returns the value of the smoothing scale global field.
func (fr *Frame) SmoothingScale() (float64, error) {
	x, err := fr.Load(resolver.SmoothingScale, irkind.Active)
	if err != nil {
		return 0, err
	}
	return x.Float(), nil
}

type (
	// slot identifies a reduction: an identifier and the group owning its
	// target, or -1 for global targets.
	slot struct {
		id    int
		group int
	}

	partial struct {
		op     irkind.Op
		target ir.Field
		val    tensor.Value
	}

	// partials are the private reductions of a worker.
	partials struct {
		vals map[slot]*partial
	}
)

func newPartials() *partials {
	return &partials{vals: make(map[slot]*partial)}
}

func (p *partials) combine(s slot, op irkind.Op, target ir.Field, x tensor.Value) error {
	cur, ok := p.vals[s]
	if !ok {
		id, err := tensor.IdentityOf(op, x.Shape())
		if err != nil {
			return err
		}
		cur = &partial{op: op, target: target, val: id}
		p.vals[s] = cur
	}
	next, err := tensor.Combine(op, cur.val, x)
	if err != nil {
		return err
	}
	cur.val = next
	return nil
}

func compareSlots(x, y slot) int {
	if c := cmp.Compare(x.id, y.id); c != 0 {
		return c
	}
	return cmp.Compare(x.group, y.group)
}

func (p *partials) sortedSlots() []slot {
	slots := make([]slot, 0, len(p.vals))
	for s := range p.vals {
		slots = append(slots, s)
	}
	slices.SortFunc(slots, compareSlots)
	return slots
}

// merge the partials of all workers in worker order and apply the merged
// values to the targets of the reductions.
func (fr *Frame) merge(workers []*partials) error {
	merged := newPartials()
	var errs error
	for _, p := range workers {
		for _, s := range p.sortedSlots() {
			x := p.vals[s]
			cur, ok := merged.vals[s]
			if !ok {
				merged.vals[s] = &partial{op: x.op, target: x.target, val: x.val}
				continue
			}
			next, err := tensor.Combine(x.op, cur.val, x.val)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			cur.val = next
		}
	}
	for _, s := range merged.sortedSlots() {
		errs = multierr.Append(errs, fr.apply(s, merged.vals[s]))
	}
	return errs
}

func (fr *Frame) apply(s slot, x *partial) error {
	var t store.Tensor
	var ok bool
	if s.group < 0 {
		t, ok = fr.model.Global(x.target.Name)
	} else {
		t, ok = fr.groups[s.group].Field(x.target.Name)
	}
	if !ok {
		return fmterr.Errorf(fmterr.UnresolvedFieldReference, "missing reduction target %s", x.target)
	}
	next, err := tensor.Update(x.op, t.Load(0), x.val)
	if err != nil {
		return err
	}
	return t.Store(0, next)
}

// chunk is a range of particles of a group.
type chunk struct {
	group      *store.Group
	start, end int
}

func (fr *Frame) chunks() []chunk {
	total := 0
	for _, grp := range fr.groups {
		total += grp.Size()
	}
	n := fr.workers * chunksPerWorker
	size := max(1, (total+n-1)/n)
	var chunks []chunk
	for _, grp := range fr.groups {
		for start := 0; start < grp.Size(); start += size {
			chunks = append(chunks, chunk{
				group: grp,
				start: start,
				end:   min(start+size, grp.Size()),
			})
		}
	}
	return chunks
}

// ForeachParticle runs a body for all the particles of the model.
func (fr *Frame) ForeachParticle(body func(*Frame) error) error {
	chunks := fr.chunks()
	workers := min(fr.workers, len(chunks))
	parts := make([]*partials, workers)
	g, ctx := errgroup.WithContext(fr.ctx)
	for w := range workers {
		parts[w] = newPartials()
		wf := &Frame{
			ctx:     ctx,
			model:   fr.model,
			groups:  fr.groups,
			nh:      fr.nh,
			kernel:  fr.kernel,
			workers: 1,
			red:     parts[w],
		}
		g.Go(func() error {
			for c := w; c < len(chunks); c += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				ch := chunks[c]
				wf.group = ch.group
				for wf.i = ch.start; wf.i < ch.end; wf.i++ {
					if err := body(wf); err != nil {
						return fmterr.PrefixWith("particle %d of group %s: ", wf.i, ch.group.Name())(err)
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return fr.merge(parts)
}

// ForeachNeighbor runs a body for all the neighbors of the active particle.
func (fr *Frame) ForeachNeighbor(body func(*Frame) error) error {
	if fr.nh == nil {
		return fmterr.Errorf(fmterr.InvalidNode, "neighbor loop without a neighborhood")
	}
	if fr.group == nil {
		return fmterr.Internalf("neighbor loop outside of a particle loop")
	}
	prevGroup, prevJ := fr.neighbor, fr.j
	defer func() { fr.neighbor, fr.j = prevGroup, prevJ }()
	for group, j := range fr.nh.Neighbors(fr.group.Index(), fr.i) {
		fr.neighbor, fr.j = fr.groups[group], j
		if err := body(fr); err != nil {
			return err
		}
	}
	return nil
}
