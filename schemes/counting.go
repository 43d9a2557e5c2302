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

package schemes

import "github.com/gx-org/prtcl/build/builder"

// counting counts the particles of type particles and their neighbors of
// type neighbors.
func counting(b *builder.Builder) []builder.Statement {
	gpc := b.Field("gis", "global_particle_count")
	gnc := b.Field("gis", "global_neighbor_count")
	return []builder.Statement{
		b.Procedure("test_counting_particles",
			gpc.G().Assign(b.Index(0)),
			b.ForeachParticle(
				b.IfGroupType("particles", gpc.G().AddAssign(b.Index(1))),
			),
		),
		b.Procedure("test_counting_neighbors",
			gnc.G().Assign(b.Index(0)),
			b.ForeachParticle(
				b.IfGroupType("particles",
					b.ForeachNeighbor(
						b.IfGroupType("neighbors", gnc.G().AddAssign(b.Index(1))),
					),
				),
			),
		),
	}
}
