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

// boundary computes the volume of boundary particles from the kernel
// weights of their boundary neighbors.
func boundary(b *builder.Builder) []builder.Statement {
	x := b.Field("vrv", "position")
	V := b.Field("vrs", "volume")
	return []builder.Statement{
		b.Procedure("compute_volume",
			b.ForeachParticle(
				b.IfGroupType("boundary",
					V.I().Assign(b.Real(0)),
					b.ForeachNeighbor(
						b.IfGroupType("boundary",
							V.I().AddAssign(b.W(x.I().Sub(x.J()))),
						),
					),
					V.I().Assign(b.Real(1).Div(V.I())),
				),
			),
		),
	}
}
