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

// symplecticEuler advects fluid particles and records their maximum speed.
func symplecticEuler(b *builder.Builder) []builder.Statement {
	dt := b.Field("grs", "time_step")
	vmax := b.Field("grs", "maximum_speed")
	x := b.Field("vrv", "position")
	v := b.Field("vrv", "velocity")
	a := b.Field("vrv", "acceleration")
	return []builder.Statement{
		b.Procedure("advect_symplectic_euler",
			vmax.G().Assign(b.NegativeInfinity()),
			b.ForeachParticle(
				b.IfGroupType("fluid",
					v.I().AddAssign(dt.G().Mul(a.I())),
					x.I().AddAssign(dt.G().Mul(v.I())),
					vmax.G().MaxAssign(b.Norm(v.I())),
				),
			),
		),
	}
}
