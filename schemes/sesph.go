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

// sphFields are the fields shared by the SPH formulas.
type sphFields struct {
	h, g          builder.Field
	x, v, a, m, V builder.Field
	rho, p        builder.Field
	rho0, k, nu   builder.Field
}

func newSPHFields(b *builder.Builder) *sphFields {
	return &sphFields{
		h:    b.Field("grs", "smoothing_scale"),
		g:    b.Field("grv", "gravity"),
		x:    b.Field("vrv", "position"),
		v:    b.Field("vrv", "velocity"),
		a:    b.Field("vrv", "acceleration"),
		m:    b.Field("vrs", "mass"),
		V:    b.Field("vrs", "volume"),
		rho:  b.Field("vrs", "density"),
		p:    b.Field("vrs", "pressure"),
		rho0: b.Field("urs", "rest_density"),
		k:    b.Field("urs", "compressibility"),
		nu:   b.Field("urs", "viscosity"),
	}
}

func (f *sphFields) xij() builder.Expr {
	return f.x.I().Sub(f.x.J())
}

// fluidDensity is the density contribution of a fluid neighbor.
func (f *sphFields) fluidDensity(b *builder.Builder) builder.Expr {
	return f.m.J().Mul(b.W(f.xij()))
}

// boundaryDensity is the density contribution of a boundary neighbor
// (Akinci et al. 2012).
func (f *sphFields) boundaryDensity(b *builder.Builder) builder.Expr {
	return f.V.J().Mul(f.rho0.I()).Mul(b.W(f.xij()))
}

// pressure is the state equation clamping negative pressures.
func (f *sphFields) pressure(b *builder.Builder) builder.Expr {
	return f.k.I().Mul(b.Max(b.Real(0), f.rho.I().Div(f.rho0.I()).Sub(b.Real(1))))
}

func (f *sphFields) fluidPressureAcceleration(b *builder.Builder) builder.Expr {
	pi := f.p.I().Div(f.rho.I().Mul(f.rho.I()))
	pj := f.p.J().Div(f.rho.J().Mul(f.rho.J()))
	return f.m.J().Mul(pi.Add(pj)).Mul(b.DW(f.xij()))
}

// viscosityScale keeps the viscosity term finite for close particles.
func (f *sphFields) viscosityScale(b *builder.Builder) builder.Expr {
	return b.NormSquared(f.xij()).Add(b.Real(0.01).Mul(f.h.G()).Mul(f.h.G()))
}

func (f *sphFields) fluidViscosityAcceleration(b *builder.Builder) builder.Expr {
	num := f.nu.I().Mul(f.m.J().Div(f.rho.J())).Mul(b.Dot(f.v.I().Sub(f.v.J()), f.xij()))
	return num.Div(f.viscosityScale(b)).Mul(b.DW(f.xij()))
}

func (f *sphFields) boundaryPressureAcceleration(b *builder.Builder) builder.Expr {
	pi := b.Real(2).Mul(f.p.I()).Div(f.rho.I().Mul(f.rho.I()))
	return b.Real(0.7).Mul(f.V.J()).Mul(f.rho0.I()).Mul(pi).Mul(b.DW(f.xij()))
}

func (f *sphFields) boundaryViscosityAcceleration(b *builder.Builder) builder.Expr {
	num := f.nu.I().Mul(f.V.J()).Mul(b.Dot(f.v.I(), f.xij()))
	return num.Div(f.viscosityScale(b)).Mul(b.DW(f.xij()))
}

// sesph is a state-equation SPH scheme for fluids next to static boundaries.
func sesph(b *builder.Builder) []builder.Statement {
	f := newSPHFields(b)
	return []builder.Statement{
		b.Procedure("compute_density_and_pressure",
			b.ForeachParticle(
				b.IfGroupType("fluid",
					f.rho.I().Assign(b.Real(0)),
					b.ForeachNeighbor(
						b.IfGroupType("fluid",
							f.rho.I().AddAssign(f.fluidDensity(b)),
						),
					),
					b.ForeachNeighbor(
						b.IfGroupType("boundary",
							f.rho.I().AddAssign(f.boundaryDensity(b)),
						),
					),
					f.p.I().Assign(f.pressure(b)),
				),
			),
		),
		b.Procedure("compute_acceleration",
			b.ForeachParticle(
				b.IfGroupType("fluid",
					f.a.I().Assign(f.g.G()),
					b.ForeachNeighbor(
						b.IfGroupType("fluid",
							f.a.I().SubAssign(f.fluidPressureAcceleration(b)),
							f.a.I().AddAssign(f.fluidViscosityAcceleration(b)),
						),
					),
					b.ForeachNeighbor(
						b.IfGroupType("boundary",
							f.a.I().SubAssign(f.boundaryPressureAcceleration(b)),
							f.a.I().AddAssign(f.boundaryViscosityAcceleration(b)),
						),
					),
				),
			),
		),
	}
}
