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

// Package schemes builds the schemes shipped with prtcl.
//
// Schemes are built with [builder.Builder] and added to a registry by
// [RegisterAll]. The registry is created by the caller.
package schemes

import (
	"github.com/gx-org/prtcl/build/builder"
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/registry"
)

type scheme struct {
	name  string
	build func(*builder.Builder) []builder.Statement
}

// builtins lists the schemes in registration order.
var builtins = []scheme{
	{name: "boundary", build: boundary},
	{name: "sesph", build: sesph},
	{name: "symplectic_euler", build: symplecticEuler},
	{name: "test", build: counting},
}

// Names returns the names of the built-in schemes in registration order.
func Names() []string {
	names := make([]string, len(builtins))
	for i, s := range builtins {
		names[i] = s.name
	}
	return names
}

// RegisterAll builds all the built-in schemes and adds them to a registry.
func RegisterAll(reg *registry.Registry) error {
	errs := fmterr.NewAppender()
	for _, s := range builtins {
		b := builder.New()
		sch, err := b.Scheme(s.name, s.build(b)...)
		if err != nil {
			errs.Append(fmterr.PrefixWith("cannot build scheme %s: ", s.name)(err))
			continue
		}
		errs.Append(reg.Add(sch))
	}
	return errs.ToError()
}
