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

package irkind_test

import (
	"testing"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir/irkind"
)

func TestRoundTrip(t *testing.T) {
	for _, kind := range irkind.Kinds() {
		name, err := kind.Name()
		if err != nil {
			t.Fatal(err)
		}
		got, err := irkind.KindFromName(name)
		if err != nil {
			t.Fatal(err)
		}
		if got != kind {
			t.Errorf("kind %v: got %v after round trip", kind, got)
		}
	}
	for _, typ := range irkind.Types() {
		name, err := typ.Name()
		if err != nil {
			t.Fatal(err)
		}
		got, err := irkind.TypeFromName(name)
		if err != nil {
			t.Fatal(err)
		}
		if got != typ {
			t.Errorf("type %v: got %v after round trip", typ, got)
		}
	}
	for _, op := range irkind.Ops() {
		name, err := op.Name()
		if err != nil {
			t.Fatal(err)
		}
		if got, err := irkind.OpFromName(name); err != nil || got != op {
			t.Errorf("op %v: got %v, %v after name round trip", op, got, err)
		}
		tok, err := op.Token()
		if err != nil {
			t.Fatal(err)
		}
		if got, err := irkind.OpFromToken(tok); err != nil || got != op {
			t.Errorf("op %v: got %v, %v after token round trip", op, got, err)
		}
	}
	for _, role := range []irkind.Role{irkind.Active, irkind.Neighbor} {
		index, err := role.Index()
		if err != nil {
			t.Fatal(err)
		}
		if got, err := irkind.RoleFromIndex(index); err != nil || got != role {
			t.Errorf("role %v: got %v, %v after round trip", role, got, err)
		}
	}
	for f := irkind.Dot; f <= irkind.PositiveInfinity; f++ {
		name, err := f.Name()
		if err != nil {
			t.Fatal(err)
		}
		if got, err := irkind.FuncFromName(name); err != nil || got != f {
			t.Errorf("func %v: got %v, %v after round trip", f, got, err)
		}
		if f.Arity() < 0 {
			t.Errorf("func %v has no arity", f)
		}
	}
}

func TestInvalidEnumerator(t *testing.T) {
	tests := []struct {
		desc string
		err  error
	}{
		{desc: "kind", err: func() error { _, err := irkind.Kind(3).Name(); return err }()},
		{desc: "type", err: func() error { _, err := irkind.Type(7).Name(); return err }()},
		{desc: "op", err: func() error { _, err := irkind.Op(42).Name(); return err }()},
		{desc: "role", err: func() error { _, err := irkind.Role(2).Name(); return err }()},
		{desc: "func", err: func() error { _, err := irkind.Func(200).Name(); return err }()},
		{desc: "kind name", err: func() error { _, err := irkind.KindFromName("local"); return err }()},
		{desc: "op token", err: func() error { _, err := irkind.OpFromToken("%="); return err }()},
		{desc: "func name", err: func() error { _, err := irkind.FuncFromName("sqrt"); return err }()},
	}
	for _, test := range tests {
		if !fmterr.Is(test.err, fmterr.InvalidEnumerator) {
			t.Errorf("%s: got error %v but want an invalid enumerator error", test.desc, test.err)
		}
	}
	if got, want := irkind.Kind(3).String(), "field kind(3)"; got != want {
		t.Errorf("got %q but want %q", got, want)
	}
}

func TestSuffix(t *testing.T) {
	tests := []struct {
		suffix string
		kind   irkind.Kind
		typ    irkind.Type
		rank   int
	}{
		{suffix: "vrv", kind: irkind.Varying, typ: irkind.Real, rank: 1},
		{suffix: "gis", kind: irkind.Global, typ: irkind.Index, rank: 0},
		{suffix: "ubm", kind: irkind.Uniform, typ: irkind.Boolean, rank: 2},
	}
	for _, test := range tests {
		kind, typ, rank, err := irkind.ParseSuffix(test.suffix)
		if err != nil {
			t.Errorf("%s: %v", test.suffix, err)
			continue
		}
		if kind != test.kind || typ != test.typ || rank != test.rank {
			t.Errorf("%s: got %v %v %d but want %v %v %d", test.suffix, kind, typ, rank, test.kind, test.typ, test.rank)
		}
		suffix, err := irkind.Suffix(kind, typ, rank)
		if err != nil {
			t.Errorf("%s: %v", test.suffix, err)
		}
		if suffix != test.suffix {
			t.Errorf("got suffix %q but want %q", suffix, test.suffix)
		}
	}
	for _, bad := range []string{"", "vr", "xrv", "vxv", "vrx", "vrvv"} {
		if _, _, _, err := irkind.ParseSuffix(bad); !fmterr.Is(err, fmterr.InvalidEnumerator) {
			t.Errorf("%q: got error %v but want an invalid enumerator error", bad, err)
		}
	}
}

func TestDType(t *testing.T) {
	tests := map[irkind.Type]dtype.DataType{
		irkind.Real:    dtype.Float64,
		irkind.Index:   dtype.Int64,
		irkind.Boolean: dtype.Bool,
	}
	for typ, want := range tests {
		if got := typ.DType(); got != want {
			t.Errorf("%v: got %v but want %v", typ, got, want)
		}
	}
}
