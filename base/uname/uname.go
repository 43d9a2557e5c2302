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

// Package uname provides unique identifiers for generated code.
package uname

import "strconv"

// Unique generates unique names.
type Unique struct {
	taken map[string]bool
	next  map[string]int
}

// New returns a name generator. Reserved names are never returned.
func New(reserved ...string) *Unique {
	n := &Unique{
		taken: make(map[string]bool),
		next:  make(map[string]int),
	}
	for _, name := range reserved {
		n.taken[name] = true
	}
	return n
}

// Name returns a unique name given a desired root.
// The root is returned if it is available. Otherwise, the smallest
// numbered suffix giving a name not taken yet is appended.
func (n *Unique) Name(root string) string {
	if !n.taken[root] {
		n.taken[root] = true
		return root
	}
	for i := max(n.next[root], 1); ; i++ {
		name := root + strconv.Itoa(i)
		if n.taken[name] {
			continue
		}
		n.taken[name] = true
		n.next[root] = i + 1
		return name
	}
}
