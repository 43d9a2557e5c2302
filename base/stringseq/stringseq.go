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

// Package stringseq joins sequences of strings.
package stringseq

import (
	"fmt"
	"iter"
	"strings"
)

// Append writes the elements of a sequence to a builder, separated by sep.
func Append(b *strings.Builder, seq iter.Seq[string], sep string) {
	first := true
	for item := range seq {
		if !first {
			b.WriteString(sep)
		}
		b.WriteString(item)
		first = false
	}
}

// Join concatenates the elements of a sequence, separated by sep.
func Join(seq iter.Seq[string], sep string) string {
	var b strings.Builder
	Append(&b, seq, sep)
	return b.String()
}

// Quoted returns a sequence of the quoted elements of another sequence.
func Quoted(seq iter.Seq[string]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for item := range seq {
			if !yield(fmt.Sprintf("%q", item)) {
				return
			}
		}
	}
}

// Stringers returns a sequence of the string representations of values.
func Stringers[T fmt.Stringer](seq iter.Seq[T]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for item := range seq {
			if !yield(item.String()) {
				return
			}
		}
	}
}
