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

// Package tmpl provides helper functions to generate code with Go templates.
package tmpl

import (
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// IterateFunc generates a string for each element of a slice.
// The result is all the strings joined by a new line.
func IterateFunc[T any](objs []T, f func(int, T) (string, error)) (string, error) {
	ss := make([]string, len(objs))
	for i, obj := range objs {
		var err error
		if ss[i], err = f(i, obj); err != nil {
			return "", err
		}
	}
	return strings.Join(ss, "\n"), nil
}

// IterateTmpl executes a template for each element of a slice.
// The result is the concatenation of all the outputs.
func IterateTmpl[T any](objs []T, tmpl *template.Template) (string, error) {
	var s strings.Builder
	for i, obj := range objs {
		if err := tmpl.Execute(&s, obj); err != nil {
			return "", errors.Errorf("cannot execute template %s on element %d: %v", tmpl.Name(), i, err)
		}
	}
	return s.String(), nil
}
