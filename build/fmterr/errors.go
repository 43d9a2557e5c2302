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

package fmterr

import (
	"fmt"
	"slices"
	"strings"
)

// Errors is a list of errors reported together.
type Errors struct {
	errs []error
}

// Append an error to the list. Nil errors are ignored.
func (errs *Errors) Append(err error) {
	if err == nil {
		return
	}
	errs.errs = append(errs.errs, err)
}

// Len returns the number of errors in the list.
func (errs *Errors) Len() int {
	if errs == nil {
		return 0
	}
	return len(errs.errs)
}

// Empty returns true if the list has no error.
func (errs *Errors) Empty() bool {
	return errs.Len() == 0
}

// Error returns all the errors, one per line.
func (errs *Errors) Error() string {
	if errs.Len() == 1 {
		return errs.errs[0].Error()
	}
	var s strings.Builder
	fmt.Fprintf(&s, "%d errors:", errs.Len())
	for _, err := range errs.errs {
		s.WriteString("\n" + err.Error())
	}
	return s.String()
}

// Errors returns a copy of the list of errors.
func (errs *Errors) Errors() []error {
	if errs == nil {
		return nil
	}
	return slices.Clone(errs.errs)
}

// Unwrap returns all the errors so that errors.Is, errors.As, and Is
// look into each of them.
func (errs *Errors) Unwrap() []error {
	return errs.Errors()
}

// ToError returns the list as an error or nil if the list is empty.
func (errs *Errors) ToError() error {
	if errs.Empty() {
		return nil
	}
	return errs
}

// Format writes all the errors, one per line, with the same verb and flags.
func (errs *Errors) Format(s fmt.State, verb rune) {
	format := fmt.FormatString(s, verb)
	for i, err := range errs.errs {
		if i > 0 {
			fmt.Fprintln(s)
		}
		fmt.Fprintf(s, format, err)
	}
}

// String representation of the errors.
func (errs *Errors) String() string {
	return errs.Error()
}
