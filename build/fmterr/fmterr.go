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

// Package fmterr provides coded errors for the scheme compiler and helpers
// to accumulate them while walking a tree.
package fmterr

import "fmt"

// PrefixWith returns a function to prefix errors with a formatted string.
func PrefixWith(s string, o ...any) func(err error) error {
	return func(err error) error {
		return fmt.Errorf("%s%w", fmt.Sprintf(s, o...), err)
	}
}

// Codes returns all the codes found in an error tree, in depth-first order.
// Both single (Unwrap() error) and multiple (Unwrap() []error) wrapping are followed.
func Codes(err error) []Code {
	var codes []Code
	walk(err, func(e *Error) {
		codes = append(codes, e.Code)
	})
	return codes
}

// Is returns true if a code is found anywhere in an error tree.
func Is(err error, code Code) bool {
	found := false
	walk(err, func(e *Error) {
		found = found || e.Code == code
	})
	return found
}

func walk(err error, f func(*Error)) {
	if err == nil {
		return
	}
	if e, ok := err.(*Error); ok {
		f(e)
	}
	switch errT := err.(type) {
	case interface{ Unwrap() []error }:
		for _, sub := range errT.Unwrap() {
			walk(sub, f)
		}
	case interface{ Unwrap() error }:
		walk(errT.Unwrap(), f)
	}
}
