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
	"runtime/debug"

	"github.com/pkg/errors"
)

// Code identifies a class of errors reported by the compiler or the runtime.
type Code int

// Error codes.
const (
	Unknown Code = iota
	InvalidEnumerator
	DuplicateGlobalBlock
	InvalidFieldKind
	DuplicateFieldAlias
	FieldKindMismatch
	UnknownScheme
	UnknownGroupType
	UnresolvedFieldReference
	InvalidAssignmentTarget
	ShapeError
	InvalidIndexRole
	DuplicateProcedure
	UnknownProcedure
	UnknownField
	InvalidNode
	SyntaxError
	GroupTypeMismatch

	// MaxCode is the number of error codes.
	MaxCode
)

var codeNames = [...]string{
	Unknown:                  "unknown error",
	InvalidEnumerator:        "invalid enumerator",
	DuplicateGlobalBlock:     "duplicate global block",
	InvalidFieldKind:         "invalid field kind",
	DuplicateFieldAlias:      "duplicate field alias",
	FieldKindMismatch:        "field kind mismatch",
	UnknownScheme:            "unknown scheme",
	UnknownGroupType:         "unknown group type",
	UnresolvedFieldReference: "unresolved field reference",
	InvalidAssignmentTarget:  "invalid assignment target",
	ShapeError:               "shape error",
	InvalidIndexRole:         "invalid index role",
	DuplicateProcedure:       "duplicate procedure",
	UnknownProcedure:         "unknown procedure",
	UnknownField:             "unknown field",
	InvalidNode:              "invalid node",
	SyntaxError:              "syntax error",
	GroupTypeMismatch:        "group type mismatch",
}

// String returns a human readable description of the code.
func (c Code) String() string {
	if c < 0 || c >= MaxCode {
		return fmt.Sprintf("code(%d)", int(c))
	}
	return codeNames[c]
}

// Error is an error tagged with a code.
type Error struct {
	Code Code
	Err  error
}

// Errorf returns a new error with a code and a stack trace.
func Errorf(code Code, format string, a ...any) error {
	return &Error{Code: code, Err: errors.Errorf(format, a...)}
}

// Wrap tags an existing error with a code.
// Returns nil if err is nil.
func Wrap(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: errors.WithStack(err)}
}

// Internal marks an error as internal, potentially adding additional information.
func Internal(err error) error {
	return fmt.Errorf("prtcl internal error. This is a bug in prtcl. Please report it. Error:\n%+v", err)
}

// Internalf returns a formatted internal error.
func Internalf(format string, a ...any) error {
	return Internal(errors.Errorf(format, a...))
}

// Error returns a string description of the error.
func (err *Error) Error() (s string) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		s = fmt.Sprintf("recovered from panic when building error message: %T:\n%v", err.Err, string(debug.Stack()))
	}()
	return err.Code.String() + ": " + err.Err.Error()
}

// Unwrap the error.
func (err *Error) Unwrap() error {
	return err.Err
}

// Format writes the error into the state of the formatter.
func (err *Error) Format(s fmt.State, verb rune) {
	format(err, s, verb)
}
