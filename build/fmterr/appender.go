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

import "errors"

type (
	// ErrAppender accumulates errors.
	ErrAppender interface {
		// Err returns the accumulator.
		Err() *Appender
	}

	frame struct {
		prefix func(error) error
		isPath bool
		errs   Errors
	}

	// Appender appends errors to a set within the context of a path in a tree.
	// Every pushed context prefixes the errors appended until it is popped.
	Appender struct {
		stack  []frame
		path   []string
		errors Errors
	}
)

// NewAppender returns an appender with its own set of errors.
func NewAppender() *Appender {
	return &Appender{}
}

// Push a context transforming the errors appended until the matching Pop.
func (app *Appender) Push(f func(error) error) {
	app.stack = append(app.stack, frame{prefix: f})
}

// PushPath pushes a named context. Errors appended until the matching Pop
// are prefixed with the name.
func (app *Appender) PushPath(name string) {
	app.path = append(app.path, name)
	app.stack = append(app.stack, frame{prefix: PrefixWith("%s: ", name), isPath: true})
}

// Pop removes the last context and appends its errors to the enclosing one.
func (app *Appender) Pop() {
	last := app.stack[len(app.stack)-1]
	app.stack = app.stack[:len(app.stack)-1]
	if last.isPath {
		app.path = app.path[:len(app.path)-1]
	}
	for _, err := range last.errs.errs {
		app.Append(last.prefix(err))
	}
}

// Path returns the current path.
func (app *Appender) Path() []string {
	return append([]string{}, app.path...)
}

// Append an error to the list of errors.
// Always returns false so that it can be used in a return statement of a check.
func (app *Appender) Append(err error) bool {
	if err == nil {
		return true
	}
	if len(app.stack) == 0 {
		app.errors.Append(err)
	} else {
		app.stack[len(app.stack)-1].errs.Append(err)
	}
	return false
}

// Appendf appends a coded error.
func (app *Appender) Appendf(code Code, format string, a ...any) bool {
	return app.Append(Errorf(code, format, a...))
}

// AppendInternalf appends an internal error.
func (app *Appender) AppendInternalf(format string, a ...any) bool {
	return app.Append(Internalf(format, a...))
}

// Errors returns the set of errors or nil if no errors has been appended.
func (app *Appender) Errors() *Errors {
	if len(app.stack) > 0 {
		var errs Errors
		errs.Append(Internal(errors.New("cannot fetch errors while the context stack is non-empty")))
		return &errs
	}
	if app.errors.Empty() {
		return nil
	}
	return &app.errors
}

// ToError returns the accumulated errors or nil.
func (app *Appender) ToError() error {
	errs := app.Errors()
	if errs == nil {
		return nil
	}
	return errs
}

// Empty returns true if no errors has been appended.
func (app *Appender) Empty() bool {
	empty := app.errors.Empty()
	if !empty {
		return false
	}
	for _, fr := range app.stack {
		if !fr.errs.Empty() {
			return false
		}
	}
	return true
}

// String representation of the error.
func (app *Appender) String() string {
	return app.errors.String()
}
