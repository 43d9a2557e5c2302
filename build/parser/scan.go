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

package parser

import (
	"fmt"
	"strings"
	"text/scanner"

	"github.com/gx-org/prtcl/build/fmterr"
)

type token struct {
	tok  rune
	text string
	pos  scanner.Position
}

func (t token) String() string {
	if t.tok == scanner.EOF {
		return "end of file"
	}
	return fmt.Sprintf("%q", t.text)
}

// tokenize splits a source into tokens.
// Comments are skipped.
func tokenize(filename, src string) ([]token, error) {
	var s scanner.Scanner
	s.Init(strings.NewReader(src))
	s.Filename = filename
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats | scanner.ScanStrings | scanner.ScanComments | scanner.SkipComments
	var scanErr error
	s.Error = func(s *scanner.Scanner, msg string) {
		if scanErr == nil {
			scanErr = fmterr.Errorf(fmterr.SyntaxError, "%s: %s", s.Position, msg)
		}
	}
	var toks []token
	for {
		tok := s.Scan()
		if scanErr != nil {
			return nil, scanErr
		}
		toks = append(toks, token{tok: tok, text: s.TokenText(), pos: s.Position})
		if tok == scanner.EOF {
			return toks, nil
		}
	}
}

// adjacent returns true if there is no space between two tokens.
func adjacent(a, b token) bool {
	return a.pos.Offset+len(a.text) == b.pos.Offset
}
