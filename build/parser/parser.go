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

// Package parser parses schemes written in the textual grammar:
//
//	scheme <name> {
//		fields { <alias> = <suffix>("<field name>") ... }
//		global { <alias> = g<type><rank>("<field name>") ... }
//		groups "<group type>" { <alias> = <suffix>("<field name>") ... }
//		procedure <name>() {
//			<statement>, ...
//		}
//	}
//
// Statements are equations, foreach_particle(...), foreach_neighbor(...),
// and if_group_type("<group type>", ..., else(...)).
// An equation is <alias>[i|j] <op> <expr> where op is one of
// = += -= *= /= max= min=. Global fields are not indexed.
package parser

import (
	"io/fs"
	"strconv"
	"text/scanner"

	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
)

type (
	pendingRef struct {
		ref *ir.FieldRef
		pos scanner.Position
		// indexed is true if the reference was followed by an index.
		indexed bool
	}

	parser struct {
		toks []token
		cur  int

		errs    *fmterr.Appender
		ns      *ir.Namespace
		pending []pendingRef
	}

	syntaxError struct {
		err error
	}
)

// Parse a single scheme from a source.
func Parse(filename, src string) (*ir.Scheme, error) {
	schemes, err := ParseAll(filename, src)
	if err != nil {
		return nil, err
	}
	if len(schemes) != 1 {
		return nil, fmterr.Errorf(fmterr.SyntaxError, "%s: found %d schemes but want exactly one", filename, len(schemes))
	}
	return schemes[0], nil
}

// ParseFile parses all the schemes of a file.
func ParseFile(fsys fs.FS, path string) ([]*ir.Scheme, error) {
	src, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	return ParseAll(path, string(src))
}

// ParseAll parses all the schemes of a source.
func ParseAll(filename, src string) (schemes []*ir.Scheme, err error) {
	toks, err := tokenize(filename, src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		synErr, ok := r.(syntaxError)
		if !ok {
			panic(r)
		}
		schemes, err = nil, synErr.err
	}()
	for p.peek().tok != scanner.EOF {
		scheme, err := p.scheme()
		if err != nil {
			return nil, err
		}
		schemes = append(schemes, scheme)
	}
	return schemes, nil
}

func (p *parser) peek() token {
	return p.toks[p.cur]
}

func (p *parser) peekAt(n int) token {
	if p.cur+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.cur+n]
}

func (p *parser) next() token {
	t := p.toks[p.cur]
	if t.tok != scanner.EOF {
		p.cur++
	}
	return t
}

// failf aborts the parsing with a syntax error.
func (p *parser) failf(t token, format string, a ...any) {
	args := append([]any{t.pos}, a...)
	panic(syntaxError{err: fmterr.Errorf(fmterr.SyntaxError, "%s: "+format, args...)})
}

func (p *parser) expect(text string) token {
	t := p.next()
	if t.text != text || t.tok == scanner.String {
		p.failf(t, "expected %q but got %s", text, t)
	}
	return t
}

func (p *parser) accept(text string) bool {
	t := p.peek()
	if t.text != text || t.tok == scanner.String {
		return false
	}
	p.next()
	return true
}

func (p *parser) ident() token {
	t := p.next()
	if t.tok != scanner.Ident {
		p.failf(t, "expected an identifier but got %s", t)
	}
	return t
}

func (p *parser) str() string {
	t := p.next()
	if t.tok != scanner.String {
		p.failf(t, "expected a string but got %s", t)
	}
	s, err := strconv.Unquote(t.text)
	if err != nil {
		p.failf(t, "invalid string %s: %v", t.text, err)
	}
	return s
}

func (p *parser) scheme() (*ir.Scheme, error) {
	p.errs = fmterr.NewAppender()
	p.ns = ir.NewNamespace()
	p.pending = nil
	p.expect("scheme")
	name := p.ident()
	p.errs.PushPath("scheme " + name.text)
	p.expect("{")
	var stmts []ir.Node
	for !p.accept("}") {
		t := p.next()
		switch t.text {
		case "fields":
			p.decls(false)
		case "global":
			if n := p.global(); n != nil {
				stmts = append(stmts, n)
			}
		case "groups":
			if n := p.groups(); n != nil {
				stmts = append(stmts, n)
			}
		case "procedure":
			if n := p.procedure(); n != nil {
				stmts = append(stmts, n)
			}
		default:
			p.failf(t, "expected fields, global, groups, or procedure but got %s", t)
		}
	}
	p.resolve()
	p.errs.Pop()
	if err := p.errs.ToError(); err != nil {
		return nil, err
	}
	scheme, err := ir.NewScheme(name.text, stmts...)
	if err != nil {
		return nil, err
	}
	if err := ir.Validate(scheme); err != nil {
		return nil, err
	}
	return scheme, nil
}

// decls parses a list of declarations.
// The declarations are bound in the namespace of the scheme.
func (p *parser) decls(keepDecls bool) []ir.FieldDecl {
	p.expect("{")
	var decls []ir.FieldDecl
	for !p.accept("}") {
		alias := p.ident()
		p.expect("=")
		suffix := p.ident()
		p.expect("(")
		name := p.str()
		p.expect(")")
		p.accept(",")
		f, err := ir.FieldFromSuffix(suffix.text, name)
		if err != nil {
			p.errs.Append(fmterr.PrefixWith("%s: ", alias.pos)(err))
			continue
		}
		decl := ir.FieldDecl{Alias: alias.text, Field: f}
		if err := p.ns.Declare(decl); err != nil {
			p.errs.Append(fmterr.PrefixWith("%s: ", alias.pos)(err))
			continue
		}
		if keepDecls {
			decls = append(decls, decl)
		}
	}
	return decls
}

func (p *parser) global() ir.Node {
	t := p.peek()
	n, err := ir.NewGlobal(p.decls(true)...)
	if err != nil {
		p.errs.Append(fmterr.PrefixWith("%s: ", t.pos)(err))
		return nil
	}
	return n
}

func (p *parser) groups() ir.Node {
	t := p.next()
	var groupType string
	switch t.tok {
	case scanner.String:
		groupType, _ = strconv.Unquote(t.text)
	case scanner.Ident:
		groupType = t.text
	default:
		p.failf(t, "expected a group type but got %s", t)
	}
	n, err := ir.NewGroups(groupType, p.decls(true)...)
	if err != nil {
		p.errs.Append(fmterr.PrefixWith("%s: ", t.pos)(err))
		return nil
	}
	return n
}

func (p *parser) procedure() ir.Node {
	name := p.ident()
	p.expect("(")
	p.expect(")")
	p.expect("{")
	p.errs.PushPath("procedure " + name.text)
	defer p.errs.Pop()
	stmts, _ := p.stmts("}", false)
	n, err := ir.NewProcedure(name.text, stmts...)
	if err != nil {
		p.errs.Append(err)
		return nil
	}
	return n
}

// stmts parses statements until a closing token.
// If allowElse is true, the list can end with an else branch.
func (p *parser) stmts(closing string, allowElse bool) (stmts, els []ir.Node) {
	for !p.accept(closing) {
		t := p.peek()
		if t.text == "else" && p.peekAt(1).text == "(" {
			if !allowElse || els != nil {
				p.failf(t, "unexpected else")
			}
			p.next()
			p.next()
			els, _ = p.stmts(")", false)
			if els == nil {
				els = []ir.Node{}
			}
			p.accept(",")
			continue
		}
		if els != nil {
			p.failf(t, "else must be the last argument of if_group_type")
		}
		if n := p.stmt(); n != nil {
			stmts = append(stmts, n)
		}
		p.accept(",")
	}
	if len(els) == 0 {
		els = nil
	}
	return stmts, els
}

func (p *parser) stmt() ir.Node {
	t := p.peek()
	if t.tok != scanner.Ident {
		p.failf(t, "expected a statement but got %s", t)
	}
	switch {
	case t.text == "foreach_particle" && p.peekAt(1).text == "(":
		p.next()
		p.next()
		body, _ := p.stmts(")", false)
		n, err := ir.NewForeachParticle(body...)
		return p.node(t, n, err)
	case t.text == "foreach_neighbor" && p.peekAt(1).text == "(":
		p.next()
		p.next()
		body, _ := p.stmts(")", false)
		n, err := ir.NewForeachNeighbor(body...)
		return p.node(t, n, err)
	case t.text == "if_group_type" && p.peekAt(1).text == "(":
		p.next()
		p.next()
		groupType := p.str()
		var then, els []ir.Node
		if p.accept(",") {
			then, els = p.stmts(")", true)
		} else {
			p.expect(")")
		}
		n, err := ir.NewIfGroupType(groupType, then, els)
		return p.node(t, n, err)
	}
	return p.equation()
}

func (p *parser) node(t token, n ir.Node, err error) ir.Node {
	if err != nil {
		p.errs.Append(fmterr.PrefixWith("%s: ", t.pos)(err))
		return nil
	}
	return n
}

func (p *parser) op() irkind.Op {
	t := p.next()
	text := t.text
	switch text {
	case "+", "-", "*", "/", "max", "min":
		eq := p.next()
		if eq.text != "=" || !adjacent(t, eq) {
			p.failf(t, "expected an equation operator but got %s", t)
		}
		text += "="
	}
	op, err := irkind.OpFromToken(text)
	if err != nil {
		p.failf(t, "expected an equation operator but got %s", t)
	}
	return op
}

func (p *parser) equation() ir.Node {
	t := p.peek()
	target := p.fieldRef(p.ident())
	op := p.op()
	value := p.expr()
	n, err := ir.NewEquation(op, target, value)
	return p.node(t, n, err)
}

// fieldRef parses a reference to a field.
// The field is resolved once the whole scheme has been parsed.
func (p *parser) fieldRef(alias token) *ir.FieldRef {
	ref := &ir.FieldRef{Alias: alias.text}
	pending := pendingRef{ref: ref, pos: alias.pos}
	if p.accept("[") {
		index := p.ident()
		role, err := irkind.RoleFromIndex(index.text)
		if err != nil {
			p.failf(index, "invalid index %s: want i or j", index)
		}
		p.expect("]")
		ref.Role = role
		pending.indexed = true
	}
	p.pending = append(p.pending, pending)
	return ref
}

func (p *parser) resolve() {
	for _, pending := range p.pending {
		ref := pending.ref
		f, ok := p.ns.Lookup(ref.Alias)
		if !ok {
			p.errs.Appendf(fmterr.UnknownField, "%s: undeclared field alias %s", pending.pos, ref.Alias)
			continue
		}
		ref.Field = f
		switch {
		case f.Kind == irkind.Global && pending.indexed:
			p.errs.Appendf(fmterr.InvalidIndexRole, "%s: global field %s cannot be indexed", pending.pos, ref.Alias)
		case f.Kind != irkind.Global && !pending.indexed:
			p.errs.Appendf(fmterr.InvalidIndexRole, "%s: %s field %s needs to be indexed by i or j", pending.pos, f.Kind, ref.Alias)
		}
	}
}

func (p *parser) expr() ir.Expr {
	x := p.term()
	for {
		t := p.peek()
		var op irkind.Operator
		switch t.text {
		case "+":
			op = irkind.Plus
		case "-":
			op = irkind.Minus
		default:
			return x
		}
		p.next()
		x = &ir.Binary{Op: op, X: x, Y: p.term()}
	}
}

func (p *parser) term() ir.Expr {
	x := p.unary()
	for {
		t := p.peek()
		var op irkind.Operator
		switch t.text {
		case "*":
			op = irkind.Times
		case "/":
			op = irkind.Divide
		default:
			return x
		}
		p.next()
		x = &ir.Binary{Op: op, X: x, Y: p.unary()}
	}
}

func (p *parser) unary() ir.Expr {
	t := p.peek()
	if t.text != "-" {
		return p.primary()
	}
	p.next()
	num := p.peek()
	if (num.tok == scanner.Int || num.tok == scanner.Float) && adjacent(t, num) {
		lit := p.primary().(*ir.Literal)
		lit.Value = -lit.Value
		return lit
	}
	return &ir.Unary{Op: irkind.Minus, X: p.unary()}
}

func (p *parser) primary() ir.Expr {
	t := p.next()
	switch t.tok {
	case scanner.Int:
		v, err := strconv.ParseInt(t.text, 0, 64)
		if err != nil {
			p.failf(t, "invalid integer %s: %v", t.text, err)
		}
		return ir.IndexLiteral(v)
	case scanner.Float:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			p.failf(t, "invalid number %s: %v", t.text, err)
		}
		return ir.RealLiteral(v)
	case scanner.Ident:
		switch {
		case t.text == "true":
			return ir.BoolLiteral(true)
		case t.text == "false":
			return ir.BoolLiteral(false)
		case p.peek().text == "(":
			return p.call(t)
		}
		return p.fieldRef(t)
	}
	if t.text == "(" {
		x := p.expr()
		p.expect(")")
		return x
	}
	p.failf(t, "expected an expression but got %s", t)
	return nil
}

func (p *parser) call(name token) ir.Expr {
	f, err := irkind.FuncFromName(name.text)
	if err != nil {
		p.errs.Append(fmterr.PrefixWith("%s: ", name.pos)(err))
	}
	p.expect("(")
	var args []ir.Expr
	for !p.accept(")") {
		args = append(args, p.expr())
		if !p.accept(",") {
			p.expect(")")
			break
		}
	}
	return &ir.Call{Func: f, Args: args}
}
