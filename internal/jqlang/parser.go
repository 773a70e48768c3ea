package jqlang

import (
	"fmt"

	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/value"
)

// Parse turns jq filter source text into a Filter AST (spec §3.3/§11). It
// is a hand-written recursive-descent parser with precedence climbing
// across the binary-operator levels, following jq's own grammar
// precedence (pipe loosest, then comma, then //, then the assignment
// operators, then or/and/comparisons/+-/*%, tightest).
func Parse(src string) (*ast.Filter, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, fmt.Errorf("jqlang: unexpected trailing token %q", p.cur().text)
	}
	return &ast.Filter{Root: root}, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token {
	return p.toks[p.pos]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	if p.cur().kind != k {
		return token{}, fmt.Errorf("jqlang: expected %s, got %q", what, p.cur().text)
	}
	return p.advance(), nil
}

func (p *parser) parsePipe() (ast.Node, error) {
	if p.cur().kind == tokDef {
		def, err := p.parseFuncDef()
		if err != nil {
			return nil, err
		}
		rest, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		def.Rest = rest
		return def, nil
	}
	left, err := p.parseComma()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tokAs {
		p.advance()
		pats, err := p.parsePatternList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokPipe, "'|'"); err != nil {
			return nil, err
		}
		body, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		bind := &ast.Bind{Expr: left, Pattern: pats[0], Body: body}
		if len(pats) > 1 {
			bind.AltPatterns = pats[1:]
		}
		return bind, nil
	}
	if p.cur().kind == tokPipe {
		p.advance()
		right, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		return &ast.Pipe{Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseComma() (ast.Node, error) {
	left, err := p.parseAlt()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokComma {
		p.advance()
		right, err := p.parseAlt()
		if err != nil {
			return nil, err
		}
		left = &ast.Comma{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAlt() (ast.Node, error) {
	left, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tokAlt {
		p.advance()
		right, err := p.parseAlt()
		if err != nil {
			return nil, err
		}
		return &ast.Alternative{Left: left, Right: right}, nil
	}
	return left, nil
}

var assignOps = map[tokenKind]ast.UpdateOp{
	tokAssign:   ast.UpdateAssign,
	tokSetPlus:  ast.UpdateAdd,
	tokSetMinus: ast.UpdateSub,
	tokSetMul:   ast.UpdateMul,
	tokSetDiv:   ast.UpdateDiv,
	tokSetMod:   ast.UpdateMod,
	tokSetAlt:   ast.UpdateAlt,
}

func (p *parser) parseAssign() (ast.Node, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if op, ok := assignOps[p.cur().kind]; ok {
		p.advance()
		right, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if op == ast.UpdateAssign {
			return &ast.PathUpdate{Op: ast.UpdateAssign, PathExpr: left, Rhs: right}, nil
		}
		return &ast.PathUpdate{Op: op, PathExpr: left, Rhs: right}, nil
	}
	return left, nil
}

func (p *parser) parseOr() (ast.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BoolOp{And: false, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Node, error) {
	left, err := p.parseCompare()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokAnd {
		p.advance()
		right, err := p.parseCompare()
		if err != nil {
			return nil, err
		}
		left = &ast.BoolOp{And: true, Left: left, Right: right}
	}
	return left, nil
}

var compareOps = map[tokenKind]ast.CompareOp{
	tokEq: ast.CmpEq,
	tokNe: ast.CmpNe,
	tokLt: ast.CmpLt,
	tokLe: ast.CmpLe,
	tokGt: ast.CmpGt,
	tokGe: ast.CmpGe,
}

func (p *parser) parseCompare() (ast.Node, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	if op, ok := compareOps[p.cur().kind]; ok {
		p.advance()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return &ast.Compare{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseAdd() (ast.Node, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokPlus || p.cur().kind == tokMinus {
		op := ast.ArithAdd
		if p.cur().kind == tokMinus {
			op = ast.ArithSub
		}
		p.advance()
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = &ast.Arith{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMul() (ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokStar || p.cur().kind == tokSlash || p.cur().kind == tokPercent {
		var op ast.ArithOp
		switch p.cur().kind {
		case tokStar:
			op = ast.ArithMul
		case tokSlash:
			op = ast.ArithDiv
		case tokPercent:
			op = ast.ArithMod
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Arith{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Node, error) {
	if p.cur().kind == tokMinus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Negate{Expr: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (ast.Node, error) {
	term, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().kind {
		case tokDot:
			p.advance()
			switch p.cur().kind {
			case tokIdent:
				name := p.advance().text
				term = p.maybeOptional(term, name)
			case tokStringPart:
				lit, err := p.parseSimpleStringPart()
				if err != nil {
					return nil, err
				}
				term = p.maybeOptional(term, lit)
			case tokLBracket:
				p.advance()
				idx, err := p.parseBracketBody()
				if err != nil {
					return nil, err
				}
				term = &ast.Pipe{Left: term, Right: idx}
			default:
				return nil, fmt.Errorf("jqlang: expected field name after '.'")
			}
		case tokLBracket:
			p.advance()
			idx, err := p.parseBracketBody()
			if err != nil {
				return nil, err
			}
			term = &ast.Pipe{Left: term, Right: idx}
		case tokQuestion:
			p.advance()
			term = &ast.TryCatch{Body: term}
		default:
			return term, nil
		}
	}
}

func (p *parser) maybeOptional(term ast.Node, name string) ast.Node {
	var field ast.Node
	if p.cur().kind == tokQuestion {
		p.advance()
		field = &ast.OptionalField{Name: name}
	} else {
		field = &ast.Field{Name: name}
	}
	if _, ok := term.(*ast.Identity); ok {
		return field
	}
	return &ast.Pipe{Left: term, Right: field}
}

// parseBracketBody parses the inside of `[ ... ]` immediately after the
// opening bracket has been consumed: empty for `[]` (iterate), `a:b` for a
// slice, or a single index expression.
func (p *parser) parseBracketBody() (ast.Node, error) {
	if p.cur().kind == tokRBracket {
		p.advance()
		return &ast.Iterate{}, nil
	}
	var first ast.Node
	var err error
	if p.cur().kind != tokColon {
		first, err = p.parsePipe()
		if err != nil {
			return nil, err
		}
	}
	if p.cur().kind == tokColon {
		p.advance()
		var second ast.Node
		if p.cur().kind != tokRBracket {
			second, err = p.parsePipe()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		return &ast.Slice{From: first, To: second}, nil
	}
	if _, err := p.expect(tokRBracket, "']'"); err != nil {
		return nil, err
	}
	return &ast.Index{IndexExpr: first}, nil
}

func (p *parser) parsePrimary() (ast.Node, error) {
	switch p.cur().kind {
	case tokDot:
		p.advance()
		switch p.cur().kind {
		case tokIdent:
			name := p.advance().text
			if p.cur().kind == tokQuestion {
				p.advance()
				return &ast.OptionalField{Name: name}, nil
			}
			return &ast.Field{Name: name}, nil
		case tokStringPart:
			lit, err := p.parseSimpleStringPart()
			if err != nil {
				return nil, err
			}
			if p.cur().kind == tokQuestion {
				p.advance()
				return &ast.OptionalField{Name: lit}, nil
			}
			return &ast.Field{Name: lit}, nil
		case tokLBracket:
			p.advance()
			return p.parseBracketBody()
		default:
			return &ast.Identity{}, nil
		}
	case tokDotDot:
		p.advance()
		return &ast.Recurse{}, nil
	case tokVar:
		name := p.advance().text
		return &ast.Var{Name: name}, nil
	case tokFormat:
		name := p.advance().text
		if p.cur().kind == tokStringPart {
			body, err := p.parseStringLiteral()
			if err != nil {
				return nil, err
			}
			return &ast.FormatNode{Name: ast.Format(name), Body: body}, nil
		}
		return &ast.FormatNode{Name: ast.Format(name)}, nil
	case tokNumber:
		t := p.advance()
		return &ast.Literal{Val: value.FloatRaw(t.num, t.text)}, nil
	case tokStringPart:
		return p.parseStringLiteral()
	case tokLBracket:
		p.advance()
		if p.cur().kind == tokRBracket {
			p.advance()
			return &ast.ArrayConstruct{}, nil
		}
		body, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		return &ast.ArrayConstruct{Body: body}, nil
	case tokLBrace:
		return p.parseObjectConstruct()
	case tokLParen:
		p.advance()
		inner, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case tokIf:
		return p.parseIf()
	case tokTry:
		return p.parseTry()
	case tokReduce:
		return p.parseReduce()
	case tokForeach:
		return p.parseForeach()
	case tokLabel:
		p.advance()
		v, err := p.expect(tokVar, "label variable")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokPipe, "'|'"); err != nil {
			return nil, err
		}
		body, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		return &ast.Label{Name: v.text, Body: body}, nil
	case tokBreak:
		p.advance()
		v, err := p.expect(tokVar, "break variable")
		if err != nil {
			return nil, err
		}
		return &ast.Break{Name: v.text}, nil
	case tokMinus:
		p.advance()
		operand, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		return &ast.Negate{Expr: operand}, nil
	case tokIdent:
		return p.parseFuncCall()
	default:
		return nil, fmt.Errorf("jqlang: unexpected token %q", p.cur().text)
	}
}

func (p *parser) parseFuncCall() (ast.Node, error) {
	name := p.advance().text
	var args []ast.Node
	if p.cur().kind == tokLParen {
		p.advance()
		for {
			arg, err := p.parsePipe()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur().kind == tokSemicolon {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
	}
	if len(args) == 0 {
		switch name {
		case "true":
			return &ast.Literal{Val: value.Bool(true)}, nil
		case "false":
			return &ast.Literal{Val: value.Bool(false)}, nil
		case "null":
			return &ast.Literal{Val: value.Null}, nil
		}
	}
	return &ast.FuncCall{Name: name, Args: args}, nil
}

func (p *parser) parseFuncDef() (*ast.FuncDef, error) {
	if _, err := p.expect(tokDef, "'def'"); err != nil {
		return nil, err
	}
	name, err := p.expect(tokIdent, "function name")
	if err != nil {
		return nil, err
	}
	var params []string
	if p.cur().kind == tokLParen {
		p.advance()
		for {
			if p.cur().kind == tokVar {
				params = append(params, "$"+p.advance().text)
			} else {
				id, err := p.expect(tokIdent, "parameter name")
				if err != nil {
					return nil, err
				}
				params = append(params, id.text)
			}
			if p.cur().kind == tokSemicolon {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	body, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokSemicolon, "';'"); err != nil {
		return nil, err
	}
	return &ast.FuncDef{Name: name.text, Params: params, Body: body}, nil
}

func (p *parser) parseIf() (ast.Node, error) {
	if _, err := p.expect(tokIf, "'if'"); err != nil {
		return nil, err
	}
	cond, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokThen, "'then'"); err != nil {
		return nil, err
	}
	then, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	elseBranch, err := p.parseIfRest()
	if err != nil {
		return nil, err
	}
	return &ast.IfThenElse{Cond: cond, Then: then, Else: elseBranch}, nil
}

func (p *parser) parseIfRest() (ast.Node, error) {
	switch p.cur().kind {
	case tokElif:
		p.advance()
		cond, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokThen, "'then'"); err != nil {
			return nil, err
		}
		then, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		rest, err := p.parseIfRest()
		if err != nil {
			return nil, err
		}
		return &ast.IfThenElse{Cond: cond, Then: then, Else: rest}, nil
	case tokElse:
		p.advance()
		body, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokEnd, "'end'"); err != nil {
			return nil, err
		}
		return body, nil
	case tokEnd:
		p.advance()
		return nil, nil
	default:
		return nil, fmt.Errorf("jqlang: expected 'elif', 'else' or 'end', got %q", p.cur().text)
	}
}

func (p *parser) parseTry() (ast.Node, error) {
	p.advance()
	body, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tokCatch {
		p.advance()
		handler, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		return &ast.TryCatch{Body: body, Handler: handler}, nil
	}
	return &ast.TryCatch{Body: body}, nil
}

func (p *parser) parseReduce() (ast.Node, error) {
	p.advance()
	source, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokAs, "'as'"); err != nil {
		return nil, err
	}
	pat, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	init, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokSemicolon, "';'"); err != nil {
		return nil, err
	}
	update, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return &ast.Reduce{Source: source, Init: init, Update: update, Pattern: pat}, nil
}

func (p *parser) parseForeach() (ast.Node, error) {
	p.advance()
	source, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokAs, "'as'"); err != nil {
		return nil, err
	}
	pat, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	init, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokSemicolon, "';'"); err != nil {
		return nil, err
	}
	update, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	var extract ast.Node
	if p.cur().kind == tokSemicolon {
		p.advance()
		extract, err = p.parsePipe()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return &ast.Foreach{Source: source, Init: init, Update: update, Extract: extract, Pattern: pat}, nil
}

func (p *parser) parsePatternList() ([]ast.Pattern, error) {
	first, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	pats := []ast.Pattern{first}
	for p.cur().kind == tokQuestionSlashSlash {
		p.advance()
		next, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		pats = append(pats, next)
	}
	return pats, nil
}

func (p *parser) parsePattern() (ast.Pattern, error) {
	switch p.cur().kind {
	case tokVar:
		name := p.advance().text
		return ast.Pattern{Var: name}, nil
	case tokLBracket:
		p.advance()
		var elems []ast.Pattern
		if p.cur().kind != tokRBracket {
			for {
				el, err := p.parsePattern()
				if err != nil {
					return ast.Pattern{}, err
				}
				elems = append(elems, el)
				if p.cur().kind == tokComma {
					p.advance()
					continue
				}
				break
			}
		}
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return ast.Pattern{}, err
		}
		return ast.Pattern{ArrayPat: elems}, nil
	case tokLBrace:
		p.advance()
		var entries []ast.ObjectPatEntry
		if p.cur().kind != tokRBrace {
			for {
				entry, err := p.parseObjectPatEntry()
				if err != nil {
					return ast.Pattern{}, err
				}
				entries = append(entries, entry)
				if p.cur().kind == tokComma {
					p.advance()
					continue
				}
				break
			}
		}
		if _, err := p.expect(tokRBrace, "'}'"); err != nil {
			return ast.Pattern{}, err
		}
		return ast.Pattern{ObjectPat: entries}, nil
	default:
		return ast.Pattern{}, fmt.Errorf("jqlang: expected a binding pattern, got %q", p.cur().text)
	}
}

func (p *parser) parseObjectPatEntry() (ast.ObjectPatEntry, error) {
	switch p.cur().kind {
	case tokVar:
		name := p.advance().text
		if p.cur().kind == tokColon {
			p.advance()
			pat, err := p.parsePattern()
			if err != nil {
				return ast.ObjectPatEntry{}, err
			}
			return ast.ObjectPatEntry{Key: name, Pat: pat}, nil
		}
		return ast.ObjectPatEntry{Key: name, Pat: ast.Pattern{Var: name}}, nil
	case tokIdent:
		name := p.advance().text
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return ast.ObjectPatEntry{}, err
		}
		pat, err := p.parsePattern()
		if err != nil {
			return ast.ObjectPatEntry{}, err
		}
		return ast.ObjectPatEntry{Key: name, Pat: pat}, nil
	case tokStringPart:
		lit, err := p.parseSimpleStringPart()
		if err != nil {
			return ast.ObjectPatEntry{}, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return ast.ObjectPatEntry{}, err
		}
		pat, err := p.parsePattern()
		if err != nil {
			return ast.ObjectPatEntry{}, err
		}
		return ast.ObjectPatEntry{Key: lit, Pat: pat}, nil
	case tokLParen:
		p.advance()
		keyExpr, err := p.parsePipe()
		if err != nil {
			return ast.ObjectPatEntry{}, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return ast.ObjectPatEntry{}, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return ast.ObjectPatEntry{}, err
		}
		pat, err := p.parsePattern()
		if err != nil {
			return ast.ObjectPatEntry{}, err
		}
		return ast.ObjectPatEntry{KeyExpr: keyExpr, Pat: pat}, nil
	default:
		return ast.ObjectPatEntry{}, fmt.Errorf("jqlang: expected object pattern key, got %q", p.cur().text)
	}
}

func (p *parser) parseObjectConstruct() (ast.Node, error) {
	p.advance() // '{'
	var entries []ast.ObjectEntry
	if p.cur().kind != tokRBrace {
		for {
			entry, err := p.parseObjectEntry()
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return &ast.ObjectConstruct{Entries: entries}, nil
}

func (p *parser) parseObjectEntry() (ast.ObjectEntry, error) {
	switch p.cur().kind {
	case tokVar:
		name := p.advance().text
		if p.cur().kind == tokColon {
			p.advance()
			val, err := p.parseObjVal()
			if err != nil {
				return ast.ObjectEntry{}, err
			}
			return ast.ObjectEntry{KeyName: name, Val: val}, nil
		}
		return ast.ObjectEntry{KeyName: name, VarShorthand: true}, nil
	case tokIdent:
		name := p.advance().text
		if p.cur().kind == tokColon {
			p.advance()
			val, err := p.parseObjVal()
			if err != nil {
				return ast.ObjectEntry{}, err
			}
			return ast.ObjectEntry{KeyName: name, Val: val}, nil
		}
		return ast.ObjectEntry{KeyName: name}, nil
	case tokStringPart:
		lit, err := p.parseSimpleStringPart()
		if err != nil {
			return ast.ObjectEntry{}, err
		}
		if p.cur().kind == tokColon {
			p.advance()
			val, err := p.parseObjVal()
			if err != nil {
				return ast.ObjectEntry{}, err
			}
			return ast.ObjectEntry{KeyName: lit, Val: val}, nil
		}
		return ast.ObjectEntry{KeyName: lit}, nil
	case tokLParen:
		p.advance()
		keyExpr, err := p.parsePipe()
		if err != nil {
			return ast.ObjectEntry{}, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return ast.ObjectEntry{}, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return ast.ObjectEntry{}, err
		}
		val, err := p.parseObjVal()
		if err != nil {
			return ast.ObjectEntry{}, err
		}
		return ast.ObjectEntry{KeyExpr: keyExpr, Val: val}, nil
	default:
		return ast.ObjectEntry{}, fmt.Errorf("jqlang: expected object key, got %q", p.cur().text)
	}
}

// parseObjVal parses an object-construct value: jq's ObjVal grammar allows
// pipe but not a bare comma (comma there means the next entry).
func (p *parser) parseObjVal() (ast.Node, error) {
	left, err := p.parseAlt()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokPipe {
		p.advance()
		right, err := p.parseAlt()
		if err != nil {
			return nil, err
		}
		left = &ast.Pipe{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseStringLiteral() (ast.Node, error) {
	part, err := p.expect(tokStringPart, "string literal")
	if err != nil {
		return nil, err
	}
	lits := []string{part.lit}
	var exprs []ast.Node
	for !part.last {
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return nil, err
		}
		expr, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		part, err = p.expect(tokStringPart, "string literal continuation")
		if err != nil {
			return nil, err
		}
		lits = append(lits, part.lit)
	}
	if len(exprs) == 0 {
		return &ast.Literal{Val: value.String(lits[0])}, nil
	}
	return &ast.StringInterpolation{Lits: lits, Exprs: exprs}, nil
}

// parseSimpleStringPart parses a string literal expected to carry no
// interpolation (object/pattern keys, `.["field"]`) and returns its text.
func (p *parser) parseSimpleStringPart() (string, error) {
	node, err := p.parseStringLiteral()
	if err != nil {
		return "", err
	}
	lit, ok := node.(*ast.Literal)
	if !ok {
		return "", fmt.Errorf("jqlang: interpolation not allowed here")
	}
	s, _ := lit.Val.AsString()
	return s, nil
}
