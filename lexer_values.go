package tyco

// parseValue parses exactly one value (raw token, quoted string, inline
// array, or inline invocation) starting at cur, per spec §4.2.5–§4.2.6, and
// returns the fragment remaining right after the value (not consuming any
// trailing delimiter).
func (l *lexer) parseValue(cur Fragment) (Node, Fragment, error) {
	cur = cur.trimLeadingWS()
	if atLineEnd(cur) {
		return nil, cur, errAt(Malformatted, cur, "expected a value")
	}

	switch cur.Text[0] {
	case '[':
		return l.parseArray(cur)
	case '"', '\'':
		return l.parseQuotedString(cur)
	default:
		if isIdentStart(cur.Text[0]) {
			idLen := identLen(cur.Text)
			if idLen > 0 && idLen < len(cur.Text) && cur.Text[idLen] == '(' {
				name := cur.Text[:idLen]
				return l.parseInvocation(name, cur, cur.slice(idLen))
			}
		}
		return parseRawToken(cur)
	}
}

func parseRawToken(cur Fragment) (Node, Fragment, error) {
	i := 0
	for i < len(cur.Text) && !isStopChar(cur.Text[i]) {
		i++
	}
	for i > 0 && (cur.Text[i-1] == ' ' || cur.Text[i-1] == '\t') {
		i--
	}
	if i == 0 {
		return nil, cur, errAt(Malformatted, cur, "expected a value")
	}
	p := &Primitive{Raw: cur.Text[:i]}
	p.Fragment = cur
	return p, cur.slice(i), nil
}

func isStopChar(c byte) bool {
	switch c {
	case '\n', ',', '(', ')', '[', ']':
		return true
	}
	return false
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// identLen returns the length of a bare identifier run (letters/digits/_).
func identLen(s string) int {
	i := 0
	for i < len(s) && isIdentChar(s[i]) {
		i++
	}
	return i
}

// dottedIdentLen returns the length of a dotted identifier run
// (letters/digits/_/.), used for attribute names in keyword-argument
// position. A trailing dot is never included.
func dottedIdentLen(s string) int {
	i := 0
	for i < len(s) && (isIdentChar(s[i]) || s[i] == '.') {
		i++
	}
	for i > 0 && s[i-1] == '.' {
		i--
	}
	return i
}

// parseArray parses a '[' ... ']' inline array, per spec §4.2.5.
func (l *lexer) parseArray(cur Fragment) (Node, Fragment, error) {
	arr := &Array{}
	arr.Fragment = cur
	rest := cur.slice(1).trimLeadingWS()

	for {
		if atLineEnd(rest) {
			return nil, rest, errAt(UnclosedString, rest, "unterminated array")
		}
		if rest.Text[0] == ']' {
			rest = rest.slice(1)
			break
		}
		el, r2, err := l.parseArg(rest)
		if err != nil {
			return nil, r2, err
		}
		arr.Elements = append(arr.Elements, el)
		rest = r2.trimLeadingWS()

		if atLineEnd(rest) {
			return nil, rest, errAt(UnclosedString, rest, "unterminated array")
		}
		switch rest.Text[0] {
		case ',':
			rest = rest.slice(1).trimLeadingWS()
		case ']':
			rest = rest.slice(1)
			return arr, rest, nil
		case ':':
			return nil, rest, errAt(StrayColon, rest, "unexpected ':' inside array")
		default:
			return nil, rest, errAt(BadDelimiter, rest, "expected ',' or ']' in array")
		}
	}
	return arr, rest, nil
}

// parseInvocation parses a `Name(arg, arg, ...)` construct into either a
// Reference (the type is undeclared, or declared with primary keys) or an
// inline Instance (declared, no primary keys), per spec §4.3.
func (l *lexer) parseInvocation(name string, start, afterName Fragment) (Node, Fragment, error) {
	rest := afterName.slice(1).trimLeadingWS() // consume '('
	var args []Node
	closed := false
	for !closed {
		if atLineEnd(rest) {
			return nil, rest, errAt(UnclosedString, rest, "unterminated invocation of %q", name)
		}
		if rest.Text[0] == ')' {
			rest = rest.slice(1)
			break
		}
		arg, r2, err := l.parseArg(rest)
		if err != nil {
			return nil, r2, err
		}
		args = append(args, arg)
		rest = r2.trimLeadingWS()

		if atLineEnd(rest) {
			return nil, rest, errAt(UnclosedString, rest, "unterminated invocation of %q", name)
		}
		switch rest.Text[0] {
		case ',':
			rest = rest.slice(1).trimLeadingWS()
		case ')':
			rest = rest.slice(1)
			closed = true
		case ':':
			return nil, rest, errAt(StrayColon, rest, "unexpected ':' inside invocation of %q", name)
		default:
			return nil, rest, errAt(BadDelimiter, rest, "expected ',' or ')' in invocation of %q", name)
		}
	}

	schema, declared := l.ctx.structFor(name)
	if !declared || len(schema.primaryKeys) > 0 {
		ref := &Reference{Args: args}
		ref.TypeName = name
		ref.Fragment = start
		return ref, rest, nil
	}
	inst, err := schema.buildInstance(args, start)
	if err != nil {
		return nil, rest, err
	}
	return inst, rest, nil
}

// parseArg parses one invocation/array/instance-row argument: an optional
// "dotted.ident:" keyword prefix followed by a value, per spec §4.3/§4.2.6.
func (l *lexer) parseArg(cur Fragment) (Node, Fragment, error) {
	cur = cur.trimLeadingWS()
	if !atLineEnd(cur) && isIdentStart(cur.Text[0]) {
		nameLen := dottedIdentLen(cur.Text)
		if nameLen > 0 {
			lookahead := cur.slice(nameLen).trimLeadingWS()
			if !atLineEnd(lookahead) && lookahead.Text[0] == ':' &&
				!(len(lookahead.Text) > 1 && lookahead.Text[1] == ':') {
				name := cur.Text[:nameLen]
				valStart := lookahead.slice(1).trimLeadingWS()
				val, rest, err := l.parseValue(valStart)
				if err != nil {
					return nil, rest, err
				}
				val.meta().AttrName = name
				return val, rest, nil
			}
		}
	}
	return l.parseValue(cur)
}
