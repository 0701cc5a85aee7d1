package tyco

import (
	"regexp"
	"strings"
)

var (
	reGlobalHead  = regexp.MustCompile(`^(\?)?([A-Za-z_][A-Za-z0-9_]*)(\[\])?\s+([A-Za-z_][A-Za-z0-9_.]*)\s*:(.*)$`)
	reStructHead  = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*:\s*$`)
	reSchemaRow   = regexp.MustCompile(`^([*?])?([A-Za-z_][A-Za-z0-9_]*)(\[\])?\s+([A-Za-z_][A-Za-z0-9_.]*)\s*:(.*)$`)
	reAttrNoColon = regexp.MustCompile(`^([*?])?[A-Za-z_][A-Za-z0-9_]*(\[\])?\s+[A-Za-z_][A-Za-z0-9_.]*\s*$`)
	reDefaultRow  = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)\s*:(.*)$`)
)

// lexer drives dispatch over a queue of source fragments, per spec §4.2.
// pos always points at the next fragment that has not yet been loaded into
// any working Fragment value; parse helpers pull more lines through
// pullNextRaw/pullNextStripped, and the struct-body readers reset pos to a
// saved value to hand back a line that ends the block.
type lexer struct {
	ctx   *Context
	frags []Fragment
	pos   int
	dir   string // directory #include paths on this lexer's lines resolve against
}

func newLexer(ctx *Context, frags []Fragment, dir string) *lexer {
	return &lexer{ctx: ctx, frags: frags, dir: dir}
}

func (l *lexer) pullNextRaw() (Fragment, bool) {
	if l.pos >= len(l.frags) {
		return Fragment{}, false
	}
	f := l.frags[l.pos]
	l.pos++
	return f, true
}

func (l *lexer) pullNextStripped() (Fragment, bool, error) {
	f, ok := l.pullNextRaw()
	if !ok {
		return Fragment{}, false, nil
	}
	s, err := stripComment(f)
	return s, true, err
}

// nextContentLine returns the next non-blank, comment-stripped line,
// silently skipping blank lines, or ok=false at EOF.
func (l *lexer) nextContentLine() (Fragment, bool, error) {
	for {
		f, ok, err := l.pullNextStripped()
		if err != nil {
			return Fragment{}, false, err
		}
		if !ok {
			return Fragment{}, false, nil
		}
		if !f.isBlank() {
			return f, true, nil
		}
	}
}

// nextRawContentLine is like nextContentLine but skips comment stripping
// entirely, so its leading '#' (if any) is still intact. Used only for
// top-level dispatch, where a #include directive's own '#' must not be
// mistaken for a comment marker.
func (l *lexer) nextRawContentLine() (Fragment, bool) {
	for {
		f, ok := l.pullNextRaw()
		if !ok {
			return Fragment{}, false
		}
		if !f.isBlank() {
			return f, true
		}
	}
}

func leadingIndentOf(f Fragment) (int, Fragment) {
	trimmed := f.trimLeadingWS()
	return trimmed.Column - f.Column, trimmed
}

// run drives the top-level dispatch of spec §4.2.2. A #include directive is
// recognized on the raw line, before comment stripping runs, since its
// leading '#' is a directive marker rather than a comment marker; every
// other top-level line is dispatched after stripping.
func (l *lexer) run() error {
	for {
		raw, ok := l.nextRawContentLine()
		if !ok {
			return nil
		}

		indent, trimmedFrag := leadingIndentOf(raw)
		if indent > 0 {
			return errAt(Malformatted, raw, "unexpected indentation at top level")
		}
		rawText := strings.TrimSpace(strings.TrimRight(trimmedFrag.Text, "\n"))

		if strings.HasPrefix(rawText, "#include") {
			if err := l.handleInclude(rawText, trimmedFrag); err != nil {
				return err
			}
			continue
		}

		line, err := stripComment(raw)
		if err != nil {
			return err
		}
		text := strings.TrimRight(line.Text, "\n")
		trimmed := strings.TrimSpace(text)

		switch {
		case trimmed == "":
			continue
		case reGlobalHead.MatchString(trimmed):
			if err := l.handleGlobal(trimmed, line); err != nil {
				return err
			}
		case reStructHead.MatchString(trimmed):
			m := reStructHead.FindStringSubmatch(trimmed)
			schema := l.ctx.getOrCreateStruct(m[1])
			if err := l.lexStructBody(schema); err != nil {
				return err
			}
		default:
			return errAt(Malformatted, line, "unrecognized top-level line %q", trimmed)
		}
	}
}

// valueFragmentAt returns the sub-fragment of line starting at the byte
// offset where needle begins within line.Text, with leading whitespace
// trimmed off.
func valueFragmentAt(line Fragment, needle string) Fragment {
	idx := strings.Index(line.Text, needle)
	if idx < 0 {
		idx = 0
	}
	return line.slice(idx).trimLeadingWS()
}

func (l *lexer) handleGlobal(trimmed string, frag Fragment) error {
	m := reGlobalHead.FindStringSubmatch(trimmed)
	nullable := m[1] == "?"
	typeName := m[2]
	isArray := m[3] != ""
	attrName := m[4]
	valueText := strings.TrimSpace(m[5])

	if l.ctx.globals.has(attrName) {
		return errAt(DuplicateGlobal, frag, "duplicate global %q", attrName)
	}
	if valueText == "" {
		return errAt(Malformatted, frag, "global %q has no value", attrName)
	}

	valFrag := valueFragmentAt(frag, m[5])
	node, _, err := l.parseValue(valFrag)
	if err != nil {
		return err
	}
	if err := checkArrayExpectation(node, isArray, nullable, attrName, frag); err != nil {
		return err
	}
	applySchema(node, typeName, attrName, nullable, isArray)
	l.ctx.globals.set(attrName, node)
	return nil
}

func checkArrayExpectation(node Node, isArray, nullable bool, attrName string, frag Fragment) error {
	if !isArray {
		return nil
	}
	if _, ok := node.(*Array); ok {
		return nil
	}
	if p, ok := node.(*Primitive); ok && nullable && !p.Quoted && strings.TrimSpace(p.Raw) == "null" {
		return nil
	}
	return errAt(ExpectedArray, frag, "%q expects an array", attrName)
}

// lexStructBody reads the schema rows, then the defaults/instance rows, of
// one struct block, per spec §4.2.3–§4.2.4. Returns with pos left positioned
// right after the last consumed fragment, at the first non-indented
// non-blank line or at EOF.
func (l *lexer) lexStructBody(schema *StructSchema) error {
	if err := l.lexSchemaRows(schema); err != nil {
		return err
	}
	return l.lexDefaultsAndInstances(schema)
}

func (l *lexer) lexSchemaRows(schema *StructSchema) error {
	for {
		save := l.pos
		line, ok, err := l.nextContentLine()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		indent, trimmedFrag := leadingIndentOf(line)
		if indent == 0 {
			l.pos = save
			return nil
		}
		text := strings.TrimRight(trimmedFrag.Text, "\n")

		m := reSchemaRow.FindStringSubmatch(text)
		if m == nil {
			if reAttrNoColon.MatchString(text) {
				return errAt(MissingColon, trimmedFrag, "attribute declaration %q is missing a colon", text)
			}
			l.pos = save
			return nil
		}
		if err := l.handleSchemaRow(schema, m, trimmedFrag); err != nil {
			return err
		}
	}
}

func (l *lexer) handleSchemaRow(schema *StructSchema, m []string, frag Fragment) error {
	modifier := m[1]
	typeName := m[2]
	isArray := m[3] != ""
	attrName := m[4]
	valueText := strings.TrimSpace(m[5])

	isPrimary := modifier == "*"
	isNullable := modifier == "?"

	if err := schema.AddAttr(attrName, typeName, isPrimary, isNullable, isArray, frag); err != nil {
		return err
	}
	if valueText == "" {
		return nil
	}

	valFrag := valueFragmentAt(frag, m[5])
	node, _, err := l.parseValue(valFrag)
	if err != nil {
		return err
	}
	if err := checkArrayExpectation(node, isArray, isNullable, attrName, frag); err != nil {
		return err
	}
	applySchema(node, typeName, attrName, isNullable, isArray)
	return schema.SetLocalDefault(attrName, node, frag)
}

func (l *lexer) lexDefaultsAndInstances(schema *StructSchema) error {
	for {
		save := l.pos
		line, ok, err := l.nextContentLine()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		indent, trimmedFrag := leadingIndentOf(line)
		if indent == 0 {
			l.pos = save
			return nil
		}
		text := strings.TrimRight(trimmedFrag.Text, "\n")

		switch {
		case strings.HasPrefix(text, "-"):
			if err := l.handleInstanceRow(schema, text, trimmedFrag); err != nil {
				return err
			}
		case reSchemaRow.MatchString(text):
			m := reSchemaRow.FindStringSubmatch(text)
			return errAt(SchemaAfterInit, trimmedFrag, "attribute %q declared after instances began in struct %q", m[4], schema.Name)
		case reDefaultRow.MatchString(text):
			m := reDefaultRow.FindStringSubmatch(text)
			if err := l.handleDefaultRow(schema, m, trimmedFrag); err != nil {
				return err
			}
		default:
			return errAt(Malformatted, trimmedFrag, "unrecognized line in struct %q: %q", schema.Name, text)
		}
	}
}

func (l *lexer) handleDefaultRow(schema *StructSchema, m []string, frag Fragment) error {
	attrName := m[1]
	valueText := strings.TrimSpace(m[2])
	if valueText == "" {
		return schema.SetLocalDefault(attrName, nil, frag)
	}
	valFrag := valueFragmentAt(frag, m[2])
	node, _, err := l.parseValue(valFrag)
	if err != nil {
		return err
	}
	return schema.SetLocalDefault(attrName, node, frag)
}

// handleInstanceRow parses a "- arg, arg, ..." row, following continuation
// lines whose sole comment-stripped content is a trailing backslash, per
// spec §4.2.4.
func (l *lexer) handleInstanceRow(schema *StructSchema, text string, frag Fragment) error {
	rest := strings.TrimPrefix(text, "-")
	cur := frag.slice(len(text) - len(rest)).trimLeadingWS()

	var args []Node
	for {
		if atLineEnd(cur) {
			break
		}
		if strings.TrimSpace(cur.Text) == "\\" {
			next, ok, err := l.nextContentLine()
			if err != nil {
				return err
			}
			if !ok {
				return errAt(Malformatted, cur, "instance row ends with a continuation but input ends")
			}
			_, cur = leadingIndentOf(next)
			continue
		}

		arg, r2, err := l.parseArg(cur)
		if err != nil {
			return err
		}
		args = append(args, arg)
		cur = r2.trimLeadingWS()

		if atLineEnd(cur) {
			break
		}
		if cur.Text[0] == ',' {
			cur = cur.slice(1).trimLeadingWS()
			continue
		}
		if cur.Text[0] == ':' {
			return errAt(StrayColon, cur, "unexpected ':' in instance row of %q", schema.Name)
		}
		return errAt(BadDelimiter, cur, "expected ',' between arguments in instance row of %q", schema.Name)
	}

	_, err := schema.CreateInstance(args, frag)
	return err
}
