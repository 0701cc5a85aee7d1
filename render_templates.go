package tyco

import (
	"regexp"
	"strconv"
	"strings"
)

var templatePathPattern = regexp.MustCompile(`^\.*[A-Za-z_][A-Za-z0-9_.]*$`)

// renderTemplates expands {path.to.attr} substitutions inside every
// non-literal str Primitive, per spec §4.4 step 5. Must run after
// renderReferences.
func (ctx *Context) renderTemplates() error {
	for _, key := range ctx.globals.keysInOrder() {
		g, _ := ctx.globals.get(key)
		if err := renderTemplatesNode(ctx, g); err != nil {
			return err
		}
	}
	for _, typeName := range ctx.structs.keysInOrder() {
		schema, _ := ctx.structs.get(typeName)
		for _, inst := range schema.instances {
			if err := renderTemplatesNode(ctx, inst); err != nil {
				return err
			}
		}
	}
	return nil
}

func renderTemplatesNode(ctx *Context, n Node) error {
	switch v := n.(type) {
	case *Array:
		for _, el := range v.Elements {
			if err := renderTemplatesNode(ctx, el); err != nil {
				return err
			}
		}
	case *Instance:
		for _, name := range v.names {
			field, _ := v.get(name)
			if err := renderTemplatesNode(ctx, field); err != nil {
				return err
			}
		}
	case *Primitive:
		if v.TypeName != "str" || v.IsLiteralStr {
			return nil
		}
		content, ok := renderedValue(v).(string)
		if !ok {
			return nil
		}
		substituted, err := substituteTemplates(ctx, v, content)
		if err != nil {
			return err
		}
		setRendered(v, applyEscapes(substituted))
	}
	return nil
}

// substituteTemplates scans content for {path} occurrences and replaces
// each with the String() form of the path's resolved value.
func substituteTemplates(ctx *Context, p *Primitive, content string) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(content) {
		if content[i] != '{' {
			out.WriteByte(content[i])
			i++
			continue
		}
		closeIdx := strings.IndexByte(content[i+1:], '}')
		if closeIdx < 0 {
			out.WriteByte(content[i])
			i++
			continue
		}
		path := content[i+1 : i+1+closeIdx]
		if !templatePathPattern.MatchString(path) {
			out.WriteByte(content[i])
			i++
			continue
		}
		resolved, err := resolveTemplatePath(ctx, p, path)
		if err != nil {
			return "", err
		}
		out.WriteString(resolved)
		i = i + 1 + closeIdx + 1
	}
	return out.String(), nil
}

// resolveTemplatePath implements spec §4.4's template-path algorithm:
// leading-dot parent hops, then greedy-with-backtracking segment lookup,
// with a "global" scope escape tried when the first segment fails.
func resolveTemplatePath(ctx *Context, p *Primitive, path string) (string, error) {
	dots := 0
	for dots < len(path) && path[dots] == '.' {
		dots++
	}
	remainder := path[dots:]
	hops := 0
	if dots >= 2 {
		hops = dots - 1
	}

	current := p.Parent
	for h := 0; h < hops; h++ {
		if current == nil {
			return "", errAt(ParentOverflow, p.Fragment, "template %q climbs past the root", path)
		}
		current = current.meta().Parent
	}

	var segments []string
	if remainder != "" {
		segments = strings.Split(remainder, ".")
	}

	var err error
	current, err = derefIfReference(current)
	if err != nil {
		return "", err
	}

	// A path with no parent to walk (a top-level global's own template)
	// resolves its first segment against the globals map by default; a path
	// rooted in an Instance instead escapes to globals only via a leading
	// literal "global" segment. Either way, once the first segment resolves
	// to a concrete node, every further segment is an attribute lookup on
	// that node, never another globals lookup.
	useGlobals := current == nil
	i := 0
	for i < len(segments) {
		matched := false
		for j := i; j < len(segments) && !matched; j++ {
			candidate := strings.Join(segments[i:j+1], ".")
			var found Node
			var ok bool
			if useGlobals {
				found, ok = ctx.globals.get(candidate)
			} else {
				found, ok = lookupAttr(current, candidate)
			}
			if ok {
				current, err = derefIfReference(found)
				if err != nil {
					return "", err
				}
				i = j + 1
				matched = true
				useGlobals = false
			}
		}
		if !matched {
			if i == 0 && !useGlobals && len(segments) > 0 && segments[0] == "global" {
				useGlobals = true
				i = 1
				if i == len(segments) {
					return "", errAt(UnknownAttr, p.Fragment, "template %q: \"global\" requires a following path", path)
				}
				continue
			}
			return "", errAt(UnknownAttr, p.Fragment, "template %q: unknown attribute %q%s", path, strings.Join(segments[i:], "."), suggestAttr(segments[i], templateCandidates(ctx, current, useGlobals)))
		}
	}

	if current == nil {
		return "", errAt(UnknownAttr, p.Fragment, "template %q resolved to nothing", path)
	}

	prim, ok := current.(*Primitive)
	if !ok || (prim.TypeName != "str" && prim.TypeName != "int") {
		return "", errAt(UntemplatableType, p.Fragment, "template %q does not resolve to a str or int value", path)
	}
	return stringifyForTemplate(renderedValue(prim)), nil
}

func lookupAttr(current Node, name string) (Node, bool) {
	inst, ok := current.(*Instance)
	if !ok {
		return nil, false
	}
	return inst.get(name)
}

// templateCandidates lists the names a failed segment could plausibly have
// meant, for the "did you mean" suggestion in resolveTemplatePath's error.
func templateCandidates(ctx *Context, current Node, useGlobals bool) []string {
	if useGlobals {
		return ctx.globals.keysInOrder()
	}
	if inst, ok := current.(*Instance); ok {
		return inst.names
	}
	return nil
}

func derefIfReference(n Node) (Node, error) {
	ref, ok := n.(*Reference)
	if !ok {
		return n, nil
	}
	if !isRendered(ref) {
		return nil, errAt(UnresolvedReferenceInTemplate, ref.Fragment, "reference used in a template before it was resolved")
	}
	inst, _ := renderedValue(ref).(*Instance)
	return inst, nil
}

func stringifyForTemplate(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}

// applyEscapes processes classic string escapes exactly once, per spec
// §4.4: \\ \" \b \t \n \f \r \uXXXX \UXXXXXXXX, and \<EOL> line-continuation
// elision for any raw newline immediately following a backslash.
func applyEscapes(s string) string {
	var out strings.Builder
	runes := []rune(s)
	i := 0
	for i < len(runes) {
		if runes[i] != '\\' || i+1 >= len(runes) {
			out.WriteRune(runes[i])
			i++
			continue
		}
		next := runes[i+1]
		switch next {
		case '\\':
			out.WriteRune('\\')
			i += 2
		case '"':
			out.WriteRune('"')
			i += 2
		case 'b':
			out.WriteRune('\b')
			i += 2
		case 't':
			out.WriteRune('\t')
			i += 2
		case 'n':
			out.WriteRune('\n')
			i += 2
		case 'f':
			out.WriteRune('\f')
			i += 2
		case 'r':
			out.WriteRune('\r')
			i += 2
		case '\n':
			i += 2 // line continuation: backslash + real newline elided
		case 'u':
			if r, consumed := decodeUnicodeEscape(runes[i+2:], 4); consumed > 0 {
				out.WriteRune(r)
				i += 2 + consumed
			} else {
				out.WriteRune('\\')
				i++
			}
		case 'U':
			if r, consumed := decodeUnicodeEscape(runes[i+2:], 8); consumed > 0 {
				out.WriteRune(r)
				i += 2 + consumed
			} else {
				out.WriteRune('\\')
				i++
			}
		default:
			out.WriteRune('\\')
			i++
		}
	}
	return out.String()
}

func decodeUnicodeEscape(runes []rune, width int) (rune, int) {
	if len(runes) < width {
		return 0, 0
	}
	v, err := strconv.ParseUint(string(runes[:width]), 16, 32)
	if err != nil {
		return 0, 0
	}
	return rune(v), width
}
