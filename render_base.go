package tyco

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// renderBase walks every global and every declared instance, converting raw
// Primitive content to typed values per spec §4.4 step 2.
func (ctx *Context) renderBase() error {
	for _, key := range ctx.globals.keysInOrder() {
		g, _ := ctx.globals.get(key)
		if err := renderBaseNode(g); err != nil {
			return err
		}
	}
	for _, typeName := range ctx.structs.keysInOrder() {
		schema, _ := ctx.structs.get(typeName)
		for _, inst := range schema.instances {
			if err := renderBaseNode(inst); err != nil {
				return err
			}
		}
	}
	return nil
}

// renderBaseNode recurses into Array/Instance; types a Primitive; is a
// no-op for References, whose arguments are base-rendered lazily by
// StructSchema.LoadReference during the render_references phase.
func renderBaseNode(n Node) error {
	switch v := n.(type) {
	case *Primitive:
		return renderPrimitive(v)
	case *Array:
		for _, el := range v.Elements {
			if err := renderBaseNode(el); err != nil {
				return err
			}
		}
		return nil
	case *Instance:
		for _, name := range v.names {
			field, _ := v.get(name)
			if err := renderBaseNode(field); err != nil {
				return err
			}
		}
		return nil
	case *Reference:
		return nil
	default:
		return nil
	}
}

func renderPrimitive(p *Primitive) error {
	if isRendered(p) {
		return nil
	}

	raw := p.Raw
	if p.IsNullable && !p.Quoted && strings.TrimSpace(raw) == "null" {
		setRendered(p, nil)
		return nil
	}

	switch p.TypeName {
	case "str", "":
		setRendered(p, raw)
	case "int":
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 0, 64)
		if err != nil {
			return errAt(InvalidNumber, p.Fragment, "invalid int literal %q", raw)
		}
		setRendered(p, v)
	case "float":
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return errAt(InvalidNumber, p.Fragment, "invalid float literal %q", raw)
		}
		setRendered(p, v)
	case "decimal":
		v, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return errAt(InvalidNumber, p.Fragment, "invalid decimal literal %q", raw)
		}
		setRendered(p, v)
	case "bool":
		switch strings.TrimSpace(raw) {
		case "true":
			setRendered(p, true)
		case "false":
			setRendered(p, false)
		default:
			return errAt(InvalidBool, p.Fragment, "invalid bool literal %q", raw)
		}
	case "date":
		setRendered(p, strings.TrimSpace(raw))
	case "time":
		v, err := normalizeTime(strings.TrimSpace(raw))
		if err != nil {
			return errAt(InvalidNumber, p.Fragment, "invalid time literal %q: %v", raw, err)
		}
		setRendered(p, v)
	case "datetime":
		v, err := normalizeDatetime(strings.TrimSpace(raw))
		if err != nil {
			return errAt(InvalidNumber, p.Fragment, "invalid datetime literal %q: %v", raw, err)
		}
		setRendered(p, v)
	default:
		// user struct type name used on a Primitive shouldn't happen; treat
		// as opaque string content.
		setRendered(p, raw)
	}
	return nil
}

// normalizeTime renders HH:MM:SS[.ffffff], right-padding/truncating the
// fractional part to exactly 6 digits when present.
func normalizeTime(s string) (string, error) {
	main, frac, hasFrac := strings.Cut(s, ".")
	parts := strings.Split(main, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("expected HH:MM:SS")
	}
	for _, p := range parts {
		if len(p) != 2 {
			return "", fmt.Errorf("expected 2-digit components")
		}
		if _, err := strconv.Atoi(p); err != nil {
			return "", err
		}
	}
	out := strings.Join(parts, ":")
	if hasFrac {
		out += "." + padOrTruncate6(frac)
	}
	return out, nil
}

// normalizeDatetime applies the date/time join, trailing-Z, and fractional
// normalization rules of spec §4.4.
func normalizeDatetime(s string) (string, error) {
	sep := byte('T')
	idx := strings.IndexAny(s, " T")
	if idx < 0 {
		return "", fmt.Errorf("expected a date/time separator")
	}
	datePart := s[:idx]
	timePart := s[idx+1:]

	tz := ""
	rest := timePart
	switch {
	case strings.HasSuffix(rest, "Z"):
		rest = strings.TrimSuffix(rest, "Z")
		tz = "+00:00"
	default:
		if i := strings.LastIndexAny(rest, "+-"); i > 0 {
			// guard against treating the seconds/micros sign as a timezone
			if looksLikeTZOffset(rest[i:]) {
				tz = rest[i:]
				rest = rest[:i]
			}
		}
	}

	timeMain, frac, hasFrac := strings.Cut(rest, ".")
	parts := strings.Split(timeMain, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("expected HH:MM:SS")
	}
	normalizedTime := strings.Join(parts, ":")
	if hasFrac {
		normalizedTime += "." + padOrTruncate6(frac)
	} else {
		normalizedTime += ".000000"
	}

	result := datePart + string(sep) + normalizedTime + tz
	return result, nil
}

func looksLikeTZOffset(s string) bool {
	if len(s) != 6 || (s[0] != '+' && s[0] != '-') {
		return false
	}
	return s[3] == ':'
}

func padOrTruncate6(frac string) string {
	if len(frac) >= 6 {
		return frac[:6]
	}
	return frac + strings.Repeat("0", 6-len(frac))
}

// valueToTupleString renders a base-typed value into the canonical string
// form used to build primary-key tuple keys (joined by NUL by the caller).
func valueToTupleString(v any) string {
	switch x := v.(type) {
	case nil:
		return "\x01null"
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case decimal.Decimal:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
