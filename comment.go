package tyco

// stripComment removes a trailing # comment from a raw fragment, honoring
// quote state so a # inside a quoted value is never mistaken for one, per
// spec §4.2.1. It does not understand triple-quote semantics precisely (an
// odd number of quote characters toggles the same way a single quote would),
// which is sufficient since it only ever needs to know "is a # here inside
// an opened quote" for this one physical line.
func stripComment(f Fragment) (Fragment, error) {
	text := f.Text
	inQuote := false
	commentIdx := -1
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '"' || c == '\'' {
			inQuote = !inQuote
			continue
		}
		if c == '#' && !inQuote {
			commentIdx = i
			break
		}
	}
	if commentIdx < 0 {
		return f, nil
	}
	comment := text[commentIdx:]
	for i := 0; i < len(comment); i++ {
		c := comment[i]
		if c == '\n' {
			continue
		}
		if c < 0x20 || c == 0x7f {
			return f, errAt(InvalidComment, f, "control character in comment")
		}
	}
	return Fragment{
		Text:     text[:commentIdx] + "\n",
		Row:      f.Row,
		Column:   f.Column,
		Source:   f.Source,
		LineText: f.LineText,
	}, nil
}

func atLineEnd(f Fragment) bool {
	return f.Text == "" || f.Text == "\n"
}
