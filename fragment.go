package tyco

import "strings"

// Fragment is a slice of source text anchored to a (row, column) position.
// Every diagnostic and every value node carries one for error reporting.
type Fragment struct {
	Text     string
	Row      int // 1-based
	Column   int // 1-based
	Source   string // file name, or "" for in-memory text
	LineText string // the full line this fragment came from, newline stripped
}

// coerceContentToFragments normalizes line endings and splits text into one
// Fragment per logical line, keeping the trailing newline attached to Text
// while LineText holds the newline-stripped form used in diagnostics.
func coerceContentToFragments(text, source string) []Fragment {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	if normalized == "" {
		return nil
	}

	lines := strings.Split(normalized, "\n")
	// strings.Split on a string ending in "\n" produces a trailing "" element
	// for the text after the final newline; drop it unless it's genuinely
	// the start of a non-empty last line.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	fragments := make([]Fragment, 0, len(lines))
	for i, line := range lines {
		fragments = append(fragments, Fragment{
			Text:     line + "\n",
			Row:      i + 1,
			Column:   1,
			Source:   source,
			LineText: line,
		})
	}
	return fragments
}

// slice returns the fragment starting k bytes into f, with (row, column)
// advanced past the consumed characters. Newlines bump row and reset column.
func (f Fragment) slice(k int) Fragment {
	if k <= 0 {
		return f
	}
	if k > len(f.Text) {
		k = len(f.Text)
	}
	row, col := f.Row, f.Column
	for _, r := range f.Text[:k] {
		if r == '\n' {
			row++
			col = 1
		} else {
			col++
		}
	}
	return Fragment{
		Text:     f.Text[k:],
		Row:      row,
		Column:   col,
		Source:   f.Source,
		LineText: f.LineText,
	}
}

// trimLeadingWS returns the fragment with leading spaces/tabs removed,
// column advanced accordingly.
func (f Fragment) trimLeadingWS() Fragment {
	i := 0
	for i < len(f.Text) && (f.Text[i] == ' ' || f.Text[i] == '\t') {
		i++
	}
	return f.slice(i)
}

// isBlank reports whether the fragment has no non-whitespace content.
func (f Fragment) isBlank() bool {
	return strings.TrimSpace(f.Text) == ""
}
