package tyco

import (
	"os"
	"path/filepath"
	"strings"
)

// handleInclude resolves a "#include <path>" directive, per spec §4.7: the
// path resolves relative to the including file's own directory, re-including
// an already-seen path is a silent no-op (idempotent), and nesting is capped
// by ParseOptions.MaxIncludeDepth as defense-in-depth alongside the path
// cache's cycle guard.
func (l *lexer) handleInclude(trimmed string, frag Fragment) error {
	arg := strings.TrimSpace(strings.TrimPrefix(trimmed, "#include"))
	if arg == "" {
		return errAt(Malformatted, frag, "#include requires a path")
	}
	if arg[0] == '"' || arg[0] == '\'' {
		quote := arg[0]
		if end := strings.IndexByte(arg[1:], quote); end >= 0 {
			arg = arg[1 : 1+end]
		} else {
			arg = strings.Trim(arg, `"'`)
		}
	} else if idx := strings.IndexAny(arg, " \t#"); idx >= 0 {
		arg = arg[:idx]
	}
	if arg == "" {
		return errAt(Malformatted, frag, "#include requires a path")
	}

	target := arg
	if !filepath.IsAbs(target) {
		target = filepath.Join(l.dir, target)
	}

	already, canonical := l.ctx.markIncluded(target)
	if already {
		return nil
	}

	if l.ctx.includeDep >= l.ctx.opts.MaxIncludeDepth {
		return errAt(FileAccess, frag, "#include nesting exceeds the maximum depth of %d", l.ctx.opts.MaxIncludeDepth)
	}

	content, err := os.ReadFile(canonical)
	if err != nil {
		return errAt(FileAccess, frag, "cannot read included file %q: %v", canonical, err)
	}

	l.ctx.includeDep++
	defer func() { l.ctx.includeDep-- }()

	sub := newLexer(l.ctx, coerceContentToFragments(string(content), canonical), filepath.Dir(canonical))
	return sub.run()
}
