package tyco

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Option configures a single Parse/ParseFile call on top of DefaultOptions.
type Option func(*ParseOptions)

// WithMaxIncludeDepth overrides the #include nesting ceiling.
func WithMaxIncludeDepth(depth int) Option {
	return func(o *ParseOptions) { o.MaxIncludeDepth = depth }
}

// WithLogger attaches a zerolog.Logger that receives Debug-level render
// pipeline tracing; the default logger is disabled.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *ParseOptions) { o.Logger = logger }
}

func resolveOptions(opts []Option) ParseOptions {
	o := DefaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// Parse lexes and renders in-memory Tyco source text, driving the full
// pipeline of spec §4: fragmenting, lexing, the five render phases, and
// serialization to a plain nested map/slice/scalar tree.
func Parse(text, sourceName string, opts ...Option) (map[string]any, error) {
	options := resolveOptions(opts)
	ctx := newContext(options)

	frags := coerceContentToFragments(text, sourceName)
	dir := "."
	if sourceName != "" {
		dir = filepath.Dir(sourceName)
	}
	lex := newLexer(ctx, frags, dir)
	if err := lex.run(); err != nil {
		return nil, err
	}
	if err := ctx.runRenderPipeline(); err != nil {
		return nil, err
	}
	return ctx.ToObject(), nil
}

// ParseFile reads path and parses it, resolving any #include directives it
// contains relative to path's own directory.
func ParseFile(path string, opts ...Option) (map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errAtPtr(FileAccess, nil, "cannot read %q: %v", path, err)
	}
	return Parse(string(content), path, opts...)
}
