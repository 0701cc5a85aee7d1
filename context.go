package tyco

import (
	"path/filepath"

	"github.com/rs/zerolog"
)

// ParseOptions configures a single Parse/ParseFile call. The core itself has
// no configuration surface (spec non-goals), but #include recursion needs a
// depth ceiling as defense-in-depth alongside the path-cache cycle guard.
type ParseOptions struct {
	MaxIncludeDepth int
	Logger          zerolog.Logger
}

const defaultMaxIncludeDepth = 16

// DefaultOptions mirrors the teacher's MaxIncludeDepth constant.
func DefaultOptions() ParseOptions {
	return ParseOptions{
		MaxIncludeDepth: defaultMaxIncludeDepth,
		Logger:          zerolog.New(zerolog.NewConsoleWriter()).Level(zerolog.Disabled),
	}
}

// Context is the per-parse, process-wide container described in spec §3:
// ordered globals, ordered struct registry, and a path cache that makes
// #include idempotent and cycle-safe.
type Context struct {
	globals    *orderedMap[Node]
	structs    *orderedMap[*StructSchema]
	pathCache  map[string]bool
	opts       ParseOptions
	log        zerolog.Logger
	includeDep int
}

func newContext(opts ParseOptions) *Context {
	return &Context{
		globals:   newOrderedMap[Node](),
		structs:   newOrderedMap[*StructSchema](),
		pathCache: make(map[string]bool),
		opts:      opts,
		log:       opts.Logger,
	}
}

func (ctx *Context) structFor(name string) (*StructSchema, bool) {
	return ctx.structs.get(name)
}

func (ctx *Context) getOrCreateStruct(name string) *StructSchema {
	if s, ok := ctx.structs.get(name); ok {
		return s
	}
	s := newStructSchema(name)
	ctx.structs.set(name, s)
	return s
}

// markIncluded canonicalizes path and records it; returns true if the path
// was already present (so the caller should skip re-parsing it).
func (ctx *Context) markIncluded(path string) (alreadyIncluded bool, canonical string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	canonical = abs
	if ctx.pathCache[canonical] {
		return true, canonical
	}
	ctx.pathCache[canonical] = true
	return false, canonical
}

// runRenderPipeline drives the five fixed phases of spec §4.4 in order.
func (ctx *Context) runRenderPipeline() error {
	ctx.log.Debug().Msg("render: set_parents")
	ctx.setParents()

	ctx.log.Debug().Msg("render: render_base")
	if err := ctx.renderBase(); err != nil {
		return err
	}

	ctx.log.Debug().Msg("render: load_primary_keys")
	for _, name := range ctx.structs.keysInOrder() {
		schema, _ := ctx.structs.get(name)
		if err := schema.LoadPrimaryKeys(); err != nil {
			return err
		}
	}

	ctx.log.Debug().Msg("render: render_references")
	if err := ctx.renderReferences(); err != nil {
		return err
	}

	ctx.log.Debug().Msg("render: render_templates")
	if err := ctx.renderTemplates(); err != nil {
		return err
	}
	return nil
}

// setParents assigns lexical parents per spec §4.4 step 1: globals have no
// parent, Instance fields point back to the owning Instance, and Array
// elements inherit the array's own parent (skipping the array itself).
func (ctx *Context) setParents() {
	for _, key := range ctx.globals.keysInOrder() {
		g, _ := ctx.globals.get(key)
		setParentsNode(g, nil)
	}
	for _, typeName := range ctx.structs.keysInOrder() {
		schema, _ := ctx.structs.get(typeName)
		for _, inst := range schema.instances {
			setParentsNode(inst, nil)
		}
	}
}

func setParentsNode(n Node, parent Node) {
	n.meta().Parent = parent
	switch v := n.(type) {
	case *Array:
		for _, el := range v.Elements {
			setParentsNode(el, parent)
		}
	case *Instance:
		for _, name := range v.names {
			field, _ := v.get(name)
			setParentsNode(field, v)
		}
	case *Reference:
		for _, a := range v.Args {
			setParentsNode(a, parent)
		}
	}
}
