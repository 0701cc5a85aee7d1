package tyco

// unrendered is never itself stored; rendered/wasRendered jointly distinguish
// "not yet computed" from "computed to a Go nil" per spec §9.
type nodeMeta struct {
	TypeName   string
	AttrName   string
	IsNullable bool
	IsArray    bool
	Parent     Node // weak: never owns what it points to
	Fragment   Fragment

	rendered    any
	wasRendered bool
}

func (m *nodeMeta) meta() *nodeMeta { return m }

// Node is the common protocol every value-node variant implements. Render
// phases dispatch on the concrete type via a type switch rather than a
// virtual call, matching how a tagged-sum type would be handled.
type Node interface {
	meta() *nodeMeta
}

// Primitive holds raw textual content until renderBase types it.
type Primitive struct {
	nodeMeta
	Raw          string
	IsLiteralStr bool // '...' or '''...''': no template expansion, no escapes
	Quoted       bool // true for any quoted string, false for a bare raw token
}

// Array owns an ordered sequence of child nodes.
type Array struct {
	nodeMeta
	Elements []Node
}

// Instance owns an ordered attr_name -> value_node mapping.
type Instance struct {
	nodeMeta
	Schema *StructSchema
	names  []string
	fields map[string]Node
}

func newInstance(schema *StructSchema) *Instance {
	return &Instance{Schema: schema, fields: make(map[string]Node)}
}

func (in *Instance) set(name string, n Node) {
	if _, exists := in.fields[name]; !exists {
		in.names = append(in.names, name)
	}
	in.fields[name] = n
}

func (in *Instance) get(name string) (Node, bool) {
	n, ok := in.fields[name]
	return n, ok
}

// Names returns attribute names in declaration order.
func (in *Instance) Names() []string { return in.names }

// Reference holds a typed invocation `Type(args)` awaiting resolution to an
// Instance via the owning StructSchema's primary-key index.
type Reference struct {
	nodeMeta
	Args []Node // each may have AttrName set for keyword-mode args
}

func nodeFragment(n Node) Fragment { return n.meta().Fragment }

func setRendered(n Node, v any) {
	m := n.meta()
	m.rendered = v
	m.wasRendered = true
}

func isRendered(n Node) bool { return n.meta().wasRendered }

func renderedValue(n Node) any { return n.meta().rendered }

// applySchema stamps type/nullable/array metadata onto a node, recursing
// into arrays so every element inherits the array's element type per spec
// §3 Array invariant.
func applySchema(n Node, typeName, attrName string, nullable, isArray bool) {
	m := n.meta()
	m.TypeName = typeName
	m.AttrName = attrName
	m.IsNullable = nullable
	m.IsArray = isArray

	if arr, ok := n.(*Array); ok {
		for _, el := range arr.Elements {
			applySchema(el, typeName, attrName, false, false)
		}
	}
}

// deepCopyNode clones a node tree; used when a struct's local default is
// reused across multiple instances that don't supply that attribute.
func deepCopyNode(n Node) Node {
	switch v := n.(type) {
	case *Primitive:
		cp := *v
		return &cp
	case *Array:
		cp := *v
		cp.Elements = make([]Node, len(v.Elements))
		for i, el := range v.Elements {
			cp.Elements[i] = deepCopyNode(el)
		}
		return &cp
	case *Instance:
		cp := newInstance(v.Schema)
		cp.nodeMeta = v.nodeMeta
		for _, name := range v.names {
			cp.set(name, deepCopyNode(v.fields[name]))
		}
		return cp
	case *Reference:
		cp := *v
		cp.Args = make([]Node, len(v.Args))
		for i, a := range v.Args {
			cp.Args[i] = deepCopyNode(a)
		}
		return &cp
	default:
		return n
	}
}
