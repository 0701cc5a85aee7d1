package tyco

import (
	"strings"

	"github.com/agext/levenshtein"
)

// StructSchema is the per-type registry described in spec §3 Struct Schema:
// ordered attributes, primary/nullable/array flags, local defaults, declared
// instances, and (for types with >=1 primary key) the resolved index used by
// References.
type StructSchema struct {
	Name string

	attrOrder []string
	typeOf    map[string]string
	nullable  map[string]bool
	isArray   map[string]bool
	isPrimary map[string]bool

	primaryKeys []string // in declaration order

	localDefaults   map[string]Node
	attrsLocked     bool // true once the first instance row has been parsed
	instances       []*Instance
	mappedInstances map[string]*Instance // primary-key tuple -> instance
}

func newStructSchema(name string) *StructSchema {
	return &StructSchema{
		Name:            name,
		typeOf:          make(map[string]string),
		nullable:        make(map[string]bool),
		isArray:         make(map[string]bool),
		isPrimary:       make(map[string]bool),
		localDefaults:   make(map[string]Node),
		mappedInstances: make(map[string]*Instance),
	}
}

// AddAttr registers one schema row. Must be called before attrsLocked.
func (s *StructSchema) AddAttr(name, typeName string, isPrimary, nullable, isArray bool, frag Fragment) error {
	if s.attrsLocked {
		return errAt(SchemaAfterInit, frag, "attribute %q declared after the first instance of %q", name, s.Name)
	}
	if _, exists := s.typeOf[name]; exists {
		return errAt(DuplicateAttr, frag, "duplicate attribute %q in struct %q", name, s.Name)
	}
	if isPrimary && isArray {
		return errAt(PrimaryKeyOnArray, frag, "primary key %q may not be an array", name)
	}
	s.attrOrder = append(s.attrOrder, name)
	s.typeOf[name] = typeName
	s.nullable[name] = nullable
	s.isArray[name] = isArray
	s.isPrimary[name] = isPrimary
	if isPrimary {
		s.primaryKeys = append(s.primaryKeys, name)
	}
	return nil
}

// SetLocalDefault records (or, for an empty value, clears) a struct-level
// default for an already-declared attribute.
func (s *StructSchema) SetLocalDefault(name string, value Node, frag Fragment) error {
	if _, exists := s.typeOf[name]; !exists {
		return errAt(UnknownAttr, frag, "unknown attribute %q in struct %q%s", name, s.Name, suggestAttr(name, s.attrOrder))
	}
	if value == nil {
		delete(s.localDefaults, name)
		return nil
	}
	s.localDefaults[name] = value
	return nil
}

// CreateInstance builds a new Instance from a struct-block "- args" row and
// registers it as one of the struct's declared instances.
func (s *StructSchema) CreateInstance(args []Node, frag Fragment) (*Instance, error) {
	inst, err := s.buildInstance(args, frag)
	if err != nil {
		return nil, err
	}
	s.instances = append(s.instances, inst)
	return inst, nil
}

// buildInstance performs the attribute-binding logic of spec §4.3 without
// registering the result as a declared instance; used both by CreateInstance
// and by inline invocations of no-primary-key structs, which are embedded
// directly as a field value and never indexed.
func (s *StructSchema) buildInstance(args []Node, frag Fragment) (*Instance, error) {
	s.attrsLocked = true

	keywordMode := false
	positionalIdx := 0
	provided := make(map[string]Node)

	for _, arg := range args {
		am := arg.meta()
		if am.AttrName != "" {
			keywordMode = true
			provided[am.AttrName] = arg
			continue
		}
		if keywordMode {
			return nil, errAt(PositionalAfterKeyword, am.Fragment, "positional argument after keyword argument in %q instance", s.Name)
		}
		if positionalIdx >= len(s.attrOrder) {
			return nil, errAt(MissingAttr, am.Fragment, "too many positional arguments for struct %q", s.Name)
		}
		name := s.attrOrder[positionalIdx]
		am.AttrName = name
		provided[name] = arg
		positionalIdx++
	}

	inst := newInstance(s)
	inst.Fragment = frag
	inst.TypeName = s.Name

	for _, name := range s.attrOrder {
		var chosen Node
		if n, ok := provided[name]; ok {
			chosen = n
		} else if def, ok := s.localDefaults[name]; ok {
			chosen = deepCopyNode(def)
		} else {
			return nil, errAt(MissingAttr, frag, "missing required attribute %q for struct %q", name, s.Name)
		}

		nullable := s.nullable[name]
		isArray := s.isArray[name]
		typeName := s.typeOf[name]

		if isArray {
			if _, ok := chosen.(*Array); !ok {
				if p, ok := chosen.(*Primitive); !ok || !(nullable && !p.Quoted && strings.TrimSpace(p.Raw) == "null") {
					return nil, errAt(ExpectedArray, chosen.meta().Fragment, "attribute %q of struct %q expects an array", name, s.Name)
				}
			}
		}

		applySchema(chosen, typeName, name, nullable, isArray)
		inst.set(name, chosen)
	}

	return inst, nil
}

// LoadPrimaryKeys builds mappedInstances from already-base-rendered field
// values, per spec §4.3. Must run after renderBase and before
// renderReferences.
func (s *StructSchema) LoadPrimaryKeys() error {
	if len(s.primaryKeys) == 0 {
		return nil
	}
	for _, inst := range s.instances {
		parts := make([]string, len(s.primaryKeys))
		for i, pk := range s.primaryKeys {
			field, _ := inst.get(pk)
			parts[i] = valueToTupleString(renderedValue(field))
		}
		tuple := strings.Join(parts, "\x00")
		if existing, dup := s.mappedInstances[tuple]; dup && existing != inst {
			return errAt(DuplicatePrimaryKey, inst.Fragment, "duplicate primary key for struct %q", s.Name)
		}
		s.mappedInstances[tuple] = inst
	}
	return nil
}

// LoadReference resolves a Reference's arguments against this schema's
// primary keys and returns the matching Instance, per spec §4.3.
func (s *StructSchema) LoadReference(ref *Reference) (*Instance, error) {
	if len(s.primaryKeys) == 0 {
		return nil, errAt(UnknownReference, ref.Fragment, "struct %q has no primary keys and cannot be referenced", s.Name)
	}

	keywordMode := false
	positionalIdx := 0
	parts := make([]string, len(s.primaryKeys))
	filled := make([]bool, len(s.primaryKeys))

	indexOfPK := func(name string) int {
		for i, pk := range s.primaryKeys {
			if pk == name {
				return i
			}
		}
		return -1
	}

	for _, arg := range ref.Args {
		am := arg.meta()
		var name string
		if am.AttrName != "" {
			keywordMode = true
			name = am.AttrName
		} else {
			if keywordMode {
				return nil, errAt(PositionalAfterKeyword, am.Fragment, "positional argument after keyword argument in reference to %q", s.Name)
			}
			if positionalIdx >= len(s.primaryKeys) {
				return nil, errAt(UnknownReference, am.Fragment, "too many arguments in reference to %q", s.Name)
			}
			name = s.primaryKeys[positionalIdx]
			positionalIdx++
		}
		idx := indexOfPK(name)
		if idx < 0 {
			return nil, errAt(UnknownAttr, am.Fragment, "%q is not a primary key of struct %q%s", name, s.Name, suggestAttr(name, s.primaryKeys))
		}
		applySchema(arg, s.typeOf[name], name, s.nullable[name], false)
		if err := renderBaseNode(arg); err != nil {
			return nil, err
		}
		parts[idx] = valueToTupleString(renderedValue(arg))
		filled[idx] = true
	}

	for i, ok := range filled {
		if !ok {
			return nil, errAt(MissingAttr, ref.Fragment, "reference to %q missing primary key %q", s.Name, s.primaryKeys[i])
		}
	}

	tuple := strings.Join(parts, "\x00")
	inst, ok := s.mappedInstances[tuple]
	if !ok {
		return nil, errAt(UnknownReference, ref.Fragment, "no %s instance with primary key (%s)", s.Name, strings.Join(parts, ", "))
	}
	return inst, nil
}

func suggestAttr(name string, candidates []string) string {
	best := ""
	bestDist := 1 << 30
	for _, c := range candidates {
		d := levenshtein.Distance(name, c, nil)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	if best == "" || bestDist > 3 {
		return ""
	}
	return " (did you mean \"" + best + "\"?)"
}
