package tyco

// ToObject builds the plain nested tree described in spec §4.5: one entry
// per global, plus one list entry per struct type that has at least one
// primary key (inline-only types are reachable only through their
// containing instance's fields).
func (ctx *Context) ToObject() map[string]any {
	out := make(map[string]any)

	for _, key := range ctx.globals.keysInOrder() {
		g, _ := ctx.globals.get(key)
		out[key] = valueOf(g)
	}

	for _, typeName := range ctx.structs.keysInOrder() {
		schema, _ := ctx.structs.get(typeName)
		if len(schema.primaryKeys) == 0 {
			continue
		}
		list := make([]any, 0, len(schema.instances))
		for _, inst := range schema.instances {
			list = append(list, valueOf(inst))
		}
		out[typeName] = list
	}
	return out
}

func valueOf(n Node) any {
	switch v := n.(type) {
	case *Primitive:
		return renderedValue(v)
	case *Array:
		arr := make([]any, len(v.Elements))
		for i, el := range v.Elements {
			arr[i] = valueOf(el)
		}
		return arr
	case *Instance:
		m := make(map[string]any, len(v.names))
		for _, name := range v.names {
			field, _ := v.get(name)
			m[name] = valueOf(field)
		}
		return m
	case *Reference:
		inst, _ := renderedValue(v).(*Instance)
		if inst == nil {
			return nil
		}
		return valueOf(inst)
	default:
		return nil
	}
}
